package history

// ChangeKind names a kind of network state change.
type ChangeKind string

// Kinds retained in history.
const (
	KindUserNickChange       ChangeKind = "user_nick_change"
	KindUserQuit             ChangeKind = "user_quit"
	KindChannelModeChange    ChangeKind = "channel_mode_change"
	KindChannelTopicChange   ChangeKind = "channel_topic_change"
	KindListModeAdded        ChangeKind = "list_mode_added"
	KindListModeRemoved      ChangeKind = "list_mode_removed"
	KindMembershipFlagChange ChangeKind = "membership_flag_change"
	KindChannelJoin          ChangeKind = "channel_join"
	KindChannelKick          ChangeKind = "channel_kick"
	KindChannelPart          ChangeKind = "channel_part"
	KindChannelInvite        ChangeKind = "channel_invite"
	KindChannelRename        ChangeKind = "channel_rename"
	KindNewMessage           ChangeKind = "new_message"
)

// Kinds that are never stored.
const (
	KindNewUser                    ChangeKind = "new_user"
	KindUserModeChange             ChangeKind = "user_mode_change"
	KindUserAwayChange             ChangeKind = "user_away_change"
	KindNewUserConnection          ChangeKind = "new_user_connection"
	KindUserConnectionDisconnected ChangeKind = "user_connection_disconnected"
	KindNewServer                  ChangeKind = "new_server"
	KindServerQuit                 ChangeKind = "server_quit"
	KindNewAuditLogEntry           ChangeKind = "new_audit_log_entry"
	KindUserLoginChange            ChangeKind = "user_login_change"
	KindServicesUpdate             ChangeKind = "services_update"
	KindHistoryServerUpdate        ChangeKind = "history_server_update"
	KindEventComplete              ChangeKind = "event_complete"
)

// Retained reports whether changes of kind k are recorded in history.
// Unknown kinds are not retained.
func Retained(k ChangeKind) bool {
	switch k {
	case KindUserNickChange,
		KindUserQuit,
		KindChannelModeChange,
		KindChannelTopicChange,
		KindListModeAdded,
		KindListModeRemoved,
		KindMembershipFlagChange,
		KindChannelJoin,
		KindChannelKick,
		KindChannelPart,
		KindChannelInvite,
		KindChannelRename,
		KindNewMessage:
		return true
	case KindNewUser,
		KindUserModeChange,
		KindUserAwayChange,
		KindNewUserConnection,
		KindUserConnectionDisconnected,
		KindNewServer,
		KindServerQuit,
		KindNewAuditLogEntry,
		KindUserLoginChange,
		KindServicesUpdate,
		KindHistoryServerUpdate,
		KindEventComplete:
		return false
	default:
		return false
	}
}

// StateChange is a network state change as delivered by the event source.
type StateChange interface {
	Kind() ChangeKind
}

// MessageType distinguishes PRIVMSG from NOTICE.
type MessageType string

const (
	MessagePrivmsg MessageType = "PRIVMSG"
	MessageNotice  MessageType = "NOTICE"
)

// NewMessage is a message sent to a channel or a user.
type NewMessage struct {
	Source        UserID      `json:"source"`
	SourceMask    string      `json:"source_mask"`
	SourceAccount string      `json:"source_account,omitempty"`
	Target        TargetID    `json:"target"`
	TargetName    string      `json:"target_name"`
	MessageType   MessageType `json:"message_type"`
	Text          string      `json:"text"`
}

type UserNickChange struct {
	User    UserID `json:"user"`
	OldNick string `json:"old_nick"`
	NewNick string `json:"new_nick"`
}

type UserQuit struct {
	User    UserID `json:"user"`
	Nick    string `json:"nick"`
	Message string `json:"message"`
}

type ChannelModeChange struct {
	Channel ChannelID `json:"channel"`
	Source  UserID    `json:"source"`
	Added   string    `json:"added"`
	Removed string    `json:"removed"`
	Params  []string  `json:"params,omitempty"`
}

type ChannelTopicChange struct {
	Channel ChannelID `json:"channel"`
	Source  UserID    `json:"source"`
	Topic   string    `json:"topic"`
}

// ListModeAdded adds a pattern to a channel list mode (ban, quiet, exempt, invex).
type ListModeAdded struct {
	Channel ChannelID `json:"channel"`
	Source  UserID    `json:"source"`
	Mode    byte      `json:"mode"`
	Pattern string    `json:"pattern"`
}

type ListModeRemoved struct {
	Channel ChannelID `json:"channel"`
	Source  UserID    `json:"source"`
	Mode    byte      `json:"mode"`
	Pattern string    `json:"pattern"`
}

// MembershipFlagChange changes a member's prefix flags (op, voice).
type MembershipFlagChange struct {
	Channel ChannelID `json:"channel"`
	Source  UserID    `json:"source"`
	User    UserID    `json:"user"`
	Added   string    `json:"added"`
	Removed string    `json:"removed"`
}

type ChannelJoin struct {
	Channel     ChannelID `json:"channel"`
	ChannelName string    `json:"channel_name"`
	User        UserID    `json:"user"`
}

type ChannelKick struct {
	Channel ChannelID `json:"channel"`
	Source  UserID    `json:"source"`
	User    UserID    `json:"user"`
	Message string    `json:"message"`
}

type ChannelPart struct {
	Channel ChannelID `json:"channel"`
	User    UserID    `json:"user"`
	Message string    `json:"message"`
}

type ChannelInvite struct {
	Channel ChannelID `json:"channel"`
	Source  UserID    `json:"source"`
	User    UserID    `json:"user"`
}

type ChannelRename struct {
	Channel ChannelID `json:"channel"`
	OldName string    `json:"old_name"`
	NewName string    `json:"new_name"`
	Message string    `json:"message"`
}

type NewUser struct {
	User     UserID `json:"user"`
	Nick     string `json:"nick"`
	Username string `json:"username"`
	Host     string `json:"host"`
	Realname string `json:"realname"`
	Account  string `json:"account,omitempty"`
}

type UserModeChange struct {
	User    UserID `json:"user"`
	Added   string `json:"added"`
	Removed string `json:"removed"`
}

type UserAwayChange struct {
	User   UserID `json:"user"`
	Reason string `json:"reason"`
}

type NewUserConnection struct {
	User       UserID `json:"user"`
	Connection string `json:"connection"`
}

type UserConnectionDisconnected struct {
	User       UserID `json:"user"`
	Connection string `json:"connection"`
}

type NewServer struct {
	Server string `json:"server"`
	Name   string `json:"name"`
}

type ServerQuit struct {
	Server string `json:"server"`
	Name   string `json:"name"`
}

type NewAuditLogEntry struct {
	Category string `json:"category"`
	Details  string `json:"details"`
}

type UserLoginChange struct {
	User    UserID `json:"user"`
	Account string `json:"account"`
}

type ServicesUpdate struct {
	Server string `json:"server"`
}

type HistoryServerUpdate struct {
	Server string `json:"server"`
}

// EventComplete marks the end of a multi-change network event.
type EventComplete struct {
	Event EventID `json:"event"`
}

func (NewMessage) Kind() ChangeKind                 { return KindNewMessage }
func (UserNickChange) Kind() ChangeKind             { return KindUserNickChange }
func (UserQuit) Kind() ChangeKind                   { return KindUserQuit }
func (ChannelModeChange) Kind() ChangeKind          { return KindChannelModeChange }
func (ChannelTopicChange) Kind() ChangeKind         { return KindChannelTopicChange }
func (ListModeAdded) Kind() ChangeKind              { return KindListModeAdded }
func (ListModeRemoved) Kind() ChangeKind            { return KindListModeRemoved }
func (MembershipFlagChange) Kind() ChangeKind       { return KindMembershipFlagChange }
func (ChannelJoin) Kind() ChangeKind                { return KindChannelJoin }
func (ChannelKick) Kind() ChangeKind                { return KindChannelKick }
func (ChannelPart) Kind() ChangeKind                { return KindChannelPart }
func (ChannelInvite) Kind() ChangeKind              { return KindChannelInvite }
func (ChannelRename) Kind() ChangeKind              { return KindChannelRename }
func (NewUser) Kind() ChangeKind                    { return KindNewUser }
func (UserModeChange) Kind() ChangeKind             { return KindUserModeChange }
func (UserAwayChange) Kind() ChangeKind             { return KindUserAwayChange }
func (NewUserConnection) Kind() ChangeKind          { return KindNewUserConnection }
func (UserConnectionDisconnected) Kind() ChangeKind { return KindUserConnectionDisconnected }
func (NewServer) Kind() ChangeKind                  { return KindNewServer }
func (ServerQuit) Kind() ChangeKind                 { return KindServerQuit }
func (NewAuditLogEntry) Kind() ChangeKind           { return KindNewAuditLogEntry }
func (UserLoginChange) Kind() ChangeKind            { return KindUserLoginChange }
func (ServicesUpdate) Kind() ChangeKind             { return KindServicesUpdate }
func (HistoryServerUpdate) Kind() ChangeKind        { return KindHistoryServerUpdate }
func (EventComplete) Kind() ChangeKind              { return KindEventComplete }
