package history

import "fmt"

// EntryID is the position of an entry in the global history sequence.
type EntryID uint64

// EventID refers back to the network event an entry was recorded from.
type EventID string

// UserID identifies a network user.
type UserID string

// ChannelID identifies a network channel.
type ChannelID string

// TargetKind distinguishes the two kinds of conversation target.
type TargetKind string

const (
	TargetUser    TargetKind = "user"
	TargetChannel TargetKind = "channel"
)

// TargetID is a conversation endpoint: a user (direct messages) or a channel.
// It is comparable and can be used as a map key.
type TargetID struct {
	Kind    TargetKind `json:"kind"`
	User    UserID     `json:"user,omitempty"`
	Channel ChannelID  `json:"channel,omitempty"`
}

// UserTarget returns the target for direct messages with u.
func UserTarget(u UserID) TargetID {
	return TargetID{Kind: TargetUser, User: u}
}

// ChannelTarget returns the target for channel c.
func ChannelTarget(c ChannelID) TargetID {
	return TargetID{Kind: TargetChannel, Channel: c}
}

// IsUser reports whether t is a user target.
func (t TargetID) IsUser() bool { return t.Kind == TargetUser }

// IsChannel reports whether t is a channel target.
func (t TargetID) IsChannel() bool { return t.Kind == TargetChannel }

func (t TargetID) String() string {
	switch t.Kind {
	case TargetUser:
		return fmt.Sprintf("user:%s", t.User)
	case TargetChannel:
		return fmt.Sprintf("channel:%s", t.Channel)
	default:
		return "invalid"
	}
}
