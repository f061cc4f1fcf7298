package history

// Entry is one recorded state change. Entries are immutable once stored.
type Entry struct {
	ID          EntryID
	Timestamp   int64 // unix milliseconds
	SourceEvent EventID
	Details     StateChange
}

// TargetFor returns the conversation e belongs to from user's point of view.
// Channel events belong to their channel; a direct message belongs to the
// other party; nick changes and quits belong to the user who changed.
func TargetFor(e Entry, user UserID) (TargetID, bool) {
	switch d := e.Details.(type) {
	case NewMessage:
		if d.Target.IsChannel() {
			return d.Target, true
		}
		if d.Source == user {
			return d.Target, true
		}
		return UserTarget(d.Source), true
	case UserNickChange:
		return UserTarget(d.User), true
	case UserQuit:
		return UserTarget(d.User), true
	case ChannelModeChange:
		return ChannelTarget(d.Channel), true
	case ChannelTopicChange:
		return ChannelTarget(d.Channel), true
	case ListModeAdded:
		return ChannelTarget(d.Channel), true
	case ListModeRemoved:
		return ChannelTarget(d.Channel), true
	case MembershipFlagChange:
		return ChannelTarget(d.Channel), true
	case ChannelJoin:
		return ChannelTarget(d.Channel), true
	case ChannelKick:
		return ChannelTarget(d.Channel), true
	case ChannelPart:
		return ChannelTarget(d.Channel), true
	case ChannelInvite:
		return ChannelTarget(d.Channel), true
	case ChannelRename:
		return ChannelTarget(d.Channel), true
	default:
		return TargetID{}, false
	}
}
