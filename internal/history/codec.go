package history

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when decoding a change of an unrecognized kind.
var ErrUnknownKind = errors.New("unknown state change kind")

// Envelope is the tagged serialized form of a StateChange.
type Envelope struct {
	Kind ChangeKind      `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Wrap encodes c into its tagged form.
func Wrap(c StateChange) (Envelope, error) {
	if c == nil {
		return Envelope{}, errors.New("nil state change")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", c.Kind(), err)
	}
	return Envelope{Kind: c.Kind(), Data: data}, nil
}

// Unwrap decodes the change held by e.
func (e Envelope) Unwrap() (StateChange, error) {
	switch e.Kind {
	case KindNewMessage:
		return decodeAs[NewMessage](e.Data)
	case KindUserNickChange:
		return decodeAs[UserNickChange](e.Data)
	case KindUserQuit:
		return decodeAs[UserQuit](e.Data)
	case KindChannelModeChange:
		return decodeAs[ChannelModeChange](e.Data)
	case KindChannelTopicChange:
		return decodeAs[ChannelTopicChange](e.Data)
	case KindListModeAdded:
		return decodeAs[ListModeAdded](e.Data)
	case KindListModeRemoved:
		return decodeAs[ListModeRemoved](e.Data)
	case KindMembershipFlagChange:
		return decodeAs[MembershipFlagChange](e.Data)
	case KindChannelJoin:
		return decodeAs[ChannelJoin](e.Data)
	case KindChannelKick:
		return decodeAs[ChannelKick](e.Data)
	case KindChannelPart:
		return decodeAs[ChannelPart](e.Data)
	case KindChannelInvite:
		return decodeAs[ChannelInvite](e.Data)
	case KindChannelRename:
		return decodeAs[ChannelRename](e.Data)
	case KindNewUser:
		return decodeAs[NewUser](e.Data)
	case KindUserModeChange:
		return decodeAs[UserModeChange](e.Data)
	case KindUserAwayChange:
		return decodeAs[UserAwayChange](e.Data)
	case KindNewUserConnection:
		return decodeAs[NewUserConnection](e.Data)
	case KindUserConnectionDisconnected:
		return decodeAs[UserConnectionDisconnected](e.Data)
	case KindNewServer:
		return decodeAs[NewServer](e.Data)
	case KindServerQuit:
		return decodeAs[ServerQuit](e.Data)
	case KindNewAuditLogEntry:
		return decodeAs[NewAuditLogEntry](e.Data)
	case KindUserLoginChange:
		return decodeAs[UserLoginChange](e.Data)
	case KindServicesUpdate:
		return decodeAs[ServicesUpdate](e.Data)
	case KindHistoryServerUpdate:
		return decodeAs[HistoryServerUpdate](e.Data)
	case KindEventComplete:
		return decodeAs[EventComplete](e.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

func decodeAs[T StateChange](data json.RawMessage) (StateChange, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", v.Kind(), err)
	}
	return v, nil
}

type entryJSON struct {
	ID          EntryID  `json:"id"`
	Timestamp   int64    `json:"timestamp"`
	SourceEvent EventID  `json:"source_event"`
	Details     Envelope `json:"details"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	env, err := Wrap(e.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entryJSON{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		SourceEvent: e.SourceEvent,
		Details:     env,
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	details, err := raw.Details.Unwrap()
	if err != nil {
		return err
	}
	*e = Entry{
		ID:          raw.ID,
		Timestamp:   raw.Timestamp,
		SourceEvent: raw.SourceEvent,
		Details:     details,
	}
	return nil
}
