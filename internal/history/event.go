package history

import "encoding/json"

// Event is one state change as delivered by the event source, already in
// the network's agreed order.
type Event struct {
	ID        EventID
	Timestamp int64 // unix milliseconds
	Details   StateChange
}

type eventJSON struct {
	ID        EventID  `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Details   Envelope `json:"details"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	env, err := Wrap(e.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventJSON{ID: e.ID, Timestamp: e.Timestamp, Details: env})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	details, err := raw.Details.Unwrap()
	if err != nil {
		return err
	}
	*e = Event{ID: raw.ID, Timestamp: raw.Timestamp, Details: details}
	return nil
}
