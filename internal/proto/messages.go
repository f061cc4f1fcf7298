package proto

import (
	"encoding/json"

	"github.com/revrsefr/sable/internal/history"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type ChatHistoryRequest struct {
	Params []string `json:"params"`
}

// ChatHistoryResponse carries the reply lines, or the FAIL line when the
// request was rejected.
type ChatHistoryResponse struct {
	Lines []string `json:"lines"`
	Fail  string   `json:"fail,omitempty"`
}

type IngestRequest struct {
	Event history.Event `json:"event"`
}

type IngestResponse struct {
	EntryID  uint64 `json:"entry_id"`
	Accepted bool   `json:"accepted"`
}

// ExpireRequest removes history older than OlderThan (unix ms).
type ExpireRequest struct {
	OlderThan int64 `json:"older_than"`
}

type ExpireResponse struct {
	Removed int `json:"removed"`
}

type SnapshotRequest struct{}

// SnapshotResponse names the saved snapshot. URL is a temporary download
// link when the backend supports one.
type SnapshotResponse struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// ToStruct converts v to a Struct through its JSON form.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FromStruct fills v from s through its JSON form. A nil s leaves v unchanged.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
