package history

import "fmt"

// RequestKind is the shape of a history query for a single target.
type RequestKind int

const (
	RequestLatest RequestKind = iota + 1
	RequestBefore
	RequestAfter
	RequestAround
	RequestBetween
)

func (k RequestKind) String() string {
	switch k {
	case RequestLatest:
		return "LATEST"
	case RequestBefore:
		return "BEFORE"
	case RequestAfter:
		return "AFTER"
	case RequestAround:
		return "AROUND"
	case RequestBetween:
		return "BETWEEN"
	default:
		return fmt.Sprintf("RequestKind(%d)", int(k))
	}
}

// Request is a bounded history query. Timestamps are unix milliseconds.
//
// Which fields are meaningful depends on Kind:
//
//	Latest   To (optional, HasTo)
//	Before   From
//	After    From
//	Around   From
//	Between  From, To
type Request struct {
	Kind  RequestKind
	From  int64
	To    int64
	HasTo bool
	Limit int
}

// LatestRequest asks for the newest entries at or before to, or the newest
// entries overall when to is nil.
func LatestRequest(to *int64, limit int) Request {
	r := Request{Kind: RequestLatest, Limit: limit}
	if to != nil {
		r.To = *to
		r.HasTo = true
	}
	return r
}

// BeforeRequest asks for the entries strictly before from.
func BeforeRequest(from int64, limit int) Request {
	return Request{Kind: RequestBefore, From: from, Limit: limit}
}

// AfterRequest asks for the entries strictly after start.
func AfterRequest(start int64, limit int) Request {
	return Request{Kind: RequestAfter, From: start, Limit: limit}
}

// AroundRequest asks for the entries nearest around on either side.
func AroundRequest(around int64, limit int) Request {
	return Request{Kind: RequestAround, From: around, Limit: limit}
}

// BetweenRequest asks for the entries in the inclusive window between start
// and end. The bounds may be given in either order; the walk starts at start.
func BetweenRequest(start, end int64, limit int) Request {
	return Request{Kind: RequestBetween, From: start, To: end, HasTo: true, Limit: limit}
}
