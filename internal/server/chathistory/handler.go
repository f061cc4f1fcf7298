// Package chathistory implements the CHATHISTORY client command on top of
// the history query engine: argument parsing, FAIL replies and the batches
// that carry replayed history.
package chathistory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/logging"
	"github.com/revrsefr/sable/internal/server/services"
)

// Batch types.
const (
	BatchChatHistory = "chathistory"
	BatchTargets     = "draft/chathistory-targets"
)

// DefaultMaxLimit caps limits when the handler is built with a
// non-positive maximum.
const DefaultMaxLimit = 100

// HistoryQuerier is the query engine.
type HistoryQuerier interface {
	GetEntries(ctx context.Context, requester history.UserID, target history.TargetID, req history.Request) ([]history.Entry, error)
	ListTargets(ctx context.Context, user history.UserID, lower, upper int64, limit int) []services.TargetTimestamp
}

// Network resolves names and visibility.
type Network interface {
	Resolve(name string) (history.TargetID, bool)
	CanSee(t history.TargetID, user history.UserID) bool
	Name(t history.TargetID) (string, bool)
}

// Handler serves CHATHISTORY for one server.
type Handler struct {
	history    HistoryQuerier
	network    Network
	maxLimit   int
	serverName string
	logger     logging.Logger
	newRef     func() string
}

// NewHandler constructs a Handler. serverName, when set, is used as the
// source of batch and TARGETS lines.
func NewHandler(h HistoryQuerier, n Network, maxLimit int, serverName string, l logging.Logger) *Handler {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Handler{
		history:    h,
		network:    n,
		maxLimit:   maxLimit,
		serverName: serverName,
		logger:     l.With("module", "chathistory"),
		newRef:     uuid.NewString,
	}
}

// Handle runs CHATHISTORY <subcommand> <args...> for requester and returns
// the reply lines. Protocol errors are returned as *FailError.
func (h *Handler) Handle(ctx context.Context, requester history.UserID, params []string) ([]string, error) {
	if len(params) < 4 {
		sub := ""
		if len(params) > 0 {
			sub = params[0]
		}
		return nil, fail(CodeInvalidParams, sub, "Not enough parameters")
	}

	subcommand := params[0]
	if strings.EqualFold(subcommand, "TARGETS") {
		return h.targets(ctx, requester, subcommand, params[1:])
	}

	name := params[1]
	invalidTarget := fail(CodeInvalidTarget, subcommand+" "+name, "Cannot fetch history from "+name)

	target, ok := h.network.Resolve(name)
	if !ok || !h.network.CanSee(target, requester) {
		return nil, invalidTarget
	}

	req, err := h.parseRequest(subcommand, name, params[2:])
	if err != nil {
		return nil, err
	}

	entries, err := h.history.GetEntries(ctx, requester, target, req)
	switch {
	case errors.Is(err, common.ErrorInvalidTarget):
		return nil, invalidTarget
	case err != nil:
		h.logger.Error(ctx, "history query failed", "requester", requester, "target", name, "error", err)
		return nil, fail(CodeMessageError, subcommand+" "+name, err.Error())
	}

	return h.entryBatch(name, entries), nil
}

func (h *Handler) parseRequest(subcommand, target string, args []string) (history.Request, error) {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	var req history.Request
	switch strings.ToUpper(subcommand) {
	case "LATEST":
		var to *int64
		if arg(0) != "*" {
			ts, err := parseMsgref(subcommand, target, arg(0))
			if err != nil {
				return req, err
			}
			to = &ts
		}
		limit, err := h.limit(arg(1))
		if err != nil {
			return req, err
		}
		return history.LatestRequest(to, limit), nil

	case "BEFORE", "AFTER", "AROUND":
		ts, err := parseMsgref(subcommand, target, arg(0))
		if err != nil {
			return req, err
		}
		limit, err := h.limit(arg(1))
		if err != nil {
			return req, err
		}
		switch strings.ToUpper(subcommand) {
		case "BEFORE":
			req = history.BeforeRequest(ts, limit)
		case "AFTER":
			req = history.AfterRequest(ts, limit)
		default:
			req = history.AroundRequest(ts, limit)
		}
		return req, nil

	case "BETWEEN":
		start, err := parseMsgref(subcommand, target, arg(0))
		if err != nil {
			return req, err
		}
		end, err := parseMsgref(subcommand, target, arg(1))
		if err != nil {
			return req, err
		}
		limit, err := h.limit(arg(2))
		if err != nil {
			return req, err
		}
		return history.BetweenRequest(start, end, limit), nil

	default:
		return req, fail(CodeInvalidParams, subcommand, "Invalid subcommand")
	}
}

func (h *Handler) limit(s string) (int, error) {
	n, err := parseLimit(s)
	if err != nil {
		return 0, err
	}
	return min(n, h.maxLimit), nil
}

func (h *Handler) targets(ctx context.Context, requester history.UserID, subcommand string, args []string) ([]string, error) {
	from, err := parseMsgref(subcommand, "", args[0])
	if err != nil {
		return nil, err
	}
	to, err := parseMsgref(subcommand, "", args[1])
	if err != nil {
		return nil, err
	}
	limit, err := h.limit(args[2])
	if err != nil {
		return nil, err
	}

	found := h.history.ListTargets(ctx, requester, min(from, to), max(from, to), limit)
	sort.SliceStable(found, func(i, j int) bool { return found[i].Timestamp < found[j].Timestamp })

	ref := h.newRef()
	lines := make([]string, 0, len(found)+2)
	lines = append(lines, h.sourced("BATCH +"+ref+" "+BatchTargets))
	for _, t := range found {
		name, ok := h.network.Name(t.Target)
		if !ok {
			h.logger.Warn(ctx, "history names an unknown target", "target", t.Target.String())
			continue
		}
		lines = append(lines, tagged(h.sourced(common.ChatHistoryCommand+" TARGETS "+name+" "+timeTag(t.Timestamp).value), tag{"batch", ref}))
	}
	lines = append(lines, h.sourced("BATCH -"+ref))

	return lines, nil
}

// entryBatch renders message entries. Other retained kinds are not
// replayed.
func (h *Handler) entryBatch(name string, entries []history.Entry) []string {
	ref := h.newRef()
	lines := make([]string, 0, len(entries)+2)
	lines = append(lines, h.sourced("BATCH +"+ref+" "+BatchChatHistory+" "+name))

	for _, e := range entries {
		m, ok := e.Details.(history.NewMessage)
		if !ok {
			continue
		}

		msgType := m.MessageType
		if msgType == "" {
			msgType = history.MessagePrivmsg
		}

		line := ":" + m.SourceMask + " " + string(msgType) + " " + h.messageTarget(m) + " " + trailing(m.Text)
		lines = append(lines, tagged(line,
			timeTag(e.Timestamp),
			msgidTag(uint64(e.ID)),
			tag{"account", m.SourceAccount},
			tag{"batch", ref},
		))
	}

	lines = append(lines, h.sourced("BATCH -"+ref))
	return lines
}

// messageTarget is the target parameter of a replayed message: the
// channel's or recipient's current name, else the name stored with it.
func (h *Handler) messageTarget(m history.NewMessage) string {
	if name, ok := h.network.Name(m.Target); ok {
		return name
	}
	if m.TargetName != "" {
		return m.TargetName
	}
	return m.Target.String()
}

func (h *Handler) sourced(line string) string {
	if h.serverName == "" {
		return line
	}
	return ":" + h.serverName + " " + line
}
