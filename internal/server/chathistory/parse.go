package chathistory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/revrsefr/sable/internal/timex"
)

// parseMsgref reads a timestamp= message reference as unix milliseconds.
// target is empty for TARGETS.
func parseMsgref(subcommand, target, msgref string) (int64, error) {
	context := subcommand
	if target != "" {
		context = subcommand + " " + target
	}

	kind, value, found := strings.Cut(msgref, "=")
	switch {
	case found && kind == "timestamp":
		ts, ok := timex.ParseTimestamp(value)
		if !ok {
			return 0, fail(CodeInvalidParams, subcommand, "Invalid timestamp")
		}
		return ts, nil
	case found && kind == "msgid":
		return 0, fail(CodeInvalidMsgrefType, context, "msgid-based history requests are not supported yet")
	default:
		return 0, fail(CodeInvalidMsgrefType, context, fmt.Sprintf("%q is not a valid message reference", msgref))
	}
}

func parseLimit(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil || n == 0 {
		return 0, fail(CodeInvalidParams, "", "Invalid limit")
	}
	return int(n), nil
}
