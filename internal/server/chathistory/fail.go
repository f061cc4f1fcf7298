package chathistory

import (
	"strings"

	"github.com/revrsefr/sable/internal/common"
)

// FAIL codes used by CHATHISTORY.
const (
	CodeInvalidParams     = "INVALID_PARAMS"
	CodeInvalidMsgrefType = "INVALID_MSGREFTYPE"
	CodeInvalidTarget     = "INVALID_TARGET"
	CodeMessageError      = "MESSAGE_ERROR"
)

// FailError is a standard-replies FAIL sent back to the client.
type FailError struct {
	Command     string
	Code        string
	Context     string
	Description string
}

func fail(code, context, description string) *FailError {
	return &FailError{
		Command:     common.ChatHistoryCommand,
		Code:        code,
		Context:     context,
		Description: description,
	}
}

func (e *FailError) Error() string {
	return e.Line()
}

// Line renders the error as FAIL <command> <code> [<context>] :<description>.
func (e *FailError) Line() string {
	var b strings.Builder
	b.WriteString("FAIL ")
	b.WriteString(e.Command)
	b.WriteByte(' ')
	b.WriteString(e.Code)
	if e.Context != "" {
		b.WriteByte(' ')
		b.WriteString(e.Context)
	}
	b.WriteString(" :")
	b.WriteString(e.Description)
	return b.String()
}
