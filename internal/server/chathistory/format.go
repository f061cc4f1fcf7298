package chathistory

import (
	"strconv"
	"strings"

	"github.com/revrsefr/sable/internal/timex"
)

var tagValueEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\:`,
	" ", `\s`,
	"\r", `\r`,
	"\n", `\n`,
)

type tag struct {
	key, value string
}

// tagged prefixes line with an IRCv3 message-tags section. Tags with empty
// values are omitted.
func tagged(line string, tags ...tag) string {
	var b strings.Builder
	for _, t := range tags {
		if t.value == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteByte('@')
		} else {
			b.WriteByte(';')
		}
		b.WriteString(t.key)
		b.WriteByte('=')
		b.WriteString(tagValueEscaper.Replace(t.value))
	}
	if b.Len() == 0 {
		return line
	}
	b.WriteByte(' ')
	b.WriteString(line)
	return b.String()
}

func timeTag(ms int64) tag { return tag{"time", timex.FormatTimestamp(ms)} }

func msgidTag(id uint64) tag { return tag{"msgid", strconv.FormatUint(id, 10)} }

// trailing formats a final parameter, always with a leading colon.
func trailing(s string) string {
	return ":" + s
}
