package timex

import "time"

// TimestampLayout is the message-tag time format: UTC, millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ParseTimestamp parses an RFC 3339 timestamp into unix milliseconds.
// Sub-millisecond precision is truncated.
func ParseTimestamp(s string) (int64, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}

// FormatTimestamp renders unix milliseconds in TimestampLayout.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimestampLayout)
}

// NowMillis returns the current time in unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
