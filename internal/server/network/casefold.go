package network

import "strings"

// Casefold maps an IRC name to its comparison form using rfc1459 rules:
// ASCII letters are lowered and []\~ fold to {}|^.
func Casefold(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == '[':
			return '{'
		case r == ']':
			return '}'
		case r == '\\':
			return '|'
		case r == '~':
			return '^'
		default:
			return r
		}
	}, s)
}

// IsChannelName reports whether name has a channel prefix.
func IsChannelName(name string) bool {
	return name != "" && (name[0] == '#' || name[0] == '&')
}
