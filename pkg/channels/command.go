package channels

import (
	"strings"
)

// ParseCommand splits "<prefix>name[@bot] args" into name and args.
// ok is false when text does not start with prefix or names no command.
func ParseCommand(text, prefix string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	text = strings.TrimPrefix(text, prefix)

	name, args, _ = strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", "", false
	}

	return name, strings.TrimSpace(args), true
}
