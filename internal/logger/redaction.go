package logger

import (
	"io"
	"regexp"
	"strings"
)

const redactedText = "[REDACTED]"

// minSecretLen keeps short config values from masking ordinary words
const minSecretLen = 8

// Order matters: platform tokens go first so the key/value rule below sees
// "[REDACTED]" and leaves it alone.
var defaultPatterns = []*regexp.Regexp{
	// Telegram bot token, also embedded in Bot API URLs
	regexp.MustCompile(`\d{8,10}:[A-Za-z0-9_-]{30,}`),
	// Discord bot token
	regexp.MustCompile(`[MNO][A-Za-z0-9_-]{23,25}\.[A-Za-z0-9_-]{6}\.[A-Za-z0-9_-]{27,38}`),
	// Discord and generic authorization headers
	regexp.MustCompile(`Bot\s+[A-Za-z0-9._-]{50,}`),
	regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]+`),
	// bot_token=..., "token": "...", password: ...
	regexp.MustCompile(`(?i)(bot_token|token|password|secret)("?\s*[:=]\s*"?)[A-Za-z0-9._:-]{8,}`),
}

// Redactor masks chat platform credentials in log output
type Redactor struct {
	secrets  []string
	patterns []*regexp.Regexp
}

// NewRedactor masks the default token patterns plus each secret verbatim.
// Pass the configured bot tokens so they are hidden whatever their shape.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{patterns: defaultPatterns}
	for _, s := range secrets {
		if s = strings.TrimSpace(s); len(s) >= minSecretLen {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// Redact masks every secret and pattern match in s
func (r *Redactor) Redact(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, redactedText)
	}
	for _, p := range r.patterns {
		if p.NumSubexp() == 2 {
			s = p.ReplaceAllString(s, "${1}${2}"+redactedText)
			continue
		}
		s = p.ReplaceAllString(s, redactedText)
	}
	return s
}

// Wrap returns a writer that redacts each record before passing it to w
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success since callers count the bytes they passed
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.writer, w.redactor.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
