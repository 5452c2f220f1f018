package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// FieldPrefix is prepended to every attribute key sent to the journal.
const FieldPrefix = "LAUNCHPAD_"

// SendFunc delivers one journal entry.
type SendFunc func(message string, priority journal.Priority, fields map[string]string) error

// JournalHandler is a slog.Handler that writes records to journald.
type JournalHandler struct {
	level  slog.Leveler
	send   SendFunc
	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*JournalHandler)(nil)

// NewJournalHandler returns a handler sending through journal.Send.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return NewJournalHandlerWithSend(level, journal.Send)
}

// NewJournalHandlerWithSend is NewJournalHandler with a custom sender.
func NewJournalHandlerWithSend(level slog.Leveler, send SendFunc) *JournalHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &JournalHandler{level: level, send: send}
}

func (h *JournalHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]string, len(h.attrs)+r.NumAttrs())
	prefix := strings.Join(h.groups, "_")
	for _, a := range h.attrs {
		addField(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addField(fields, prefix, a)
		return true
	})
	return h.send(r.Message, priority(r.Level), fields)
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	prefix := strings.Join(h.groups, "_")
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "_" + a.Key
		}
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.groups = append(append([]string(nil), h.groups...), name)
	return &nh
}

func addField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "_" + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addField(fields, key, ga)
		}
		return
	}
	fields[FieldName(key)] = a.Value.String()
}

// FieldName maps an attribute key onto a valid journal field name:
// upper case letters, digits and underscores, prefixed with FieldPrefix.
func FieldName(key string) string {
	var b strings.Builder
	b.WriteString(FieldPrefix)
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func priority(l slog.Level) journal.Priority {
	switch {
	case l >= slog.LevelError:
		return journal.PriErr
	case l >= slog.LevelWarn:
		return journal.PriWarning
	case l >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

