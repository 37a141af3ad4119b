package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

// record collects the fields of one line. The first value set for a key
// wins, so call attributes shadow handler and context attributes.
type record map[string]any

func (r record) add(key string, val any) {
	if key == "" {
		return
	}
	if _, taken := r[key]; taken {
		return
	}
	r[key] = val
}

func (r record) keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := keyRank[keys[i]]
		rj, jok := keyRank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return keys[i] < keys[j]
	})
	return keys
}

// recordHandler is the slog.Handler behind every package logger. It renders
// one line per record either as key=value pairs or as a JSON object.
type recordHandler struct {
	level  slog.Leveler
	format logFormat
	out    *lineWriter
	attrs  []slog.Attr
	prefix string
}

func newRecordHandler(level slog.Leveler, format logFormat, out *lineWriter) *recordHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &recordHandler{level: level, format: format, out: out}
}

func (h *recordHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *recordHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.out == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	rec := make(record, 16)
	r.Attrs(func(a slog.Attr) bool {
		addAttr(rec, h.prefix, a)
		return true
	})
	for _, a := range h.attrs {
		addAttr(rec, "", a)
	}
	FieldsFrom(ctx).each(rec.add)

	event := r.Message
	if event == "" {
		event = "unknown"
	}
	rec.add("event", event)
	rec.add("component", "app")
	rec["ts"] = r.Time.UTC().Truncate(time.Millisecond).Format(timeFormatMillis)
	rec["level"] = levelName(r.Level.String())
	if s, ok := rec["status"].(string); ok {
		rec["status"] = normalizeStatus(s)
	}

	line, err := h.render(rec)
	if err != nil {
		return err
	}
	return h.out.Write(append(line, '\n'))
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	// Later With calls shadow earlier ones.
	clone.attrs = append(clone.attrs, h.attrs...)
	return &clone
}

func (h *recordHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *recordHandler) render(rec record) ([]byte, error) {
	if h.format == formatJSON {
		return renderJSON(rec)
	}
	return renderKV(rec), nil
}

func addAttr(rec record, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			p := prefix
			if a.Key != "" {
				p += a.Key + "."
			}
			addAttr(rec, p, child)
		}
		return
	}
	if a.Key == "" {
		return
	}
	key := prefix + a.Key
	if d, ok := durationOf(v); ok {
		rec.add(msKey(key), RoundMS(d).Milliseconds())
		return
	}
	if val, ok := plainValue(v); ok {
		rec.add(key, val)
	}
}

func durationOf(v slog.Value) (time.Duration, bool) {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration(), true
	case slog.KindAny:
		d, ok := v.Any().(time.Duration)
		return d, ok
	}
	return 0, false
}

// plainValue converts v into a JSON-friendly value. Empty strings and nil
// values are dropped.
func plainValue(v slog.Value) (any, bool) {
	switch v.Kind() {
	case slog.KindString:
		s := strings.TrimSpace(v.String())
		return s, s != ""
	case slog.KindBool:
		return v.Bool(), true
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return v.Uint64(), true
	case slog.KindFloat64:
		return v.Float64(), true
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return nil, false
	case error:
		return x.Error(), true
	case fmt.Stringer:
		s := x.String()
		return s, s != ""
	default:
		s := strings.TrimSpace(fmt.Sprint(x))
		return s, s != ""
	}
}

// msKey names a duration field so its unit is visible: delay becomes
// delay_ms, duration becomes duration_ms.
func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func renderJSON(rec record) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range rec.keys() {
		data, err := json.Marshal(rec[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func renderKV(rec record) []byte {
	var b strings.Builder
	for i, k := range rec.keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(rec[k])
		if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String())
}
