package logger

import "strings"

// keyOrder fixes where well-known keys appear on a line. Keys not listed
// follow in alphabetical order.
var keyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"event_kind",
	"stage",
	"membership",
	"duration_ms",
	"channel_id",
	"operator_chat_id",
	"delay_ms",
	"pending",
	"superseded",
	"recipients",
	"queued",
	"mode",
	"listen",
	"http_code",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
}

var keyRank = func() map[string]int {
	m := make(map[string]int, len(keyOrder))
	for i, k := range keyOrder {
		m[k] = i
	}
	return m
}()

// statusValues are the status values dashboards filter on; anything else is
// logged lowercased as given.
var statusValues = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"rate_limited": {},
	"cancelled":    {},
}

func levelName(lvl string) string {
	switch strings.ToLower(lvl) {
	case "warning":
		return "WARN"
	case "":
		return "INFO"
	}
	return strings.ToUpper(lvl)
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, known := statusValues[s]; known {
		return s
	}
	return strings.ReplaceAll(s, " ", "_")
}
