package feed

import (
	"strings"
	"time"

	"grumblr/internal/store"
	"grumblr/internal/utils"
)

// Epoch is the cursor used when the client has seen nothing yet.
var Epoch = time.Unix(0, 0).UTC()

// ParseCursor reads the timestamp and optional id halves of a cursor.
// An unparseable timestamp falls back to Epoch; an unparseable id to 0.
func ParseCursor(ts, id string) store.Cursor {
	cur := store.Cursor{After: Epoch, AfterID: utils.StringToUint(id)}

	ts = strings.TrimSpace(ts)
	if ts == "" {
		return cur
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, ts); err == nil {
			cur.After = t.UTC()
			return cur
		}
	}
	// 非法时间同时丢弃 id，避免 (epoch, id) 组合跳过旧数据
	cur.AfterID = 0
	return cur
}

// FormatTime renders a cursor timestamp the way ParseCursor reads it back.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
