package render

import (
	"fmt"
	"html/template"
	"net/url"
	"time"

	"grumblr/internal/utils"
)

// CardDateLayout is how message and comment cards print their timestamp.
const CardDateLayout = "15:04 PM - 02 Jan 2006"

// FuncMap is shared by card fragments and full pages.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"markdown": utils.RenderMarkdown,
		"cardDate": func(t time.Time) string {
			return t.UTC().Format(CardDateLayout)
		},
		"isoTime": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339Nano)
		},
		"timeAgo": timeAgo,
		"urlquery": func(s string) string {
			return url.QueryEscape(s)
		},
	}
}

func timeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	case seconds < 2592000:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
	return t.UTC().Format("02 Jan 2006")
}
