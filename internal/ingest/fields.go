package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Upstream cleaners are not fully consistent about field naming, so every
// lookup walks an alias list. The first present alias wins.

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func stringField(row map[string]any, aliases ...string) (string, bool) {
	for _, a := range aliases {
		v, ok := row[a]
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s, true
			}
		case fmt.Stringer:
			return s.String(), true
		}
	}
	return "", false
}

func floatField(row map[string]any, aliases ...string) (float64, bool) {
	for _, a := range aliases {
		v, ok := row[a]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			f, err := n.Float64()
			if err == nil {
				return f, true
			}
		case string:
			f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", ""), 64)
			if err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func intField(row map[string]any, aliases ...string) (int, bool) {
	f, ok := floatField(row, aliases...)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func timeField(row map[string]any, aliases ...string) (time.Time, bool) {
	s, ok := stringField(row, aliases...)
	if !ok {
		for _, a := range aliases {
			if t, isTime := row[a].(time.Time); isTime {
				return t, true
			}
		}
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
