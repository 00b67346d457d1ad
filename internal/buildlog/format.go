package buildlog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Format represents the output format for log events.
type Format uint8

const (
	FormatAuto   Format = iota // pick from the output path
	FormatText                 // human-readable text
	FormatNDJSON               // newline-delimited JSON
)

// ParseFormat converts a --log-format value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return FormatAuto, fmt.Errorf("invalid log format: %q (expected: auto|text|ndjson)", s)
	}
}

// FormatEvent formats an event according to the specified format.
func FormatEvent(ev *Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	default:
		return formatText(ev)
	}
}

// formatNDJSON formats an event as newline-delimited JSON.
func formatNDJSON(ev *Event) []byte {
	type jsonEvent struct {
		Time   string            `json:"time"`
		Seq    uint64            `json:"seq"`
		Level  string            `json:"level"`
		Kind   string            `json:"kind"`
		Run    string            `json:"run,omitempty"`
		Name   string            `json:"name,omitempty"`
		Detail string            `json:"detail,omitempty"`
		Extra  map[string]string `json:"extra,omitempty"`
	}

	j := jsonEvent{
		Time:   ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:    ev.Seq,
		Level:  ev.Kind.Severity().String(),
		Kind:   ev.Kind.String(),
		Run:    ev.Run,
		Name:   ev.Name,
		Detail: ev.Detail,
		Extra:  ev.Extra,
	}

	data, _ := json.Marshal(j)
	data = append(data, '\n')
	return data
}

// formatText formats an event as one human-readable line.
// Format: 2006-01-02 15:04:05 LEVEL kind name (detail) {k=v, ...}
// Multi-line details (compiler stderr) are indented under the line.
func formatText(ev *Event) []byte {
	var sb strings.Builder

	sb.WriteString(ev.Time.Format("2006-01-02 15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(strings.ToUpper(ev.Kind.Severity().String()))
	sb.WriteString(" ")
	sb.WriteString(ev.Kind.String())

	if ev.Name != "" {
		sb.WriteString(" ")
		sb.WriteString(ev.Name)
	}

	if len(ev.Extra) > 0 {
		keys := make([]string, 0, len(ev.Extra))
		for k := range ev.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(ev.Extra[k])
		}
		sb.WriteString("}")
	}

	detail := strings.TrimRight(ev.Detail, "\n")
	switch {
	case detail == "":
	case strings.Contains(detail, "\n"):
		sb.WriteString("\n    ")
		sb.WriteString(strings.ReplaceAll(detail, "\n", "\n    "))
	default:
		sb.WriteString(" (")
		sb.WriteString(detail)
		sb.WriteString(")")
	}

	sb.WriteString("\n")
	return []byte(sb.String())
}
