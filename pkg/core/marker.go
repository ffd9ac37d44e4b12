package core

import (
	"strings"
)

// Markers are single output lines a test emits to annotate its own
// outcome. The runner picks them out of the go test output stream:
//
//	##harness[tag]=Positive
const markerPrefix = "##harness["

// Marker keys.
const (
	MarkerTag         = "tag"
	MarkerDescription = "description"
	MarkerScreenshot  = "screenshot"
)

// FormatMarker renders a marker line. Newlines in value are flattened to
// spaces so the marker stays on one line.
func FormatMarker(key, value string) string {
	value = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(value)
	return markerPrefix + key + "]=" + value
}

// ParseMarker finds a marker anywhere in line, so output prefixes such as
// "    login_test.go:12: " are tolerated.
func ParseMarker(line string) (key, value string, ok bool) {
	i := strings.Index(line, markerPrefix)
	if i < 0 {
		return "", "", false
	}
	rest := line[i+len(markerPrefix):]
	end := strings.Index(rest, "]=")
	if end <= 0 {
		return "", "", false
	}
	return rest[:end], strings.TrimRight(rest[end+2:], "\r\n"), true
}
