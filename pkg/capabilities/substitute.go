package capabilities

import (
	"regexp"
	"strings"
)

// placeholder matches $$, $NAME and ${NAME}.
var placeholder = regexp.MustCompile(`\$(?:(\$)|([_A-Za-z][_A-Za-z0-9]*)|\{([_A-Za-z][_A-Za-z0-9]*)\})`)

// Substitute replaces ${NAME} and $NAME with lookup(NAME). Unknown names
// and malformed tokens are left verbatim, and "$$" collapses to "$".
// A string without "$" is returned unchanged.
func Substitute(s string, lookup func(string) (string, bool)) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range placeholder.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(s[last:m[0]])
		last = m[1]
		switch {
		case m[2] >= 0:
			b.WriteByte('$')
		case m[4] >= 0:
			b.WriteString(resolve(s[m[0]:m[1]], s[m[4]:m[5]], lookup))
		case m[6] >= 0:
			b.WriteString(resolve(s[m[0]:m[1]], s[m[6]:m[7]], lookup))
		}
	}
	b.WriteString(s[last:])
	return b.String()
}

func resolve(token, name string, lookup func(string) (string, bool)) string {
	if v, ok := lookup(name); ok {
		return v
	}
	return token
}

// SubstituteValue applies Substitute to every string leaf of a decoded
// JSON value. Keys and non-string scalars are left untouched.
func SubstituteValue(v interface{}, lookup func(string) (string, bool)) interface{} {
	switch t := v.(type) {
	case string:
		return Substitute(t, lookup)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[k] = SubstituteValue(vv, lookup)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, vv := range t {
			out[i] = SubstituteValue(vv, lookup)
		}
		return out
	default:
		return v
	}
}
