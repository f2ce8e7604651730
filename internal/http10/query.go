package http10

import "strings"

// SplitTarget splits a path and query string out of a target, e.g.
// "/path?x=1&y=2". No percent-decoding is performed.
func SplitTarget(t string) (path string, query string) {
	path = t
	if i := strings.IndexByte(t, '?'); i >= 0 {
		path = t[:i]
		query = t[i+1:]
	}
	return
}

// ParseQuery turns "a=1&b=2" into a flat map, without percent-decoding.
func ParseQuery(q string) map[string]string {
	if q == "" {
		return map[string]string{}
	}
	m := make(map[string]string)
	for _, kv := range strings.Split(q, "&") {
		if kv == "" {
			continue
		}
		p := strings.SplitN(kv, "=", 2)
		k, v := p[0], ""
		if len(p) == 2 {
			v = p[1]
		}
		m[k] = v
	}
	return m
}
