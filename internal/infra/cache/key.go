package cache

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// BypassParam forces a fresh read; it never participates in the key.
const BypassParam = "nocache"

// Key builds prefix+path followed by the query sorted by name then value, so
// parameter order does not split entries.
func Key(prefix, path string, query url.Values) string {
	names := make([]string, 0, len(query))
	for name := range query {
		if name == BypassParam {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return prefix + path
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(path)
	b.WriteByte('?')
	first := true
	for _, name := range names {
		values := append([]string(nil), query[name]...)
		sort.Strings(values)
		for _, v := range values {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// RequestCacheable reports whether r may be served from or stored into the
// cache. Credentialed requests and explicit no-cache requests are excluded.
func RequestCacheable(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if r.Header.Get("Authorization") != "" || r.Header.Get("Cookie") != "" {
		return false
	}
	cc := strings.ToLower(r.Header.Get("Cache-Control"))
	if strings.Contains(cc, "no-cache") || strings.Contains(cc, "no-store") {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(r.Header.Get("Pragma")), "no-cache") {
		return false
	}
	switch strings.ToLower(r.URL.Query().Get(BypassParam)) {
	case "1", "true":
		return false
	}
	return true
}

// StatusCacheable reports whether a response with status may be stored.
func StatusCacheable(status int) bool {
	return status >= 200 && status < 300
}
