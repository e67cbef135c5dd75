package models

import (
	"net/http"
	"sort"
	"strings"
)

// Visitor is the request-scoped input of a resolution.
//
// It replaces any ambient server state: everything a strategy may look at
// is carried here explicitly, so a Visitor built from literals is enough to
// exercise the whole chain.
type Visitor struct {
	// IPAddress is the client IP, already extracted from the proxy chain.
	IPAddress string

	UserAgent string
	Referer   string

	// Headers holds inbound header names (case preserved) and their first value.
	Headers map[string]string
}

// NewVisitor builds a Visitor from an IP and a raw http.Header.
func NewVisitor(ip string, h http.Header) Visitor {
	headers := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return Visitor{
		IPAddress: strings.TrimSpace(ip),
		UserAgent: h.Get("User-Agent"),
		Referer:   h.Get("Referer"),
		Headers:   headers,
	}
}

// Header returns the value of the named header, ignoring case.
// When several names fold to the same key the lexically smallest one wins,
// so the lookup does not depend on map iteration order.
func (v Visitor) Header(name string) (string, bool) {
	if value, ok := v.Headers[name]; ok {
		return value, true
	}

	var matches []string
	for key := range v.Headers {
		if strings.EqualFold(key, name) {
			matches = append(matches, key)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return v.Headers[matches[0]], true
}
