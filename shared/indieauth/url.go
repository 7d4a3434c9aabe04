package indieauth

import (
	"net/url"
	"strings"
)

// URLEqual reports whether a and b name the same identity: scheme, host and
// path (ignoring a trailing slash) must match. Query strings and fragments
// are not compared.
func URLEqual(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Scheme == ub.Scheme &&
		ua.Host == ub.Host &&
		strings.TrimRight(ua.Path, "/") == strings.TrimRight(ub.Path, "/")
}
