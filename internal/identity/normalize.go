// Package identity derives stable content fingerprints from normalized URLs
// and detects duplicates within and across runs.
package identity

import (
	"net/url"
	"strings"
)

// trackingParams are stripped during normalization. Any parameter whose name
// starts with "utm_" is removed as well.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {},
	"utm_content": {}, "utm_term": {},
	"ref": {}, "source": {}, "fbclid": {}, "gclid": {},
	"mc_cid": {}, "mc_eid": {}, "_ga": {}, "_gid": {},
	"ncid": {}, "sr_share": {},
}

// NormalizeURL canonicalizes a URL for deduplication: https scheme,
// lowercased host, no fragment, tracking parameters removed, remaining query
// re-encoded in sorted order, trailing path slash stripped (root excepted).
// Path casing is preserved. The function is idempotent.
func NormalizeURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		// Unparsable input: best-effort cleanup only.
		cleaned, _, _ := strings.Cut(raw, "#")
		return strings.TrimRight(cleaned, "/")
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	query := u.Query()
	for name, values := range query {
		if isTrackingParam(name) || allBlank(values) {
			query.Del(name)
		}
	}
	u.RawQuery = query.Encode()

	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}

	return u.String()
}

func isTrackingParam(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := trackingParams[lower]; ok {
		return true
	}
	return strings.HasPrefix(lower, "utm_")
}

func allBlank(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
