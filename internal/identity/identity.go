package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/topicworks/digest-cli/internal/timeutil"
)

// idLen is the number of hex characters kept from the SHA-256 digest.
const idLen = 32

// StableID computes the content fingerprint. With a URL present it hashes
// the normalized URL, so tracking-parameter noise never changes the
// identity. Without one it falls back to hashing source|title|published.
func StableID(rawURL, sourceID, title string, published *time.Time) string {
	var content string
	if rawURL != "" {
		content = NormalizeURL(rawURL)
	} else {
		ts := ""
		if published != nil {
			ts = timeutil.ISO(*published)
		}
		content = strings.Join([]string{sourceID, title, ts}, "|")
	}

	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:idLen]
}
