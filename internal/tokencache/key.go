package tokencache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key identifies the cached token for one API key at one IAM endpoint.
// The API key itself is never stored; only a SHA-256 prefix of it.
type Key struct {
	Endpoint string
	KeyHash  string
}

// NewKey hashes apiKey and normalizes the endpoint.
func NewKey(iamURL, apiKey string) Key {
	sum := sha256.Sum256([]byte(apiKey))
	return Key{
		Endpoint: strings.TrimRight(strings.TrimSpace(iamURL), "/"),
		KeyHash:  hex.EncodeToString(sum[:8]),
	}
}

// String converts the structured key into the string used in Redis/map.
func (k Key) String() string {
	// iam:<KEY_HASH>:<ENDPOINT_HASH>
	sum := sha256.Sum256([]byte(k.Endpoint))
	return fmt.Sprintf("iam:%s:%s", k.KeyHash, hex.EncodeToString(sum[:4]))
}

type keyParts struct {
	keyHash      string
	endpointHash string
}

// Expecting: iam:<KEY_HASH>:<ENDPOINT_HASH>
func parseKey(key string) (keyParts, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "iam" {
		return keyParts{}, false
	}
	return keyParts{keyHash: parts[1], endpointHash: parts[2]}, true
}
