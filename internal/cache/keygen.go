package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/emberfit/coach/pkg/types"
)

// KeyFor generates a deterministic SHA-256 key over the resolved prompt.
// The key is order-sensitive over the message sequence and
// order-independent over the contextual-factor-type set (types are sorted
// before hashing). Identical inputs always produce identical keys.
//
// The messages are hashed as one JSON blob so that distinct sequences
// cannot share a pre-image: JSON escaping keeps field and element
// boundaries unambiguous regardless of message content.
func KeyFor(messages []types.Message, userID string, factorTypes []string) string {
	var sb strings.Builder

	sb.WriteString("user:")
	sb.WriteString(userID)

	payload, err := json.Marshal(messages)
	if err != nil {
		// Message structs always marshal; this only guards future fields.
		payload = []byte{}
	}
	sb.WriteString("|messages:")
	sb.Write(payload)

	if len(factorTypes) > 0 {
		sorted := make([]string, len(factorTypes))
		copy(sorted, factorTypes)
		sort.Strings(sorted)
		sb.WriteString("|factors:")
		sb.WriteString(strings.Join(sorted, ","))
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return "coach:" + hex.EncodeToString(hash[:])
}
