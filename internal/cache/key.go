package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// KeyPrefix namespaces every chartcache key so shared stores (a redis
// instance, a cache directory) cannot collide with unrelated data.
const KeyPrefix = "chartcache"

// BuildKey derives the deterministic cache key for a logical data request.
//
// The key has the form "chartcache:<sourceID>:<digest>" where the digest is
// the first 128 bits of a SHA-256 over a canonical rendering of params:
// map keys sorted recursively, numbers normalized so that 100, 100.0 and
// int64(100) render identically, list order preserved. BuildKey is pure and
// never fails; values it does not recognize are folded in via their fmt
// rendering.
func BuildKey(sourceID string, params map[string]any) string {
	var sb strings.Builder
	writeCanonical(&sb, params)

	hash := sha256.New()
	hash.Write([]byte(sourceID))
	hash.Write([]byte{0})
	hash.Write([]byte(sb.String()))
	digest := hex.EncodeToString(hash.Sum(nil)[:16])

	return fmt.Sprintf("%s:%s:%s", KeyPrefix, sourceID, digest)
}

func writeCanonical(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(val))
	case string:
		sb.WriteString(strconv.Quote(val))
	case int:
		sb.WriteString(decimal.NewFromInt(int64(val)).String())
	case int32:
		sb.WriteString(decimal.NewFromInt(int64(val)).String())
	case int64:
		sb.WriteString(decimal.NewFromInt(val).String())
	case float32:
		sb.WriteString(decimal.NewFromFloat32(val).String())
	case float64:
		sb.WriteString(decimal.NewFromFloat(val).String())
	case decimal.Decimal:
		sb.WriteString(val.String())
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			writeCanonical(sb, val[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, item)
		}
		sb.WriteByte(']')
	case []string:
		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(item))
		}
		sb.WriteByte(']')
	default:
		// Unhashable or exotic types still need to produce a key.
		fmt.Fprintf(sb, "%v", val)
	}
}

// filenameForKey maps a cache key to a filesystem-safe name: the hex SHA-256
// of the full key. Consistent, collision-free and free of path separators.
func filenameForKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
