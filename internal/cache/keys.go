package cache

import (
	"crypto/md5"
	"fmt"
	"os"
	"sort"
	"strings"
)

const maxKeyLength = 200

// Key builds a deterministic cache key from an operation name and its parameters,
// e.g. Key("graph", 48.8566, 2.3522, 5000.0) == "graph_48.8566_2.3522_5000".
func Key(op string, params ...any) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, op)
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, "_")
}

// TagKey renders a tag filter as a stable key fragment: keys sorted, values sorted,
// "natural=water_waterway=riverbank".
func TagKey(tags map[string][]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		values := append([]string(nil), tags[k]...)
		sort.Strings(values)
		if len(values) == 0 {
			parts = append(parts, k)
			continue
		}
		parts = append(parts, k+"="+strings.Join(values, ","))
	}
	return strings.Join(parts, "_")
}

// sanitizeKey makes a key safe for use as a single filename
func sanitizeKey(key string) string {
	// For very long keys, use hash to avoid filesystem limits
	if len(key) > maxKeyLength {
		hash := md5.Sum([]byte(key))
		return fmt.Sprintf("hash_%x", hash)
	}

	unsafe := []string{string(os.PathSeparator), "/", "\\", ":", "?", "&", "#", "<", ">", "|", "*", "\"", " "}
	result := key
	for _, char := range unsafe {
		result = strings.ReplaceAll(result, char, "_")
	}

	return result
}
