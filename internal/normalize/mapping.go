package normalize

import (
	"strconv"
	"strings"

	"github.com/user/trend-service/internal/entity"
)

// fieldMapping lists, per canonical Post field, the ordered upstream field
// names to try. A name may be a dotted path; a numeric segment indexes into
// an array ("covers.0"). The first source that resolves to a usable value
// wins; numeric fields fall back to 0, string fields to their default.
type fieldMapping struct {
	caption         []string
	likes           []string
	comments        []string
	url             []string
	imageURL        []string
	username        []string
	timestamp       []string
	defaultUsername string
	timestampIsNow  bool // default the timestamp to the current time when absent
}

// postMappings holds the flat per-post field tables, keyed by platform.
var postMappings = map[entity.Platform]fieldMapping{
	entity.PlatformInstagram: {
		caption:   []string{"caption"},
		likes:     []string{"likesCount"},
		comments:  []string{"commentsCount"},
		url:       []string{"url"},
		imageURL:  []string{"imageUrl", "thumbnailUrl"},
		username:  []string{"ownerUsername"},
		timestamp: []string{"timestamp"},
	},
	entity.PlatformTikTok: {
		caption:   []string{"text", "description"},
		likes:     []string{"likesCount", "diggCount"},
		comments:  []string{"commentCount"},
		url:       []string{"webVideoUrl", "url"},
		imageURL:  []string{"thumbnailUrl", "covers.0"},
		username:  []string{"authorMeta.name", "author"},
		timestamp: []string{"createTime"},
	},
}

// nestedPostMapping maps the per-post records embedded inside Instagram
// hashtag aggregate metadata. These use looser field names than top-level
// post records, hence the longer fallback chains.
var nestedPostMapping = fieldMapping{
	caption:         []string{"caption", "text"},
	likes:           []string{"likesCount", "likes"},
	comments:        []string{"commentsCount", "comments"},
	url:             []string{"url", "postUrl"},
	imageURL:        []string{"imageUrl", "thumbnailUrl", "displayUrl"},
	username:        []string{"ownerUsername", "username", "author"},
	timestamp:       []string{"timestamp", "created"},
	defaultUsername: "Unknown",
	timestampIsNow:  true,
}

// lookup resolves a dotted path against a raw item. Map segments are field
// names, array segments are decimal indexes.
func lookup(item entity.RawItem, path string) (any, bool) {
	var current any = map[string]any(item)
	for _, segment := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// stringValue fetches a field as a string. JSON numbers are rendered so that
// numeric timestamps (TikTok's createTime) survive the conversion.
func stringValue(item entity.RawItem, path string) (string, bool) {
	raw, ok := lookup(item, path)
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// intValue fetches a field as an int, tolerating the numeric representations
// encoding/json produces plus numeric strings.
func intValue(item entity.RawItem, path string) (int, bool) {
	raw, ok := lookup(item, path)
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// floatValue fetches a field as a float64.
func floatValue(item entity.RawItem, path string) (float64, bool) {
	raw, ok := lookup(item, path)
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// firstString returns the first source path that yields a non-empty string.
func firstString(item entity.RawItem, paths []string) string {
	for _, p := range paths {
		if s, ok := stringValue(item, p); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstInt returns the first source path that yields an int, defaulting to 0.
func firstInt(item entity.RawItem, paths []string) int {
	for _, p := range paths {
		if n, ok := intValue(item, p); ok {
			return n
		}
	}
	return 0
}
