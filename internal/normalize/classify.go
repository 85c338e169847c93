package normalize

import "github.com/user/trend-service/internal/entity"

// Kind is the shape classification of a raw result collection.
type Kind int

const (
	// KindPostCollection is a flat one-record-per-post collection.
	KindPostCollection Kind = iota
	// KindErrorPayload is a single record carrying an upstream error field.
	KindErrorPayload
	// KindAggregateMetadata is hashtag-level aggregate data instead of posts.
	KindAggregateMetadata
)

func (k Kind) String() string {
	switch k {
	case KindErrorPayload:
		return "error_payload"
	case KindAggregateMetadata:
		return "aggregate_metadata"
	default:
		return "post_collection"
	}
}

// Classification is the result of classifying a raw result collection.
// For KindErrorPayload the upstream error code and description are carried
// along so the caller can surface them.
type Classification struct {
	Kind             Kind
	ErrorCode        string
	ErrorDescription string
}

// Classify decides which normalization branch applies to a raw result
// collection. The checks are ordered: an error payload wins over everything,
// aggregate metadata is only recognized for Instagram, and anything else is
// treated as a per-post collection (including an empty one).
func Classify(items []entity.RawItem, platform entity.Platform) Classification {
	if len(items) == 1 {
		if code, ok := stringValue(items[0], "error"); ok && code != "" {
			desc, _ := stringValue(items[0], "errorDescription")
			return Classification{
				Kind:             KindErrorPayload,
				ErrorCode:        code,
				ErrorDescription: desc,
			}
		}
	}

	if platform == entity.PlatformInstagram && len(items) > 0 {
		_, hasName := items[0]["name"]
		_, hasCount := items[0]["postsCount"]
		if hasName && hasCount {
			return Classification{Kind: KindAggregateMetadata}
		}
	}

	return Classification{Kind: KindPostCollection}
}
