package normalize

import (
	"fmt"
	"time"

	"github.com/user/trend-service/internal/entity"
)

// maxRelatedTags caps the related-hashtag list attached to a synthetic
// metadata post. The four source categories are concatenated and truncated;
// duplicates across categories are kept on purpose.
const maxRelatedTags = 30

// relatedCategories are the aggregate-metadata fields that contribute
// related-hashtag entries, concatenated in this order.
var relatedCategories = []string{"related", "average", "rare", "relatedFrequent"}

// Normalizer maps raw platform records onto canonical Posts. It performs no
// I/O; the injected clock only feeds default timestamps so tests stay
// deterministic.
type Normalizer struct {
	now func() time.Time
}

// New creates a Normalizer using the wall clock.
func New() *Normalizer {
	return NewWithClock(time.Now)
}

// NewWithClock creates a Normalizer with an explicit clock.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize classifies a raw result collection and maps it onto canonical
// Posts. An error payload yields an empty collection; the caller is expected
// to inspect the classification separately when it needs the upstream error.
func (n *Normalizer) Normalize(items []entity.RawItem, platform entity.Platform) []entity.Post {
	switch Classify(items, platform).Kind {
	case KindErrorPayload:
		return []entity.Post{}
	case KindAggregateMetadata:
		return n.normalizeAggregate(items[0])
	default:
		return n.normalizeFlat(items, platform)
	}
}

// normalizeAggregate handles an Instagram hashtag-metadata record. When the
// record embeds a per-post collection, each nested record is mapped; otherwise
// a single synthetic Post summarizing the hashtag is produced.
func (n *Normalizer) normalizeAggregate(item entity.RawItem) []entity.Post {
	if nested, ok := item["posts"].([]any); ok {
		posts := make([]entity.Post, 0, len(nested))
		for _, raw := range nested {
			record, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			posts = append(posts, n.mapPost(entity.RawItem(record), nestedPostMapping))
		}
		return posts
	}

	name := firstString(item, []string{"name"})
	postCount := firstInt(item, []string{"postsCount"})

	meta := &entity.HashtagMetadata{
		PostCount:       postCount,
		Difficulty:      firstString(item, []string{"difficulty"}),
		Related:         collectRelatedTags(item),
		AverageLikes:    firstInt(item, []string{"averageLikes"}),
		AverageComments: firstInt(item, []string{"averageComments"}),
		Engagement:      firstString(item, []string{"engagement"}),
	}
	if perDay, ok := floatValue(item, "postsPerDay"); ok {
		meta.PostsPerDay = perDay
	}

	return []entity.Post{{
		Caption:   fmt.Sprintf("#%s - %d posts", name, postCount),
		Likes:     firstInt(item, []string{"averageLikes"}),
		Comments:  firstInt(item, []string{"averageComments"}),
		URL:       firstString(item, []string{"url"}),
		ImageURL:  "",
		Username:  name,
		Timestamp: n.now().UTC().Format(time.RFC3339),
		Metadata:  meta,
	}}
}

// collectRelatedTags concatenates the related-hashtag categories and
// truncates the combined list to maxRelatedTags entries.
func collectRelatedTags(item entity.RawItem) []entity.RelatedTag {
	var tags []entity.RelatedTag
	for _, category := range relatedCategories {
		entries, ok := item[category].([]any)
		if !ok {
			continue
		}
		for _, raw := range entries {
			switch v := raw.(type) {
			case string:
				tags = append(tags, entity.RelatedTag{Hash: v})
			case map[string]any:
				tag := entity.RelatedTag{}
				if hash, ok := v["hash"].(string); ok {
					tag.Hash = hash
				}
				if info, ok := v["info"].(string); ok {
					tag.Info = info
				}
				tags = append(tags, tag)
			}
		}
	}
	if len(tags) > maxRelatedTags {
		tags = tags[:maxRelatedTags]
	}
	return tags
}

// normalizeFlat maps a one-record-per-post collection through the platform's
// field table.
func (n *Normalizer) normalizeFlat(items []entity.RawItem, platform entity.Platform) []entity.Post {
	mapping := postMappings[platform]
	posts := make([]entity.Post, 0, len(items))
	for _, item := range items {
		posts = append(posts, n.mapPost(item, mapping))
	}
	return posts
}

// mapPost applies one field table to one raw record.
func (n *Normalizer) mapPost(item entity.RawItem, mapping fieldMapping) entity.Post {
	username := firstString(item, mapping.username)
	if username == "" {
		username = mapping.defaultUsername
	}
	timestamp := firstString(item, mapping.timestamp)
	if timestamp == "" && mapping.timestampIsNow {
		timestamp = n.now().UTC().Format(time.RFC3339)
	}
	return entity.Post{
		Caption:   firstString(item, mapping.caption),
		Likes:     firstInt(item, mapping.likes),
		Comments:  firstInt(item, mapping.comments),
		URL:       firstString(item, mapping.url),
		ImageURL:  firstString(item, mapping.imageURL),
		Username:  username,
		Timestamp: timestamp,
	}
}
