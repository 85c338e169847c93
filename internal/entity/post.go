package entity

// RawItem is a single untyped record returned by the actor platform. Its
// shape varies by platform and by whether the upstream produced per-post
// data, hashtag aggregate metadata, or an error payload. RawItems are
// consumed immediately by the normalizer and never stored.
type RawItem map[string]any

// RelatedTag is one related-hashtag entry inside hashtag aggregate metadata.
// The upstream mixes plain strings and {hash, info} objects; plain strings
// are carried with only Hash set.
type RelatedTag struct {
	Hash string `json:"hash"`
	Info string `json:"info,omitempty"`
}

// HashtagMetadata describes a hashtag as a whole (counts, related tags)
// rather than individual posts. It is attached to the single synthetic Post
// produced when the upstream returns aggregate data instead of posts.
type HashtagMetadata struct {
	PostCount       int          `json:"postCount,omitempty"`
	PostsPerDay     float64      `json:"postsPerDay,omitempty"`
	Difficulty      string       `json:"difficulty,omitempty"`
	Related         []RelatedTag `json:"related,omitempty"`
	AverageLikes    int          `json:"averageLikes,omitempty"`
	AverageComments int          `json:"averageComments,omitempty"`
	Engagement      string       `json:"engagement,omitempty"`
}

// Post is the canonical post record, independent of source platform.
// Likes and Comments default to 0 when the upstream omits them so that
// downstream arithmetic never deals with missing values.
type Post struct {
	Caption   string           `json:"caption"`
	Likes     int              `json:"likes"`
	Comments  int              `json:"comments"`
	URL       string           `json:"url"`
	ImageURL  string           `json:"image_url"`
	Username  string           `json:"username"`
	Timestamp string           `json:"timestamp"`
	Metadata  *HashtagMetadata `json:"metadata,omitempty"`
}

// TagCount is one entry of the top-hashtag ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats holds aggregate statistics derived from a normalized post set.
// Recomputed fresh per request, never persisted as-is.
type Stats struct {
	TotalPosts  int        `json:"total_posts"`
	AvgLikes    int        `json:"avg_likes"`
	AvgComments int        `json:"avg_comments"`
	TopHashtags []TagCount `json:"top_hashtags"`
}
