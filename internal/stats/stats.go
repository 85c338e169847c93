// Package stats derives aggregate statistics from a normalized post set.
package stats

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/user/trend-service/internal/entity"
)

// topHashtagLimit bounds the ranked hashtag list.
const topHashtagLimit = 5

var hashtagPattern = regexp.MustCompile(`#\w+`)

// Compute calculates totals, rounded averages, and the top hashtags extracted
// from captions. Deterministic; an empty input yields all zeroes and no
// division by zero.
func Compute(posts []entity.Post) entity.Stats {
	s := entity.Stats{
		TotalPosts:  len(posts),
		TopHashtags: []entity.TagCount{},
	}
	if len(posts) == 0 {
		return s
	}

	var totalLikes, totalComments int
	for _, post := range posts {
		totalLikes += post.Likes
		totalComments += post.Comments
	}
	s.AvgLikes = int(math.Round(float64(totalLikes) / float64(len(posts))))
	s.AvgComments = int(math.Round(float64(totalComments) / float64(len(posts))))
	s.TopHashtags = topHashtags(posts)
	return s
}

// topHashtags counts case-normalized hashtag tokens across captions and
// returns the five most frequent. The sort is stable so ties keep
// first-encountered order.
func topHashtags(posts []entity.Post) []entity.TagCount {
	counts := make(map[string]int)
	var order []string
	for _, post := range posts {
		for _, tag := range hashtagPattern.FindAllString(post.Caption, -1) {
			clean := strings.ToLower(tag)
			if _, seen := counts[clean]; !seen {
				order = append(order, clean)
			}
			counts[clean]++
		}
	}

	ranked := make([]entity.TagCount, 0, len(order))
	for _, tag := range order {
		ranked = append(ranked, entity.TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > topHashtagLimit {
		ranked = ranked[:topHashtagLimit]
	}
	return ranked
}
