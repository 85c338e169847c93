package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// HashIdentifier creates a SHA256 hash of a user identifier string.
// This is useful for creating consistent, safe keys for Redis.
func HashIdentifier(identifier string) string {
	h := sha256.New()
	h.Write([]byte(identifier))
	return hex.EncodeToString(h.Sum(nil))
}

// CleanHashtag strips a leading '#' and surrounding whitespace from a hashtag.
func CleanHashtag(hashtag string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(hashtag), "#"))
}

// DayKey returns the UTC date portion of t in YYYY-MM-DD form, used to scope
// rate-limit counters to a single day.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SecondsUntilEndOfDay returns the number of seconds between t and the end of
// its UTC day. Rate-limit keys expire at that point.
func SecondsUntilEndOfDay(t time.Time) time.Duration {
	utc := t.UTC()
	endOfDay := time.Date(utc.Year(), utc.Month(), utc.Day(), 23, 59, 59, 0, time.UTC)
	if endOfDay.Before(utc) {
		return time.Second
	}
	return endOfDay.Sub(utc)
}
