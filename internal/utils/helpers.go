package utils

import (
	"strings"
	"unicode/utf8"
)

// ValidateThreadData validates the title and body of a new thread
func ValidateThreadData(title, text string) (bool, string) {
	title = strings.TrimSpace(title)
	text = strings.TrimSpace(text)

	if title == "" {
		return false, "missing title"
	}
	if text == "" {
		return false, "missing text"
	}

	if utf8.RuneCountInString(title) > 120 {
		return false, "title too long"
	}
	if utf8.RuneCountInString(text) > 5000 {
		return false, "text too long"
	}

	return true, ""
}

// ValidateCommentData validates comment data for validity
func ValidateCommentData(text string) (bool, string) {
	text = strings.TrimSpace(text)

	if text == "" {
		return false, "missing text"
	}

	if utf8.RuneCountInString(text) > 2000 {
		return false, "text too long"
	}

	return true, ""
}

// ValidateRating accepts nil (no rating) or a star value in 1..5
func ValidateRating(rating *float64) (bool, string) {
	if rating == nil {
		return true, ""
	}
	if *rating < 1 || *rating > 5 {
		return false, "rating must be between 1 and 5"
	}
	return true, ""
}

// NormalizeKeywords trims and lower-cases keywords, dropping blanks and duplicates
func NormalizeKeywords(keywords []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// ParseKeywords splits a comma separated query value into keywords
func ParseKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return NormalizeKeywords(strings.Split(raw, ","))
}

// ContainsFold checks if a slice contains s, ignoring case
func ContainsFold(slice []string, s string) bool {
	for _, item := range slice {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// Toggle removes item from slice if present, otherwise appends it.
// It reports whether the item is present afterwards.
func Toggle(slice []string, item string) ([]string, bool) {
	for i, s := range slice {
		if s == item {
			out := make([]string, 0, len(slice)-1)
			out = append(out, slice[:i]...)
			out = append(out, slice[i+1:]...)
			return out, false
		}
	}
	return append(slice, item), true
}

// Truncate shortens s to at most length runes, appending "..." when cut
func Truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	r := []rune(s)
	return string(r[:length]) + "..."
}
