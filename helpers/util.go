package helpers

import (
	"regexp"
	"strings"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a value into a lowercase handle safe for filenames and
// URLs. Empty input falls back to "product" so a handle always exists.
func Slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "-")
	value = slugInvalid.ReplaceAllString(value, "-")
	value = slugDashes.ReplaceAllString(value, "-")
	value = strings.Trim(value, "-")
	if value == "" {
		return "product"
	}
	return value
}

// SplitTags splits a comma separated tag string, trimming whitespace and
// dropping empty segments.
func SplitTags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
