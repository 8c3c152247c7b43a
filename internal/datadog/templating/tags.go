package templating

import (
	"strings"

	"github.com/policyinsight/ddops/internal/storage"
)

// Tags returns the string items of a raw "tags" value.
func Tags(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(items))
	for _, t := range items {
		if s, ok := t.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

// ExtractTagMap converts a raw tags value (typically []any) into a map[key]value.
// If sanitize is true, values are sanitized via storage.SanitizeFilename.
func ExtractTagMap(raw any, sanitize bool) map[string]string {
	tagMap := make(map[string]string)
	for _, s := range Tags(raw) {
		key, val, ok := strings.Cut(s, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if sanitize {
			val = storage.SanitizeFilename(val)
		}
		tagMap[key] = val
	}
	return tagMap
}

// HasAllTags checks if all filterTags are present in tags (case-insensitive).
func HasAllTags(tags []string, filterTags []string) bool {
	if len(filterTags) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = struct{}{}
	}
	for _, want := range filterTags {
		if _, ok := set[strings.ToLower(want)]; !ok {
			return false
		}
	}
	return true
}
