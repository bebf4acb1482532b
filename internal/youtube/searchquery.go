package youtube

import (
	"regexp"
	"strings"
	"time"
)

// parsedSearchQuery is the result of stripping key:value operators out of a
// free-text search query, supporting a small mini-language (before:,
// after:, channel:, duration:, order:, intitle:, dimension:, definition:,
// caption:, license:, embeddable:, syndicated:) layered on top of plain
// keyword search.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type parsedSearchQuery struct {
	Text            string
	ChannelID       string
	Order           string
	VideoDuration   string
	VideoDimension  string
	VideoDefinition string
	VideoCaption    string
	VideoLicense    string
	VideoEmbeddable string
	VideoSyndicated string
	PublishedAfter  *time.Time
	PublishedBefore *time.Time
	FilterCount     int
}

var operatorToken = regexp.MustCompile(`(\w+):("([^"]*)"|\S+)`)

// parseSearchQuery extracts key:value / key:"quoted value" tokens from the
// query text, leaving the remaining free text as the Text field.
func parseSearchQuery(query string) parsedSearchQuery {
	result := parsedSearchQuery{}

	remaining := operatorToken.ReplaceAllStringFunc(query, func(tok string) string {
		m := operatorToken.FindStringSubmatch(tok)
		key := strings.ToLower(m[1])
		value := m[2]
		if m[3] != "" {
			value = m[3]
		}
		value = strings.Trim(value, `"`)

		if applyOperator(&result, key, value) {
			result.FilterCount++
			return ""
		}
		return tok
	})

	result.Text = strings.Join(strings.Fields(remaining), " ")
	return result
}

func applyOperator(out *parsedSearchQuery, key, value string) bool {
	switch key {
	case "channel":
		out.ChannelID = value
	case "order":
		out.Order = value
	case "duration":
		out.VideoDuration = value
	case "dimension":
		out.VideoDimension = value
	case "definition":
		out.VideoDefinition = value
	case "caption":
		out.VideoCaption = value
	case "license":
		out.VideoLicense = value
	case "embeddable":
		out.VideoEmbeddable = value
	case "syndicated":
		out.VideoSyndicated = value
	case "before":
		if t, ok := parseAPIDate(value); ok {
			out.PublishedBefore = &t
		} else {
			return false
		}
	case "after":
		if t, ok := parseAPIDate(value); ok {
			out.PublishedAfter = &t
		} else {
			return false
		}
	case "intitle":
		// intitle: has no direct search.list parameter; left in the free
		// text so the term still contributes to relevance ranking.
		return false
	default:
		return false
	}
	return true
}

var dateLayouts = []string{"2006-01-02", "20060102", "01/02/2006", "02-01-2006", "02.01.2006"}

// parseAPIDate accepts a handful of common date shapes (ISO, US, EU, dotted)
// and returns the UTC day boundary.
func parseAPIDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
