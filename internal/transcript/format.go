package transcript

import (
	"fmt"
	"sort"
	"strings"
)

// formatByBlocks turns a cue sequence into timestamped text blocks:
// interval=0 concatenates all cue text with single spaces; interval>0
// buckets cues into a fixed grid of floor(start/interval)*interval and
// emits one "[HH:MM:SS] text" line per non-empty bucket, cues in increasing
// start order, duplicate cue texts within a bucket suppressed. A
// first-cue-anchored sliding scheme was considered and rejected in favor of
// this fixed grid; see DESIGN.md for the reasoning.
func formatByBlocks(cues []Cue, interval int) string {
	if interval <= 0 {
		return formatFlat(cues)
	}

	sorted := make([]Cue, len(cues))
	copy(sorted, cues)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	type bucket struct {
		boundary int
		texts    []string
		seen     map[string]bool
	}
	order := make([]int, 0)
	buckets := map[int]*bucket{}

	for _, c := range sorted {
		text := cleanCueText(c.Text)
		if text == "" {
			continue
		}
		boundary := (int(c.Start) / interval) * interval
		b, ok := buckets[boundary]
		if !ok {
			b = &bucket{boundary: boundary, seen: map[string]bool{}}
			buckets[boundary] = b
			order = append(order, boundary)
		}
		if b.seen[text] {
			continue
		}
		b.seen[text] = true
		b.texts = append(b.texts, text)
	}

	sort.Ints(order)

	var sb strings.Builder
	for i, boundary := range order {
		b := buckets[boundary]
		if len(b.texts) == 0 {
			continue
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fmt.Sprintf("[%s] %s", formatTimestamp(boundary), strings.Join(b.texts, " ")))
	}
	return sb.String()
}

func formatFlat(cues []Cue) string {
	parts := make([]string, 0, len(cues))
	for _, c := range cues {
		if text := cleanCueText(c.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return collapseWhitespace(strings.Join(parts, " "))
}

func cleanCueText(text string) string {
	return collapseWhitespace(strings.ReplaceAll(text, "\n", " "))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatTimestamp(totalSeconds int) string {
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
