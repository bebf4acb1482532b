// Package normalize cleans video titles and descriptions before they are
// rendered into a digest: invisible-character stripping, promotional-trailer
// removal, standalone-emoji-line removal, whitespace collapsing, and title
// cleanup.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/forPelevin/gomoji"
)

// zeroWidthRunes are invisible code points removed alongside control
// characters.
var zeroWidthRunes = map[rune]bool{
	'​': true, // zero width space
	'‌': true, // zero width non-joiner
	'‍': true, // zero width joiner
	'﻿': true, // zero width no-break space / BOM
}

// promoTrailerPatterns match common promotional boilerplate (subscribe
// CTAs, social-media link lists, affiliate markers) that descriptions often
// append at the end.
var promoTrailerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)subscribe (to|for) (my|our|this) channel`),
	regexp.MustCompile(`(?i)don'?t forget to (like|subscribe|hit)`),
	regexp.MustCompile(`(?i)hit (the|that) (like|subscribe|bell)`),
	regexp.MustCompile(`(?i)smash (the|that) like button`),
	regexp.MustCompile(`(?i)follow (me|us) on (instagram|twitter|x|facebook|tiktok|linkedin)`),
	regexp.MustCompile(`(?i)as an amazon associate,? i earn from qualifying purchases`),
	regexp.MustCompile(`(?i)affiliate links?\s*:?`),
	regexp.MustCompile(`(?i)use (code|my code) [\w-]+ for \d+%\s*off`),
	regexp.MustCompile(`(?i)check out my (instagram|twitter|patreon|discord|channel)`),
	regexp.MustCompile(`(?i)(instagram|twitter|tiktok|facebook|discord|patreon)\s*:\s*(https?://|@)\S+`),
}

var trailingHashtags = regexp.MustCompile(`(?:\s*#[\p{L}\p{N}_]+)+\s*$`)
var pipeSuffix = regexp.MustCompile(`\s*\|\s*[^|]+$`)

// CleanDescription applies the full description-cleanup pipeline: invisible
// characters stripped, promotional trailers removed, standalone-emoji lines
// dropped, whitespace collapsed. URLs are left untouched since nothing in
// this pipeline rewrites non-whitespace characters.
func CleanDescription(raw string) string {
	s := stripInvisible(raw)
	s = stripPromotionalTrailer(s)
	s = dropStandaloneEmojiLines(s)
	return collapseWhitespace(s)
}

// CleanTitle applies invisible-character stripping and whitespace collapse
// plus the title-specific rules: trailing hashtags, a trailing
// "| Channel Name" suffix (only stripped when it matches channelTitle, so a
// title that merely contains a pipe is left alone), and one layer of
// enclosing quote marks.
func CleanTitle(raw, channelTitle string) string {
	s := stripInvisible(raw)
	s = trailingHashtags.ReplaceAllString(s, "")
	s = stripChannelSuffix(s, channelTitle)
	s = stripEnclosingQuotes(strings.TrimSpace(s))
	return collapseWhitespace(s)
}

func stripInvisible(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' {
			b.WriteRune(r)
			continue
		}
		if zeroWidthRunes[r] {
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripPromotionalTrailer truncates text at the earliest promotional-pattern
// match, backing up to the preceding blank-line boundary so only the
// trailer block is removed rather than the start of a wanted paragraph.
func stripPromotionalTrailer(text string) string {
	earliest := -1
	for _, p := range promoTrailerPatterns {
		if loc := p.FindStringIndex(text); loc != nil {
			if earliest == -1 || loc[0] < earliest {
				earliest = loc[0]
			}
		}
	}
	if earliest == -1 {
		return text
	}
	cut := text[:earliest]
	if idx := strings.LastIndex(cut, "\n\n"); idx != -1 {
		return strings.TrimRight(cut[:idx], "\n")
	}
	return strings.TrimRight(cut, "\n ")
}

// dropStandaloneEmojiLines removes any line that, once trimmed, consists
// entirely of emoji grapheme clusters — in-line emoji within a sentence are
// left untouched since the rest of the line survives RemoveEmojis non-empty.
func dropStandaloneEmojiLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if isStandaloneEmojiLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isStandaloneEmojiLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if !gomoji.ContainsEmoji(trimmed) {
		return false
	}
	return strings.TrimSpace(gomoji.RemoveEmojis(trimmed)) == ""
}

// collapseWhitespace collapses runs of whitespace to a single space within
// each line, then collapses runs of blank lines to at most one, trimming
// leading/trailing blank lines from the result.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		collapsed := strings.Join(strings.Fields(line), " ")
		if collapsed == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, collapsed)
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// stripChannelSuffix removes a trailing "| Channel Name" suffix, but only
// when channelTitle is known and the suffix matches it case-insensitively —
// otherwise a title that legitimately contains a pipe is left alone.
func stripChannelSuffix(s, channelTitle string) string {
	if channelTitle == "" {
		return s
	}
	loc := pipeSuffix.FindStringIndex(s)
	if loc == nil {
		return s
	}
	suffix := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s[loc[0]:]), "|"))
	if !strings.EqualFold(suffix, strings.TrimSpace(channelTitle)) {
		return s
	}
	return strings.TrimRight(s[:loc[0]], " ")
}

var quotePairs = [][2]rune{
	{'"', '"'},
	{'“', '”'}, // “ ”
	{'\'', '\''},
}

func stripEnclosingQuotes(s string) string {
	runes := []rune(s)
	if len(runes) < 2 {
		return s
	}
	for _, qp := range quotePairs {
		if runes[0] == qp[0] && runes[len(runes)-1] == qp[1] {
			return string(runes[1 : len(runes)-1])
		}
	}
	return s
}
