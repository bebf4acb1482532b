package normalize

import (
	"strings"
	"testing"
)

func TestCleanDescriptionStripsInvisibleCharacters(t *testing.T) {
	raw := "Hello​World﻿!"
	got := CleanDescription(raw)
	if strings.ContainsAny(got, "​﻿") {
		t.Fatalf("expected invisible characters to be stripped, got %q", got)
	}
	if got != "HelloWorld!" {
		t.Fatalf("CleanDescription() = %q, want %q", got, "HelloWorld!")
	}
}

func TestCleanDescriptionRemovesPromotionalTrailer(t *testing.T) {
	raw := "This is the real content of the video.\n\nDon't forget to subscribe and hit the bell!"
	got := CleanDescription(raw)
	if strings.Contains(strings.ToLower(got), "subscribe") {
		t.Fatalf("expected promotional trailer removed, got %q", got)
	}
	if !strings.Contains(got, "real content") {
		t.Fatalf("expected real content preserved, got %q", got)
	}
}

func TestCleanDescriptionDropsStandaloneEmojiLines(t *testing.T) {
	raw := "First line of content.\n🔥🔥🔥\nSecond line of content with 🔥 inline."
	got := CleanDescription(raw)
	if strings.Contains(got, "🔥🔥🔥") {
		t.Fatalf("expected standalone emoji line removed, got %q", got)
	}
	if !strings.Contains(got, "inline") {
		t.Fatalf("expected inline emoji line preserved, got %q", got)
	}
}

func TestCleanDescriptionCollapsesWhitespace(t *testing.T) {
	raw := "line one\n\n\n\nline two   has   extra    spaces"
	got := CleanDescription(raw)
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("expected runs of blank lines collapsed, got %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Fatalf("expected runs of spaces collapsed, got %q", got)
	}
}

func TestCleanTitleStripsTrailingHashtags(t *testing.T) {
	got := CleanTitle("My Great Video #shorts #viral", "")
	if got != "My Great Video" {
		t.Fatalf("CleanTitle() = %q, want %q", got, "My Great Video")
	}
}

func TestCleanTitleStripsMatchingChannelSuffix(t *testing.T) {
	got := CleanTitle("Episode 5 | Acme Podcast", "Acme Podcast")
	if got != "Episode 5" {
		t.Fatalf("CleanTitle() = %q, want %q", got, "Episode 5")
	}
}

func TestCleanTitleKeepsPipeWhenNotChannelSuffix(t *testing.T) {
	got := CleanTitle("Cats | Dogs | Which is better", "Acme Podcast")
	if got != "Cats | Dogs | Which is better" {
		t.Fatalf("expected pipe content preserved when it doesn't match the channel title, got %q", got)
	}
}

func TestCleanTitleStripsEnclosingQuotes(t *testing.T) {
	got := CleanTitle(`"A Quoted Title"`, "")
	if got != "A Quoted Title" {
		t.Fatalf("CleanTitle() = %q, want %q", got, "A Quoted Title")
	}
}
