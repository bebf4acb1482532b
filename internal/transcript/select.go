package transcript

import "strings"

// preferredLanguages builds the ordered candidate-language list: the
// video's default audio language, its default language, their base
// languages, the operator-configured list, then "en" if not already
// present — deduplicated while preserving first-seen order.
func preferredLanguages(defaultAudioLanguage, defaultLanguage string, configured []string) []string {
	ordered := make([]string, 0, 4+len(configured))
	seen := map[string]bool{}

	add := func(lang string) {
		if lang == "" || seen[lang] {
			return
		}
		seen[lang] = true
		ordered = append(ordered, lang)
	}

	add(defaultAudioLanguage)
	add(defaultLanguage)
	add(baseLanguage(defaultAudioLanguage))
	add(baseLanguage(defaultLanguage))
	for _, lang := range configured {
		add(lang)
	}
	add("en")

	return ordered
}

func baseLanguage(lang string) string {
	if lang == "" {
		return ""
	}
	if idx := strings.IndexAny(lang, "-_"); idx != -1 {
		return lang[:idx]
	}
	return lang
}

// selectBestTranscript implements a five-tier cascade:
//  1. exact language-tag match, manual tracks first, then generated
//  2. base-language match among manual tracks
//  3. base-language match among generated tracks
//  4. any manual track, preferring English
//  5. any generated track, preferring English
//
// Open Question (DESIGN.md #1): when multiple candidates share a base
// language with no exact tag match, the first one encountered in the API's
// advertised order wins — no secondary alphabetic sort.
func selectBestTranscript(tracks []Track, preferred []string) (Track, bool) {
	var manual, generated []Track
	for _, t := range tracks {
		if t.IsGenerated {
			generated = append(generated, t)
		} else {
			manual = append(manual, t)
		}
	}

	for _, lang := range preferred {
		if t, ok := findExact(manual, lang); ok {
			return t, true
		}
	}
	for _, lang := range preferred {
		if t, ok := findExact(generated, lang); ok {
			return t, true
		}
	}

	for _, lang := range preferred {
		base := baseLanguage(lang)
		if base == "" {
			continue
		}
		if t, ok := findBase(manual, base); ok {
			return t, true
		}
	}
	for _, lang := range preferred {
		base := baseLanguage(lang)
		if base == "" {
			continue
		}
		if t, ok := findBase(generated, base); ok {
			return t, true
		}
	}

	if t, ok := findExact(manual, "en"); ok {
		return t, true
	}
	if len(manual) > 0 {
		return manual[0], true
	}

	if t, ok := findExact(generated, "en"); ok {
		return t, true
	}
	if len(generated) > 0 {
		return generated[0], true
	}

	return Track{}, false
}

func findExact(tracks []Track, lang string) (Track, bool) {
	for _, t := range tracks {
		if strings.EqualFold(t.LanguageCode, lang) {
			return t, true
		}
	}
	return Track{}, false
}

func findBase(tracks []Track, base string) (Track, bool) {
	for _, t := range tracks {
		if strings.EqualFold(baseLanguage(t.LanguageCode), base) {
			return t, true
		}
	}
	return Track{}, false
}
