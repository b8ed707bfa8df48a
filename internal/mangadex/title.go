package mangadex

import "strings"

// PickTitle chooses one display title from a manga attributes node.
//
// Order: title.en, title.ja, title.ja-ro, then the first altTitles entry
// with a non-blank en, then ja, then the first string field of any entry.
// Returns nil when nothing qualifies.
func PickTitle(attributes Node) *string {
	title := attributes.Get("title")
	for _, lang := range []string{"en", "ja", "ja-ro"} {
		if v := title.Get(lang).NonBlank(); v != nil {
			return v
		}
	}

	alts := attributes.Get("altTitles").Items()
	for _, lang := range []string{"en", "ja"} {
		for _, alt := range alts {
			if v := alt.Get(lang).NonBlank(); v != nil {
				return v
			}
		}
	}

	for _, alt := range alts {
		var found *string
		alt.Each(func(_ string, v Node) bool {
			if v.Kind() == KindString && strings.TrimSpace(v.r.Str) != "" {
				s := v.r.Str
				found = &s
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}
