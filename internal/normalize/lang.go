// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"

	"github.com/pdiddy/rst-engine/pkg/types"
)

// spanishMarkers are tokens whose presence tips detection toward Spanish.
// Short function words are matched with surrounding spaces; the
// punctuation and letter markers match anywhere.
var spanishMarkers = []string{" el ", " la ", " de ", " que ", " los ", "las ", "ñ", "¿", "¡"}

// spanishGlyphs are the markers matched without space padding.
var spanishGlyphs = map[string]bool{"ñ": true, "¿": true, "¡": true}

// DetectLanguage returns the hint when it names a concrete language, and
// otherwise applies Spanish marker detection with English as the default.
func DetectLanguage(text string, hint types.Lang) types.Lang {
	if hint == types.LangSpanish || hint == types.LangEnglish {
		return hint
	}

	lowered := " " + strings.ToLower(text) + " "
	for _, marker := range spanishMarkers {
		if spanishGlyphs[strings.TrimSpace(marker)] {
			if strings.Contains(lowered, strings.TrimSpace(marker)) {
				return types.LangSpanish
			}
			continue
		}
		if strings.Contains(lowered, marker) {
			return types.LangSpanish
		}
	}
	return types.LangEnglish
}
