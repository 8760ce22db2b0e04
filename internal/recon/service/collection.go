package service

import (
	"strings"
	"unicode"
)

// CollectionExtractor pulls a make-to-order collection tag out of a PO's
// free-text program description. It is a best-effort classifier: an exact scan
// over a configured list of known collection names, with a truncation
// heuristic as fallback. The known list is data, not code, so merchandising
// can extend it without a deploy.
type CollectionExtractor struct {
	known []string // ordered; first substring hit wins
}

func NewCollectionExtractor(knownCollections []string) *CollectionExtractor {
	known := make([]string, 0, len(knownCollections))
	for _, name := range knownCollections {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			known = append(known, name)
		}
	}
	return &CollectionExtractor{known: known}
}

var monthTokens = map[string]bool{
	"jan": true, "january": true,
	"feb": true, "february": true,
	"mar": true, "march": true,
	"apr": true, "april": true,
	"may": true,
	"jun": true, "june": true,
	"jul": true, "july": true,
	"aug": true, "august": true,
	"sep": true, "sept": true, "september": true,
	"oct": true, "october": true,
	"nov": true, "november": true,
	"dec": true, "december": true,
}

const punctCutset = ".,;:-–/()[]#"

// Extract returns the collection tag and true on success. A description with
// no "mto" marker is not an MTO candidate; a marker with no recoverable tag is
// a failed extraction. Both return false.
func (e *CollectionExtractor) Extract(description string) (string, bool) {
	text := strings.ToLower(description)
	idx := strings.Index(text, "mto")
	if idx < 0 {
		return "", false
	}

	for _, name := range e.known {
		if strings.Contains(text, name) {
			return name, true
		}
	}

	// Fallback: take the text after the mto token, cut at the first month or
	// 4-digit year token, strip trailing punctuation.
	rest := text[idx+len("mto"):]
	var kept []string
	for _, field := range strings.Fields(rest) {
		token := strings.Trim(field, punctCutset)
		if monthTokens[token] || isYearToken(token) {
			break
		}
		kept = append(kept, field)
	}

	tag := strings.Trim(strings.Join(kept, " "), punctCutset+" ")
	if tag == "" {
		return "", false
	}
	return tag, true
}

func isYearToken(token string) bool {
	if len(token) != 4 {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
