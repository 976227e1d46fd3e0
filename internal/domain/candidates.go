package domain

import "encoding/json"

// Candidates is the resolved candidate variant of a finished generation:
// either a single completion or several alternatives. The variant is decided
// once, when the terminal chunk is parsed, and never re-inspected downstream.
type Candidates struct {
	Texts    []string `json:"texts"`
	Multiple bool     `json:"multiple"`
}

// SingleCandidate wraps one completion text.
func SingleCandidate(text string) Candidates {
	return Candidates{Texts: []string{text}, Multiple: false}
}

// ParseCandidates resolves a terminal chunk's content into candidates.
// The content is expected to be a JSON array of strings; anything else
// degrades to a single candidate holding the raw content.
func ParseCandidates(content string) Candidates {
	var texts []string
	if err := json.Unmarshal([]byte(content), &texts); err != nil {
		return SingleCandidate(content)
	}
	return Candidates{Texts: texts, Multiple: true}
}

// Len returns the number of candidates.
func (c Candidates) Len() int {
	return len(c.Texts)
}

// At returns the candidate at index i, or "" when out of range.
func (c Candidates) At(i int) string {
	if i < 0 || i >= len(c.Texts) {
		return ""
	}
	return c.Texts[i]
}

// ValidIndex reports whether i selects an existing candidate. Index 0 is
// always valid so an empty set still has a well-defined selection.
func (c Candidates) ValidIndex(i int) bool {
	if i == 0 {
		return true
	}
	return i > 0 && i < len(c.Texts)
}
