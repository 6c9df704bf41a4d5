package taxonomy

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// MatchConfidence is the fixed confidence of every dictionary match.
const MatchConfidence = 1.0

// Matcher recognises taxonomy entities in text. The zero value and a
// Matcher over a nil model match nothing.
type Matcher struct {
	model *EntityModel
}

// NewMatcher returns a matcher over model.
func NewMatcher(model *EntityModel) *Matcher {
	return &Matcher{model: model}
}

// Model returns the underlying taxonomy.
func (m *Matcher) Model() *EntityModel {
	if m == nil || m.model == nil {
		return Empty()
	}
	return m.model
}

// Recognize scans text once per entity value and reports at most one match
// per entity: the first value, in declaration order, that occurs in the
// lowercased text as a whole word. Matches are ordered by group then entity,
// not by position. Start and End are character offsets into the lowercased
// text. The result is never nil.
//
// Where lowercasing changes the rune count (U+0130 becomes two runes), the
// offsets do not line up with the original text.
func (m *Matcher) Recognize(text string) []nlu.EntityMatch {
	out := make([]nlu.EntityMatch, 0)
	if m == nil || m.model == nil || text == "" {
		return out
	}

	content := strings.ToLower(text)
	for _, group := range m.model.Groups {
		for _, entity := range group.Entities {
			for _, value := range entity.Values {
				start, end, ok := findWord(content, value)
				if !ok {
					continue
				}
				out = append(out, nlu.EntityMatch{
					Start:      start,
					End:        end,
					Value:      entity.Name,
					Confidence: MatchConfidence,
					Entity:     group.Name,
				})
				break
			}
		}
	}
	return out
}

// findWord returns the character span of the first occurrence of value in
// content that is neither preceded nor followed by a word character.
func findWord(content, value string) (int, int, bool) {
	if value == "" {
		return 0, 0, false
	}
	offset := 0
	for offset <= len(content)-len(value) {
		idx := strings.Index(content[offset:], value)
		if idx < 0 {
			return 0, 0, false
		}
		begin := offset + idx
		finish := begin + len(value)
		if !wordBefore(content, begin) && !wordAfter(content, finish) {
			start := utf8.RuneCountInString(content[:begin])
			return start, start + utf8.RuneCountInString(value), true
		}
		// advance one rune past the rejected occurrence
		_, size := utf8.DecodeRuneInString(content[begin:])
		offset = begin + size
	}
	return 0, 0, false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordAfter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

//Personal.AI order the ending
