package grading

import (
	"github.com/classmark/classmark-engine/internal/result"
)

// Response types understood by the scorer. The dispatch in Score is a
// closed switch: adding a type here without a case below leaves it on the
// needs-review path, never a silent wrong grade.
const (
	TypeSingleChoice = "single_choice"
	TypeMultiChoice  = "multi_choice"
	TypeShortText    = "short_text"
	TypeNumeric      = "numeric"
	TypeBoolean      = "boolean"
	TypeOrdering     = "ordering"
	TypeMatching     = "matching"
	TypeExtendedText = "extended_text"
)

// Key is the type-specific correctness data for one question. Only the
// fields matching the question's type are consulted.
type Key struct {
	// single_choice
	OptionID string `json:"option_id,omitempty"`

	// multi_choice
	OptionIDs     []string `json:"option_ids,omitempty"`
	PartialCredit bool     `json:"partial_credit,omitempty"`

	// short_text
	AcceptedTexts []string `json:"accepted_texts,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`

	// numeric: either exact+tolerance or a closed [min,max] range
	Exact     *float64 `json:"exact,omitempty"`
	Tolerance float64  `json:"tolerance,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`

	// boolean
	Bool *bool `json:"bool,omitempty"`

	// ordering
	Order []string `json:"order,omitempty"`

	// matching: left id -> right id
	Pairs map[string]string `json:"pairs,omitempty"`

	// extended_text: shown to graders, never auto-scored
	SampleAnswer string `json:"sample_answer,omitempty"`
}

// Q is the minimal view of a question the scorer needs.
type Q struct {
	ID    string
	Type  string
	Marks float64
	Key   *Key
}

// Score grades one submitted response against its answer key. Pure and
// deterministic; the returned score is always within [0, q.Marks]. A
// malformed payload counts as "no answer". A missing key flags the entry
// for manual review instead of failing: that is an authoring gap, not a
// runtime fault.
func Score(q Q, response interface{}) result.Entry {
	e := result.Entry{QuestionID: q.ID, MaxScore: q.Marks}
	if q.Type == TypeExtendedText {
		e.NeedsReview = true
		return e
	}
	if q.Key == nil {
		e.NeedsReview = true
		return e
	}
	switch q.Type {
	case TypeSingleChoice:
		scoreSingleChoice(&e, q, response)
	case TypeMultiChoice:
		scoreMultiChoice(&e, q, response)
	case TypeShortText:
		scoreShortText(&e, q, response)
	case TypeNumeric:
		scoreNumeric(&e, q, response)
	case TypeBoolean:
		scoreBoolean(&e, q, response)
	case TypeOrdering:
		scoreOrdering(&e, q, response)
	case TypeMatching:
		scoreMatching(&e, q, response)
	default:
		e.NeedsReview = true
	}
	if e.Score < 0 {
		e.Score = 0
	}
	if e.Score > q.Marks {
		e.Score = q.Marks
	}
	return e
}

func full(e *result.Entry, q Q) {
	e.Score = q.Marks
	e.IsCorrect = true
}

func scoreSingleChoice(e *result.Entry, q Q, response interface{}) {
	e.CorrectAnswer = q.Key.OptionID
	sel, ok := asString(response)
	if !ok || sel == "" {
		return
	}
	if sel == q.Key.OptionID {
		full(e, q)
	}
}

// scoreMultiChoice awards full marks for an exact (order-independent)
// match. With partial credit enabled, credit is proportional to the
// overlap with the correct set, each wrong extra selection cancelling one
// hit; the clamp in Score keeps the result in range. An empty correct set
// is an authoring gap, same treatment as a missing key.
func scoreMultiChoice(e *result.Entry, q Q, response interface{}) {
	if len(q.Key.OptionIDs) == 0 {
		e.NeedsReview = true
		return
	}
	e.CorrectAnswer = append([]string(nil), q.Key.OptionIDs...)
	sel, ok := asStringSlice(response)
	if !ok {
		return
	}
	correct := toSet(q.Key.OptionIDs)
	chosen := toSet(sel)
	if setEqual(correct, chosen) {
		full(e, q)
		return
	}
	if !q.Key.PartialCredit {
		return
	}
	hits, extras := 0, 0
	for id := range chosen {
		if _, ok := correct[id]; ok {
			hits++
		} else {
			extras++
		}
	}
	frac := float64(hits-extras) / float64(len(correct))
	if frac > 0 {
		e.Score = q.Marks * frac
	}
}

func scoreShortText(e *result.Entry, q Q, response interface{}) {
	if len(q.Key.AcceptedTexts) == 0 {
		e.NeedsReview = true
		return
	}
	e.CorrectAnswer = q.Key.AcceptedTexts[0]
	text, ok := asString(response)
	if !ok {
		return
	}
	text = trimSpace(text)
	if text == "" {
		return
	}
	for _, accepted := range q.Key.AcceptedTexts {
		if textEqual(text, trimSpace(accepted), q.Key.CaseSensitive) {
			full(e, q)
			return
		}
	}
}

func scoreNumeric(e *result.Entry, q Q, response interface{}) {
	key := q.Key
	switch {
	case key.Exact != nil:
		e.CorrectAnswer = *key.Exact
	case key.Min != nil && key.Max != nil:
		e.CorrectAnswer = map[string]float64{"min": *key.Min, "max": *key.Max}
	default:
		// key carries neither form; same treatment as a missing key
		e.NeedsReview = true
		return
	}
	v, ok := asFloat(response)
	if !ok {
		return
	}
	if key.Exact != nil {
		if absDiff(v, *key.Exact) <= key.Tolerance {
			full(e, q)
		}
		return
	}
	if v >= *key.Min && v <= *key.Max {
		full(e, q)
	}
}

// scoreBoolean compares the submitted boolean only; an attached free-text
// explanation never affects the score.
func scoreBoolean(e *result.Entry, q Q, response interface{}) {
	if q.Key.Bool == nil {
		e.NeedsReview = true
		return
	}
	e.CorrectAnswer = *q.Key.Bool
	v, ok := asBool(response)
	if !ok {
		return
	}
	if v == *q.Key.Bool {
		full(e, q)
	}
}

func scoreOrdering(e *result.Entry, q Q, response interface{}) {
	if len(q.Key.Order) == 0 {
		e.NeedsReview = true
		return
	}
	e.CorrectAnswer = append([]string(nil), q.Key.Order...)
	seq, ok := asStringSlice(response)
	if !ok {
		return
	}
	if len(seq) != len(q.Key.Order) {
		return
	}
	for i := range seq {
		if seq[i] != q.Key.Order[i] {
			return
		}
	}
	full(e, q)
}

func scoreMatching(e *result.Entry, q Q, response interface{}) {
	if len(q.Key.Pairs) == 0 {
		e.NeedsReview = true
		return
	}
	e.CorrectAnswer = copyPairs(q.Key.Pairs)
	pairs, ok := asStringMap(response)
	if !ok {
		return
	}
	if len(pairs) != len(q.Key.Pairs) {
		return
	}
	for left, right := range q.Key.Pairs {
		if pairs[left] != right {
			return
		}
	}
	full(e, q)
}
