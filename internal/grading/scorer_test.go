package grading

import "testing"

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }

func TestScoreSingleChoice(t *testing.T) {
	q := Q{ID: "q1", Type: TypeSingleChoice, Marks: 2, Key: &Key{OptionID: "b"}}
	tests := []struct {
		name     string
		response interface{}
		score    float64
		correct  bool
	}{
		{"correct option", "b", 2, true},
		{"wrong option", "a", 0, false},
		{"empty selection", "", 0, false},
		{"missing response", nil, 0, false},
		{"malformed payload", []interface{}{"b"}, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Score(q, tc.response)
			if e.Score != tc.score || e.IsCorrect != tc.correct {
				t.Fatalf("got score=%v correct=%v, want %v/%v", e.Score, e.IsCorrect, tc.score, tc.correct)
			}
			if e.NeedsReview {
				t.Fatalf("single choice must never need review")
			}
			if e.CorrectAnswer != "b" {
				t.Fatalf("expected echoed correct option, got %v", e.CorrectAnswer)
			}
		})
	}
}

func TestScoreMultiChoiceExact(t *testing.T) {
	q := Q{ID: "q2", Type: TypeMultiChoice, Marks: 4, Key: &Key{OptionIDs: []string{"a", "d"}}}
	tests := []struct {
		name     string
		response interface{}
		score    float64
		correct  bool
	}{
		{"exact match order independent", []interface{}{"d", "a"}, 4, true},
		{"missing one", []interface{}{"a"}, 0, false},
		{"extra one", []interface{}{"a", "d", "b"}, 0, false},
		{"disjoint", []interface{}{"b", "c"}, 0, false},
		{"empty", []interface{}{}, 0, false},
		{"malformed scalar", "a", 0, false},
		{"malformed mixed slice", []interface{}{"a", 7}, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Score(q, tc.response)
			if e.Score != tc.score || e.IsCorrect != tc.correct {
				t.Fatalf("got score=%v correct=%v, want %v/%v", e.Score, e.IsCorrect, tc.score, tc.correct)
			}
		})
	}
}

func TestScoreMultiChoicePartialCredit(t *testing.T) {
	q := Q{ID: "q2", Type: TypeMultiChoice, Marks: 4, Key: &Key{
		OptionIDs:     []string{"a", "b", "c", "d"},
		PartialCredit: true,
	}}
	tests := []struct {
		name     string
		response interface{}
		score    float64
	}{
		{"all correct", []interface{}{"a", "b", "c", "d"}, 4},
		{"half correct", []interface{}{"a", "b"}, 2},
		{"three hits one extra nets two", []interface{}{"a", "b", "c", "x"}, 2},
		{"extras cancel hits to zero", []interface{}{"a", "x"}, 0},
		{"penalty never goes negative", []interface{}{"x", "y", "z"}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Score(q, tc.response)
			if e.Score != tc.score {
				t.Fatalf("got score=%v, want %v", e.Score, tc.score)
			}
		})
	}
}

func TestScoreShortText(t *testing.T) {
	insensitive := Q{ID: "q3", Type: TypeShortText, Marks: 1, Key: &Key{AcceptedTexts: []string{"Paris", "City of Light"}}}
	sensitive := Q{ID: "q3", Type: TypeShortText, Marks: 1, Key: &Key{AcceptedTexts: []string{"pH"}, CaseSensitive: true}}
	tests := []struct {
		name     string
		q        Q
		response interface{}
		score    float64
	}{
		{"exact", insensitive, "Paris", 1},
		{"case folded", insensitive, "paris", 1},
		{"surrounding whitespace trimmed", insensitive, "  Paris \n", 1},
		{"second variant", insensitive, "city of light", 1},
		{"no fuzzy match", insensitive, "Pariss", 0},
		{"empty", insensitive, "", 0},
		{"case sensitive match", sensitive, "pH", 1},
		{"case sensitive mismatch", sensitive, "ph", 0},
		{"malformed payload", insensitive, 42.0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Score(tc.q, tc.response)
			if e.Score != tc.score {
				t.Fatalf("got score=%v, want %v", e.Score, tc.score)
			}
		})
	}
}

func TestScoreNumericTolerance(t *testing.T) {
	q := Q{ID: "q4", Type: TypeNumeric, Marks: 3, Key: &Key{Exact: fptr(5), Tolerance: 0.5}}
	tests := []struct {
		name     string
		response interface{}
		score    float64
	}{
		{"exact", 5.0, 3},
		{"at boundary below", 4.5, 3},
		{"at boundary above", 5.5, 3},
		{"just outside", 5.5625, 0},
		{"string number accepted", "5", 3},
		{"non-numeric string", "five", 0},
		{"missing", nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Score(q, tc.response)
			if e.Score != tc.score {
				t.Fatalf("got score=%v, want %v", e.Score, tc.score)
			}
		})
	}
}

func TestScoreNumericRange(t *testing.T) {
	q := Q{ID: "q4", Type: TypeNumeric, Marks: 2, Key: &Key{Min: fptr(10), Max: fptr(20)}}
	for _, tc := range []struct {
		name     string
		response interface{}
		score    float64
	}{
		{"inside", 15.0, 2},
		{"lower bound inclusive", 10.0, 2},
		{"upper bound inclusive", 20.0, 2},
		{"below", 9.999, 0},
		{"above", 20.001, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if e := Score(q, tc.response); e.Score != tc.score {
				t.Fatalf("got score=%v, want %v", e.Score, tc.score)
			}
		})
	}
}

func TestScoreNumericUnusableKey(t *testing.T) {
	e := Score(Q{ID: "q4", Type: TypeNumeric, Marks: 2, Key: &Key{}}, 5.0)
	if e.Score != 0 || !e.NeedsReview {
		t.Fatalf("key with neither exact nor range should route to review, got %+v", e)
	}
}

func TestScoreBoolean(t *testing.T) {
	q := Q{ID: "q5", Type: TypeBoolean, Marks: 1, Key: &Key{Bool: bptr(true)}}
	tests := []struct {
		name     string
		response interface{}
		score    float64
	}{
		{"bare bool correct", true, 1},
		{"bare bool wrong", false, 0},
		{"envelope correct", map[string]interface{}{"value": true, "explanation": "because"}, 1},
		{"envelope wrong explanation ignored", map[string]interface{}{"value": false, "explanation": "correct reasoning"}, 0},
		{"malformed envelope", map[string]interface{}{"explanation": "no value"}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if e := Score(q, tc.response); e.Score != tc.score {
				t.Fatalf("got score=%v, want %v", e.Score, tc.score)
			}
		})
	}
}

func TestScoreOrdering(t *testing.T) {
	q := Q{ID: "q6", Type: TypeOrdering, Marks: 2, Key: &Key{Order: []string{"s1", "s2", "s3"}}}
	tests := []struct {
		name     string
		response interface{}
		score    float64
	}{
		{"exact sequence", []interface{}{"s1", "s2", "s3"}, 2},
		{"swapped pair no partial credit", []interface{}{"s2", "s1", "s3"}, 0},
		{"short sequence", []interface{}{"s1", "s2"}, 0},
		{"long sequence", []interface{}{"s1", "s2", "s3", "s4"}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if e := Score(q, tc.response); e.Score != tc.score {
				t.Fatalf("got score=%v, want %v", e.Score, tc.score)
			}
		})
	}
}

func TestScoreMatching(t *testing.T) {
	q := Q{ID: "q7", Type: TypeMatching, Marks: 3, Key: &Key{Pairs: map[string]string{"l1": "r1", "l2": "r2"}}}
	tests := []struct {
		name     string
		response interface{}
		score    float64
	}{
		{"all pairs", map[string]interface{}{"l1": "r1", "l2": "r2"}, 3},
		{"one wrong pair", map[string]interface{}{"l1": "r2", "l2": "r1"}, 0},
		{"missing pair", map[string]interface{}{"l1": "r1"}, 0},
		{"extra pair", map[string]interface{}{"l1": "r1", "l2": "r2", "l3": "r3"}, 0},
		{"malformed values", map[string]interface{}{"l1": 1}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if e := Score(q, tc.response); e.Score != tc.score {
				t.Fatalf("got score=%v, want %v", e.Score, tc.score)
			}
		})
	}
}

func TestScoreExtendedText(t *testing.T) {
	q := Q{ID: "q8", Type: TypeExtendedText, Marks: 5, Key: &Key{SampleAnswer: "anything"}}
	e := Score(q, "a thoughtful essay")
	if e.Score != 0 || e.IsCorrect || !e.NeedsReview {
		t.Fatalf("extended text must be 0 points pending review, got %+v", e)
	}
	if e.MaxScore != 5 {
		t.Fatalf("max score must carry the question marks, got %v", e.MaxScore)
	}
}

func TestScoreMissingKey(t *testing.T) {
	for _, typ := range []string{TypeSingleChoice, TypeMultiChoice, TypeShortText, TypeNumeric, TypeBoolean, TypeOrdering, TypeMatching} {
		e := Score(Q{ID: "qx", Type: typ, Marks: 2}, "whatever")
		if e.Score != 0 || !e.NeedsReview {
			t.Fatalf("%s without key should be zero + review, got %+v", typ, e)
		}
	}
}

// A key struct without its type's correctness data is the same authoring
// gap as a missing key: zero score, routed to review, never auto-wrong.
func TestScoreEmptyKeyDataRoutesToReview(t *testing.T) {
	tests := []struct {
		name string
		q    Q
	}{
		{"multi choice empty set", Q{ID: "q", Type: TypeMultiChoice, Marks: 4, Key: &Key{PartialCredit: true}}},
		{"short text no accepted", Q{ID: "q", Type: TypeShortText, Marks: 1, Key: &Key{}}},
		{"ordering empty sequence", Q{ID: "q", Type: TypeOrdering, Marks: 2, Key: &Key{}}},
		{"matching empty pairs", Q{ID: "q", Type: TypeMatching, Marks: 3, Key: &Key{}}},
		{"boolean nil value", Q{ID: "q", Type: TypeBoolean, Marks: 1, Key: &Key{}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Score(tc.q, "anything")
			if e.Score != 0 || !e.NeedsReview {
				t.Fatalf("got %+v, want zero score + review", e)
			}
		})
	}
}

func TestScoreUnknownType(t *testing.T) {
	e := Score(Q{ID: "qz", Type: "hotspot", Marks: 1, Key: &Key{}}, "x")
	if e.Score != 0 || !e.NeedsReview {
		t.Fatalf("unknown type should be zero + review, got %+v", e)
	}
}
