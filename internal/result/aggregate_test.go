package result

import "testing"

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, 50)
	if s.Total != 0 || s.MaxTotal != 0 || s.Percentage != 0 {
		t.Fatalf("empty breakdown must total zero, got %+v", s)
	}
	if s.Passed {
		t.Fatalf("empty breakdown must not pass")
	}
}

func TestAggregateAllFullMarks(t *testing.T) {
	entries := []Entry{
		{QuestionID: "q1", Score: 2, MaxScore: 2, IsCorrect: true},
		{QuestionID: "q2", Score: 3, MaxScore: 3, IsCorrect: true},
	}
	s := Aggregate(entries, 50)
	if s.Total != 5 || s.MaxTotal != 5 || s.Percentage != 100 || !s.Passed {
		t.Fatalf("got %+v, want 5/5 = 100%% passed", s)
	}
}

func TestAggregateThreshold(t *testing.T) {
	entries := []Entry{
		{QuestionID: "q1", Score: 1, MaxScore: 2},
		{QuestionID: "q2", Score: 0, MaxScore: 2},
	}
	tests := []struct {
		name      string
		threshold float64
		passed    bool
	}{
		{"below threshold", 60, false},
		{"exactly at threshold passes", 25, true},
		{"zero threshold selects default", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Aggregate(entries, tc.threshold)
			if s.Percentage != 25 {
				t.Fatalf("percentage = %v, want 25", s.Percentage)
			}
			if s.Passed != tc.passed {
				t.Fatalf("passed = %v, want %v (threshold %v)", s.Passed, tc.passed, tc.threshold)
			}
		})
	}
}

func TestAggregateDefaultThresholdRecorded(t *testing.T) {
	s := Aggregate(nil, 0)
	if s.PassThreshold != DefaultPassThreshold {
		t.Fatalf("threshold = %v, want default %v", s.PassThreshold, DefaultPassThreshold)
	}
}

func TestAggregatePendingEntriesCountCurrentScore(t *testing.T) {
	entries := []Entry{
		{QuestionID: "q1", Score: 5, MaxScore: 5, IsCorrect: true},
		{QuestionID: "q2", Score: 0, MaxScore: 5, NeedsReview: true},
	}
	s := Aggregate(entries, 50)
	if s.Total != 5 || s.MaxTotal != 10 || s.Percentage != 50 || !s.Passed {
		t.Fatalf("got %+v, want 5/10 = 50%% passed", s)
	}
}

func TestAggregateRounding(t *testing.T) {
	entries := []Entry{
		{QuestionID: "q1", Score: 1, MaxScore: 3},
	}
	s := Aggregate(entries, 50)
	if s.Percentage != 33.33 {
		t.Fatalf("percentage = %v, want 33.33", s.Percentage)
	}
}

func TestRound2(t *testing.T) {
	for _, tc := range []struct{ in, want float64 }{
		{33.333333, 33.33},
		{66.666666, 66.67},
		{75, 75},
		{0.005, 0.01},
	} {
		if got := Round2(tc.in); got != tc.want {
			t.Fatalf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
