package lessons

import (
	"strings"
	"testing"
)

func TestFallback_AlwaysValid(t *testing.T) {
	subjects := []string{
		"Algebra",
		"",
		"  ",
		"数学",            // CJK
		"Ωμέγα Φυσική", // Greek with space
		strings.Repeat("VeryLongSubjectName", 50),
		"Subject\nwith\tcontrol\rchars",
		"{\"weird\": \"json-looking\"}",
		"émojis 🚀🚀🚀 everywhere",
	}
	topics := append([]string{"Algebra > Factoring"}, subjects...)

	for _, subject := range subjects {
		for _, topic := range topics {
			for _, d := range []Difficulty{DifficultyIntro, DifficultyEasy, DifficultyMedium, DifficultyHard, "bogus", ""} {
				l := Fallback(Request{Subject: subject, Topic: topic, Difficulty: d})
				if err := Validate(l); err != nil {
					t.Fatalf("fallback invalid for subject=%q topic=%q difficulty=%q: %v",
						subject, topic, d, err)
				}
			}
		}
	}
}

func TestFallback_Deterministic(t *testing.T) {
	req := testRequest()
	a := Fallback(req)
	b := Fallback(req)

	// IDs are fresh per lesson; everything else is identical.
	if a.Title != b.Title || a.Content != b.Content {
		t.Error("fallback content should be deterministic")
	}
	if a.ID == b.ID {
		t.Error("fallback lessons should get distinct IDs")
	}
	if len(a.Questions) != QuestionCount {
		t.Fatalf("got %d questions", len(a.Questions))
	}
}

func TestFallback_PreservesRequestFields(t *testing.T) {
	l := Fallback(Request{Subject: "Chemistry", Topic: "Stoichiometry", Difficulty: DifficultyHard})
	if l.Subject != "Chemistry" {
		t.Errorf("subject = %q", l.Subject)
	}
	if l.Topic != "Stoichiometry" {
		t.Errorf("topic = %q", l.Topic)
	}
	if l.Difficulty != DifficultyHard {
		t.Errorf("difficulty = %q", l.Difficulty)
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		in, fallback, want string
	}{
		{"Algebra", "x", "Algebra"},
		{"", "fallback", "fallback"},
		{"   ", "fallback", "fallback"},
		{"a\tb\nc", "x", "a b c"},
	}
	for _, tc := range cases {
		if got := displayName(tc.in, tc.fallback); got != tc.want {
			t.Errorf("displayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := displayName(strings.Repeat("abc ", 100), "x")
	if len(long) > maxDisplayLen {
		t.Errorf("display name %d bytes exceeds cap", len(long))
	}
}
