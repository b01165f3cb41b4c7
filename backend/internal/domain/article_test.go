package domain

import (
	"testing"
	"time"
)

func TestToggle(t *testing.T) {
	tests := []struct {
		name    string
		current Reaction
		next    Reaction
		want    Reaction
	}{
		{"set from skipped", ReactionSkipped, ReactionLike, ReactionLike},
		{"same twice clears", ReactionLike, ReactionLike, ReactionSkipped},
		{"switch reaction", ReactionLike, ReactionLove, ReactionLove},
		{"clear dislike", ReactionDislike, ReactionDislike, ReactionSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Toggle(tt.current, tt.next); got != tt.want {
				t.Errorf("Toggle(%q, %q) = %q, want %q", tt.current, tt.next, got, tt.want)
			}
		})
	}
}

func TestToggleTwiceReturnsSkipped(t *testing.T) {
	r := Toggle(ReactionSkipped, ReactionLike)
	r = Toggle(r, ReactionLike)
	if r != ReactionSkipped {
		t.Errorf("Expected skipped after double toggle, got %q", r)
	}
}

func TestParseReaction(t *testing.T) {
	for _, in := range []string{"like", "LOVE", " dislike ", "skipped"} {
		if _, err := ParseReaction(in); err != nil {
			t.Errorf("ParseReaction(%q) unexpected error: %v", in, err)
		}
	}
	if r, err := ParseReaction(""); err != nil || r != ReactionSkipped {
		t.Errorf("Expected empty reaction to parse as skipped, got %q, %v", r, err)
	}
	if _, err := ParseReaction("meh"); err == nil {
		t.Error("Expected error for unknown reaction")
	}
}

func TestMultiplier(t *testing.T) {
	want := map[Reaction]float64{ReactionLove: 1.0, ReactionLike: 0.5, ReactionDislike: -0.25}
	for r, w := range want {
		m, ok := r.Multiplier()
		if !ok || m != w {
			t.Errorf("%q multiplier = %v (ok=%v), want %v", r, m, ok, w)
		}
	}
	if _, ok := ReactionSkipped.Multiplier(); ok {
		t.Error("Expected skipped to be excluded from scoring")
	}
	if _, ok := Reaction("").Multiplier(); ok {
		t.Error("Expected empty reaction to be excluded from scoring")
	}
}

func TestNewArticleSentinels(t *testing.T) {
	a := NewArticle("id-1", Candidate{Title: "T", Description: "D", URL: "u"}, time.Now())
	if a.Reaction != ReactionSkipped {
		t.Errorf("Expected reaction skipped, got %q", a.Reaction)
	}
	if a.Note != NoteSkipped || a.HasNote() {
		t.Errorf("Expected note sentinel, got %q", a.Note)
	}
	if a.Scores.Computed {
		t.Error("Expected scores not computed on a fresh article")
	}
}

func TestEmbeddingText(t *testing.T) {
	a := Article{Title: "Title", Description: "Desc", Note: NoteSkipped}
	if got := a.EmbeddingText(); got != "Title Desc" {
		t.Errorf("Expected sentinel note excluded, got %q", got)
	}
	a.Note = "my note"
	if got := a.EmbeddingText(); got != "Title Desc my note" {
		t.Errorf("Unexpected embedding text %q", got)
	}
}
