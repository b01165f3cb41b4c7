package domain

import (
	"fmt"
	"strings"
	"time"
)

// Reaction is the user's feedback on an article
type Reaction string

const (
	ReactionSkipped Reaction = "skipped"
	ReactionLike    Reaction = "like"
	ReactionLove    Reaction = "love"
	ReactionDislike Reaction = "dislike"
)

// NoteSkipped marks an article nobody has written a note for yet.
// It is distinct from an empty note, which is a note the user cleared.
const NoteSkipped = "skipped"

// ParseReaction validates a reaction coming from an outer surface
func ParseReaction(s string) (Reaction, error) {
	switch r := Reaction(strings.ToLower(strings.TrimSpace(s))); r {
	case ReactionSkipped, ReactionLike, ReactionLove, ReactionDislike:
		return r, nil
	case "":
		return ReactionSkipped, nil
	default:
		return "", fmt.Errorf("invalid reaction %q", s)
	}
}

// IsPositive reports whether the reaction feeds the liked-embedding set
func (r Reaction) IsPositive() bool {
	return r == ReactionLike || r == ReactionLove
}

// Multiplier is the weight a neighbor's reaction contributes to graph scoring.
// ok is false for reactions that are excluded from scoring entirely.
func (r Reaction) Multiplier() (m float64, ok bool) {
	switch r {
	case ReactionLove:
		return 1.0, true
	case ReactionLike:
		return 0.5, true
	case ReactionDislike:
		return -0.25, true
	default:
		return 0, false
	}
}

// Toggle returns the reaction that results from pressing next when current is set.
// Pressing the same reaction twice clears it.
func Toggle(current, next Reaction) Reaction {
	if current == next {
		return ReactionSkipped
	}
	return next
}

// Entity is a named entity mentioned by an article
type Entity struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Theme is a topical theme detected in an article
type Theme struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Scores holds the four numeric scores of an article.
// Computed is false until the ranking pipeline has scored the article.
type Scores struct {
	Interest float64 `json:"interest_score"`
	Liking   float64 `json:"liking_score"`
	Graph    float64 `json:"graph_score"`
	Final    float64 `json:"final_score"`
	Computed bool    `json:"computed"`
}

// Article is a news article moving through the curation pipeline
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	Embedding   []float32 `json:"-"`
	Reaction    Reaction  `json:"reaction"`
	Note        string    `json:"note"`
	Entities    []Entity  `json:"entities"`
	Themes      []Theme   `json:"themes"`
	Scores      Scores    `json:"scores"`
}

// NewArticle builds an article from a fetched candidate with feedback sentinels set
func NewArticle(id string, c Candidate, now time.Time) Article {
	return Article{
		ID:          id,
		Title:       c.Title,
		Description: c.Description,
		URL:         c.URL,
		Category:    c.Category,
		PublishedAt: now,
		Reaction:    ReactionSkipped,
		Note:        NoteSkipped,
		Entities:    []Entity{},
		Themes:      []Theme{},
	}
}

// HasNote reports whether the user has written a note
func (a Article) HasNote() bool {
	return a.Note != NoteSkipped
}

// EmbeddingText is the text the article embedding is computed from
func (a Article) EmbeddingText() string {
	note := ""
	if a.HasNote() {
		note = a.Note
	}
	return strings.TrimSpace(a.Title + " " + a.Description + " " + note)
}

// ExtractionText is the text entities and themes are extracted from
func (a Article) ExtractionText() string {
	return strings.TrimSpace(a.Title + " " + a.Description)
}

// Candidate is a raw article returned by the article source
type Candidate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Category    string `json:"category"`
}

// FetchConfig selects which candidates the article source returns
type FetchConfig struct {
	Country    string   `json:"country"`
	Categories []string `json:"categories"`
	PageSize   int      `json:"page_size"`
}
