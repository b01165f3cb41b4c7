package graph

import (
	"sort"
	"time"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
)

// ============================================================================
// Graph Types
// ============================================================================

// ArticleNode holds the scalar properties stored on an Article node
type ArticleNode struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Category    string          `json:"category"`
	PublishedAt time.Time       `json:"published_at"`
	Embedding   []float32       `json:"-"`
	Reaction    domain.Reaction `json:"reaction"`
	Note        string          `json:"note"`
}

// NodeFromArticle copies the graph-relevant fields of an article
func NodeFromArticle(a domain.Article) ArticleNode {
	return ArticleNode{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		URL:         a.URL,
		Category:    a.Category,
		PublishedAt: a.PublishedAt,
		Embedding:   a.Embedding,
		Reaction:    a.Reaction,
		Note:        a.Note,
	}
}

// Neighbor is an article related to a query article through a shared entity or theme
type Neighbor struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Category    string          `json:"category"`
	Reaction    domain.Reaction `json:"reaction"`
	Note        string          `json:"note"`
	MatchedName string          `json:"matched_name"` // entity or theme name that matched
	Similarity  float64         `json:"similarity"`
}

// NeighborQuery bounds a neighbor search
type NeighborQuery struct {
	Limit         int
	MinSimilarity float64
}

// Default neighbor searches. The entity and theme limits differ and are kept configurable.
var (
	DefaultEntityQuery = NeighborQuery{Limit: 20, MinSimilarity: 0.3}
	DefaultThemeQuery  = NeighborQuery{Limit: 10, MinSimilarity: 0.3}
)

// SortNeighbors returns the neighbors ordered by similarity descending, then id
func SortNeighbors(m map[string]Neighbor) []Neighbor {
	out := make([]Neighbor, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	sortNeighbors(out)
	return out
}

func sortNeighbors(ns []Neighbor) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].Similarity != ns[j].Similarity {
			return ns[i].Similarity > ns[j].Similarity
		}
		return ns[i].ID < ns[j].ID
	})
}

// EntityRef names an entity attached to an article
type EntityRef struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Topics lists the entities and themes attached to one article
type Topics struct {
	Entities []EntityRef `json:"entities"`
	Themes   []string    `json:"themes"`
}

// Mention is an entity or theme with its article mention count
type Mention struct {
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	MentionCount int64  `json:"mention_count"`
}

// Popularity lists the most mentioned entities and themes
type Popularity struct {
	Entities []Mention `json:"entities"`
	Themes   []Mention `json:"themes"`
}

func sortMentions(ms []Mention) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].MentionCount != ms[j].MentionCount {
			return ms[i].MentionCount > ms[j].MentionCount
		}
		return ms[i].Name < ms[j].Name
	})
}
