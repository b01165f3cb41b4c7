package graph

import (
	"context"
	"math"
	"testing"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
)

func node(id string, reaction domain.Reaction, emb ...float32) ArticleNode {
	return ArticleNode{
		ID:        id,
		Title:     "Article " + id,
		URL:       "https://example.com/" + id,
		Embedding: emb,
		Reaction:  reaction,
		Note:      domain.NoteSkipped,
	}
}

func nvidia() []domain.Entity {
	return []domain.Entity{{Name: "Nvidia", Type: "Company", Confidence: 0.9}}
}

func aiTheme() []domain.Theme {
	return []domain.Theme{{Name: "Artificial Intelligence", Score: 0.8}}
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	if err := s.UpsertArticleNode(ctx, node("b", domain.ReactionSkipped, 1, 0), nvidia(), aiTheme()); err != nil {
		t.Fatalf("UpsertArticleNode failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.UpsertArticleNode(ctx, node("a", domain.ReactionSkipped, 1, 0.1), nvidia(), aiTheme()); err != nil {
			t.Fatalf("UpsertArticleNode failed: %v", err)
		}
	}

	articles, entities, themes, similar := s.counts()
	if articles != 2 || entities != 1 || themes != 1 || similar != 1 {
		t.Errorf("Expected 2 articles, 1 entity, 1 theme, 1 edge; got %d, %d, %d, %d", articles, entities, themes, similar)
	}

	pop, _ := s.Popular(ctx, 10)
	if len(pop.Entities) != 1 || pop.Entities[0].MentionCount != 2 {
		t.Errorf("Expected Nvidia mentioned by exactly 2 articles, got %+v", pop.Entities)
	}
	if len(pop.Themes) != 1 || pop.Themes[0].MentionCount != 2 {
		t.Errorf("Expected theme mentioned by exactly 2 articles, got %+v", pop.Themes)
	}
}

func TestMemoryStore_UpsertDuplicateNamesInOneCall(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	entities := []domain.Entity{
		{Name: "Nvidia", Type: "Company", Confidence: 0.6},
		{Name: " Nvidia ", Type: "Company", Confidence: 0.9},
		{Name: "  ", Type: "Company", Confidence: 0.9},
	}
	if err := s.UpsertArticleNode(ctx, node("a", domain.ReactionSkipped, 1, 0), entities, nil); err != nil {
		t.Fatalf("UpsertArticleNode failed: %v", err)
	}

	pop, _ := s.Popular(ctx, 10)
	if len(pop.Entities) != 1 || pop.Entities[0].MentionCount != 1 {
		t.Errorf("Expected one entity mentioned once, got %+v", pop.Entities)
	}
}

func TestMemoryStore_ReupsertReplacesEdges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("b", domain.ReactionSkipped, 1, 0), nil, nil)
	_ = s.UpsertArticleNode(ctx, node("a", domain.ReactionSkipped, 1, 0), nvidia(), nil)

	// The article drifts away from b and drops its entity
	_ = s.UpsertArticleNode(ctx, node("a", domain.ReactionSkipped, 0, 1), nil, aiTheme())

	_, entities, themes, similar := s.counts()
	if entities != 0 {
		t.Errorf("Expected orphaned entity to be pruned, got %d", entities)
	}
	if themes != 1 {
		t.Errorf("Expected 1 theme, got %d", themes)
	}
	if similar != 0 {
		t.Errorf("Expected stale similarity edge to be removed, got %d", similar)
	}
}

func TestMemoryStore_SimilarityThreshold(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("a", domain.ReactionLove, 1, 0), nil, nil)
	// cos = 0.447 against a
	_ = s.UpsertArticleNode(ctx, node("b", domain.ReactionSkipped, 1, 2), nil, nil)

	_, _, _, similar := s.counts()
	if similar != 0 {
		t.Errorf("Expected no edge below threshold, got %d", similar)
	}
}

func TestMemoryStore_GraphScore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("loved", domain.ReactionLove, 1, 0), nvidia(), aiTheme())
	_ = s.UpsertArticleNode(ctx, node("target", domain.ReactionSkipped, 1, 0), nvidia(), aiTheme())

	got, err := s.GraphScore(ctx, "target")
	if err != nil {
		t.Fatalf("GraphScore failed: %v", err)
	}
	if math.Abs(got-56) > 1e-9 {
		t.Errorf("GraphScore() = %v, want 56", got)
	}

	// The loved article's neighbor never reacted, so it contributes nothing
	got, _ = s.GraphScore(ctx, "loved")
	if got != 0 {
		t.Errorf("Expected 0 when all neighbors are skipped, got %v", got)
	}
}

func TestMemoryStore_GraphScoreZeroWithoutPresence(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("lonely", domain.ReactionSkipped, 0, 1), nil, nil)
	_ = s.UpsertArticleNode(ctx, node("other", domain.ReactionLove, 1, 0), nvidia(), nil)

	if got, _ := s.GraphScore(ctx, "lonely"); got != 0 {
		t.Errorf("Expected exactly 0 for an isolated article, got %v", got)
	}
	if got, err := s.GraphScore(ctx, "missing"); got != 0 || err != nil {
		t.Errorf("Expected 0, nil for unknown id, got %v, %v", got, err)
	}
}

func TestMemoryStore_ReactionChangeIsReadAtScoreTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("n", domain.ReactionSkipped, 1, 0), nil, nil)
	_ = s.UpsertArticleNode(ctx, node("t", domain.ReactionSkipped, 1, 0), nil, nil)

	before, _ := s.GraphScore(ctx, "t")
	if err := s.UpdateReaction(ctx, "n", domain.ReactionDislike); err != nil {
		t.Fatalf("UpdateReaction failed: %v", err)
	}
	after, _ := s.GraphScore(ctx, "t")

	if before != 0 {
		t.Errorf("Expected 0 before any reaction, got %v", before)
	}
	if math.Abs(after-(-12.5)) > 1e-9 {
		t.Errorf("Expected -12.5 after dislike, got %v", after)
	}

	if err := s.UpdateReaction(ctx, "missing", domain.ReactionLove); err != nil {
		t.Errorf("Expected no-op for unknown id, got %v", err)
	}
}

func TestMemoryStore_RemoveNodes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("a", domain.ReactionSkipped, 1, 0), nvidia(), aiTheme())
	_ = s.UpsertArticleNode(ctx, node("b", domain.ReactionSkipped, 1, 0), nvidia(), nil)

	if err := s.RemoveNodes(ctx, []string{"a"}); err != nil {
		t.Fatalf("RemoveNodes failed: %v", err)
	}
	articles, entities, themes, similar := s.counts()
	if articles != 1 || entities != 1 || themes != 0 || similar != 0 {
		t.Errorf("Expected 1 article, 1 entity, 0 themes, 0 edges; got %d, %d, %d, %d", articles, entities, themes, similar)
	}

	// Removing again, or unknown ids, is a no-op
	if err := s.RemoveNodes(ctx, []string{"a", "zzz"}); err != nil {
		t.Errorf("Expected no error on repeated removal, got %v", err)
	}
	if err := s.RemoveNodes(ctx, []string{"b"}); err != nil {
		t.Fatalf("RemoveNodes failed: %v", err)
	}
	articles, entities, themes, similar = s.counts()
	if articles+entities+themes+similar != 0 {
		t.Errorf("Expected empty graph, got %d, %d, %d, %d", articles, entities, themes, similar)
	}
}

func TestMemoryStore_FindNeighborsByEntity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("input", domain.ReactionSkipped, 1, 0), nvidia(), nil)
	_ = s.UpsertArticleNode(ctx, node("close", domain.ReactionLike, 1, 0.1), []domain.Entity{{Name: "Nvidia Corp", Type: "Company"}}, nil)
	_ = s.UpsertArticleNode(ctx, node("medium", domain.ReactionSkipped, 1, 1), nvidia(), nil)
	_ = s.UpsertArticleNode(ctx, node("far", domain.ReactionSkipped, 0, 1), nvidia(), nil)
	_ = s.UpsertArticleNode(ctx, node("unrelated", domain.ReactionSkipped, 1, 0), []domain.Entity{{Name: "Apple"}}, nil)

	got, err := s.FindNeighborsByEntity(ctx, "input", "Nvidia", NeighborQuery{Limit: 20, MinSimilarity: 0.3})
	if err != nil {
		t.Fatalf("FindNeighborsByEntity failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 neighbors, got %d: %+v", len(got), got)
	}
	if _, ok := got["input"]; ok {
		t.Error("Input article must not be its own neighbor")
	}
	if _, ok := got["far"]; ok {
		t.Error("Orthogonal article must be filtered by minimum similarity")
	}
	if got["close"].MatchedName != "Nvidia Corp" {
		t.Errorf("Expected substring match on Nvidia Corp, got %q", got["close"].MatchedName)
	}

	ordered := SortNeighbors(got)
	if ordered[0].ID != "close" || ordered[1].ID != "medium" {
		t.Errorf("Expected close before medium, got %s, %s", ordered[0].ID, ordered[1].ID)
	}

	limited, _ := s.FindNeighborsByEntity(ctx, "input", "Nvidia", NeighborQuery{Limit: 1, MinSimilarity: 0.3})
	if len(limited) != 1 {
		t.Fatalf("Expected limit 1, got %d", len(limited))
	}
	if _, ok := limited["close"]; !ok {
		t.Error("Expected the most similar neighbor to survive the limit")
	}

	none, err := s.FindNeighborsByEntity(ctx, "missing", "Nvidia", DefaultEntityQuery)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected empty result for unknown article, got %v, %v", none, err)
	}
}

func TestMemoryStore_FindNeighborsByTheme(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("input", domain.ReactionSkipped, 1, 0), nil, aiTheme())
	_ = s.UpsertArticleNode(ctx, node("n1", domain.ReactionSkipped, 1, 0.2), nil, aiTheme())
	_ = s.UpsertArticleNode(ctx, node("n2", domain.ReactionSkipped, 1, 0.2), nil, []domain.Theme{{Name: "Economy", Score: 0.5}})

	got, _ := s.FindNeighborsByTheme(ctx, "input", "Intelligence", DefaultThemeQuery)
	if len(got) != 1 {
		t.Fatalf("Expected 1 neighbor, got %d", len(got))
	}
	if _, ok := got["n1"]; !ok {
		t.Errorf("Expected n1, got %+v", got)
	}
}

func TestMemoryStore_ArticleTopics(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("a", domain.ReactionSkipped, 1, 0),
		[]domain.Entity{{Name: "Nvidia", Type: "Company"}, {Name: "Jensen Huang", Type: "Person"}},
		aiTheme())

	topics, err := s.ArticleTopics(ctx, "a")
	if err != nil {
		t.Fatalf("ArticleTopics failed: %v", err)
	}
	if len(topics.Entities) != 2 || topics.Entities[0].Name != "Jensen Huang" {
		t.Errorf("Unexpected entities %+v", topics.Entities)
	}
	if len(topics.Themes) != 1 || topics.Themes[0] != "Artificial Intelligence" {
		t.Errorf("Unexpected themes %+v", topics.Themes)
	}

	empty, _ := s.ArticleTopics(ctx, "missing")
	if len(empty.Entities) != 0 || len(empty.Themes) != 0 {
		t.Errorf("Expected empty topics, got %+v", empty)
	}
}

func TestMemoryStore_NeighborWithoutEmbeddingIsSkipped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0.5, nil)

	_ = s.UpsertArticleNode(ctx, node("bare", domain.ReactionLove), nvidia(), nil)
	if err := s.UpsertArticleNode(ctx, node("a", domain.ReactionSkipped, 1, 0), nvidia(), nil); err != nil {
		t.Fatalf("Expected upsert to continue past a neighbor without embedding, got %v", err)
	}

	_, _, _, similar := s.counts()
	if similar != 0 {
		t.Errorf("Expected no edge to an article without embedding, got %d", similar)
	}

	got, _ := s.FindNeighborsByEntity(ctx, "a", "Nvidia", DefaultEntityQuery)
	if len(got) != 0 {
		t.Errorf("Expected neighbor without embedding to be skipped, got %+v", got)
	}
}

func TestMemoryStore_ZeroThresholdLinksOrthogonalArticles(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, nil)

	_ = s.UpsertArticleNode(ctx, node("a", domain.ReactionSkipped, 1, 0), nil, nil)
	_ = s.UpsertArticleNode(ctx, node("b", domain.ReactionSkipped, 0, 1), nil, nil)

	if _, _, _, similar := s.counts(); similar != 1 {
		t.Errorf("Expected a zero threshold to keep a similarity-0 edge, got %d edges", similar)
	}
}
