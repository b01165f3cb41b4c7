package graph

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// MemoryStore is an in-process Store with the same semantics as Repository.
// It backs tests and runs without a Neo4j instance.
type MemoryStore struct {
	mu        sync.RWMutex
	threshold float64
	logger    *zap.Logger

	articles map[string]*memArticle
	entities map[string]*memTopic
	themes   map[string]*memTopic
	similar  map[pairKey]float64
}

type memArticle struct {
	node     ArticleNode
	entities map[string]float64 // name -> confidence
	themes   map[string]float64 // name -> score
}

type memTopic struct {
	typ          string
	mentionCount int64
	latestScore  float64
}

// pairKey identifies an undirected edge; a < b always
type pairKey struct{ a, b string }

func newPairKey(x, y string) pairKey {
	if x < y {
		return pairKey{x, y}
	}
	return pairKey{y, x}
}

func (k pairKey) other(id string) string {
	if k.a == id {
		return k.b
	}
	return k.a
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory graph
func NewMemoryStore(threshold float64, log *zap.Logger) *MemoryStore {
	return &MemoryStore{
		threshold: threshold,
		logger:    logger.OrDefault(log, "graph"),
		articles:  make(map[string]*memArticle),
		entities:  make(map[string]*memTopic),
		themes:    make(map[string]*memTopic),
		similar:   make(map[pairKey]float64),
	}
}

// UpsertArticleNode creates or replaces an article node and its edges
func (s *MemoryStore) UpsertArticleNode(ctx context.Context, node ArticleNode, entities []domain.Entity, themes []domain.Theme) error {
	if node.Reaction == "" {
		node.Reaction = domain.ReactionSkipped
	}
	entities = mergeEntities(entities)
	themes = mergeThemes(themes)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.articles[node.ID]; ok {
		s.detachLocked(node.ID, existing)
	}

	a := &memArticle{
		node:     node,
		entities: make(map[string]float64, len(entities)),
		themes:   make(map[string]float64, len(themes)),
	}
	for _, e := range entities {
		t, ok := s.entities[e.Name]
		if !ok {
			t = &memTopic{typ: e.Type}
			s.entities[e.Name] = t
		} else if e.Type != "" {
			t.typ = e.Type
		}
		t.mentionCount++
		a.entities[e.Name] = e.Confidence
	}
	for _, th := range themes {
		t, ok := s.themes[th.Name]
		if !ok {
			t = &memTopic{}
			s.themes[th.Name] = t
		}
		t.mentionCount++
		t.latestScore = th.Score
		a.themes[th.Name] = th.Score
	}
	s.articles[node.ID] = a
	s.pruneLocked()

	ids := make([]string, 0, len(s.articles))
	for id := range s.articles {
		if id != node.ID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	candidates := make([]candidate, len(ids))
	for i, id := range ids {
		candidates[i] = candidate{ID: id, Embedding: s.articles[id].node.Embedding}
	}

	edges, err := scanSimilar(ctx, s.logger, node.ID, node.Embedding, candidates, s.threshold)
	if err != nil {
		return err
	}
	for _, e := range edges {
		s.similar[newPairKey(node.ID, e.ID)] = e.Weight
	}
	return nil
}

// detachLocked removes the article's topic and similarity edges
func (s *MemoryStore) detachLocked(id string, a *memArticle) {
	for name := range a.entities {
		if t, ok := s.entities[name]; ok {
			t.mentionCount--
		}
	}
	for name := range a.themes {
		if t, ok := s.themes[name]; ok {
			t.mentionCount--
		}
	}
	for k := range s.similar {
		if k.a == id || k.b == id {
			delete(s.similar, k)
		}
	}
}

func (s *MemoryStore) pruneLocked() {
	for name, t := range s.entities {
		if t.mentionCount <= 0 {
			delete(s.entities, name)
		}
	}
	for name, t := range s.themes {
		if t.mentionCount <= 0 {
			delete(s.themes, name)
		}
	}
}

// UpdateReaction sets the reaction of an article node
func (s *MemoryStore) UpdateReaction(_ context.Context, id string, reaction domain.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.articles[id]; ok {
		a.node.Reaction = reaction
	}
	return nil
}

// UpdateNote sets the note of an article node
func (s *MemoryStore) UpdateNote(_ context.Context, id, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.articles[id]; ok {
		a.node.Note = note
	}
	return nil
}

// RemoveNodes deletes articles and prunes orphaned entities and themes
func (s *MemoryStore) RemoveNodes(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		a, ok := s.articles[id]
		if !ok {
			continue
		}
		s.detachLocked(id, a)
		delete(s.articles, id)
	}
	s.pruneLocked()
	return nil
}

// GraphScore computes the reaction-weighted score of an article
func (s *MemoryStore) GraphScore(_ context.Context, id string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.articles[id]
	if !ok {
		return 0, nil
	}

	var sim []Contribution
	for k, w := range s.similar {
		if k.a != id && k.b != id {
			continue
		}
		if n, ok := s.articles[k.other(id)]; ok {
			sim = append(sim, Contribution{Weight: w, Reaction: n.node.Reaction})
		}
	}

	entityCounts := make(map[string]sharedCount)
	themeCounts := make(map[string]sharedCount)
	for otherID, other := range s.articles {
		if otherID == id {
			continue
		}
		if n := countShared(target.entities, other.entities); n > 0 {
			entityCounts[otherID] = sharedCount{reaction: other.node.Reaction, shared: n}
		}
		if n := countShared(target.themes, other.themes); n > 0 {
			themeCounts[otherID] = sharedCount{reaction: other.node.Reaction, shared: n}
		}
	}

	return Combine(sim, entityContributions(entityCounts), themeContributions(themeCounts)), nil
}

func countShared(a, b map[string]float64) int {
	n := 0
	for name := range a {
		if _, ok := b[name]; ok {
			n++
		}
	}
	return n
}

// FindNeighborsByEntity returns similar articles mentioning a matching entity
func (s *MemoryStore) FindNeighborsByEntity(_ context.Context, id, name string, q NeighborQuery) (map[string]Neighbor, error) {
	return s.findNeighbors(id, name, q, func(a *memArticle) map[string]float64 { return a.entities }), nil
}

// FindNeighborsByTheme returns similar articles with a matching theme
func (s *MemoryStore) FindNeighborsByTheme(_ context.Context, id, name string, q NeighborQuery) (map[string]Neighbor, error) {
	return s.findNeighbors(id, name, q, func(a *memArticle) map[string]float64 { return a.themes }), nil
}

func (s *MemoryStore) findNeighbors(id, name string, q NeighborQuery, topicsOf func(*memArticle) map[string]float64) map[string]Neighbor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	input, ok := s.articles[id]
	if !ok || input.node.Embedding == nil {
		return map[string]Neighbor{}
	}

	ids := make([]string, 0, len(s.articles))
	for otherID := range s.articles {
		if otherID != id {
			ids = append(ids, otherID)
		}
	}
	sort.Strings(ids)

	var rows []neighborRow
	for _, otherID := range ids {
		other := s.articles[otherID]
		matched := ""
		for topic := range topicsOf(other) {
			if strings.Contains(topic, name) && (matched == "" || topic < matched) {
				matched = topic
			}
		}
		if matched == "" {
			continue
		}
		rows = append(rows, neighborRow{
			Neighbor: Neighbor{
				ID:          otherID,
				Title:       other.node.Title,
				Description: other.node.Description,
				URL:         other.node.URL,
				Category:    other.node.Category,
				Reaction:    other.node.Reaction,
				Note:        other.node.Note,
				MatchedName: matched,
			},
			Embedding: other.node.Embedding,
		})
	}

	if len(rows) == 0 {
		return map[string]Neighbor{}
	}
	return rankNeighbors(s.logger, id, input.node.Embedding, rows, q)
}

// ArticleTopics returns the entities and themes attached to an article
func (s *MemoryStore) ArticleTopics(_ context.Context, id string) (Topics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := Topics{Entities: []EntityRef{}, Themes: []string{}}
	a, ok := s.articles[id]
	if !ok {
		return topics, nil
	}
	for name := range a.entities {
		ref := EntityRef{Name: name}
		if t, ok := s.entities[name]; ok {
			ref.Type = t.typ
		}
		topics.Entities = append(topics.Entities, ref)
	}
	for name := range a.themes {
		topics.Themes = append(topics.Themes, name)
	}
	sort.Slice(topics.Entities, func(i, j int) bool { return topics.Entities[i].Name < topics.Entities[j].Name })
	sort.Strings(topics.Themes)
	return topics, nil
}

// Popular returns the most mentioned entities and themes
func (s *MemoryStore) Popular(_ context.Context, limit int) (Popularity, error) {
	if limit < 1 {
		limit = DefaultPopularLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pop := Popularity{Entities: []Mention{}, Themes: []Mention{}}
	for name, t := range s.entities {
		pop.Entities = append(pop.Entities, Mention{Name: name, Type: t.typ, MentionCount: t.mentionCount})
	}
	for name, t := range s.themes {
		pop.Themes = append(pop.Themes, Mention{Name: name, MentionCount: t.mentionCount})
	}
	sortMentions(pop.Entities)
	sortMentions(pop.Themes)
	if len(pop.Entities) > limit {
		pop.Entities = pop.Entities[:limit]
	}
	if len(pop.Themes) > limit {
		pop.Themes = pop.Themes[:limit]
	}
	return pop, nil
}

// Close is a no-op
func (s *MemoryStore) Close(context.Context) error {
	return nil
}

// counts exposes node and edge totals for tests
func (s *MemoryStore) counts() (articles, entities, themes, similar int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles), len(s.entities), len(s.themes), len(s.similar)
}
