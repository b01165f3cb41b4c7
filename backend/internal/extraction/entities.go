// Package extraction finds named entities and topical themes in article text
// with an OpenAI-compatible LLM, and resolves entity names to canonical forms.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// Completer returns a JSON object answer to a prompt. *adapter.LLMAdapter implements it.
type Completer interface {
	GenerateJSON(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

// EntityLabels are the entity types the extractor keeps
var EntityLabels = []string{"Person", "Company", "Country", "Organization"}

// DefaultMinConfidence drops uncertain entities
const DefaultMinConfidence = 0.55

const entityPrompt = `You extract named entities from news text.
Allowed types: %s.
Return a JSON object {"entities": [{"name": string, "type": string, "confidence": number}]}
where confidence is your certainty between 0 and 1. Use the exact surface form from the text.
Return {"entities": []} when there are none.`

// EntityExtractor extracts entities and resolves them to canonical names
type EntityExtractor struct {
	llm           Completer
	resolver      *Resolver
	minConfidence float64
	labels        map[string]string // lowercase -> canonical label
	logger        *zap.Logger
}

// NewEntityExtractor creates an extractor. resolver may be nil to skip resolution.
func NewEntityExtractor(llm Completer, resolver *Resolver, log *zap.Logger) *EntityExtractor {
	labels := make(map[string]string, len(EntityLabels))
	for _, l := range EntityLabels {
		labels[strings.ToLower(l)] = l
	}
	return &EntityExtractor{
		llm:           llm,
		resolver:      resolver,
		minConfidence: DefaultMinConfidence,
		labels:        labels,
		logger:        logger.OrDefault(log, "entities"),
	}
}

type entityResponse struct {
	Entities []struct {
		Name       string  `json:"name"`
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	} `json:"entities"`
}

// Extract returns the entities mentioned in text. Low-confidence and unknown-type
// entities are dropped, near-duplicates are merged and names are resolved.
func (e *EntityExtractor) Extract(ctx context.Context, text string) ([]domain.Entity, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.Entity{}, nil
	}

	raw, err := e.llm.GenerateJSON(ctx, fmt.Sprintf(entityPrompt, strings.Join(EntityLabels, ", ")), text)
	if err != nil {
		return nil, err
	}

	var resp entityResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse entity response: %w", err)
	}

	entities := make([]domain.Entity, 0, len(resp.Entities))
	for _, ent := range resp.Entities {
		name := strings.TrimSpace(ent.Name)
		label, ok := e.labels[strings.ToLower(strings.TrimSpace(ent.Type))]
		if name == "" || !ok {
			continue
		}
		conf := round2(math.Max(0, math.Min(1, ent.Confidence)))
		if conf < e.minConfidence {
			continue
		}
		entities = append(entities, domain.Entity{Name: name, Type: label, Confidence: conf})
	}

	entities = mergeDuplicates(entities)

	if e.resolver != nil && len(entities) > 0 {
		names := make([]string, len(entities))
		for i, ent := range entities {
			names[i] = ent.Name
		}
		resolved, err := e.resolver.ResolveAll(ctx, names)
		if err != nil {
			return nil, err
		}
		for i := range entities {
			entities[i].Name = resolved[i]
		}
		// Two mentions can resolve to the same canonical name
		entities = dedupeByName(entities)
	}

	e.logger.Debug("Entities extracted", zap.Int("count", len(entities)))
	return entities, nil
}

// mergeDuplicates groups same-type entities with similar names and keeps the
// longest name per group, breaking ties by confidence
func mergeDuplicates(entities []domain.Entity) []domain.Entity {
	used := make([]bool, len(entities))
	out := make([]domain.Entity, 0, len(entities))

	for i := range entities {
		if used[i] {
			continue
		}
		used[i] = true
		rep := entities[i]
		ni := normalizeName(entities[i].Name)

		for j := i + 1; j < len(entities); j++ {
			if used[j] || entities[j].Type != entities[i].Type {
				continue
			}
			nj := normalizeName(entities[j].Name)
			if ni != nj && !areNamesSimilar(ni, nj) {
				continue
			}
			used[j] = true
			cand := entities[j]
			if len(cand.Name) > len(rep.Name) || (len(cand.Name) == len(rep.Name) && cand.Confidence > rep.Confidence) {
				rep = cand
			}
		}
		out = append(out, rep)
	}
	return out
}

func dedupeByName(entities []domain.Entity) []domain.Entity {
	idx := make(map[string]int, len(entities))
	out := make([]domain.Entity, 0, len(entities))
	for _, ent := range entities {
		if i, ok := idx[ent.Name]; ok {
			if ent.Confidence > out[i].Confidence {
				out[i].Confidence = ent.Confidence
			}
			continue
		}
		idx[ent.Name] = len(out)
		out = append(out, ent)
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
