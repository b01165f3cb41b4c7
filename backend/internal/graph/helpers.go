package graph

import (
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
)

// ============================================================================
// Helper Functions
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

func getFloat64FromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0.0
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return 0.0
}

// getEmbeddingFromRecord decodes a stored embedding list. A missing or malformed
// value yields nil, which callers treat as "no embedding".
func getEmbeddingFromRecord(record *neo4j.Record, key string) []float32 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	switch list := val.(type) {
	case []float64:
		out := make([]float32, len(list))
		for i, f := range list {
			out[i] = float32(f)
		}
		return out
	case []interface{}:
		out := make([]float32, 0, len(list))
		for _, v := range list {
			switch f := v.(type) {
			case float64:
				out = append(out, float32(f))
			case int64:
				out = append(out, float32(f))
			default:
				return nil
			}
		}
		return out
	}
	return nil
}

func getReactionFromRecord(record *neo4j.Record, key string) domain.Reaction {
	if r := getStringFromRecord(record, key); r != "" {
		return domain.Reaction(r)
	}
	return domain.ReactionSkipped
}

func getStringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

// embeddingParam converts an embedding to the list type the driver stores natively
func embeddingParam(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func trimName(s string) string {
	return strings.TrimSpace(s)
}
