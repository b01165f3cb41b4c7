package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// NameStore persists the canonical entity names known to a Resolver
type NameStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, names []string) error
}

// Resolver maps raw entity mentions to canonical names so that "Tesla Inc." and
// "Tesla" land on the same Entity node. Names it has not seen before become
// canonical themselves. Create one per process and share it.
type Resolver struct {
	store  NameStore
	logger *zap.Logger

	mu     sync.Mutex
	loaded bool
	names  []string
	index  map[string]int // normalized name -> position in names
}

// NewResolver creates a resolver backed by store
func NewResolver(store NameStore, log *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.OrDefault(log, "resolver"),
		index:  make(map[string]int),
	}
}

// Resolve returns the canonical name for raw, registering raw when nothing matches
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	out, err := r.ResolveAll(ctx, []string{raw})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// ResolveAll resolves every name and persists newly registered names once
func (r *Resolver) ResolveAll(ctx context.Context, raw []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(ctx); err != nil {
		return nil, err
	}

	out := make([]string, len(raw))
	added := false
	for i, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if canonical, ok := r.matchLocked(name); ok {
			out[i] = canonical
			continue
		}
		r.addLocked(name)
		out[i] = name
		added = true
	}

	if added {
		if err := r.store.Save(ctx, r.names); err != nil {
			// Resolution still works in memory for this process
			r.logger.Warn("Failed to persist entity names", zap.Error(err))
		}
	}
	return out, nil
}

// Names returns a copy of the canonical names
func (r *Resolver) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func (r *Resolver) loadLocked(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	names, err := r.store.Load(ctx)
	if err != nil {
		// Every later resolution would fail the same way
		return apperrors.NewExternalServiceError("entity-store", fmt.Errorf("failed to load entity names: %w", err))
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			r.addLocked(n)
		}
	}
	r.loaded = true
	return nil
}

func (r *Resolver) addLocked(name string) {
	key := normalizeName(name)
	if _, ok := r.index[key]; ok {
		return
	}
	r.index[key] = len(r.names)
	r.names = append(r.names, name)
}

// matchLocked finds an existing canonical name: exact after normalization first,
// then the first similar name in registration order
func (r *Resolver) matchLocked(name string) (string, bool) {
	key := normalizeName(name)
	if i, ok := r.index[key]; ok {
		return r.names[i], true
	}
	for _, existing := range r.names {
		if areNamesSimilar(key, normalizeName(existing)) {
			return existing, true
		}
	}
	return "", false
}

// ============================================================================
// Name Similarity
// ============================================================================

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s&]+`)
)

// corporateSuffixes carry no identity: "Tesla Inc." and "Tesla" are one entity
var corporateSuffixes = map[string]bool{
	"inc": true, "incorporated": true, "corp": true, "corporation": true,
	"co": true, "company": true, "ltd": true, "llc": true, "plc": true,
	"ag": true, "sa": true, "group": true, "holdings": true, "the": true,
}

// normalizeName lowercases, strips punctuation and collapses whitespace
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = punctuation.ReplaceAllString(name, " ")
	name = whitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

func nameTokens(normalized string) []string {
	var out []string
	for _, w := range strings.Fields(normalized) {
		if !corporateSuffixes[w] {
			out = append(out, w)
		}
	}
	return out
}

// areNamesSimilar reports whether two normalized names refer to the same entity:
// identical significant tokens, one name's tokens contained in the other's
// (a surname against a full name), or at least 75% token overlap
func areNamesSimilar(a, b string) bool {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}

	setA := make(map[string]bool, len(ta))
	for _, w := range ta {
		setA[w] = true
	}
	setB := make(map[string]bool, len(tb))
	for _, w := range tb {
		setB[w] = true
	}

	shared := 0
	for w := range setA {
		if setB[w] {
			shared++
		}
	}
	if shared == 0 {
		return false
	}

	smaller := min(len(setA), len(setB))
	if shared == smaller {
		// Containment on a single short token ("AI", "US") is too loose
		if smaller == 1 {
			for w := range setA {
				if setB[w] && len(w) < 4 {
					return len(setA) == len(setB)
				}
			}
		}
		return true
	}

	union := len(setA) + len(setB) - shared
	return float64(shared)/float64(union) >= 0.75
}

// ============================================================================
// Name Stores
// ============================================================================

// FileNameStore keeps the canonical names as a JSON list on disk
type FileNameStore struct {
	path string
}

// NewFileNameStore creates a store at path. The file is created on first save.
func NewFileNameStore(path string) *FileNameStore {
	return &FileNameStore{path: path}
}

// Load reads the names, returning an empty list when the file does not exist yet
func (s *FileNameStore) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []string{}, nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return names, nil
}

// Save writes the names atomically through a temp file and rename
func (s *FileNameStore) Save(_ context.Context, names []string) error {
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".entity-names-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// MemoryNameStore keeps names in memory
type MemoryNameStore struct {
	mu    sync.Mutex
	names []string
	saves int
}

// NewMemoryNameStore creates a store seeded with names
func NewMemoryNameStore(names ...string) *MemoryNameStore {
	return &MemoryNameStore{names: append([]string(nil), names...)}
}

// Load returns a copy of the stored names
func (s *MemoryNameStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...), nil
}

// Save replaces the stored names
func (s *MemoryNameStore) Save(_ context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append([]string(nil), names...)
	s.saves++
	return nil
}
