package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/engramlabs/engram/internal/embedding"
	"github.com/engramlabs/engram/internal/model"
	"github.com/engramlabs/engram/internal/score"
)

// JSONMemory is the flat-file backend: the whole entry array lives in
// memory behind one mutex and is rewritten atomically on every mutation.
// Embedding vectors are kept in memory only; the file holds exactly the
// persisted entry fields.
type JSONMemory struct {
	policy

	path string

	mu      sync.Mutex
	entries []model.Entry
	index   map[string]int // key -> entries offset
	vectors map[string]embedding.Vector
}

// NewJSONMemory loads the store at path. A missing, corrupt, or
// unparsable file starts the store empty; the next mutation recreates it.
func NewJSONMemory(path string) (*JSONMemory, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	m := &JSONMemory{
		policy:  newPolicy(),
		path:    path,
		index:   make(map[string]int),
		vectors: make(map[string]embedding.Vector),
	}
	m.load()
	return m, nil
}

func (m *JSONMemory) BackendName() string { return "json" }

func (m *JSONMemory) load() {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return
	}

	var entries []model.Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		// Corrupt file; start fresh.
		return
	}

	m.entries = entries
	m.rebuildIndex()
}

// save rewrites the backing file atomically: write a temp file, then
// rename it over the original, so a crash mid-write never truncates the
// store. Callers hold the mutex.
func (m *JSONMemory) save() {
	b, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return
	}
	os.Rename(tmp, m.path)
}

func (m *JSONMemory) rebuildIndex() {
	m.index = make(map[string]int, len(m.entries))
	for i, e := range m.entries {
		m.index[e.Key] = i
	}
}

// cloneEntry returns a copy whose links do not alias backend state.
func cloneEntry(e model.Entry) model.Entry {
	if len(e.Links) > 0 {
		links := make([]string, len(e.Links))
		copy(links, e.Links)
		e.Links = links
	}
	return e
}

func (m *JSONMemory) Store(ctx context.Context, key, content string, category model.Category, sessionID string) string {
	vec := m.embedText(ctx, key+" "+content)

	m.mu.Lock()
	defer m.mu.Unlock()

	// A nil vector clears any cached one so an update never keeps
	// surfacing on similarity to its previous content.
	if vec != nil {
		m.vectors[key] = vec
	} else {
		delete(m.vectors, key)
	}

	if i, ok := m.index[key]; ok {
		e := &m.entries[i]
		e.Content = content
		e.Category = category
		e.Timestamp = time.Now().Unix()
		e.SessionID = sessionID
		m.save()
		return e.ID
	}

	entry := model.Entry{
		ID:        newID(),
		Key:       key,
		Content:   content,
		Category:  category,
		Timestamp: time.Now().Unix(),
		SessionID: sessionID,
	}
	m.entries = append(m.entries, entry)
	m.index[key] = len(m.entries) - 1
	m.save()
	return entry.ID
}

func (m *JSONMemory) Recall(ctx context.Context, query string, limit int, filter *model.Category) []model.Entry {
	if query == "" || limit <= 0 {
		return nil
	}

	queryVec := m.embedText(ctx, query)

	m.mu.Lock()
	defer m.mu.Unlock()

	tokens := score.Tokenize(query)
	if len(queryVec) == 0 && len(tokens) == 0 {
		return nil
	}

	now := time.Now().Unix()
	type scored struct {
		idx int
		s   float64
	}

	// Lexical pass: whole-token overlap against key and content.
	lexical := make(map[int]float64)
	var maxLexical float64
	for i, e := range m.entries {
		if filter != nil && e.Category != *filter {
			continue
		}
		if s := score.Lexical(tokens, e.Key, e.Content); s > 0 {
			lexical[i] = s
			if s > maxLexical {
				maxLexical = s
			}
		}
	}

	var results []scored
	if len(queryVec) == 0 {
		for i, s := range lexical {
			s *= score.RecencyDecay(m.age(now, m.entries[i].Timestamp), m.recencyHalfLife)
			if s > 0 {
				results = append(results, scored{i, s})
			}
		}
	} else {
		// Hybrid pass over every entry: normalized lexical + cosine.
		hasText := len(lexical) > 0
		for i, e := range m.entries {
			if filter != nil && e.Category != *filter {
				continue
			}

			var textNorm float64
			if hasText && maxLexical > 0 {
				textNorm = lexical[i] / maxLexical
			}

			vec := m.vectors[e.Key]
			cosine := score.Cosine(queryVec, vec)

			s := score.Hybrid(textNorm, cosine, m.textWeight, m.vectorWeight, hasText, len(vec) > 0)
			s *= score.RecencyDecay(m.age(now, e.Timestamp), m.recencyHalfLife)
			if s > 0 {
				results = append(results, scored{i, s})
			}
		}
	}

	sort.Slice(results, func(a, b int) bool { return results[a].s > results[b].s })
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]model.Entry, 0, len(results))
	for _, r := range results {
		e := cloneEntry(m.entries[r.idx])
		e.Score = r.s
		out = append(out, e)
	}
	return out
}

func (m *JSONMemory) age(now, timestamp int64) time.Duration {
	if now <= timestamp {
		return 0
	}
	return time.Duration(now-timestamp) * time.Second
}

func (m *JSONMemory) Get(key string) (model.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[key]
	if !ok {
		return model.Entry{}, false
	}
	return cloneEntry(m.entries[i]), true
}

func (m *JSONMemory) List(filter *model.Category, limit int) []model.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Entry
	for _, e := range m.entries {
		if filter != nil && e.Category != *filter {
			continue
		}
		out = append(out, cloneEntry(e))
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Timestamp > out[b].Timestamp })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *JSONMemory) Forget(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[key]
	if !ok {
		return false
	}

	// Remove the key from every other entry's links.
	for j := range m.entries {
		m.entries[j].RemoveLink(key)
	}

	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.vectors, key)
	m.rebuildIndex()
	m.save()
	return true
}

func (m *JSONMemory) Count(filter *model.Category) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if filter == nil {
		return len(m.entries)
	}
	n := 0
	for _, e := range m.entries {
		if e.Category == *filter {
			n++
		}
	}
	return n
}

func (m *JSONMemory) Link(fromKey, toKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	fi, ok := m.index[fromKey]
	if !ok {
		return false
	}
	ti, ok := m.index[toKey]
	if !ok {
		return false
	}

	m.entries[fi].AddLink(toKey)
	m.entries[ti].AddLink(fromKey)
	m.save()
	return true
}

func (m *JSONMemory) Unlink(fromKey, toKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	fi, fok := m.index[fromKey]
	ti, tok := m.index[toKey]
	if !fok || !tok {
		return false
	}

	removedFrom := m.entries[fi].RemoveLink(toKey)
	removedTo := m.entries[ti].RemoveLink(fromKey)
	if !removedFrom && !removedTo {
		return false
	}

	m.save()
	return true
}

func (m *JSONMemory) Neighbors(key string, limit int) []model.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[key]
	if !ok {
		return nil
	}

	var out []model.Entry
	for _, linked := range m.entries[i].Links {
		if limit >= 0 && len(out) >= limit {
			break
		}
		if j, ok := m.index[linked]; ok {
			out = append(out, cloneEntry(m.entries[j]))
		}
	}
	return out
}

func (m *JSONMemory) SnapshotExport() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return []byte("[]")
	}
	if len(m.entries) == 0 {
		return []byte("[]")
	}
	return b
}

func (m *JSONMemory) SnapshotImport(data []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var incoming []model.Entry
	if err := json.Unmarshal(data, &incoming); err != nil {
		return 0
	}

	imported := 0
	for _, e := range incoming {
		if e.Key == "" {
			continue
		}
		if _, exists := m.index[e.Key]; exists {
			continue
		}
		if e.ID == "" {
			e.ID = newID()
		}
		if e.Timestamp == 0 {
			e.Timestamp = time.Now().Unix()
		}
		m.entries = append(m.entries, cloneEntry(e))
		m.index[e.Key] = len(m.entries) - 1
		imported++
	}

	if imported > 0 {
		m.save()
	}
	return imported
}

func (m *JSONMemory) HygienePurge(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Unix() - int64(maxAge/time.Second)

	var purgedKeys []string
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Category == model.Conversation && e.Timestamp <= cutoff {
			purgedKeys = append(purgedKeys, e.Key)
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept

	if len(purgedKeys) == 0 {
		return 0
	}

	for _, key := range purgedKeys {
		delete(m.vectors, key)
		for j := range m.entries {
			m.entries[j].RemoveLink(key)
		}
	}
	m.rebuildIndex()
	m.save()
	return len(purgedKeys)
}

func (m *JSONMemory) Close() error { return nil }
