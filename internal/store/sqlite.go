package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/engramlabs/engram/internal/embedding"
	"github.com/engramlabs/engram/internal/model"
	"github.com/engramlabs/engram/internal/score"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id            TEXT PRIMARY KEY,
	key           TEXT UNIQUE NOT NULL,
	content       TEXT NOT NULL,
	category      TEXT NOT NULL,
	timestamp     INTEGER NOT NULL,
	session_id    TEXT NOT NULL DEFAULT '',
	last_accessed INTEGER NOT NULL DEFAULT 0,
	embedding     BLOB
);

CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
	key, content,
	content=memories,
	content_rowid=rowid
);

CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
	INSERT INTO memories_fts(rowid, key, content)
	VALUES (new.rowid, new.key, new.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
	INSERT INTO memories_fts(memories_fts, rowid, key, content)
	VALUES ('delete', old.rowid, old.key, old.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
	INSERT INTO memories_fts(memories_fts, rowid, key, content)
	VALUES ('delete', old.rowid, old.key, old.content);
	INSERT INTO memories_fts(rowid, key, content)
	VALUES (new.rowid, new.key, new.content);
END;

CREATE TABLE IF NOT EXISTS memory_links (
	from_key TEXT NOT NULL,
	to_key   TEXT NOT NULL,
	PRIMARY KEY (from_key, to_key)
);
`

// SQLiteMemory is the durable backend. Lexical recall goes through an
// FTS5 index kept in sync with the memories table by triggers; embeddings
// are cached as little-endian float32 blobs on the row so hybrid recall
// never re-embeds stored content.
type SQLiteMemory struct {
	policy

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteMemory opens (or creates) the database at path and applies the
// schema. This is the one place a backend is allowed to fail.
func NewSQLiteMemory(path string) (*SQLiteMemory, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	slog.Info("memory store opened", "backend", "sqlite", "path", path)

	return &SQLiteMemory{policy: newPolicy(), db: db}, nil
}

func (m *SQLiteMemory) BackendName() string { return "sqlite" }

func (m *SQLiteMemory) Store(ctx context.Context, key, content string, category model.Category, sessionID string) string {
	vec := m.embedText(ctx, key+" "+content)
	blob := embeddingBlob(vec)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Unix()

	var id string
	err := m.db.QueryRow(`SELECT id FROM memories WHERE key = ?`, key).Scan(&id)
	if err == nil {
		m.db.Exec(`UPDATE memories
			SET content = ?, category = ?, timestamp = ?, session_id = ?, embedding = ?
			WHERE key = ?`,
			content, category.String(), now, sessionID, blob, key)
		return id
	}

	id = newID()
	m.db.Exec(`INSERT INTO memories (id, key, content, category, timestamp, session_id, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, key, content, category.String(), now, sessionID, blob)
	return id
}

func embeddingBlob(vec embedding.Vector) []byte {
	if len(vec) == 0 {
		return nil
	}
	return embedding.Encode(vec)
}

func (m *SQLiteMemory) Recall(ctx context.Context, query string, limit int, filter *model.Category) []model.Entry {
	if query == "" || limit <= 0 {
		return nil
	}

	queryVec := m.embedText(ctx, query)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Unix()
	lexical := m.ftsScores(query)

	type scored struct {
		entry model.Entry
		s     float64
	}
	var results []scored

	if len(queryVec) == 0 && len(lexical) == 0 {
		// Nothing to rank with; fall back to a LIKE scan so recall still
		// finds substring matches FTS tokenization misses.
		for _, e := range m.likeScan(query, filter, limit) {
			s := score.RecencyDecay(secondsAsAge(now, e.Timestamp), m.recencyHalfLife)
			s *= m.idleFade(now, e)
			if s > 0 {
				results = append(results, scored{e, s})
			}
		}
	} else {
		hasText := len(lexical) > 0
		var maxLexical float64
		for _, s := range lexical {
			if s > maxLexical {
				maxLexical = s
			}
		}

		for _, row := range m.scanRows(filter) {
			var s float64
			if len(queryVec) == 0 {
				s = lexical[row.entry.Key]
			} else {
				var textNorm float64
				if maxLexical > 0 {
					textNorm = lexical[row.entry.Key] / maxLexical
				}
				cosine := score.Cosine(queryVec, row.vector)
				s = score.Hybrid(textNorm, cosine, m.textWeight, m.vectorWeight, hasText, len(row.vector) > 0)
			}
			s *= score.RecencyDecay(secondsAsAge(now, row.entry.Timestamp), m.recencyHalfLife)
			s *= m.idleFade(now, row.entry)
			if s > 0 {
				results = append(results, scored{row.entry, s})
			}
		}
	}

	// Stable so tied scores keep the recency order the scans produce.
	sort.SliceStable(results, func(a, b int) bool { return results[a].s > results[b].s })
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]model.Entry, 0, len(results))
	for _, r := range results {
		e := r.entry
		e.Score = r.s
		e.Links = m.linksFor(e.Key)
		m.db.Exec(`UPDATE memories SET last_accessed = ? WHERE key = ?`, now, e.Key)
		out = append(out, e)
	}
	return out
}

// ftsScores runs the tokenized query against the FTS index and returns
// key -> relevance. bm25 ranks better matches more negative, so the sign
// is flipped to sort naturally.
func (m *SQLiteMemory) ftsScores(query string) map[string]float64 {
	var terms []string
	for _, tok := range score.Tokenize(query) {
		if len(tok) < 2 {
			continue
		}
		terms = append(terms, `"`+tok+`"`)
	}
	if len(terms) == 0 {
		return nil
	}

	rows, err := m.db.Query(`SELECT m.key, bm25(memories_fts)
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ?`,
		strings.Join(terms, " OR "))
	if err != nil {
		return nil
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var key string
		var rank float64
		if err := rows.Scan(&key, &rank); err != nil {
			continue
		}
		scores[key] = -rank
	}
	return scores
}

func (m *SQLiteMemory) likeScan(query string, filter *model.Category, limit int) []model.Entry {
	q := `SELECT id, key, content, category, timestamp, session_id, last_accessed
		FROM memories
		WHERE (key LIKE ? OR content LIKE ?)`
	args := []any{"%" + query + "%", "%" + query + "%"}
	if filter != nil {
		q += ` AND category = ?`
		args = append(args, filter.String())
	}
	q += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := m.db.Query(q, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []model.Entry
	for rows.Next() {
		if e, ok := scanEntry(rows); ok {
			out = append(out, e)
		}
	}
	return out
}

type sqliteRow struct {
	entry  model.Entry
	vector embedding.Vector
}

func (m *SQLiteMemory) scanRows(filter *model.Category) []sqliteRow {
	q := `SELECT id, key, content, category, timestamp, session_id, last_accessed, embedding FROM memories`
	var args []any
	if filter != nil {
		q += ` WHERE category = ?`
		args = append(args, filter.String())
	}

	rows, err := m.db.Query(q, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []sqliteRow
	for rows.Next() {
		var e model.Entry
		var category string
		var blob []byte
		if err := rows.Scan(&e.ID, &e.Key, &e.Content, &category, &e.Timestamp, &e.SessionID, &e.LastAccessed, &blob); err != nil {
			continue
		}
		e.Category = model.ParseCategory(category)
		out = append(out, sqliteRow{entry: e, vector: embedding.Decode(blob)})
	}
	return out
}

// idleFade dampens knowledge entries nobody has recalled lately. Entries
// never recalled count idleness from their write timestamp.
func (m *SQLiteMemory) idleFade(now int64, e model.Entry) float64 {
	if e.Category != model.Knowledge || m.knowledgeMaxIdle <= 0 {
		return 1.0
	}
	last := e.LastAccessed
	if last == 0 {
		last = e.Timestamp
	}
	return score.IdleFade(secondsAsAge(now, last), m.knowledgeMaxIdle)
}

func secondsAsAge(now, then int64) time.Duration {
	if now <= then {
		return 0
	}
	return time.Duration(now-then) * time.Second
}

func scanEntry(rows *sql.Rows) (model.Entry, bool) {
	var e model.Entry
	var category string
	if err := rows.Scan(&e.ID, &e.Key, &e.Content, &category, &e.Timestamp, &e.SessionID, &e.LastAccessed); err != nil {
		return model.Entry{}, false
	}
	e.Category = model.ParseCategory(category)
	return e, true
}

func (m *SQLiteMemory) Get(key string) (model.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := m.db.QueryRow(`SELECT id, key, content, category, timestamp, session_id, last_accessed
		FROM memories WHERE key = ?`, key)

	var e model.Entry
	var category string
	if err := row.Scan(&e.ID, &e.Key, &e.Content, &category, &e.Timestamp, &e.SessionID, &e.LastAccessed); err != nil {
		return model.Entry{}, false
	}
	e.Category = model.ParseCategory(category)
	e.Links = m.linksFor(key)
	return e, true
}

func (m *SQLiteMemory) List(filter *model.Category, limit int) []model.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := `SELECT id, key, content, category, timestamp, session_id, last_accessed FROM memories`
	var args []any
	if filter != nil {
		q += ` WHERE category = ?`
		args = append(args, filter.String())
	}
	q += ` ORDER BY timestamp DESC LIMIT ?`
	if limit < 0 {
		limit = -1
	}
	args = append(args, limit)

	rows, err := m.db.Query(q, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []model.Entry
	for rows.Next() {
		if e, ok := scanEntry(rows); ok {
			e.Links = m.linksFor(e.Key)
			out = append(out, e)
		}
	}
	return out
}

func (m *SQLiteMemory) Forget(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.db.Exec(`DELETE FROM memory_links WHERE from_key = ? OR to_key = ?`, key, key)

	res, err := m.db.Exec(`DELETE FROM memories WHERE key = ?`, key)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (m *SQLiteMemory) Count(filter *model.Category) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := `SELECT COUNT(*) FROM memories`
	var args []any
	if filter != nil {
		q += ` WHERE category = ?`
		args = append(args, filter.String())
	}

	var n int
	if err := m.db.QueryRow(q, args...).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (m *SQLiteMemory) Link(fromKey, toKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range []string{fromKey, toKey} {
		var n int
		if err := m.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE key = ?`, key).Scan(&n); err != nil || n == 0 {
			return false
		}
	}

	m.db.Exec(`INSERT OR IGNORE INTO memory_links (from_key, to_key) VALUES (?, ?), (?, ?)`,
		fromKey, toKey, toKey, fromKey)
	return true
}

func (m *SQLiteMemory) Unlink(fromKey, toKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.db.Exec(`DELETE FROM memory_links
		WHERE (from_key = ? AND to_key = ?) OR (from_key = ? AND to_key = ?)`,
		fromKey, toKey, toKey, fromKey)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (m *SQLiteMemory) Neighbors(key string, limit int) []model.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit < 0 {
		limit = -1
	}
	rows, err := m.db.Query(`SELECT m.id, m.key, m.content, m.category, m.timestamp, m.session_id, m.last_accessed
		FROM memory_links l
		JOIN memories m ON m.key = l.to_key
		WHERE l.from_key = ?
		LIMIT ?`, key, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []model.Entry
	for rows.Next() {
		if e, ok := scanEntry(rows); ok {
			out = append(out, e)
		}
	}
	return out
}

func (m *SQLiteMemory) linksFor(key string) []string {
	rows, err := m.db.Query(`SELECT to_key FROM memory_links WHERE from_key = ? ORDER BY to_key`, key)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err == nil {
			links = append(links, k)
		}
	}
	return links
}

func (m *SQLiteMemory) SnapshotExport() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.db.Query(`SELECT id, key, content, category, timestamp, session_id, last_accessed
		FROM memories ORDER BY timestamp`)
	if err != nil {
		return []byte("[]")
	}
	defer rows.Close()

	entries := []model.Entry{}
	for rows.Next() {
		if e, ok := scanEntry(rows); ok {
			e.Links = m.linksFor(e.Key)
			entries = append(entries, e)
		}
	}

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return []byte("[]")
	}
	return b
}

func (m *SQLiteMemory) SnapshotImport(data []byte) int {
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
		var existing string
		if err := m.db.QueryRow(`SELECT id FROM memories WHERE key = ?`, e.Key).Scan(&existing); err == nil {
			continue
		}
		if e.ID == "" {
			e.ID = newID()
		}
		if e.Timestamp == 0 {
			e.Timestamp = time.Now().Unix()
		}
		_, err := m.db.Exec(`INSERT INTO memories (id, key, content, category, timestamp, session_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.Key, e.Content, e.Category.String(), e.Timestamp, e.SessionID)
		if err != nil {
			continue
		}
		for _, to := range e.Links {
			m.db.Exec(`INSERT OR IGNORE INTO memory_links (from_key, to_key) VALUES (?, ?), (?, ?)`,
				e.Key, to, to, e.Key)
		}
		imported++
	}
	return imported
}

func (m *SQLiteMemory) HygienePurge(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Unix()
	cutoff := now - int64(maxAge/time.Second)

	m.db.Exec(`DELETE FROM memory_links
		WHERE from_key IN (SELECT key FROM memories WHERE category = ? AND timestamp <= ?)
		   OR to_key   IN (SELECT key FROM memories WHERE category = ? AND timestamp <= ?)`,
		model.Conversation.String(), cutoff, model.Conversation.String(), cutoff)

	purged := 0
	res, err := m.db.Exec(`DELETE FROM memories WHERE category = ? AND timestamp <= ?`,
		model.Conversation.String(), cutoff)
	if err == nil {
		n, _ := res.RowsAffected()
		purged += int(n)
	}

	purged += m.decayIdleKnowledge(now)
	return purged
}

// decayIdleKnowledge gives knowledge entries past the idle horizon a
// small chance to survive; survivors get a fresh last_accessed so they
// are not re-rolled on the next purge.
func (m *SQLiteMemory) decayIdleKnowledge(now int64) int {
	if m.knowledgeMaxIdle <= 0 {
		return 0
	}
	idleCutoff := now - int64(m.knowledgeMaxIdle/time.Second)

	rows, err := m.db.Query(`SELECT key FROM memories
		WHERE category = ? AND COALESCE(NULLIF(last_accessed, 0), timestamp) <= ?`,
		model.Knowledge.String(), idleCutoff)
	if err != nil {
		return 0
	}

	var idle []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err == nil {
			idle = append(idle, key)
		}
	}
	rows.Close()

	removed := 0
	for _, key := range idle {
		if rand.Float64() < m.knowledgeSurvival {
			m.db.Exec(`UPDATE memories SET last_accessed = ? WHERE key = ?`, now, key)
			continue
		}
		m.db.Exec(`DELETE FROM memory_links WHERE from_key = ? OR to_key = ?`, key, key)
		m.db.Exec(`DELETE FROM memories WHERE key = ?`, key)
		removed++
	}
	return removed
}

func (m *SQLiteMemory) Close() error {
	return m.db.Close()
}
