// Package history persists conversations in SQLite so the user can resume,
// browse and delete past sessions.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

// titleLimit caps the derived conversation title.
const titleLimit = 50

// Meta 会话元数据 / Meta is the listing view of a conversation, without the
// turn payload.
type Meta struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Mode      string `json:"mode"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	TurnCount int    `json:"turn_count"`
}

// Conversation is a full stored conversation.
type Conversation struct {
	Meta
	Turns []chat.Message `json:"turns"`
}

// NewConversation creates an empty conversation in the given mode. The
// title is derived from the first user turn on first save.
func NewConversation(mode string) *Conversation {
	now := nowUTC()
	return &Conversation{
		Meta: Meta{
			ID:        uuid.NewString(),
			Mode:      mode,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// DeriveTitle builds a display title from the first user prompt: the first
// 50 characters, with an ellipsis when truncated.
func DeriveTitle(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if utf8.RuneCountInString(prompt) <= titleLimit {
		return prompt
	}
	return string([]rune(prompt)[:titleLimit]) + "..."
}

// Store 基于 SQLite (WAL 模式) 的会话存储
// Store keeps conversations in SQLite with WAL mode.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("history db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// 启用 WAL 模式和优化 PRAGMA / Enable WAL and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		mode       TEXT NOT NULL DEFAULT 'chat',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		turns      TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库连接 / Close the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the full conversation document and bumps updated_at. A
// missing title is derived from the first user turn, once; later saves
// never rewrite it.
func (s *Store) Save(c *Conversation) error {
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("conversation id is empty")
	}
	if c.Title == "" {
		for _, turn := range c.Turns {
			if turn.Role == chat.RoleUser {
				c.Title = DeriveTitle(turn.Content)
				break
			}
		}
	}
	turnsJSON, err := json.Marshal(c.Turns)
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}
	c.UpdatedAt = nowUTC()
	if strings.TrimSpace(c.CreatedAt) == "" {
		c.CreatedAt = c.UpdatedAt
	}

	_, err = s.db.Exec(`
		INSERT INTO conversations (id, title, mode, created_at, updated_at, turns)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			updated_at=excluded.updated_at,
			turns=excluded.turns`,
		c.ID, c.Title, c.Mode, c.CreatedAt, c.UpdatedAt, string(turnsJSON),
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// List returns conversation metadata, most recently updated first. Turn
// payloads stay on disk.
func (s *Store) List() ([]Meta, error) {
	rows, err := s.db.Query(`
		SELECT id, title, mode, created_at, updated_at, json_array_length(turns)
		FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.ID, &m.Title, &m.Mode, &m.CreatedAt, &m.UpdatedAt, &m.TurnCount); err != nil {
			continue
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Load fetches one conversation with its turns.
func (s *Store) Load(id string) (*Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("conversation id is empty")
	}
	row := s.db.QueryRow(`
		SELECT id, title, mode, created_at, updated_at, turns
		FROM conversations WHERE id=?`, id)

	var c Conversation
	var turnsJSON string
	err := row.Scan(&c.ID, &c.Title, &c.Mode, &c.CreatedAt, &c.UpdatedAt, &turnsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation not found: %s", id)
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if err := json.Unmarshal([]byte(turnsJSON), &c.Turns); err != nil {
		return nil, fmt.Errorf("unmarshal turns: %w", err)
	}
	return &c, nil
}

// Delete removes a conversation.
func (s *Store) Delete(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("conversation id is empty")
	}
	if _, err := s.db.Exec("DELETE FROM conversations WHERE id=?", id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// nowUTC uses a fixed-width fractional format so the string ordering the
// listing relies on matches chronological order.
func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z")
}
