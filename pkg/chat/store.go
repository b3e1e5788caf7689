package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Register SQLite3 driver
)

// Store persists conversations, messages and UI preferences in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store backed by the database file at path. The
// parent directory is created if missing.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Store{path: path}, nil
}

// Initialize opens the database and creates the schema. A database that
// cannot be opened or migrated is set aside and replaced by an empty one;
// losing history beats refusing to start.
func (s *Store) Initialize() error {
	if err := s.open(); err == nil {
		return nil
	}

	corrupt := s.path + ".corrupt"
	log.Printf("Chat store at %s is unusable, moving it to %s and starting empty", s.path, corrupt)
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	if err := os.Rename(s.path, corrupt); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to set aside corrupt store: %w", err)
	}

	if err := s.open(); err != nil {
		return fmt.Errorf("failed to initialize chat store: %w", err)
	}
	return nil
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *Store) createTables() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			pinned INTEGER NOT NULL DEFAULT 0,
			mode TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			refs TEXT,
			sources TEXT,
			pdf_sources TEXT,
			timing TEXT,
			feedback TEXT NOT NULL DEFAULT '',
			is_error INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS prefs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);
		CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(pinned, updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateConversation inserts a new conversation.
func (s *Store) CreateConversation(ctx context.Context, conv *Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, pinned, mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conv.ID, conv.Title, conv.Pinned, conv.Mode, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// RenameConversation updates a conversation's title.
func (s *Store) RenameConversation(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?
	`, title, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	return requireRow(res, id)
}

// SetPinned pins or unpins a conversation.
func (s *Store) SetPinned(ctx context.Context, id string, pinned bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET pinned = ? WHERE id = ?
	`, pinned, id)
	if err != nil {
		return fmt.Errorf("failed to update pin state: %w", err)
	}
	return requireRow(res, id)
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversation messages: %w", err)
	}
	return requireRow(res, id)
}

// ListConversations returns all conversations without their messages,
// pinned first, most recently updated first within each group.
func (s *Store) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, pinned, mode, created_at, updated_at
		FROM conversations
		ORDER BY pinned DESC, updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.Pinned, &c.Mode, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation loads one conversation with all its messages.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, pinned, mode, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id).Scan(&c.ID, &c.Title, &c.Pinned, &c.Mode, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	messages, err := s.Messages(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Messages = messages
	return &c, nil
}

// Messages returns a conversation's messages in insertion order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, refs, sources, pdf_sources, timing, feedback, is_error, created_at
		FROM messages WHERE conversation_id = ? ORDER BY id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AppendMessage inserts a message and bumps the conversation's updated
// time. The assigned message id is written back to msg.
func (s *Store) AppendMessage(ctx context.Context, msg *Message) error {
	refs, sources, pdfSources, timing, err := encodeMessageBlobs(msg)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, refs, sources, pdf_sources, timing, feedback, is_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ConversationID, msg.Role, msg.Content, refs, sources, pdfSources, timing,
		string(msg.Feedback), msg.IsError, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message id: %w", err)
	}
	msg.ID = id

	if _, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, time.Now().UTC(), msg.ConversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// GetMessage loads one message by id.
func (s *Store) GetMessage(ctx context.Context, id int64) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, role, content, refs, sources, pdf_sources, timing, feedback, is_error, created_at
		FROM messages WHERE id = ?
	`, id)

	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetMessageFeedback stores the feedback verdict on a message.
func (s *Store) SetMessageFeedback(ctx context.Context, id int64, fb Feedback) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET feedback = ? WHERE id = ?`, string(fb), id)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check feedback update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("message %d not found", id)
	}
	return nil
}

// ConversationCount returns the number of stored conversations.
func (s *Store) ConversationCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return n, nil
}

// GetPref returns a preference value, or fallback when unset.
func (s *Store) GetPref(ctx context.Context, key, fallback string) string {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return fallback
	}
	return value
}

// SetPref stores a preference value.
func (s *Store) SetPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to store preference %s: %w", key, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (Message, error) {
	var msg Message
	var refs, sources, pdfSources, timing sql.NullString
	var feedback string

	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
		&refs, &sources, &pdfSources, &timing, &feedback, &msg.IsError, &msg.CreatedAt)
	if err == sql.ErrNoRows {
		return Message{}, err
	}
	if err != nil {
		return Message{}, fmt.Errorf("failed to scan message: %w", err)
	}

	msg.Feedback = Feedback(feedback)
	decodeJSONColumn(refs, &msg.References)
	decodeJSONColumn(sources, &msg.Sources)
	decodeJSONColumn(pdfSources, &msg.PDFSources)
	decodeJSONColumn(timing, &msg.Timing)
	return msg, nil
}

// decodeJSONColumn fills dst from a nullable JSON column. Undecodable
// blobs are dropped; the message text is still usable without them.
func decodeJSONColumn(col sql.NullString, dst interface{}) {
	if !col.Valid || col.String == "" {
		return
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		log.Printf("Chat store: dropping undecodable message column: %v", err)
	}
}

func encodeMessageBlobs(msg *Message) (refs, sources, pdfSources, timing sql.NullString, err error) {
	refs, err = encodeJSONColumn(msg.References, len(msg.References) > 0)
	if err != nil {
		return
	}
	sources, err = encodeJSONColumn(msg.Sources, len(msg.Sources) > 0)
	if err != nil {
		return
	}
	pdfSources, err = encodeJSONColumn(msg.PDFSources, len(msg.PDFSources) > 0)
	if err != nil {
		return
	}
	timing, err = encodeJSONColumn(msg.Timing, msg.Timing != nil)
	return
}

func encodeJSONColumn(v interface{}, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode message column: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func requireRow(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("conversation %s not found", id)
	}
	return nil
}
