package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shop-assistant/internal/domain/entities"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	context TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);
CREATE TABLE IF NOT EXISTS interactions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	conversation_id TEXT NOT NULL,
	product_id INTEGER NOT NULL,
	product_name TEXT NOT NULL,
	action TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_conversation ON interactions(conversation_id, seq);
`

const touchConversation = `
INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`

type SQLiteConversationRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteConversationRepository creates the tables if they do not exist yet.
func NewSQLiteConversationRepository(db *sql.DB) (*SQLiteConversationRepository, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to init sqlite schema: %w", err)
	}
	return &SQLiteConversationRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteConversationRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteConversationRepository) AppendMessage(ctx context.Context, conversationID string, msg entities.Message) error {
	now := r.now().UnixNano()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, touchConversation, conversationID, now, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
			conversationID, string(msg.Role), msg.Content, msg.Timestamp.UnixNano())
		return err
	})
	if err != nil {
		return fmt.Errorf("append message to %s: %w", conversationID, err)
	}
	return nil
}

func (r *SQLiteConversationRepository) Transcript(ctx context.Context, conversationID string) ([]entities.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role, content, timestamp FROM messages WHERE conversation_id = ? ORDER BY id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load transcript of %s: %w", conversationID, err)
	}
	defer rows.Close()

	messages := []entities.Message{}
	for rows.Next() {
		var (
			msg  entities.Message
			role string
			ts   int64
		)
		if err := rows.Scan(&role, &msg.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan message of %s: %w", conversationID, err)
		}
		msg.Role = entities.MessageRole(role)
		msg.Timestamp = time.Unix(0, ts).UTC()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *SQLiteConversationRepository) LoadContext(ctx context.Context, conversationID string) ([]byte, bool, error) {
	var blob sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT context FROM conversations WHERE id = ?`, conversationID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load context of %s: %w", conversationID, err)
	}
	if !blob.Valid {
		return nil, false, nil
	}
	return []byte(blob.String), true, nil
}

func (r *SQLiteConversationRepository) SaveContext(ctx context.Context, conversationID string, blob []byte) error {
	now := r.now().UnixNano()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, context, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET context = excluded.context, updated_at = excluded.updated_at`,
		conversationID, string(blob), now, now)
	if err != nil {
		return fmt.Errorf("save context of %s: %w", conversationID, err)
	}
	return nil
}

func (r *SQLiteConversationRepository) AppendInteraction(ctx context.Context, conversationID string, interaction entities.ProductInteraction, contextBlob []byte) error {
	now := r.now().UnixNano()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, context, created_at, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET context = excluded.context, updated_at = excluded.updated_at`,
			conversationID, string(contextBlob), now, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO interactions (id, conversation_id, product_id, product_name, action, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			interaction.ID, conversationID, interaction.ProductID, interaction.ProductName,
			string(interaction.Action), interaction.Timestamp.UnixNano())
		return err
	})
	if err != nil {
		return fmt.Errorf("append interaction to %s: %w", conversationID, err)
	}
	return nil
}

func (r *SQLiteConversationRepository) Interactions(ctx context.Context, conversationID string) ([]entities.ProductInteraction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, action, timestamp
		FROM interactions WHERE conversation_id = ? ORDER BY seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load interactions of %s: %w", conversationID, err)
	}
	defer rows.Close()

	out := []entities.ProductInteraction{}
	for rows.Next() {
		var (
			in     entities.ProductInteraction
			action string
			ts     int64
		)
		if err := rows.Scan(&in.ID, &in.ProductID, &in.ProductName, &action, &ts); err != nil {
			return nil, fmt.Errorf("scan interaction of %s: %w", conversationID, err)
		}
		in.Action = entities.InteractionAction(action)
		in.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *SQLiteConversationRepository) ConversationIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM conversations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
