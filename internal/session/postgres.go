package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	upsertPendingSQL = `
		INSERT INTO pending_groups (chat_id, group_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (chat_id) DO UPDATE
		SET group_id = EXCLUDED.group_id, updated_at = NOW()`

	takePendingSQL = `DELETE FROM pending_groups WHERE chat_id = $1 RETURNING group_id`
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection. The pending_groups table is
// created by the migrations in the migrations directory.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (p *postgresStore) SetPendingGroup(ctx context.Context, chatID int64, groupID string) error {
	if _, err := p.db.ExecContext(ctx, upsertPendingSQL, chatID, groupID); err != nil {
		return fmt.Errorf("session: save pending group: %w", err)
	}
	return nil
}

func (p *postgresStore) TakePendingGroup(ctx context.Context, chatID int64) (string, bool, error) {
	var groupID string
	err := p.db.GetContext(ctx, &groupID, takePendingSQL, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: take pending group: %w", err)
	}
	return groupID, true, nil
}

func (p *postgresStore) Close() error {
	return p.db.Close()
}
