package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/m3rciful/squonkradio/core/logger"
)

var pendingBucket = []byte("pending_groups")

type boltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) a bolt file holding pending associations.
func OpenBolt(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("session: create bolt dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("session: open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pendingBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: init bolt bucket: %w", err)
	}
	logger.Info(context.Background(), "session", "store.open",
		slog.String("status", "ok"),
		slog.String("backend", "bolt"),
		slog.String("path", path),
	)
	return &boltStore{db: db}, nil
}

func chatKey(chatID int64) []byte {
	return []byte(strconv.FormatInt(chatID, 10))
}

func (s *boltStore) SetPendingGroup(ctx context.Context, chatID int64, groupID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pendingBucket).Put(chatKey(chatID), []byte(groupID))
	})
}

func (s *boltStore) TakePendingGroup(ctx context.Context, chatID int64) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var (
		groupID string
		found   bool
	)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(pendingBucket)
		key := chatKey(chatID)
		v := b.Get(key)
		if v == nil {
			return nil
		}
		// v is only valid inside the transaction
		groupID = string(v)
		found = true
		return b.Delete(key)
	})
	if err != nil {
		return "", false, fmt.Errorf("session: take pending group: %w", err)
	}
	return groupID, found, nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
