// Package uniqueness keeps a channel from receiving the same item twice.
// The insert into content_uniqueness is the gate: a second MarkUsed of the
// same key on the same channel reports false.
package uniqueness

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/goalcast/core/pkg/database"
)

// Store is the slice of database.Queries the checker needs.
type Store interface {
	InsertContentUniqueness(ctx context.Context, arg database.InsertContentUniquenessParams) (bool, error)
	ContentUniquenessExists(ctx context.Context, channelID int32, hash string) (bool, error)
	DeleteContentUniqueness(ctx context.Context, channelID int32, hash string) (int64, error)
	DeleteContentUniquenessBefore(ctx context.Context, before time.Time) (int64, error)
}

// Hash is sha256(contentType ":" slug(key)), hex encoded.
func Hash(contentType, key string) string {
	normalized := slug.Make(key)
	if normalized == "" {
		normalized = strings.ToLower(strings.TrimSpace(key))
	}
	sum := sha256.Sum256([]byte(contentType + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

type Checker struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Checker {
	return &Checker{store: store, now: time.Now}
}

// IsUsed reports whether key was already posted to the channel.
func (c *Checker) IsUsed(ctx context.Context, channelID int32, contentType, key string) (bool, error) {
	used, err := c.store.ContentUniquenessExists(ctx, channelID, Hash(contentType, key))
	if err != nil {
		return false, fmt.Errorf("failed to check content uniqueness: %w", err)
	}
	return used, nil
}

// MarkUsed records key for the channel and returns false when it was
// already recorded.
func (c *Checker) MarkUsed(ctx context.Context, channelID int32, contentType, key string) (bool, error) {
	inserted, err := c.store.InsertContentUniqueness(ctx, database.InsertContentUniquenessParams{
		ChannelID:   channelID,
		ContentType: contentType,
		ContentHash: Hash(contentType, key),
		ContentKey:  truncateKey(key),
	})
	if err != nil {
		return false, fmt.Errorf("failed to record content uniqueness: %w", err)
	}
	return inserted, nil
}

// Release drops a key recorded by MarkUsed, used when the post it
// reserved never went out.
func (c *Checker) Release(ctx context.Context, channelID int32, contentType, key string) error {
	if _, err := c.store.DeleteContentUniqueness(ctx, channelID, Hash(contentType, key)); err != nil {
		return fmt.Errorf("failed to release content key: %w", err)
	}
	return nil
}

// Cleanup removes records older than retention.
func (c *Checker) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := c.store.DeleteContentUniquenessBefore(ctx, c.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to clean content uniqueness: %w", err)
	}
	return deleted, nil
}

func truncateKey(key string) string {
	runes := []rune(key)
	if len(runes) > 500 {
		return string(runes[:500])
	}
	return key
}
