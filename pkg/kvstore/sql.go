package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-session/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type dbClient interface {
	DB() *gorm.DB
	Ping(ctx context.Context) error
}

// SQLStore keeps slots in the session_slots table. Expired rows read as missing
// until the sweeper removes them.
type SQLStore struct {
	client dbClient
	now    func() time.Time
}

func NewSQLStore(client dbClient) (*SQLStore, error) {
	if client == nil || client.DB() == nil {
		return nil, errors.New("database client required")
	}
	return &SQLStore{client: client, now: time.Now}, nil
}

func (s *SQLStore) Get(ctx context.Context, key Key) ([]byte, error) {
	var row models.SessionSlot
	err := s.client.DB().WithContext(ctx).
		Where("slot_key = ?", key.String()).
		Where("(expires_at IS NULL OR expires_at > ?)", s.now().UTC()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select slot %s: %w", key.Slot, err)
	}
	return []byte(row.Value), nil
}

func (s *SQLStore) Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error {
	now := s.now().UTC()
	row := models.SessionSlot{
		Key:       key.String(),
		Value:     string(value),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		row.ExpiresAt = &expires
	}
	err := s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert slot %s: %w", key.Slot, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	raw := make([]string, 0, len(keys))
	for _, key := range keys {
		raw = append(raw, key.String())
	}
	if err := s.client.DB().WithContext(ctx).Where("slot_key IN ?", raw).Delete(&models.SessionSlot{}).Error; err != nil {
		return fmt.Errorf("delete slots: %w", err)
	}
	return nil
}

// Take deletes the row only if it still holds the value just read, so a
// concurrent Take of the same slot sees zero affected rows.
func (s *SQLStore) Take(ctx context.Context, key Key) ([]byte, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	res := s.client.DB().WithContext(ctx).
		Where("slot_key = ? AND value = ?", key.String(), string(value)).
		Delete(&models.SessionSlot{})
	if res.Error != nil {
		return nil, fmt.Errorf("take slot %s: %w", key.Slot, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return value, nil
}

// Touch pushes expires_at forward on rows that have not expired yet.
func (s *SQLStore) Touch(ctx context.Context, ttl time.Duration, keys ...Key) error {
	if ttl <= 0 || len(keys) == 0 {
		return nil
	}
	raw := make([]string, 0, len(keys))
	for _, key := range keys {
		raw = append(raw, key.String())
	}
	now := s.now().UTC()
	err := s.client.DB().WithContext(ctx).
		Model(&models.SessionSlot{}).
		Where("slot_key IN ?", raw).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Updates(map[string]any{"expires_at": now.Add(ttl), "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("touch slots: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// DeleteExpired removes at most limit rows whose expiry is at or before now.
func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	conn := s.client.DB().WithContext(ctx)
	expired := conn.Model(&models.SessionSlot{}).
		Select("slot_key").
		Where("expires_at IS NOT NULL AND expires_at <= ?", now.UTC())
	if limit > 0 {
		expired = expired.Limit(limit)
	}
	res := conn.Where("slot_key IN (?)", expired).Delete(&models.SessionSlot{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired slots: %w", res.Error)
	}
	return res.RowsAffected, nil
}
