// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/bookhubhq/bookhub/internal/metrics"
	"github.com/bookhubhq/bookhub/internal/models"
)

// GetSettings returns the store settings, falling back to defaults when
// nothing has been saved yet.
func (s *Store) GetSettings(ctx context.Context) (*models.Settings, error) {
	start := time.Now()

	var settings models.Settings
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &settings)
		})
	})
	if errors.Is(err, ErrNotFound) {
		metrics.RecordStoreOperation("get", "settings", time.Since(start), nil)
		return models.DefaultSettings(), nil
	}
	metrics.RecordStoreOperation("get", "settings", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &settings, nil
}

// UpdateSettings merges non-zero fields of patch into the stored
// settings and persists the result.
func (s *Store) UpdateSettings(ctx context.Context, patch *models.SettingsPatch) (*models.Settings, error) {
	start := time.Now()

	current, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	patch.Apply(current)
	current.ID = "default"
	current.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingsKey), data)
	})
	metrics.RecordStoreOperation("update", "settings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("store settings: %w", err)
	}

	return current, nil
}
