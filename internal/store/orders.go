// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/bookhubhq/bookhub/internal/metrics"
	"github.com/bookhubhq/bookhub/internal/models"
)

// generateOrderNumber produces a short human-readable order reference.
func generateOrderNumber() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// Fall back to UUID-derived digits; crypto/rand failing is
		// effectively unreachable on supported platforms.
		return "BH-" + uuid.New().String()[:6]
	}
	return fmt.Sprintf("BH-%06d", n.Int64())
}

// CreateOrder persists a new order with a generated order number.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	start := time.Now()

	o.ID = uuid.New().String()
	o.OrderNumber = generateOrderNumber()
	o.CreatedAt = time.Now().UTC()
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}

	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(orderKeyPrefix+o.ID), data)
	})
	metrics.RecordStoreOperation("create", "order", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}

	return o, nil
}

// GetOrder retrieves an order by ID.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	start := time.Now()

	var order models.Order
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(orderKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &order)
		})
	})
	metrics.RecordStoreOperation("get", "order", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// ListOrders returns all orders, newest first.
func (s *Store) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return s.listOrders(ctx, "")
}

// ListOrdersByUser returns a single user's orders, newest first.
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return s.listOrders(ctx, userID)
}

func (s *Store) listOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	start := time.Now()

	orders := []*models.Order{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(orderKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var o models.Order
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &o)
			}); err != nil {
				return fmt.Errorf("unmarshal order: %w", err)
			}
			if userID == "" || o.UserID == userID {
				orders = append(orders, &o)
			}
		}
		return nil
	})
	metrics.RecordStoreOperation("list", "order", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})

	return orders, nil
}

// UpdateOrderStatus transitions an order to a new status.
func (s *Store) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	start := time.Now()

	var order models.Order
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(orderKeyPrefix + id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &order)
		}); err != nil {
			return fmt.Errorf("unmarshal order: %w", err)
		}

		order.Status = status
		data, err := json.Marshal(&order)
		if err != nil {
			return fmt.Errorf("marshal order: %w", err)
		}
		return txn.Set(key, data)
	})
	metrics.RecordStoreOperation("update", "order", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// DeleteOrder removes an order. Missing orders return ErrNotFound.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	start := time.Now()

	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(orderKeyPrefix + id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		return txn.Delete(key)
	})
	metrics.RecordStoreOperation("delete", "order", time.Since(start), err)

	return err
}
