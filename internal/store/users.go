// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/bookhubhq/bookhub/internal/metrics"
	"github.com/bookhubhq/bookhub/internal/models"
)

// normalizeEmail lowercases an email for index keys so lookups are
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// storedUser is the on-disk form of an account. The API model hides
// the password hash from JSON, so persistence carries it in its own
// field.
type storedUser struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

func marshalUser(u *models.User) ([]byte, error) {
	return json.Marshal(storedUser{User: *u, PasswordHash: u.PasswordHash})
}

func unmarshalUser(val []byte, u *models.User) error {
	var su storedUser
	if err := json.Unmarshal(val, &su); err != nil {
		return err
	}
	*u = su.User
	u.PasswordHash = su.PasswordHash
	return nil
}

// CreateUser persists a new account. The email index is written in the
// same transaction, so duplicate registration cannot race.
func (s *Store) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	start := time.Now()

	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Cart == nil {
		u.Cart = []models.CartItem{}
	}

	data, err := marshalUser(u)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}

	emailKey := []byte(userEmailKeyPrefix + normalizeEmail(u.Email))
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check email index: %w", err)
		}
		if err := txn.Set([]byte(userKeyPrefix+u.ID), data); err != nil {
			return fmt.Errorf("set user: %w", err)
		}
		return txn.Set(emailKey, []byte(u.ID))
	})
	metrics.RecordStoreOperation("create", "user", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return u, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	start := time.Now()

	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return item.Value(func(val []byte) error {
			return unmarshalUser(val, &user)
		})
	})
	metrics.RecordStoreOperation("get", "user", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByEmail resolves the email index and loads the account.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var userID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userEmailKeyPrefix + normalizeEmail(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get email index: %w", err)
		}
		return item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, userID)
}

// ListUsers returns all accounts ordered by creation time, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	start := time.Now()

	users := []*models.User{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(userKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var u models.User
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalUser(val, &u)
			}); err != nil {
				return fmt.Errorf("unmarshal user: %w", err)
			}
			users = append(users, &u)
		}
		return nil
	})
	metrics.RecordStoreOperation("list", "user", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})

	return users, nil
}

// UpdateUserCart replaces the stored cart for a user.
func (s *Store) UpdateUserCart(ctx context.Context, userID string, cart []models.CartItem) (*models.User, error) {
	start := time.Now()

	if cart == nil {
		cart = []models.CartItem{}
	}

	var user models.User
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(userKeyPrefix + userID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return unmarshalUser(val, &user)
		}); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}

		user.Cart = cart
		data, err := marshalUser(&user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return txn.Set(key, data)
	})
	metrics.RecordStoreOperation("update", "user", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// UpdateUser applies a partial update to an account. Email changes
// move the email index entry in the same transaction, and a target
// email already held by another account fails with ErrEmailTaken.
func (s *Store) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	start := time.Now()

	var user models.User
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(userKeyPrefix + id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return unmarshalUser(val, &user)
		}); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}

		oldEmail := normalizeEmail(user.Email)
		if patch.Name != nil {
			user.Name = *patch.Name
		}
		if patch.Email != nil {
			user.Email = *patch.Email
		}
		if patch.PasswordHash != nil {
			user.PasswordHash = *patch.PasswordHash
		}

		if newEmail := normalizeEmail(user.Email); newEmail != oldEmail {
			newKey := []byte(userEmailKeyPrefix + newEmail)
			if existing, err := txn.Get(newKey); err == nil {
				var ownerID string
				if err := existing.Value(func(val []byte) error {
					ownerID = string(val)
					return nil
				}); err != nil {
					return fmt.Errorf("read email index: %w", err)
				}
				if ownerID != id {
					return ErrEmailTaken
				}
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check email index: %w", err)
			}
			if err := txn.Delete([]byte(userEmailKeyPrefix + oldEmail)); err != nil &&
				!errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete email index: %w", err)
			}
			if err := txn.Set(newKey, []byte(id)); err != nil {
				return fmt.Errorf("set email index: %w", err)
			}
		}

		data, err := marshalUser(&user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return txn.Set(key, data)
	})
	metrics.RecordStoreOperation("update", "user", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// DeleteUser removes an account and its email index entry.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	start := time.Now()

	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(userKeyPrefix + id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		var user models.User
		if err := item.Value(func(val []byte) error {
			return unmarshalUser(val, &user)
		}); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}

		if err := txn.Delete([]byte(userEmailKeyPrefix + normalizeEmail(user.Email))); err != nil &&
			!errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete email index: %w", err)
		}
		return txn.Delete(key)
	})
	metrics.RecordStoreOperation("delete", "user", time.Since(start), err)

	return err
}
