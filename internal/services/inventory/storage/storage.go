// Package storage defines persistence contracts for inventory service state.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates a requested inventory record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// MaxItemIDLength bounds item identifiers so lookup URLs and symbols stay short.
const MaxItemIDLength = 64

// Item stores one inventory record.
type Item struct {
	ID          string
	Name        string
	Price       string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

// ItemPage stores one page of item records.
type ItemPage struct {
	Items         []Item
	NextPageToken string
}

// User stores one operator account allowed to sign in.
type User struct {
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// ItemStore persists inventory items.
type ItemStore interface {
	CreateItem(ctx context.Context, item Item) error
	GetItem(ctx context.Context, id string) (Item, error)
	ListItems(ctx context.Context, pageSize int, pageToken string) (ItemPage, error)
}

// UserStore persists operator accounts.
type UserStore interface {
	PutUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, username string) (User, error)
}

// ValidateItemID checks that id is usable as a lookup URL segment and a
// Code 128 payload.
func ValidateItemID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrItemIDRequired
	}
	if len(id) > MaxItemIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrItemIDInvalid, MaxItemIDLength)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: unexpected character %q", ErrItemIDInvalid, r)
		}
	}
	return nil
}

var (
	// ErrItemIDRequired indicates a blank item id.
	ErrItemIDRequired = errors.New("item id is required")
	// ErrItemIDInvalid indicates an item id with unsupported characters or length.
	ErrItemIDInvalid = errors.New("item id is invalid")
)
