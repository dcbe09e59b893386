// Package state manages per-user conversation state for the bot.
package state

import (
	"context"
	"errors"
)

// ErrContextNotFound indicates that no conversation context exists for a user.
var ErrContextNotFound = errors.New("conversation context not found")

// Storage defines the persistence contract for conversation contexts.
// Conversation context carries no durability guarantee; only user profiles
// must survive restarts.
type Storage interface {
	// Get returns the current context for the specified user.
	Get(ctx context.Context, userID int64) (*Context, error)
	// Set saves the provided context for the specified user.
	Set(ctx context.Context, userID int64, conv *Context) error
	// Clear removes the context for the specified user.
	Clear(ctx context.Context, userID int64) error
	// GetAll returns every stored context, used for metrics and eviction.
	GetAll(ctx context.Context) ([]*Context, error)
}
