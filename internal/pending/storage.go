package pending

import (
	"context"
	"errors"
)

// ErrNotFound indicates that no pending action is stored for the user.
var ErrNotFound = errors.New("pending action not found")

// Storage defines the persistence contract for pending actions.
type Storage interface {
	// Get returns the current pending action for the given phone number.
	Get(ctx context.Context, phone string) (Action, error)
	// Set saves the pending action for the given phone number, replacing
	// whatever was there before.
	Set(ctx context.Context, phone string, action Action) error
	// Clear removes the pending action for the given phone number.
	Clear(ctx context.Context, phone string) error
}
