// Package profile persists the last saturation applied to each output so it
// can be restored when the daemon starts.
package profile

import (
	"context"
	"errors"
	"time"
)

// ErrProfileNotFound is returned when no profile exists for an output.
var ErrProfileNotFound = errors.New("profile: not found")

// Profile is the stored saturation of one output.
type Profile struct {
	Output     string    `json:"output"`
	Saturation float64   `json:"saturation"`
	Backend    string    `json:"backend,omitempty"`
	Source     string    `json:"source,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Repository defines profile persistence operations.
type Repository interface {
	// Save inserts or replaces the profile for p.Output.
	Save(ctx context.Context, p Profile) error

	// Get returns the profile for an output, or ErrProfileNotFound.
	Get(ctx context.Context, output string) (*Profile, error)

	// List returns all profiles ordered by output name.
	List(ctx context.Context) ([]Profile, error)

	// Delete removes the profile for an output, or returns ErrProfileNotFound.
	Delete(ctx context.Context, output string) error
}
