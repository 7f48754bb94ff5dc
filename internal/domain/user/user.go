package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// User is a platform account. Buyers and sellers share the same record;
// the distinction is behavioural, not structural.
type User struct {
	ID       string
	Email    string
	Name     string
	Verified bool
}

// Repository defines read operations over user accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// ListVerified returns every verified user, used for catalog
	// announcement fan-out.
	ListVerified(ctx context.Context) ([]User, error)
}
