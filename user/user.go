// Package user stores the people who sign in. Passwords are kept as bcrypt
// hashes only.
package user

import (
	"context"
	"errors"

	"github.com/billbatista/acasinha-office/model"
	"github.com/google/uuid"
)

var (
	ErrUserExists       = errors.New("username or email already exists")
	ErrBlankUsername    = errors.New("username can't be blank")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrBlankPassword    = errors.New("password can't be blank")
	ErrWrongCredentials = errors.New("wrong username or password")
)

type Repository interface {
	Register(ctx context.Context, username, email, password string, role model.Role) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	VerifyPassword(hashedPassword, password string) error
}

// Authenticate returns the user only if password matches. Unknown usernames
// and wrong passwords fail the same way.
func Authenticate(ctx context.Context, repo Repository, username, password string) (*model.User, error) {
	u, err := repo.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrWrongCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := repo.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrWrongCredentials
	}
	return u, nil
}
