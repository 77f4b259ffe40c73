package taskd

import (
	"context"
	"time"

	"github.com/taskdata/taskd/kit/platform/errors"
)

var (
	// ErrUserExists is returned when registering an email that is taken.
	ErrUserExists = &errors.Error{
		Code: errors.EConflict,
		Msg:  "user with this email already exists",
	}

	// ErrBadCredentials is returned for a failed login. The message does not
	// say whether the email or the password was wrong.
	ErrBadCredentials = &errors.Error{
		Code: errors.EUnauthorized,
		Msg:  "incorrect email or password",
	}
)

// User is an account that can own tasks. The hashed password never leaves
// the server.
type User struct {
	ID             ID        `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	Name           string    `json:"name" db:"name"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// UserCreate is the payload for registering a new user.
type UserCreate struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// UserService manages accounts. Token issuance sits outside the scoped data
// core; this service only proves who a caller is at login time.
type UserService interface {
	// CreateUser registers a new account with a hashed password.
	CreateUser(ctx context.Context, create UserCreate) (*User, error)

	// Authenticate verifies an email/password pair and returns the matching
	// user, or ErrBadCredentials.
	Authenticate(ctx context.Context, email, password string) (*User, error)
}
