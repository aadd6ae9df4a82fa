package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/feedback-app/internal/models"
	"github.com/ayush/feedback-app/internal/store"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, username string) (*models.User, error)
}

// RegisterForm is the payload of POST /register.
type RegisterForm struct {
	Username  string `form:"username"   validate:"required,max=20,excludesall=/?#%"`
	Password  string `form:"password"   validate:"required,max=72"`
	Email     string `form:"email"      validate:"required,max=50,email"`
	FirstName string `form:"first_name" validate:"required,max=30"`
	LastName  string `form:"last_name"  validate:"required,max=30"`
}

// LoginForm is the payload of POST /login.
type LoginForm struct {
	Username string `form:"username" validate:"required,max=20"`
	Password string `form:"password" validate:"required"`
}

// Register hashes the password and returns a new, unsaved user.
func Register(f RegisterForm) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(f.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		Username:  f.Username,
		Password:  string(hashed),
		Email:     f.Email,
		FirstName: f.FirstName,
		LastName:  f.LastName,
	}, nil
}

// dummyHash is compared against when the username is unknown, so a miss
// costs the same as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return h
})

// Authenticate returns the user when the password matches. A wrong password
// and an unknown username both yield ok == false; err is only set when the
// store itself fails.
func Authenticate(ctx context.Context, users UserStore, username, password string) (*models.User, bool, error) {
	u, err := users.GetUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, false, nil
	}
	return u, true, nil
}
