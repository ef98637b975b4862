package credential

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/louisbranch/inventag/internal/platform/errors"
	"github.com/louisbranch/inventag/internal/services/inventory/storage"
)

// Authenticator exchanges operator credentials for bearer tokens.
type Authenticator struct {
	users  storage.UserStore
	issuer *Issuer
}

// NewAuthenticator builds an Authenticator.
func NewAuthenticator(users storage.UserStore, issuer *Issuer) (*Authenticator, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	return &Authenticator{users: users, issuer: issuer}, nil
}

// Login checks username and password and issues a token. Unknown users and
// wrong passwords fail the same way.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, Claims, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", Claims{}, apperrors.New(apperrors.CodeLoginFailed, "username and password are required")
	}
	user, err := a.users.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", Claims{}, apperrors.New(apperrors.CodeLoginFailed, "invalid username or password")
		}
		return "", Claims{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", Claims{}, apperrors.New(apperrors.CodeLoginFailed, "invalid username or password")
	}
	return a.issuer.Issue(user.Username)
}

// Verify validates a bearer token.
func (a *Authenticator) Verify(token string) (Claims, error) {
	return a.issuer.Verify(token)
}

// HashPassword hashes password for storage.
func HashPassword(password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Bootstrap ensures the operator account exists with password. It is a
// no-op when username is blank.
func Bootstrap(ctx context.Context, users storage.UserStore, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("bootstrap %s: %w", username, err)
	}
	if err := users.PutUser(ctx, storage.User{Username: username, PasswordHash: hash}); err != nil {
		return fmt.Errorf("bootstrap %s: %w", username, err)
	}
	log.Printf("operator account %q ready", username)
	return nil
}
