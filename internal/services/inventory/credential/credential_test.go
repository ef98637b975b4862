package credential

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/inventag/internal/platform/errors"
	"github.com/louisbranch/inventag/internal/services/inventory/storage"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]storage.User
}

func (m *memoryUsers) PutUser(_ context.Context, user storage.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = make(map[string]storage.User)
	}
	m.users[user.Username] = user
	return nil
}

func (m *memoryUsers) GetUser(_ context.Context, username string) (storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return user, nil
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewIssuer(IssuerConfig{Secret: []byte("short")}); err == nil {
		t.Fatal("expected short secret error")
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewIssuer(IssuerConfig{Secret: testSecret, Now: fixedClock(now)})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, claims, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !claims.ExpiresAt.Equal(now.Add(DefaultTTL)) {
		t.Fatalf("expires_at = %v, want %v", claims.ExpiresAt, now.Add(DefaultTTL))
	}

	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Subject != "admin" || got.Issuer != DefaultIssuer {
		t.Fatalf("claims = %+v", got)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	issuer, err := NewIssuer(IssuerConfig{Secret: testSecret, Now: func() time.Time { return clock }})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, _, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock = now.Add(DefaultTTL)

	_, err = issuer.Verify(token)
	if got := apperrors.CodeOf(err); got != apperrors.CodeCredentialExpired {
		t.Fatalf("code = %q, want %q", got, apperrors.CodeCredentialExpired)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	t.Parallel()

	issuer, err := NewIssuer(IssuerConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	other, err := NewIssuer(IssuerConfig{Secret: []byte("another-secret-of-enough-length")})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	wrongIssuer, err := NewIssuer(IssuerConfig{Secret: testSecret, Issuer: "someone-else"})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	otherToken, _, _ := other.Issue("admin")
	wrongIssuerToken, _, _ := wrongIssuer.Issue("admin")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "admin",
		Issuer:    DefaultIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  apperrors.Code
	}{
		{name: "empty", token: "", want: apperrors.CodeUnauthenticated},
		{name: "malformed", token: "not-a-jwt", want: apperrors.CodeCredentialInvalid},
		{name: "wrong secret", token: otherToken, want: apperrors.CodeCredentialInvalid},
		{name: "wrong issuer", token: wrongIssuerToken, want: apperrors.CodeCredentialInvalid},
		{name: "alg none", token: noneToken, want: apperrors.CodeCredentialInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := issuer.Verify(tc.token)
			if got := apperrors.CodeOf(err); got != tc.want {
				t.Fatalf("code = %q, want %q (err %v)", got, tc.want, err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	users := &memoryUsers{}
	if err := Bootstrap(context.Background(), users, "admin", "hunter22"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	issuer, err := NewIssuer(IssuerConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	auth, err := NewAuthenticator(users, issuer)
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}

	token, _, err := auth.Login(context.Background(), " admin ", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token = %q, want a JWT", token)
	}
	claims, err := auth.Verify(token)
	if err != nil || claims.Subject != "admin" {
		t.Fatalf("verify = %+v, %v", claims, err)
	}

	for _, tc := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"nobody", "hunter22"},
		{"", ""},
	} {
		_, _, err := auth.Login(context.Background(), tc.user, tc.pass)
		if !errors.Is(err, apperrors.New(apperrors.CodeLoginFailed, "")) {
			t.Fatalf("login(%q, %q) err = %v, want LOGIN_FAILED", tc.user, tc.pass, err)
		}
	}
}

func TestBootstrapSkipsBlankUsername(t *testing.T) {
	t.Parallel()

	users := &memoryUsers{}
	if err := Bootstrap(context.Background(), users, "  ", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if len(users.users) != 0 {
		t.Fatal("expected no users")
	}
	if err := Bootstrap(context.Background(), users, "admin", ""); err == nil {
		t.Fatal("expected empty password error")
	}
}
