// Package credential issues and verifies the bearer tokens that guard the
// inventory API.
package credential

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/inventag/internal/platform/errors"
)

// DefaultTTL is how long issued tokens stay valid.
const DefaultTTL = time.Hour

// DefaultIssuer is the iss claim stamped into tokens.
const DefaultIssuer = "inventag"

const minSecretLength = 16

// IssuerConfig defines how tokens are signed.
type IssuerConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// Issuer signs and verifies HS256 bearer tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Claims captures validated token claims.
type Claims struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewIssuer validates cfg and builds an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretLength)
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		secret: append([]byte(nil), cfg.Secret...),
		issuer: issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// Issue signs a token for subject.
func (i *Issuer) Issue(subject string) (string, Claims, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", Claims{}, errors.New("token subject is required")
	}
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, Claims{
		Subject:   subject,
		Issuer:    i.issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the token signature, issuer and expiry.
func (i *Issuer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "bearer token is required")
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer != i.issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeCredentialInvalid,
			"token issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, apperrors.New(apperrors.CodeCredentialInvalid, "token subject is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeCredentialInvalid, "token exp is required")
	}
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(i.now().UTC()) {
		return Claims{}, apperrors.New(apperrors.CodeCredentialExpired, "token is expired")
	}

	claims := Claims{
		Subject:   parsed.Subject,
		Issuer:    parsed.Issuer,
		ExpiresAt: exp,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.Wrap(apperrors.CodeCredentialInvalid, "token signature is invalid", err)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.Wrap(apperrors.CodeCredentialInvalid, "token alg is invalid", err)
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return apperrors.Wrap(apperrors.CodeCredentialInvalid, "token is malformed", err)
	}
	return apperrors.Wrap(apperrors.CodeCredentialInvalid, "token is invalid", err)
}
