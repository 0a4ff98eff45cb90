package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Provider resolves a stable viewer identity. A viewer presenting no
// credential is minted an anonymous identifier wrapped in a signed token; a
// viewer presenting a previously issued token keeps the identifier inside
// it. The identifier is immutable for as long as the token is presented.
type Provider struct {
	secret []byte
}

// NewProvider builds a provider signing tokens with the given secret.
func NewProvider(secret string) *Provider {
	return &Provider{secret: []byte(secret)}
}

// NewAnonymousID mints a fresh anonymous viewer identifier.
func (p *Provider) NewAnonymousID() string {
	return "anon-" + uuid.NewString()
}

// Issue signs an identity token carrying the given viewer identifier.
func (p *Provider) Issue(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return signed, nil
}

// Verify checks an identity token's signature and returns the viewer
// identifier inside it.
func (p *Provider) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("verify identity token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errors.New("identity token has no subject")
	}
	return claims.Subject, nil
}
