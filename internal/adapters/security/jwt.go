package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

type settlementClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// HMACTokenVerifier validates HS256 bearer tokens minted by the auth service.
// The subject claim carries the caller id.
type HMACTokenVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewHMACTokenVerifier(secret, issuer string) (*HMACTokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &HMACTokenVerifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer), leeway: 30 * time.Second}, nil
}

func (v *HMACTokenVerifier) Verify(_ context.Context, raw string) (ports.AuthClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &settlementClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return ports.AuthClaims{}, err
	}
	claims, ok := parsed.Claims.(*settlementClaims)
	if !ok || !parsed.Valid {
		return ports.AuthClaims{}, errors.New("invalid token claims")
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return ports.AuthClaims{}, errors.New("token subject is required")
	}
	return ports.AuthClaims{
		SubjectID: subject,
		Role:      strings.ToLower(strings.TrimSpace(claims.Role)),
		Valid:     true,
	}, nil
}

// Sign mints a token for the given subject. It backs local tooling and tests.
func (v *HMACTokenVerifier) Sign(subjectID, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := settlementClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

var _ ports.TokenVerifier = (*HMACTokenVerifier)(nil)
