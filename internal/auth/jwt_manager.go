package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v4"

	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const tokenIssuer = "photoproof"

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrSigningKeyMissing   = errors.New("the JWT manager has no private key and cannot issue tokens")
	ErrPrincipalIncomplete = errors.New("principal must have a user and a studio")
)

type claims struct {
	StudioID string          `json:"studio_id"`
	Role     schema.UserRole `json:"role"`
	jwtgo.RegisteredClaims
}

// JWTManager issues and validates ES256 tokens that carry the studio a principal belongs to.
type JWTManager struct {
	publicKey  *ecdsa.PublicKey
	privateKey *ecdsa.PrivateKey
}

// NewJWTManager parses the PEM encoded key pair. The private key is optional for services that only validate tokens.
func NewJWTManager(publicKeyPEM, privateKeyPEM string) (*JWTManager, error) {
	publicKey, err := jwtgo.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parsing EC public key: %w", err)
	}

	m := &JWTManager{publicKey: publicKey}
	if privateKeyPEM != "" {
		m.privateKey, err = jwtgo.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parsing EC private key: %w", err)
		}
	}
	return m, nil
}

func (m *JWTManager) CanIssueTokens() bool {
	return m.privateKey != nil
}

func (m *JWTManager) GenerateToken(principal schema.Principal, expiresAt time.Time) (string, error) {
	if m.privateKey == nil {
		return "", ErrSigningKeyMissing
	}
	if principal.UserID == "" || principal.StudioID == "" {
		return "", ErrPrincipalIncomplete
	}

	c := &claims{
		StudioID: principal.StudioID,
		Role:     principal.Role,
		RegisteredClaims: jwtgo.RegisteredClaims{
			Subject:   principal.UserID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwtgo.NewNumericDate(time.Now()),
			ExpiresAt: jwtgo.NewNumericDate(expiresAt),
		},
	}

	tokenString, err := jwtgo.NewWithClaims(jwtgo.SigningMethodES256, c).SignedString(m.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return tokenString, nil
}

// ParsePrincipal validates the token signature and expiration and returns the principal it was issued for.
func (m *JWTManager) ParsePrincipal(tokenString string) (schema.Principal, error) {
	c := &claims{}
	token, err := jwtgo.ParseWithClaims(tokenString, c, func(t *jwtgo.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtgo.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.publicKey, nil
	})
	if err != nil || !token.Valid {
		return schema.Principal{}, ErrInvalidToken
	}
	if c.Subject == "" || c.StudioID == "" {
		return schema.Principal{}, ErrInvalidToken
	}

	return schema.Principal{UserID: c.Subject, StudioID: c.StudioID, Role: c.Role}, nil
}
