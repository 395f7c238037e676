// Package services provides external service integrations and technical concerns like tokens and event publishing
package services

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenService validates bearer tokens issued by the hosted identity
// provider. The service never issues tokens itself.
type TokenService interface {
	ValidateToken(token string) (*TokenClaims, error)
}

// TokenClaims carries the identity extracted from a verified token. Subject
// doubles as the actor recorded on transitions and activities; TenantID
// scopes brand visibility.
type TokenClaims struct {
	Subject  string `json:"sub"`
	TenantID string `json:"tenant_id"`
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	signingMethod jwt.SigningMethod
	publicKey     *rsa.PublicKey
	secretKey     []byte
	useRSAKeys    bool
	issuer        string
	audience      string
}

// NewTokenService creates a verification-only token service. With useRSAKeys
// the provider's RS256 public key is expected in PEM format; otherwise a
// shared HS256 secret.
func NewTokenService(issuer, audience string, useRSAKeys bool, publicKeyPEM, secretKey string) (TokenService, error) {
	var publicKey *rsa.PublicKey
	var secretKeyBytes []byte
	var signingMethod jwt.SigningMethod

	if useRSAKeys {
		var err error
		publicKey, err = parseRSAPublicKey(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		signingMethod = jwt.SigningMethodRS256
	} else {
		if secretKey == "" {
			return nil, fmt.Errorf("secret key is required when not using RSA keys")
		}
		secretKeyBytes = []byte(secretKey)
		signingMethod = jwt.SigningMethodHS256
	}

	return &TokenServiceImpl{
		signingMethod: signingMethod,
		publicKey:     publicKey,
		secretKey:     secretKeyBytes,
		useRSAKeys:    useRSAKeys,
		issuer:        issuer,
		audience:      audience,
	}, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	if publicKeyPEM == "" {
		return nil, fmt.Errorf("public key is required")
	}

	publicKeyBlock, _ := pem.Decode([]byte(publicKeyPEM))
	if publicKeyBlock == nil {
		return nil, fmt.Errorf("failed to decode public key")
	}

	publicKey, err := x509.ParsePKIXPublicKey(publicKeyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA")
	}

	return rsaPublicKey, nil
}

// ValidateToken verifies the signature, expiry, issuer, and audience of a
// bearer token and extracts its claims
func (s *TokenServiceImpl) ValidateToken(token string) (*TokenClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.signingMethod.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if s.useRSAKeys {
			return s.publicKey, nil
		}
		return s.secretKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ErrTokenInvalid
	}

	tenantID, _ := claims["tenant_id"].(string)
	if tenantID == "" {
		tenantID = subject
	}

	return &TokenClaims{
		Subject:  subject,
		TenantID: tenantID,
	}, nil
}
