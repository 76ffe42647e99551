package auth

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// This package is the boundary to the identity layer: clients present an
// opaque signed token, the server extracts the stable playerId from it.
// Two paths are supported: tokens from an external provider validated
// against its JWKS endpoint (AUTH_JWKS_URL), and locally issued HS256
// tokens (AUTH_TOKEN_SECRET) handed out on first connect so the same
// browser keeps its playerId across reconnects.

// ResolvePlayerID validates token and returns the playerId it carries.
// JWKS validation is preferred when configured; otherwise the local HS256
// secret is used. An empty token resolves to an empty id with no error
// (the caller mints a fresh identity).
func ResolvePlayerID(jwksURL, secret, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	if jwksURL != "" {
		return resolveJWKS(jwksURL, token)
	}
	if secret != "" {
		return resolveHS256(secret, token)
	}
	return "", fmt.Errorf("identity token presented but no validation method is configured")
}

func resolveJWKS(jwksURL, token string) (string, error) {
	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return "", fmt.Errorf("loading JWKS: %w", err)
	}
	parsed, err := jwt.Parse(token, jwks.Keyfunc)
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	return playerIDFromClaims(claims)
}

func resolveHS256(secret, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	return playerIDFromClaims(claims)
}

func playerIDFromClaims(claims jwt.MapClaims) (string, error) {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id, nil
	}
	return "", fmt.Errorf("token carries no subject")
}

// IssueToken signs a local HS256 token for playerID. Returns an empty
// token (no error) when no secret is configured; identity is then
// per-connection only.
func IssueToken(secret, playerID string) (string, error) {
	if secret == "" {
		return "", nil
	}
	claims := jwt.MapClaims{
		"sub": playerID,
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
