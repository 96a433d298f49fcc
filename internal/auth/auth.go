package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens holds the access/refresh pair returned by the token endpoint.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Claims is the JWT payload the backend embeds in access tokens.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// ErrBadCredentials is returned when the token endpoint rejects the login.
var ErrBadCredentials = errors.New("invalid credentials")

// Login exchanges credentials for a token pair at {base}token/.
func Login(ctx context.Context, client *http.Client, base, username, password string) (Tokens, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"token/", bytes.NewReader(body))
	if err != nil {
		return Tokens{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Tokens{}, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Tokens{}, ErrBadCredentials
	}
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Tokens{}, fmt.Errorf("token endpoint error %s: %s", resp.Status, string(bodyBytes))
	}

	var out Tokens
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Tokens{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if out.Access == "" {
		return Tokens{}, errors.New("token endpoint returned no access token")
	}
	return out, nil
}

// ClaimsOf extracts the claims from an access token without verifying the
// signature. The client never holds the signing key; the server remains the
// authority and rejects tampered tokens on use. Claims are read locally only
// for role derivation and expiry checks.
func ClaimsOf(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.Subject == "" && claims.RegisteredClaims.Subject != "" {
		claims.Subject = claims.RegisteredClaims.Subject
	}
	return claims, nil
}

// Expired reports whether the claims' expiry has passed at the given time.
// Tokens without an expiry never expire locally.
func Expired(c Claims, now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return now.After(c.ExpiresAt.Time)
}
