package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/BatchDB/core"
)

// AuthConfig configures client authentication for the TCP and HTTP
// front ends.
type AuthConfig struct {
	// Enabled requires a valid token before any action runs.
	Enabled bool

	// JWTSecret is the shared secret for HS256/384/512 validation.
	JWTSecret string

	// Issuer is the expected "iss" claim (optional).
	Issuer string

	// Audience is the expected "aud" claim (optional).
	Audience string

	// NameClaim is the claim holding the caller's name (default: "name").
	NameClaim string

	// EmailClaim is the claim holding the caller's email (default: "email").
	EmailClaim string
}

// AuthResponse is the result payload of a successful AUTH.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// ConnectionState tracks per-connection authentication state.
type ConnectionState struct {
	identity      *core.Identity
	authenticated bool
	tokenExpiry   time.Time
}

// IsAuthenticated returns true if the connection has been authenticated.
func (cs *ConnectionState) IsAuthenticated() bool {
	return cs.authenticated
}

// Identity returns the connection's identity, or nil if not authenticated.
func (cs *ConnectionState) Identity() *core.Identity {
	return cs.identity
}

// Expired reports whether an authenticated connection outlived its token.
func (cs *ConnectionState) Expired() bool {
	return cs.authenticated && !cs.tokenExpiry.IsZero() && time.Now().After(cs.tokenExpiry)
}

type authResult struct {
	identity  core.Identity
	expiresAt time.Time
	err       error
}

// validateJWT validates a JWT token and extracts identity claims.
func (config *AuthConfig) validateJWT(tokenString string) authResult {
	if config == nil || config.JWTSecret == "" {
		return authResult{err: errors.New("authentication not configured")}
	}

	nameClaim := config.NameClaim
	if nameClaim == "" {
		nameClaim = "name"
	}
	emailClaim := config.EmailClaim
	if emailClaim == "" {
		emailClaim = "email"
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return authResult{err: fmt.Errorf("invalid token: %w", err)}
	}
	if !token.Valid {
		return authResult{err: errors.New("invalid token")}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return authResult{err: errors.New("invalid token claims")}
	}

	if config.Issuer != "" {
		issuer, _ := claims.GetIssuer()
		if issuer != config.Issuer {
			return authResult{err: fmt.Errorf("invalid issuer: expected %s, got %s", config.Issuer, issuer)}
		}
	}

	if config.Audience != "" {
		audiences, _ := claims.GetAudience()
		found := false
		for _, aud := range audiences {
			if aud == config.Audience {
				found = true
				break
			}
		}
		if !found {
			return authResult{err: fmt.Errorf("invalid audience: expected %s", config.Audience)}
		}
	}

	name, _ := claims[nameClaim].(string)
	email, _ := claims[emailClaim].(string)
	if name == "" && email == "" {
		return authResult{err: fmt.Errorf("token missing identity claims (%s or %s)", nameClaim, emailClaim)}
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return authResult{
		identity:  core.Identity{Name: name, Email: email},
		expiresAt: expiresAt,
	}
}

// parseAuthCommand parses an AUTH command and returns the auth type and token.
// Supported formats:
//   - AUTH JWT <token>
func parseAuthCommand(line string) (authType, token string, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(strings.ToUpper(line), "AUTH ") {
		return "", "", errors.New("not an AUTH command")
	}

	parts := strings.Fields(line)
	if len(parts) < 3 {
		return "", "", errors.New("invalid AUTH command: expected AUTH <type> <credentials>")
	}

	authType = strings.ToUpper(parts[1])
	token = parts[2]

	switch authType {
	case "JWT":
		return authType, token, nil
	default:
		return "", "", fmt.Errorf("unsupported auth type: %s", authType)
	}
}

// handleAuth processes an AUTH command and returns the response.
func (s *Server) handleAuth(line string, state *ConnectionState) Response {
	_, token, err := parseAuthCommand(line)
	if err != nil {
		return Response{Success: false, Type: "auth", Error: err.Error()}
	}

	result := s.authConfig.validateJWT(token)
	if result.err != nil {
		return Response{Success: false, Type: "auth", Error: result.err.Error()}
	}

	state.identity = &result.identity
	state.authenticated = true
	state.tokenExpiry = result.expiresAt

	ar := AuthResponse{
		Authenticated: true,
		Identity:      result.identity.String(),
	}
	if !result.expiresAt.IsZero() {
		ar.ExpiresIn = int(time.Until(result.expiresAt).Seconds())
	}

	data, _ := json.Marshal(ar)
	return Response{Success: true, Type: "auth", Result: data}
}
