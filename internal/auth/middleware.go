package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/idtoken"
)

var (
	// ErrNotAdmin is returned when a verified account is not on the admin list
	ErrNotAdmin = errors.New("account is not an administrator")
	// ErrUnverifiedEmail is returned when Google has not verified the account's e-mail
	ErrUnverifiedEmail = errors.New("email not verified")
)

// Context keys set by AdminMiddleware
const (
	ContextEmail = "email"
	ContextName  = "name"
)

// ValidateFunc verifies a Google ID token for an audience
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Authenticator exchanges Google ID tokens of administrators for admin JWTs
type Authenticator struct {
	clientID string
	admins   map[string]bool
	tokens   *Tokens
	validate ValidateFunc
}

func NewAuthenticator(clientID string, adminEmails []string, tokens *Tokens) *Authenticator {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	return &Authenticator{
		clientID: clientID,
		admins:   admins,
		tokens:   tokens,
		validate: idtoken.Validate,
	}
}

// WithValidator replaces Google's token validation
func (a *Authenticator) WithValidator(v ValidateFunc) *Authenticator {
	a.validate = v
	return a
}

// Tokens returns the issuer used for admin JWTs
func (a *Authenticator) Tokens() *Tokens {
	return a.tokens
}

// Login verifies the ID token and, for an administrator, issues a JWT
func (a *Authenticator) Login(ctx context.Context, rawIDToken string) (string, time.Time, *UserInfo, error) {
	if a.clientID == "" {
		return "", time.Time{}, nil, fmt.Errorf("google login not configured")
	}
	payload, err := a.validate(ctx, rawIDToken, a.clientID)
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	info := extractUserInfoFromPayload(payload)
	if info.Email == "" || !info.EmailVerified {
		return "", time.Time{}, info, ErrUnverifiedEmail
	}
	if !a.admins[normalizeEmail(info.Email)] {
		slog.Warn("Admin login refused", "email", info.Email)
		return "", time.Time{}, info, ErrNotAdmin
	}

	token, expires, err := a.tokens.Generate(info.Email, info.Name)
	if err != nil {
		return "", time.Time{}, info, err
	}
	slog.Info("Admin logged in", "email", info.Email)
	return token, expires, info, nil
}

// extractUserInfoFromPayload extracts user info from the verified token payload
func extractUserInfoFromPayload(payload *idtoken.Payload) *UserInfo {
	userInfo := &UserInfo{Sub: payload.Subject}

	if email, ok := payload.Claims["email"].(string); ok {
		userInfo.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		userInfo.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		userInfo.Picture = picture
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		userInfo.EmailVerified = verified
	}
	return userInfo
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// AdminMiddleware requires a valid admin JWT in the Authorization header
func AdminMiddleware(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(raw))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, ErrExpiredToken) {
				msg = "session expired, please log in again"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(ContextEmail, claims.Email)
		c.Set(ContextName, claims.Name)
		c.Next()
	}
}
