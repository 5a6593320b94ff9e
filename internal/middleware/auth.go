package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/response"
)

// Context keys set by JWTAuth
const (
	ContextKeyActor  = "actor"
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the access-token claims issued by the auth service
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status,omitempty"`
	Category string `json:"category,omitempty"`
	INN      string `json:"inn,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the domain caller
func (c *Claims) Actor() (*domain.Actor, error) {
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return nil, err
	}
	return &domain.Actor{
		UserID:   c.UserID,
		Email:    c.Email,
		Role:     role,
		Status:   domain.UserStatus(c.Status),
		Category: c.Category,
		INN:      c.INN,
	}, nil
}

// TokenVerifier verifies HMAC-signed access tokens
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a verifier; an empty issuer disables the issuer check
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates a raw token
func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Sign issues a token for claims; used by tests and local tooling
func (v *TokenVerifier) Sign(claims *Claims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = v.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// JWTAuth requires a valid bearer token and stores the caller in the context
func JWTAuth(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", ErrMissingToken.Error(), "")
			return
		}

		claims, err := verifier.Verify(raw)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			response.Error(c, http.StatusUnauthorized, code, err.Error(), "")
			return
		}

		actor, err := claims.Actor()
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", err.Error(), "")
			return
		}

		c.Set(ContextKeyActor, actor)
		c.Set(ContextKeyUserID, actor.UserID)
		c.Set(ContextKeyRole, string(actor.Role))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetActor returns the authenticated caller, or nil outside JWTAuth
func GetActor(c *gin.Context) *domain.Actor {
	v, ok := c.Get(ContextKeyActor)
	if !ok {
		return nil
	}
	actor, _ := v.(*domain.Actor)
	return actor
}
