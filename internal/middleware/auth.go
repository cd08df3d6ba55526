package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const UserContextKey contextKey = "user"

// RoleDriver is the only role issued by the agent's login
const RoleDriver = "driver"

type UserClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	TruckID string `json:"truck_id"`
	Role    string `json:"role"`
}

type tokenClaims struct {
	UserClaims
	jwt.RegisteredClaims
}

// JWTAuth issues and validates the HS256 tokens of the local API
type JWTAuth struct {
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
}

func NewJWTAuth(secret string, ttl time.Duration, log *zap.Logger) *JWTAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &JWTAuth{secret: []byte(secret), ttl: ttl, log: log}
}

// Issue signs a token for the given user
func (a *JWTAuth) Issue(user UserClaims) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserClaims: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates a token and returns its user claims
func (a *JWTAuth) Parse(tokenString string) (UserClaims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return UserClaims{}, err
	}
	if !token.Valid || claims.UserID == "" {
		return UserClaims{}, errors.New("invalid token")
	}
	return claims.UserClaims, nil
}

// Auth middleware validates the bearer token and adds user claims to context
func (a *JWTAuth) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			a.log.Debug("❌ Invalid authorization header format", zap.Int("parts", len(parts)))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userClaims, err := a.Parse(parts[1])
		if err != nil {
			a.log.Warn("❌ Invalid token", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, userClaims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole middleware checks if user has required role (must be used after Auth)
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := r.Context().Value(UserContextKey).(UserClaims)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if userClaims.Role != role {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) (UserClaims, bool) {
	userClaims, ok := r.Context().Value(UserContextKey).(UserClaims)
	return userClaims, ok
}
