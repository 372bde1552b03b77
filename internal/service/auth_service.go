package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoActiveToken      = errors.New("no active token")
	ErrTokenSuperseded    = errors.New("token superseded by a newer login")
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID  int  `json:"user_id"`
	IsAdmin bool `json:"is_admin"`
}

// AuthService handles password hashing, JWT issuing, and token tracking.
// The active token id (jti) per user is kept in Redis so logout and
// re-login invalidate previously issued tokens.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken creates a JWT for a user and registers its jti in Redis.
// A fresh login supersedes any token issued earlier for the same user.
func (s *AuthService) GenerateToken(ctx context.Context, userID int, isAdmin bool) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID:  userID,
		IsAdmin: isAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	tokenKey := config.CacheKey.UserTokenKey(userID)
	if err := s.rdb.Set(ctx, tokenKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateActiveToken checks that the token's jti is still the registered
// one for the user — older tokens are rejected after a newer login.
func (s *AuthService) ValidateActiveToken(ctx context.Context, userID int, jti string) error {
	tokenKey := config.CacheKey.UserTokenKey(userID)
	stored, err := s.rdb.Get(ctx, tokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoActiveToken
		}
		return fmt.Errorf("check token: %w", err)
	}
	if stored != jti {
		return ErrTokenSuperseded
	}
	return nil
}

// InvalidateToken removes a user's registered token, logging them out.
func (s *AuthService) InvalidateToken(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, config.CacheKey.UserTokenKey(userID)).Err()
}
