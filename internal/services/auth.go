package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
)

type Claims struct {
	UserID uuid.UUID `json:"uid"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type AuthService interface {
	Register(dbc dbctx.Context, input RegisterInput) (*domain.User, error)
	Login(dbc dbctx.Context, email, password string) (*domain.User, *TokenPair, error)
	Refresh(dbc dbctx.Context, userID uuid.UUID, refreshToken string) (*TokenPair, error)
	Logout(dbc dbctx.Context, userID uuid.UUID) error
	ParseAccessToken(tokenString string) (*Claims, error)
	// ParseExpiredAccessToken accepts an expired token so the refresh flow
	// can recover the caller identity. Signature is still verified.
	ParseExpiredAccessToken(tokenString string) (*Claims, error)
}

type authService struct {
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecret     []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecret string,
	accessTTL, refreshTTL time.Duration,
) AuthService {
	return &authService{
		log:           baseLog.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecret:     []byte(jwtSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func unauthorized(code string, err error) *apierr.Error {
	return apierr.New(http.StatusUnauthorized, code, err)
}

func (s *authService) Register(dbc dbctx.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apierr.Validation("invalid_email", fmt.Errorf("a valid email is required"))
	}
	if len(input.Password) < 8 {
		return nil, apierr.Validation("weak_password", fmt.Errorf("password must be at least 8 characters"))
	}

	existing, err := s.userRepo.GetByEmails(dbc, []string{email})
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if len(existing) > 0 {
		return nil, apierr.Conflict("email_taken", fmt.Errorf("email %s is already registered", email))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Role:      domain.RoleAnnotator,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.userRepo.Create(dbc, []*domain.User{user}); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (s *authService) Login(dbc dbctx.Context, email, password string) (*domain.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := s.userRepo.GetByEmails(dbc, []string{email})
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, nil, unauthorized("invalid_credentials", fmt.Errorf("unknown email or password"))
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, unauthorized("invalid_credentials", fmt.Errorf("unknown email or password"))
	}

	pair, err := s.issueTokens(dbc, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *authService) Refresh(dbc dbctx.Context, userID uuid.UUID, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, unauthorized("missing_refresh_token", fmt.Errorf("refresh token required"))
	}
	tokens, err := s.userTokenRepo.GetByUserID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load refresh tokens: %w", err)
	}

	var matched *domain.UserToken
	for _, t := range tokens {
		if t.ExpiresAt.Before(time.Now()) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(t.RefreshHash), []byte(refreshToken)) == nil {
			matched = t
			break
		}
	}
	if matched == nil {
		return nil, unauthorized("invalid_refresh_token", fmt.Errorf("refresh token not recognized"))
	}

	user, err := s.userRepo.GetByID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, unauthorized("invalid_refresh_token", fmt.Errorf("user no longer exists"))
	}

	// Rotation: every refresh invalidates all prior refresh tokens.
	if err := s.userTokenRepo.FullDeleteByUserID(dbc, userID); err != nil {
		return nil, fmt.Errorf("rotate refresh tokens: %w", err)
	}
	return s.issueTokens(dbc, user)
}

func (s *authService) Logout(dbc dbctx.Context, userID uuid.UUID) error {
	if err := s.userTokenRepo.FullDeleteByUserID(dbc, userID); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	s.log.Info("user logged out", "user_id", userID)
	return nil
}

func (s *authService) issueTokens(dbc dbctx.Context, user *domain.User) (*TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken := uuid.New().String()
	refreshHash, err := bcrypt.GenerateFromPassword([]byte(refreshToken), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}
	if _, err := s.userTokenRepo.Create(dbc, []*domain.UserToken{{
		ID:          uuid.New(),
		UserID:      user.ID,
		RefreshHash: string(refreshHash),
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}}); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *authService) ParseAccessToken(tokenString string) (*Claims, error) {
	return s.parseToken(tokenString, true)
}

func (s *authService) ParseExpiredAccessToken(tokenString string) (*Claims, error) {
	return s.parseToken(tokenString, false)
}

func (s *authService) parseToken(tokenString string, requireFresh bool) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if !requireFresh {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, unauthorized("token_expired", err)
		}
		return nil, unauthorized("invalid_token", err)
	}
	if !token.Valid {
		return nil, unauthorized("invalid_token", fmt.Errorf("token failed validation"))
	}
	return claims, nil
}
