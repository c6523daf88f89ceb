package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"meeting-service/internal/events"
	"meeting-service/internal/jwt"
	"meeting-service/internal/model"
	"meeting-service/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
)

type AuthService interface {
	RegisterUser(ctx context.Context, email, password, username string) (*model.User, error)
	LoginUser(ctx context.Context, email, password string) (accessToken string, refreshToken string, err error)
	GetOrCreateProfile(ctx context.Context, userID uuid.UUID, email, username string) (*model.User, error)
	RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken string, err error)
	LogoutUser(ctx context.Context, refreshTokenString string) error
	RequestPasswordReset(ctx context.Context, email string) error
}

type authService struct {
	userRepo    repository.UserRepository
	tokenRepo   repository.TokenRepository
	publisher   events.EventPublisher
	adminDomain string
}

// NewAuthService wires the auth flows. adminDomain, when non-empty, is an
// email suffix (e.g. "@example.com") whose registrations are promoted to
// admin; an empty value disables the promotion.
func NewAuthService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, publisher events.EventPublisher, adminDomain string) AuthService {
	return &authService{
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		publisher:   publisher,
		adminDomain: adminDomain,
	}
}

func (s *authService) RegisterUser(ctx context.Context, email, password, username string) (*model.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	if err != nil {
		return nil, err
	}

	role := model.RoleUser
	if s.adminDomain != "" && strings.HasSuffix(strings.ToLower(email), strings.ToLower(s.adminDomain)) {
		role = model.RoleAdmin
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Username:     username,
		Role:         role,
	}

	newID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	user.ID = newID

	return user, nil
}

func (s *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := jwt.GenerateTokens(user)
	if err != nil {
		return "", "", err
	}

	refreshTokenModel := &model.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().Add(time.Hour * 24 * 30),
	}

	if err := s.tokenRepo.Create(ctx, refreshTokenModel); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// GetOrCreateProfile backs /users/me. A valid token whose subject has no
// profile row (the row was deleted while the credentials stayed valid)
// gets a default user-role profile synthesized from the token claims.
func (s *authService) GetOrCreateProfile(ctx context.Context, userID uuid.UUID, email, username string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if username == "" {
		if at := strings.Index(email, "@"); at > 0 {
			username = email[:at]
		}
	}

	fresh := &model.User{
		ID:       userID,
		Email:    email,
		Username: username,
		Role:     model.RoleUser,
	}
	if err := s.userRepo.CreateWithID(ctx, fresh); err != nil {
		return nil, err
	}

	return s.userRepo.FindByID(ctx, userID)
}

func (s *authService) RefreshToken(ctx context.Context, refreshTokenString string) (string, error) {
	claims, err := jwt.ValidateToken(refreshTokenString)

	if err != nil {
		return "", ErrTokenInvalid
	}

	_, err = s.tokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenString))
	if err != nil {
		return "", ErrTokenInvalid
	}

	userID, _ := uuid.Parse(claims["sub"].(string))
	user, err := s.userRepo.FindByID(ctx, userID)

	if err != nil {
		return "", ErrTokenInvalid
	}

	newAccessToken, _, err := jwt.GenerateTokens(user)

	if err != nil {
		return "", err
	}

	return newAccessToken, nil
}

func (s *authService) LogoutUser(ctx context.Context, refreshTokenString string) error {
	return s.tokenRepo.Delete(ctx, hashToken(refreshTokenString))
}

// RequestPasswordReset records a single-use token and hands delivery off
// to the notification worker over NATS. The caller only learns whether
// the email maps to an account.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	resetToken := hex.EncodeToString(raw)

	record := &model.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hashToken(resetToken),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := s.tokenRepo.CreatePasswordReset(ctx, record); err != nil {
		return err
	}

	go s.publisher.PublishPasswordResetRequested(user.ID, user.Email, resetToken)

	return nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
