package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"geopolitics-server/internal/interfaces"
	"geopolitics-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgCredentialsRequired = "Nom d'utilisateur et mot de passe requis"
	msgUsernameTooShort    = "Nom d'utilisateur trop court (min 3 caractères)"
	msgPasswordTooShort    = "Mot de passe trop court (min 4 caractères)"
	msgUsernameTaken       = "Ce nom d'utilisateur existe déjà"
	msgInvalidCredentials  = "Identifiants incorrects"
	msgUserNotFound        = "Utilisateur non trouvé"

	minUsernameLength = 3
	minPasswordLength = 4

	tokenIssuer = "geopolitics-server"
)

// AuthConfig holds the signing secret, the pepper and the session lifetime.
type AuthConfig struct {
	JWTSecret      string
	PasswordPepper string
	TokenTTL       time.Duration
}

// AuthService registers players and manages their session tokens.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, *models.TokenDetails, error)
	Login(ctx context.Context, username, password string) (*models.User, *models.TokenDetails, error)
	VerifyToken(ctx context.Context, tokenString string) (*models.Claims, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	Logout(ctx context.Context, tokenID string) error
}

var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	userRepo  interfaces.UserRepository
	tokenRepo interfaces.TokenRepository
	cfg       AuthConfig
	logger    *zap.Logger
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(userRepo interfaces.UserRepository, tokenRepo interfaces.TokenRepository, cfg AuthConfig, logger *zap.Logger) AuthService {
	return &authServiceImpl{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		cfg:       cfg,
		logger:    logger.Named("AuthService"),
	}
}

// Register creates a new user and opens a session for it.
func (s *authServiceImpl) Register(ctx context.Context, username, password string) (*models.User, *models.TokenDetails, error) {
	username = strings.TrimSpace(username)
	logFields := []zap.Field{zap.String("username", username)}
	s.logger.Info("Registering new user", logFields...)

	switch {
	case username == "" || password == "":
		return nil, nil, displayError(ErrInvalidInput, msgCredentialsRequired)
	case utf8.RuneCountInString(username) < minUsernameLength:
		return nil, nil, displayError(ErrInvalidInput, msgUsernameTooShort)
	case utf8.RuneCountInString(password) < minPasswordLength:
		return nil, nil, displayError(ErrInvalidInput, msgPasswordTooShort)
	}

	existingUser, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing username during registration", append(logFields, zap.Error(err))...)
		return nil, nil, fmt.Errorf("error checking existing username: %w", err)
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt for existing username", logFields...)
		return nil, nil, displayError(models.ErrUserAlreadyExists, msgUsernameTaken)
	}

	hashedPassword, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: hashedPassword}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		// Гонка двух регистраций с одним именем ловится уникальным индексом.
		if errors.Is(err, models.ErrUserAlreadyExists) {
			return nil, nil, displayError(models.ErrUserAlreadyExists, msgUsernameTaken)
		}
		s.logger.Error("Failed to create user via repository", append(logFields, zap.Error(err))...)
		return nil, nil, err
	}

	td, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("User registered successfully", zap.Int64("userID", user.ID), zap.String("username", user.Username))
	return user, td, nil
}

// Login authenticates a user and returns a fresh session token.
func (s *authServiceImpl) Login(ctx context.Context, username, password string) (*models.User, *models.TokenDetails, error) {
	username = strings.TrimSpace(username)
	s.logger.Info("Login attempt", zap.String("username", username))

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("username", username))
			return nil, nil, displayError(models.ErrInvalidCredentials, msgInvalidCredentials)
		}
		s.logger.Error("Login failed: error getting user from repository", zap.Error(err), zap.String("username", username))
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !checkPasswordHash(password, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Login failed: invalid password", zap.String("username", username), zap.Int64("userID", user.ID))
		return nil, nil, displayError(models.ErrInvalidCredentials, msgInvalidCredentials)
	}

	td, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("User logged in successfully", zap.Int64("userID", user.ID))
	return user, td, nil
}

// VerifyToken checks the signature, expiry and that the session is still registered.
func (s *authServiceImpl) VerifyToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("Token verification failed: expired")
			return nil, models.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			s.logger.Warn("Token verification failed: malformed")
			return nil, models.ErrTokenMalformed
		}
		s.logger.Warn("Failed to parse token", zap.Error(err))
		return nil, models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid || claims.ID == "" {
		s.logger.Warn("Token verification failed (invalid claims)")
		return nil, models.ErrTokenInvalid
	}

	storedUserID, err := s.tokenRepo.GetUserIDByTokenID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			s.logger.Debug("Token not found in store (revoked or logged out)", zap.String("tokenID", claims.ID))
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Error checking token existence via repository", zap.Error(err), zap.String("tokenID", claims.ID))
		return nil, fmt.Errorf("error checking token existence: %w", err)
	}
	if storedUserID != claims.UserID {
		s.logger.Warn("Token user mismatch", zap.Int64("claimsUserID", claims.UserID), zap.Int64("storedUserID", storedUserID))
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

func (s *authServiceImpl) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, displayError(models.ErrUserNotFound, msgUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Logout removes the session from the store. Unknown ids are not an error.
func (s *authServiceImpl) Logout(ctx context.Context, tokenID string) error {
	if err := s.tokenRepo.DeleteToken(ctx, tokenID); err != nil && !errors.Is(err, models.ErrTokenNotFound) {
		s.logger.Error("Failed to delete session", zap.String("tokenID", tokenID), zap.Error(err))
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info("User logged out", zap.String("tokenID", tokenID))
	return nil
}

// createSession подписывает токен и регистрирует его jti в хранилище сессий.
func (s *authServiceImpl) createSession(ctx context.Context, userID int64) (*models.TokenDetails, error) {
	now := time.Now()
	td := &models.TokenDetails{
		TokenID:   uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.TokenTTL).Unix(),
	}

	claims := &models.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        td.TokenID,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(time.Unix(td.ExpiresAt, 0)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err), zap.Int64("userID", userID))
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	td.Token = signed

	if err := s.tokenRepo.SetToken(ctx, td.TokenID, userID, s.cfg.TokenTTL); err != nil {
		s.logger.Error("Failed to save session", zap.Error(err), zap.Int64("userID", userID))
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return td, nil
}

// applyPepper applies HMAC-SHA256 using the pepper as the key.
// Результат всегда 32 байта, что укладывается в лимит bcrypt в 72 байта.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

func hashPassword(password, pepper string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(applyPepper(password, pepper), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPasswordHash(password, hash, pepper string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), applyPepper(password, pepper)) == nil
}
