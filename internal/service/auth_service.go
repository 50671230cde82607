package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/logger"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
	"github.com/ignatzorin/bharatalert-backend/internal/validation"
)

// AuthService инкапсулирует регистрацию и выдачу токенов.
// Остальным сервисам он отдаёт только идентификатор и роль пользователя.
type AuthService struct {
	users        repository.UserStore
	tokenManager *TokenManager
	timeout      time.Duration
	now          func() time.Time
	log          *logrus.Entry
}

// SignupInput содержит данные пользователя при регистрации.
type SignupInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Lat      *float64
	Lng      *float64
	Address  string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *entity.User
	TokenPair *TokenPair
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(users repository.UserStore, tokenManager *TokenManager, storeTimeout time.Duration) *AuthService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &AuthService{
		users:        users,
		tokenManager: tokenManager,
		timeout:      storeTimeout,
		now:          time.Now,
		log:          logger.Component("auth_service"),
	}
}

// Signup создаёт пользователя с ролью user и нулевым счётчиком наблюдений.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if err := validation.ValidateName("имя", in.Name); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidatePhone(in.Phone); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var location *valueobject.Location
	if in.Lat != nil || in.Lng != nil || strings.TrimSpace(in.Address) != "" {
		loc, err := valueobject.NewLocation(in.Lat, in.Lng, in.Address)
		if err != nil {
			return nil, err
		}
		location = &loc
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &entity.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        strings.TrimSpace(in.Phone),
		Location:     location,
		Role:         valueobject.RoleUser,
		PasswordHash: string(passHash),
		CreatedAt:    s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperror.ErrEmailTaken
		}
		return nil, storeError(err, apperror.ErrUserNotFound)
	}

	tokenPair, _, _, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID}).Info("пользователь зарегистрирован")
	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Login проверяет учётные данные и возвращает токены.
// Заблокированный пользователь войти не может.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, storeError(err, apperror.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	// Проверка блокировки только после пароля, чтобы не раскрывать статус чужого аккаунта
	if user.Banned {
		s.log.WithFields(logrus.Fields{"user_id": user.ID}).Warn("попытка входа заблокированного пользователя")
		return nil, apperror.ErrUserBanned
	}

	tokenPair, _, _, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Refresh выпускает новую пару токенов по refresh токену.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, apperror.ErrUnauthorized)
	}
	if user.Banned {
		return nil, apperror.ErrUserBanned
	}

	tokenPair, _, _, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}
	return tokenPair, nil
}

// Me возвращает профиль текущего пользователя.
func (s *AuthService) Me(ctx context.Context, caller Caller) (*entity.User, error) {
	if !caller.Authenticated() {
		return nil, apperror.ErrUnauthorized
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, storeError(err, apperror.ErrUserNotFound)
	}
	return user, nil
}
