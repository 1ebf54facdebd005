package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"fitcoin-engine/internal/domain"
)

// SignupParams — данные регистрации нового пользователя.
type SignupParams struct {
	DisplayName     string
	Email           string
	Password        string
	PrimaryProvider domain.Provider
	PersonaID       string
}

// Service отвечает за регистрацию и вход пользователей.
// Провайдер данных фиксируется при регистрации и дальше не меняется.
type Service struct {
	users   domain.UserRepo
	wallets domain.WalletService
	log     zerolog.Logger
}

// NewService создаёт сервис аутентификации.
func NewService(users domain.UserRepo, wallets domain.WalletService, logger zerolog.Logger) *Service {
	return &Service{users: users, wallets: wallets, log: logger}
}

// Signup регистрирует пользователя и сразу создаёт его кошелёк со стартовым
// балансом. Занятый email возвращает ErrUserExists.
func (s *Service) Signup(ctx context.Context, params SignupParams) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("некорректный email")
	}
	if len(params.Password) < 6 {
		return domain.User{}, fmt.Errorf("пароль должен быть не короче 6 символов")
	}
	if params.PrimaryProvider == "" {
		params.PrimaryProvider = domain.ProviderWearables
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("хэширование пароля: %w", err)
	}

	user, err := s.users.CreateUser(ctx, domain.User{
		ID:              uuid.NewString(),
		DisplayName:     strings.TrimSpace(params.DisplayName),
		Email:           email,
		PasswordHash:    string(hash),
		PrimaryProvider: params.PrimaryProvider,
		PersonaID:       params.PersonaID,
	})
	if err != nil {
		return domain.User{}, err
	}

	if _, err := s.wallets.GetOrCreate(ctx, user.ID); err != nil {
		// Пользователь уже создан; кошелёк появится при первом обращении.
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("auth: кошелёк не создан при регистрации")
	}

	s.log.Info().Str("user_id", user.ID).Str("provider", string(user.PrimaryProvider)).Msg("auth: зарегистрирован пользователь")
	return user, nil
}

// Login проверяет пару email/пароль и возвращает пользователя.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}
