package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/repository"
)

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewUserService(logger *zap.Logger, users repository.UserRepository) *UserService {
	return &UserService{
		logger: logger,
		users:  users,
	}
}

type RegisterInput struct {
	ExternalID  string
	DisplayName string
	Password    string
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidExternalID  = errors.New("invalid external id")
)

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	externalID := strings.TrimSpace(input.ExternalID)
	if externalID == "" {
		return domain.User{}, ErrInvalidExternalID
	}
	password := strings.TrimSpace(input.Password)
	if password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	if _, err := s.users.GetByExternalID(ctx, externalID); err == nil {
		return domain.User{}, ErrUserExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.New(),
		ExternalID:   externalID,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: string(hashBytes),
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, externalID, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	externalID = strings.TrimSpace(externalID)
	password = strings.TrimSpace(password)
	if externalID == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	if err := s.users.TouchLastActive(ctx, user.ID, time.Now().UTC()); err != nil && s.logger != nil {
		s.logger.Warn("touch last active failed", zap.Error(err), zap.String("user_id", user.ID.String()))
	}
	return user, nil
}

// Resolve busca un usuario por external id y lo crea si no existe.
// Es el camino del modo header-auth, donde la identidad ya llega autenticada
// por un gateway externo y no pasa por register/login.
func (s *UserService) Resolve(ctx context.Context, externalID, displayName string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return domain.User{}, ErrInvalidExternalID
	}

	user, err := s.users.GetByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user = domain.User{
		ID:           uuid.New(),
		ExternalID:   externalID,
		DisplayName:  strings.TrimSpace(displayName),
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	if s.users == nil {
		return errors.New("user service not configured")
	}
	return s.users.TouchLastActive(ctx, id, time.Now().UTC())
}
