package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sacsol/sacsol-api/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, email, name, passwordHash string, isSuperuser bool) (int64, error)
	UpdateUser(ctx context.Context, id int64, name string, isActive bool) error
	ReplaceRoles(ctx context.Context, userID int64, roleNames []string) error
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser hashes the password and stores the account with its roles.
func (s *Service) CreateUser(ctx context.Context, email, name, password string, isSuperuser bool, roles []string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: email and a password of at least 8 characters are required", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.CreateUser(ctx, email, name, string(hash), isSuperuser)
	if err != nil {
		return nil, err
	}
	if len(roles) > 0 {
		if err := s.repo.ReplaceRoles(ctx, id, roles); err != nil {
			return nil, err
		}
	}
	return s.repo.GetUser(ctx, id)
}

// UpdateUser updates mutable fields and role assignments.
func (s *Service) UpdateUser(ctx context.Context, id int64, name string, isActive bool, roles []string) (*User, error) {
	if err := s.repo.UpdateUser(ctx, id, name, isActive); err != nil {
		return nil, err
	}
	if roles != nil {
		if err := s.repo.ReplaceRoles(ctx, id, roles); err != nil {
			return nil, err
		}
	}
	return s.repo.GetUser(ctx, id)
}
