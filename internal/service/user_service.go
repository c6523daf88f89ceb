package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"meeting-service/internal/cache"
	"meeting-service/internal/model"
	"meeting-service/internal/repository"
)

var (
	ErrSelfRoleChange = errors.New("cannot change your own role")
	ErrSelfDelete     = errors.New("cannot delete your own account")
	ErrBadRole        = errors.New("role must be user or admin")
)

type UserService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ChangeRole(ctx context.Context, actorID, targetID uuid.UUID, role string) error
	DeleteProfile(ctx context.Context, actorID, targetID uuid.UUID) error
}

type userService struct {
	userRepo repository.UserRepository
	names    *cache.NameCache
}

func NewUserService(userRepo repository.UserRepository, names *cache.NameCache) UserService {
	return &userService{userRepo: userRepo, names: names}
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.userRepo.ListAll(ctx)
}

// ChangeRole flips a user between user and admin. The self-check runs
// before any write so an admin can never lock themselves out by accident.
func (s *userService) ChangeRole(ctx context.Context, actorID, targetID uuid.UUID, role string) error {
	if role != model.RoleUser && role != model.RoleAdmin {
		return ErrBadRole
	}
	if actorID == targetID {
		return ErrSelfRoleChange
	}

	if _, err := s.userRepo.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.userRepo.UpdateRole(ctx, targetID, role); err != nil {
		return err
	}

	s.names.Invalidate(ctx, targetID)

	return nil
}

// DeleteProfile removes the profile row only; credentials issued to the
// account stay valid, which the handler surfaces in its response message.
func (s *userService) DeleteProfile(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return ErrSelfDelete
	}

	if _, err := s.userRepo.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.userRepo.Delete(ctx, targetID); err != nil {
		return err
	}

	s.names.Invalidate(ctx, targetID)

	return nil
}
