package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"meeting-service/internal/model"
	"meeting-service/internal/service"
)

func TestChangeRole_RejectsSelfChangeBeforeAnyWrite(t *testing.T) {
	adminUser := &model.User{ID: uuid.New(), Email: "root@corp.com", Role: model.RoleAdmin}
	userRepo := newFakeUserRepo(adminUser)
	svc := service.NewUserService(userRepo, nil)

	err := svc.ChangeRole(context.Background(), adminUser.ID, adminUser.ID, model.RoleUser)
	require.ErrorIs(t, err, service.ErrSelfRoleChange)

	got, err := userRepo.FindByID(context.Background(), adminUser.ID)
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, got.Role)
}

func TestChangeRole_ValidatesRoleValue(t *testing.T) {
	svc := service.NewUserService(newFakeUserRepo(), nil)

	err := svc.ChangeRole(context.Background(), uuid.New(), uuid.New(), "superadmin")
	require.ErrorIs(t, err, service.ErrBadRole)
}

func TestChangeRole_UnknownTarget(t *testing.T) {
	svc := service.NewUserService(newFakeUserRepo(), nil)

	err := svc.ChangeRole(context.Background(), uuid.New(), uuid.New(), model.RoleAdmin)
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestChangeRole_PromotesTarget(t *testing.T) {
	target := &model.User{ID: uuid.New(), Email: "bob@corp.com", Role: model.RoleUser}
	userRepo := newFakeUserRepo(target)
	svc := service.NewUserService(userRepo, nil)

	err := svc.ChangeRole(context.Background(), uuid.New(), target.ID, model.RoleAdmin)
	require.NoError(t, err)

	got, err := userRepo.FindByID(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, got.Role)
}

func TestDeleteProfile_RejectsSelfDelete(t *testing.T) {
	adminUser := &model.User{ID: uuid.New(), Email: "root@corp.com", Role: model.RoleAdmin}
	userRepo := newFakeUserRepo(adminUser)
	svc := service.NewUserService(userRepo, nil)

	err := svc.DeleteProfile(context.Background(), adminUser.ID, adminUser.ID)
	require.ErrorIs(t, err, service.ErrSelfDelete)

	_, err = userRepo.FindByID(context.Background(), adminUser.ID)
	require.NoError(t, err)
}

func TestDeleteProfile_RemovesTarget(t *testing.T) {
	target := &model.User{ID: uuid.New(), Email: "bob@corp.com", Role: model.RoleUser}
	userRepo := newFakeUserRepo(target)
	svc := service.NewUserService(userRepo, nil)

	err := svc.DeleteProfile(context.Background(), uuid.New(), target.ID)
	require.NoError(t, err)

	_, err = userRepo.FindByID(context.Background(), target.ID)
	require.Error(t, err)
}

func TestDeleteProfile_UnknownTarget(t *testing.T) {
	svc := service.NewUserService(newFakeUserRepo(), nil)

	err := svc.DeleteProfile(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, service.ErrUserNotFound)
}
