package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

// UserService - администрирование пользователей: блокировка и списки.
type UserService struct {
	moderation
}

func NewUserService(store repository.Store, opts Options) *UserService {
	return &UserService{moderation: newModeration(store, opts, "user_service")}
}

// BanUser блокирует пользователя. changed == false, если он уже был заблокирован.
// Уже поданные заявки и наблюдения блокировка не затрагивает.
func (s *UserService) BanUser(ctx context.Context, caller Caller, userID uuid.UUID) (bool, error) {
	return s.setBanned(ctx, caller, userID, true)
}

// UnbanUser снимает блокировку. changed == false, если блокировки не было.
func (s *UserService) UnbanUser(ctx context.Context, caller Caller, userID uuid.UUID) (bool, error) {
	return s.setBanned(ctx, caller, userID, false)
}

func (s *UserService) setBanned(ctx context.Context, caller Caller, userID uuid.UUID, banned bool) (bool, error) {
	op := "unban_user"
	if banned {
		op = "ban_user"
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireModerator(ctx, caller); err != nil {
		return false, s.fail(op, caller, err)
	}
	if banned && userID == caller.UserID {
		return false, s.fail(op, caller, apperror.Validation("нельзя заблокировать самого себя"))
	}

	changed, err := s.store.SetBanned(ctx, userID, banned)
	if err != nil {
		return false, s.fail(op, caller, storeError(err, apperror.ErrUserNotFound))
	}

	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"moderator_id": caller.UserID,
		"banned":       banned,
		"changed":      changed,
	}).Info("статус блокировки пользователя")
	return changed, nil
}

// ListUsers возвращает всех пользователей. Только для модератора.
func (s *UserService) ListUsers(ctx context.Context, caller Caller) ([]*entity.User, error) {
	const op = "list_users"

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireModerator(ctx, caller); err != nil {
		return nil, s.fail(op, caller, err)
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrUserNotFound))
	}
	return users, nil
}

// ListBannedUserIDs возвращает идентификаторы заблокированных пользователей.
func (s *UserService) ListBannedUserIDs(ctx context.Context, caller Caller) ([]uuid.UUID, error) {
	const op = "list_banned_users"

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.requireModerator(ctx, caller); err != nil {
		return nil, s.fail(op, caller, err)
	}

	ids, err := s.store.ListBannedUserIDs(ctx)
	if err != nil {
		return nil, s.fail(op, caller, storeError(err, apperror.ErrUserNotFound))
	}
	return ids, nil
}

// GetUser возвращает профиль пользователя со счётчиком наблюдений и флагом блокировки.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, s.fail("get_user", Caller{}, storeError(err, apperror.ErrUserNotFound))
	}
	return user, nil
}
