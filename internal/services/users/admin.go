package users

import (
	"context"
	"log/slog"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

// requireAdmin loads the user list and checks that actorID is an admin in it.
func (s *Service) requireAdmin(ctx context.Context, actorID string) ([]*models.User, *models.User, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, nil, err
	}
	actor := findByID(users, actorID)
	if actor == nil {
		return nil, nil, ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return nil, nil, ErrForbidden
	}
	return users, actor, nil
}

func (s *Service) ListUsers(ctx context.Context, actorID string) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, _, err := s.requireAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// PromoteDemote flips the target's role between admin and user. Acting on
// oneself changes nothing.
func (s *Service) PromoteDemote(ctx context.Context, actorID, targetID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, actor, err := s.requireAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if targetID == actor.ID {
		return actor, nil
	}
	target := findByID(users, targetID)
	if target == nil {
		return nil, errors.Wrapf(ErrNotFound, "id %s", targetID)
	}

	if target.IsAdmin() {
		target.Role = models.RoleUser
	} else {
		target.Role = models.RoleAdmin
	}
	if err := s.store.SaveUsers(ctx, users); err != nil {
		return nil, err
	}
	slog.Info("user role changed", "actor", actor.ID, "user_id", target.ID, "role", string(target.Role))
	return target, nil
}

// DeleteUser removes the target account with its shipments. Deleting oneself
// changes nothing. The stored session is cleared when it belongs to the target.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, actor, err := s.requireAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if targetID == actor.ID {
		return nil
	}

	kept := make([]*models.User, 0, len(users))
	found := false
	for _, u := range users {
		if u.ID == targetID {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return errors.Wrapf(ErrNotFound, "id %s", targetID)
	}

	// shipments first, so a failure leaves the account in place
	if err := s.store.DeleteShipments(ctx, targetID); err != nil {
		return err
	}
	if err := s.store.SaveUsers(ctx, kept); err != nil {
		return err
	}
	if err := s.clearSessionOf(ctx, targetID); err != nil {
		return err
	}
	if s.onDeleted != nil {
		s.onDeleted(targetID)
	}
	slog.Info("user deleted", "actor", actor.ID, "user_id", targetID)
	return nil
}

// ToggleRegistration flips the registration setting and returns the new value.
func (s *Service) ToggleRegistration(ctx context.Context, actorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.requireAdmin(ctx, actorID); err != nil {
		return false, err
	}
	st, err := s.store.Settings(ctx)
	if err != nil {
		return false, err
	}
	open := !st.RegistrationOpen()
	st.RegistrationEnabled = &open
	if err := s.store.SaveSettings(ctx, st); err != nil {
		return false, err
	}
	slog.Info("registration toggled", "actor", actorID, "enabled", open)
	return open, nil
}
