package service

import (
	"context"
	"fmt"

	"almoner/internal/events"
	"almoner/internal/ledger/models"
	"almoner/pkg/platform/sentinel"
	"almoner/pkg/requestcontext"
)

// HasRole answers the authorization query every privileged operation uses.
func (s *Service) HasRole(ctx context.Context, role models.Role, addr string) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("role %q: %w", role, sentinel.ErrInvalidInput)
	}
	return s.store.HasRole(ctx, role, addr)
}

// GrantRole assigns a role to an address. Super-Administrator only.
func (s *Service) GrantRole(ctx context.Context, role models.Role, addr string) error {
	caller := requestcontext.Caller(ctx)
	if !role.Valid() {
		return fmt.Errorf("role %q: %w", role, sentinel.ErrInvalidInput)
	}
	if addr == "" {
		return fmt.Errorf("grantee address: %w", sentinel.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, models.RoleSuperAdministrator, caller); err != nil {
		return err
	}
	if err := s.store.GrantRole(ctx, role, addr); err != nil {
		return err
	}

	s.emit(ctx, events.Event{
		Kind:  events.KindRoleGranted,
		Actor: caller,
		Role:  string(role),
		Name:  addr,
	})
	return nil
}

// RevokeRole removes a role from an address. Super-Administrator only.
// Revoking a role the address does not hold is a no-op, mirroring grant's
// idempotency.
func (s *Service) RevokeRole(ctx context.Context, role models.Role, addr string) error {
	caller := requestcontext.Caller(ctx)
	if !role.Valid() {
		return fmt.Errorf("role %q: %w", role, sentinel.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, models.RoleSuperAdministrator, caller); err != nil {
		return err
	}
	if err := s.store.RevokeRole(ctx, role, addr); err != nil {
		return err
	}

	s.emit(ctx, events.Event{
		Kind:  events.KindRoleRevoked,
		Actor: caller,
		Role:  string(role),
		Name:  addr,
	})
	return nil
}

// requireRole fails with ErrUnauthorized unless addr holds role. Called
// before any mutation so a denied operation leaves no trace.
func (s *Service) requireRole(ctx context.Context, role models.Role, addr string) error {
	if addr == "" {
		return sentinel.ErrUnauthorized
	}
	ok, err := s.store.HasRole(ctx, role, addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s lacks %s: %w", addr, role, sentinel.ErrUnauthorized)
	}
	return nil
}

// requireAdmin accepts either governance tier.
func (s *Service) requireAdmin(ctx context.Context, addr string) error {
	if addr == "" {
		return sentinel.ErrUnauthorized
	}
	ok, err := s.store.HasRole(ctx, models.RoleAdministrator, addr)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	ok, err = s.store.HasRole(ctx, models.RoleSuperAdministrator, addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s lacks administrator role: %w", addr, sentinel.ErrUnauthorized)
	}
	return nil
}
