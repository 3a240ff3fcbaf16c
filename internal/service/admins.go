package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crackers-backend/internal/auth"
	"crackers-backend/internal/logger"
	"crackers-backend/internal/models"
	"crackers-backend/internal/store"
	"crackers-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxLoginAttempts = 5
	LockDuration     = 2 * time.Hour
)

type Admins struct {
	admins store.Admins
	tokens *auth.Issuer
	now    func() time.Time
}

func NewAdmins(admins store.Admins, tokens *auth.Issuer) *Admins {
	return &Admins{admins: admins, tokens: tokens, now: time.Now}
}

// Login checks the lock first, counts failures, and locks the account on the fifth one.
func (s *Admins) Login(ctx context.Context, email, password string) (*models.Admin, string, error) {
	a, err := s.admins.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}
	now := s.now()
	if a.IsLocked(now) {
		return nil, "", fmt.Errorf("%w until %s", ErrLocked, a.LockUntil.Format(time.RFC3339))
	}

	if !auth.CheckPassword(a.Password, password) {
		if a.LockUntil != nil {
			a.LockUntil = nil
			a.LoginAttempts = 0
		}
		a.LoginAttempts++
		if a.LoginAttempts >= MaxLoginAttempts {
			until := now.Add(LockDuration)
			a.LockUntil = &until
			logger.WithModule("admins").WithField("email", a.Email).Warn("admin account locked after repeated failed logins")
		}
		if err := s.admins.Replace(ctx, a); err != nil {
			return nil, "", err
		}
		return nil, "", ErrUnauthorized
	}
	if !a.IsActive {
		return nil, "", ErrForbidden
	}

	a.LoginAttempts = 0
	a.LockUntil = nil
	a.LastLogin = &now
	if err := s.admins.Replace(ctx, a); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.AdminToken(a)
	if err != nil {
		return nil, "", err
	}
	return a, token, nil
}

func (s *Admins) Get(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	a, err := s.admins.FindByID(ctx, id)
	if err != nil {
		return nil, lookup("admin", err)
	}
	return a, nil
}

func (s *Admins) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	if len(next) < 8 || len(next) > 72 {
		return invalid("password must be 8 to 72 characters")
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(a.Password, current) {
		return ErrUnauthorized
	}
	hashed, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	a.Password = hashed
	a.UpdatedAt = s.now()
	return lookup("admin", s.admins.Replace(ctx, a))
}

func (s *Admins) List(ctx context.Context) ([]models.Admin, error) {
	return s.admins.List(ctx, false)
}

type AdminInput struct {
	Name     string      `json:"name" validate:"required,max=100"`
	Email    string      `json:"email" validate:"required,mail"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=super_admin admin moderator"`
}

func (s *Admins) Create(ctx context.Context, in AdminInput) (*models.Admin, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = models.RoleAdmin
	}
	if err := checked(validation.Struct(in)); err != nil {
		return nil, err
	}
	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	a := &models.Admin{
		Name:        in.Name,
		Email:       in.Email,
		Password:    hashed,
		Role:        in.Role,
		Permissions: auth.PermissionsFor(in.Role),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict("admin %s already exists", in.Email)
		}
		return nil, err
	}
	return a, nil
}

type AdminUpdate struct {
	Name     *string      `json:"name" validate:"omitempty,max=100"`
	Role     *models.Role `json:"role" validate:"omitempty,oneof=super_admin admin moderator"`
	IsActive *bool        `json:"isActive"`
	Password *string      `json:"password" validate:"omitempty,min=8,max=72"`
}

func (s *Admins) Update(ctx context.Context, actor, id primitive.ObjectID, in AdminUpdate) (*models.Admin, error) {
	if err := checked(validation.Struct(in)); err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == id && in.IsActive != nil && !*in.IsActive {
		return nil, invalid("you cannot deactivate your own account")
	}
	demoted := in.Role != nil && *in.Role != models.RoleSuperAdmin
	deactivated := in.IsActive != nil && !*in.IsActive
	if a.Role == models.RoleSuperAdmin && a.IsActive && (demoted || deactivated) {
		if err := s.keepOneSuperAdmin(ctx, id); err != nil {
			return nil, err
		}
	}

	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		a.Role = *in.Role
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	if in.Password != nil {
		hashed, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		a.Password = hashed
	}
	a.Permissions = auth.PermissionsFor(a.Role)
	a.UpdatedAt = s.now()
	if err := s.admins.Replace(ctx, a); err != nil {
		return nil, lookup("admin", err)
	}
	return a, nil
}

func (s *Admins) Delete(ctx context.Context, actor, id primitive.ObjectID) error {
	if actor == id {
		return invalid("you cannot delete your own account")
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Role == models.RoleSuperAdmin && a.IsActive {
		if err := s.keepOneSuperAdmin(ctx, id); err != nil {
			return err
		}
	}
	return lookup("admin", s.admins.Delete(ctx, id))
}

// keepOneSuperAdmin fails when id is the only active super admin.
func (s *Admins) keepOneSuperAdmin(ctx context.Context, id primitive.ObjectID) error {
	active, err := s.admins.List(ctx, true)
	if err != nil {
		return err
	}
	for _, other := range active {
		if other.ID != id && other.Role == models.RoleSuperAdmin {
			return nil
		}
	}
	return stateError("the last active super admin cannot be removed")
}

// Seed creates the first super admin when the collection is empty.
func (s *Admins) Seed(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	n, err := s.admins.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	a, err := s.Create(ctx, AdminInput{
		Name:     "Super Admin",
		Email:    email,
		Password: password,
		Role:     models.RoleSuperAdmin,
	})
	if err != nil {
		return err
	}
	logger.WithModule("admins").WithField("email", a.Email).Info("seeded super admin")
	return nil
}
