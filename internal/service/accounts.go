package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"crackers-backend/internal/auth"
	"crackers-backend/internal/models"
	"crackers-backend/internal/store"
	"crackers-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Accounts covers customer registration, login, profile and the address book.
type Accounts struct {
	users  store.Users
	tokens *auth.Issuer
	now    func() time.Time
}

func NewAccounts(users store.Users, tokens *auth.Issuer) *Accounts {
	return &Accounts{users: users, tokens: tokens, now: time.Now}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,mail"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := checked(validation.Struct(in)); err != nil {
		return nil, "", err
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, "", conflict("email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, "", err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	now := s.now()
	u := &models.User{
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Password:  hashed,
		IsActive:  true,
		Addresses: []models.Address{},
		Cart:      []models.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", conflict("email already registered")
		}
		return nil, "", err
	}
	token, err := s.tokens.UserToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Accounts) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, "", ErrUnauthorized
	}
	if !u.IsActive {
		return nil, "", ErrForbidden
	}
	token, err := s.tokens.UserToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Accounts) Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, lookup("user", err)
	}
	return u, nil
}

type ProfileInput struct {
	Name  string `json:"name" validate:"omitempty,max=100"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

func (s *Accounts) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := checked(validation.Struct(in)); err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, id, in.Name, in.Phone); err != nil {
		return nil, lookup("user", err)
	}
	return s.Profile(ctx, id)
}

func (s *Accounts) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	if len(next) < 6 || len(next) > 72 {
		return invalid("password must be 6 to 72 characters")
	}
	u, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.Password, current) {
		return ErrUnauthorized
	}
	hashed, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return lookup("user", s.users.UpdatePassword(ctx, id, hashed))
}
