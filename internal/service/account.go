package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/classquiz/internal/model"
)

// Register creates an account. A taken email is reported as a validation
// error on the email field.
func (s *Service) Register(ctx context.Context, reg model.Registration) (model.User, error) {
	reg.Email = normalizeEmail(reg.Email)
	if err := model.Validate(reg); err != nil {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return model.User{}, model.NewValidationError(err, model.FieldError{Field: "password", Tag: "max", Param: "72"})
	}
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{
		Email:        reg.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		Role:         reg.Role,
	}
	if reg.BirthDate != "" {
		// Format already checked by the datetime rule.
		b, _ := time.Parse(time.DateOnly, reg.BirthDate)
		u.BirthDate = &b
	}

	u.ID, err = s.store.CreateUser(ctx, u)
	if errors.Is(err, model.ErrAlreadyExists) {
		return model.User{}, model.NewValidationError(err, model.FieldError{Field: "email", Tag: "unique"})
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords both
// yield model.ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, creds model.Credentials) (model.User, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := model.Validate(creds); err != nil {
		return model.User{}, err
	}
	u, err := s.store.GetUserByEmail(ctx, creds.Email)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		return model.User{}, model.ErrUnauthorized
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User returns the account with the given id.
func (s *Service) User(ctx context.Context, id int64) (model.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// Instructor returns the instructor account with the given email.
func (s *Service) Instructor(ctx context.Context, email string) (model.User, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return model.User{}, fmt.Errorf("find instructor %s: %w", email, err)
	}
	if u.Role != model.RoleInstructor {
		return model.User{}, fmt.Errorf("user %s is not an instructor: %w", email, model.ErrForbidden)
	}
	return u, nil
}
