package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/pkg/apperr"
	"github.com/shashiranjanraj/zepto/pkg/auth"
	"github.com/shashiranjanraj/zepto/pkg/logger"
)

type AuthService struct {
	users repositories.UserRepository
}

func NewAuthService(store *repositories.Store) *AuthService {
	return &AuthService{users: store.Users}
}

type RegisterInput struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Phone    string `json:"phone"    validate:"required,digits=10"`
	Email    string `json:"email"    validate:"nullable,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Phone    string `json:"phone"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is what register and login hand back to the client.
type Session struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}

// Register creates a customer account. Accounts created here are never
// administrators.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err, "auth: hash password")
	}
	now := time.Now().UTC()
	u := &models.User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Conflict("User with this phone number already exists")
		}
		return nil, apperr.Internal(err, "auth: create user")
	}
	logger.WithCtx(ctx).Info("auth: user registered", "user_id", u.ID)
	return s.session(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.users.FindByPhone(ctx, in.Phone)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("User not found. Please sign up first")
	}
	if err != nil {
		return nil, apperr.Internal(err, "auth: find user")
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		logger.WithCtx(ctx).Warn("auth: failed login", "user_id", u.ID)
		return nil, apperr.Unauthorized("Invalid phone number or password")
	}
	return s.session(u)
}

// Me returns the actor's own profile.
func (s *AuthService) Me(ctx context.Context, actor auth.Actor) (*models.User, error) {
	u, err := s.users.FindByID(ctx, actor.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "auth: find user")
	}
	return u, nil
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	token, err := auth.GenerateToken(u.ID, u.IsAdmin)
	if err != nil {
		return nil, apperr.Internal(err, "auth: sign token")
	}
	return &Session{ID: u.ID, Name: u.Name, Phone: u.Phone, Email: u.Email, IsAdmin: u.IsAdmin, Token: token}, nil
}
