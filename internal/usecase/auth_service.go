package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"furnish-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 7 * 24 * time.Hour

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByID(ctx context.Context, id uint) (*domain.User, error)
}

type AuthService struct {
	Store     UserStore
	JWTSecret string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Now        func() time.Time
}

type Claims struct {
	UserID uint        `json:"userId"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=160"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=120"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) hash(password string) (string, error) {
	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := check(in).Err(); err != nil {
		return nil, err
	}
	u, err := s.createUser(ctx, in, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// CreateAdmin is used by the operator CLI.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, name string) (*domain.User, error) {
	in := RegisterInput{Email: email, Password: password, Name: name}
	if err := check(in).Err(); err != nil {
		return nil, err
	}
	return s.createUser(ctx, in, domain.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	h, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: h,
		Role:         role,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, storeErr(err, "user", "email")
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := check(in).Err(); err != nil {
		return nil, err
	}
	u, err := s.Store.UserByEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		// same cost as a real comparison
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z0dsBJZ6rH8.Le2b9Ar/L6ma"), []byte(in.Password))
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, ErrUnauthorized
	}
	return s.session(u)
}

func (s *AuthService) session(u *domain.User) (*Session, error) {
	tok, err := s.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, User: u}, nil
}

func (s *AuthService) Issue(u *domain.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.JWTSecret))
}

// Verify parses a bearer token into the caller identity.
func (s *AuthService) Verify(token string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.UserID == 0 {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *AuthService) Me(ctx context.Context, who Identity) (*domain.User, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	u, err := s.Store.UserByID(ctx, who.UserID)
	if err != nil {
		return nil, storeErr(err, "user", "")
	}
	return u, nil
}
