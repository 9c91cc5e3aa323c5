package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

// UserStore persists storefront accounts.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context, search string, page, limit int) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id int, role models.UserRole) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Generate(userID int, email, role string) (string, error)
}

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required,min=2,max=120"`
	Phone    string `json:"phone" binding:"omitempty,min=10,max=20"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateRoleRequest is the body of PUT /v1/admin/users/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=customer admin"`
}

// AuthResponse is returned after register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService registers and authenticates customers and admins.
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates a customer account and signs it in.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Role:         models.RoleCustomer,
		IsActive:     true,
	}
	if req.Phone != "" {
		phone := req.Phone
		user.Phone = &phone
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Int("user_id", user.ID).Msg("User registered")
	return s.issue(user)
}

// Login checks the password and returns a token carrying the user's role.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, utils.ErrUserNotFound) {
		log.Debug().Str("email", req.Email).Msg("Login for unknown e-mail")
		return nil, utils.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warn().Int("user_id", user.ID).Msg("Password verification failed")
		return nil, utils.ErrInvalidCredentials
	}
	if !user.IsActive {
		log.Warn().Int("user_id", user.ID).Msg("Login to inactive account")
		return nil, utils.ErrAccountInactive
	}

	log.Info().Int("user_id", user.ID).Str("role", string(user.Role)).Msg("Login successful")
	return s.issue(user)
}

// Me returns the signed-in user.
func (s *AuthService) Me(ctx context.Context, userID int) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) ListUsers(ctx context.Context, search string, page, limit int) ([]models.User, int, error) {
	return s.users.List(ctx, search, page, limit)
}

// UpdateRole changes a user's role. Admins cannot demote themselves.
func (s *AuthService) UpdateRole(ctx context.Context, actorID, userID int, role string) (*models.User, error) {
	if actorID == userID && role != string(models.RoleAdmin) {
		return nil, &utils.ValidationError{Fields: map[string]string{"role": "no puedes quitarte el rol de administrador"}}
	}
	if err := s.users.UpdateRole(ctx, userID, models.UserRole(role)); err != nil {
		return nil, err
	}
	log.Info().Int("actor_id", actorID).Int("user_id", userID).Str("role", role).Msg("User role updated")
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issue(user *models.User) (*AuthResponse, error) {
	token, err := s.tokens.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}
