package identity

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/pkg/apperror"
	"github.com/dcs/dcs/pkg/enums"
)

var userRoles = enums.NewSet("role", auth.Roles()...)

type Service struct {
	repo   Repository
	issuer *auth.TokenIssuer
	log    zerolog.Logger
}

func NewService(repo Repository, issuer *auth.TokenIssuer, log zerolog.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, log: log}
}

type CreateUserInput struct {
	Email        string  `json:"email"`
	FullName     string  `json:"fullName"`
	Role         string  `json:"role"`
	Password     string  `json:"password"`
	FederationID *string `json:"federationId"`
	ClubID       *string `json:"clubId"`
	LabID        *string `json:"labId"`
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.Validation("a valid email is required")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, apperror.Validation("fullName is required")
	}
	role, err := userRoles.Normalize(in.Role)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < 8 {
		return nil, apperror.Validation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         role,
		PasswordHash: string(hash),
		FederationID: in.FederationID,
		ClubID:       in.ClubID,
		LabID:        in.LabID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, q, role string, limit int) ([]*User, error) {
	if role != "" {
		normalized, err := userRoles.Normalize(role)
		if err != nil {
			return nil, err
		}
		role = normalized
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, strings.TrimSpace(q), role, limit)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

type UpdateUserInput struct {
	FullName *string `json:"fullName"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
	IsActive *bool   `json:"isActive"`
}

func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		if strings.TrimSpace(*in.FullName) == "" {
			return nil, apperror.Validation("fullName must not be blank")
		}
		u.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Role != nil {
		role, err := userRoles.Normalize(*in.Role)
		if err != nil {
			return nil, err
		}
		u.Role = role
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			return nil, apperror.Validation("password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials and returns a signed access token. Bad email
// and bad password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperror.IsNotFound(err) {
			return "", nil, apperror.Unauthorized("invalid credentials")
		}
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, apperror.Unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, apperror.Unauthorized("invalid credentials")
	}

	id := auth.Identity{UserID: u.ID, Role: u.Role}
	if u.FederationID != nil {
		id.FederationID = *u.FederationID
	}
	if u.ClubID != nil {
		id.ClubID = *u.ClubID
	}
	if u.LabID != nil {
		id.LabID = *u.LabID
	}
	token, err := s.issuer.Issue(id)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// EnsureInitialAdmin creates the bootstrap ADMIN_CBF account when no user
// owns the given email yet. Safe to call on every start.
func (s *Service) EnsureInitialAdmin(ctx context.Context, email, password string) error {
	if password == "" {
		return nil
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !apperror.IsNotFound(err) {
		return err
	}

	_, err := s.CreateUser(ctx, CreateUserInput{
		Email:    email,
		FullName: "Administrador",
		Role:     auth.RoleAdmin,
		Password: password,
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("email", email).Msg("bootstrap admin created")
	return nil
}
