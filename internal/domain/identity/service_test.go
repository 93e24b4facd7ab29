package identity

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/pkg/apperror"
)

type mockUserRepo struct {
	byID    map[string]*User
	byEmail map[string]string
	created int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: map[string]*User{}, byEmail: map[string]string{}}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	key := strings.ToLower(u.Email)
	if _, dup := m.byEmail[key]; dup {
		return apperror.Conflict("user with email %s already exists", u.Email)
	}
	m.created++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", m.created)
	}
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	m.byEmail[key] = u.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("user %s not found", id)
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, apperror.NotFound("user %s not found", email)
	}
	return m.byID[id], nil
}

func (m *mockUserRepo) List(_ context.Context, q, role string, limit int) ([]*User, error) {
	var out []*User
	for _, u := range m.byID {
		if role != "" && u.Role != role {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Email), strings.ToLower(q)) {
			continue
		}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.byID[u.ID]; !ok {
		return apperror.NotFound("user %s not found", u.ID)
	}
	m.byID[u.ID] = u
	return nil
}

func newTestService() (*Service, *mockUserRepo) {
	repo := newMockUserRepo()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewService(repo, issuer, zerolog.Nop()), repo
}

func TestCreateUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserInput{
		Email:    "Ops@CBF.Local",
		FullName: "Operações",
		Role:     "fed_user",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Email != "ops@cbf.local" {
		t.Errorf("email not lowercased: %s", u.Email)
	}
	if u.Role != auth.RoleFedUser {
		t.Errorf("role not normalized: %s", u.Role)
	}
	if !u.IsActive {
		t.Error("new users must start active")
	}
	if u.PasswordHash == "s3cret-pass" {
		t.Error("password stored in clear")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")) != nil {
		t.Error("stored hash does not verify the password")
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateUserInput
	}{
		{"bad email", CreateUserInput{Email: "not-an-email", FullName: "x", Role: "ADMIN_CBF", Password: "longenough"}},
		{"missing name", CreateUserInput{Email: "a@b.c", Role: "ADMIN_CBF", Password: "longenough"}},
		{"bad role", CreateUserInput{Email: "a@b.c", FullName: "x", Role: "SUPERUSER", Password: "longenough"}},
		{"short password", CreateUserInput{Email: "a@b.c", FullName: "x", Role: "ADMIN_CBF", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateUser(ctx, tc.in); !apperror.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, CreateUserInput{
		Email: "lab@cbf.local", FullName: "Lab", Role: auth.RoleLabUser, Password: "lab-password",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	token, u, err := svc.Login(ctx, "lab@cbf.local", "lab-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" || u.Role != auth.RoleLabUser {
		t.Errorf("unexpected login result: token=%q role=%s", token, u.Role)
	}

	if _, _, err := svc.Login(ctx, "lab@cbf.local", "wrong"); !apperror.IsUnauthorized(err) {
		t.Errorf("wrong password: expected unauthorized, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "ghost@cbf.local", "whatever"); !apperror.IsUnauthorized(err) {
		t.Errorf("unknown email: expected unauthorized, got %v", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserInput{
		Email: "fed@cbf.local", FullName: "Fed", Role: auth.RoleFedUser, Password: "fed-password",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	inactive := false
	if _, err := svc.UpdateUser(ctx, u.ID, UpdateUserInput{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, _, err := svc.Login(ctx, "fed@cbf.local", "fed-password"); !apperror.IsUnauthorized(err) {
		t.Errorf("inactive user: expected unauthorized, got %v", err)
	}
}

func TestEnsureInitialAdmin(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if err := svc.EnsureInitialAdmin(ctx, "admin@cbf.local", "bootstrap-pass"); err != nil {
		t.Fatalf("EnsureInitialAdmin: %v", err)
	}
	if repo.created != 1 {
		t.Fatalf("expected one user, got %d", repo.created)
	}

	// Second call is a no-op.
	if err := svc.EnsureInitialAdmin(ctx, "admin@cbf.local", "bootstrap-pass"); err != nil {
		t.Fatalf("second EnsureInitialAdmin: %v", err)
	}
	if repo.created != 1 {
		t.Errorf("bootstrap must be idempotent, got %d users", repo.created)
	}

	// Empty password disables bootstrap entirely.
	svc2, repo2 := newTestService()
	if err := svc2.EnsureInitialAdmin(ctx, "admin@cbf.local", ""); err != nil {
		t.Fatalf("EnsureInitialAdmin without password: %v", err)
	}
	if repo2.created != 0 {
		t.Errorf("expected no user without a password, got %d", repo2.created)
	}
}

func TestUpdateUserRotatesPassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserInput{
		Email: "aud@cbf.local", FullName: "Aud", Role: auth.RoleAuditor, Password: "first-password",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	next := "second-password"
	if _, err := svc.UpdateUser(ctx, u.ID, UpdateUserInput{Password: &next}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if _, _, err := svc.Login(ctx, "aud@cbf.local", "first-password"); !apperror.IsUnauthorized(err) {
		t.Errorf("old password must stop working, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "aud@cbf.local", "second-password"); err != nil {
		t.Errorf("new password must work: %v", err)
	}
}
