package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

func memoryOpener(t *testing.T) (Opener, *service.AuthService) {
	t.Helper()
	repos := repository.NewSet(nil)
	authService := service.NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost, PasswordMinLength: 8}, service.AuthDependencies{
		UserRepo: repos.Users,
		Tokens:   auth.NewTokenManager("test", time.Hour),
	})
	rt := &Runtime{
		Logger:   zap.NewNop(),
		Postgres: &persistence.Postgres{},
		Auth:     authService,
		Users:    service.NewUserService(service.UserDependencies{UserRepo: repos.Users}),
	}
	return func(context.Context) (*Runtime, func(), error) { return rt, nil, nil }, authService
}

func run(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestUserCommands(t *testing.T) {
	open, authService := memoryOpener(t)
	ctx := context.Background()

	out, err := run(t, open, "user", "create-admin", "--email", "root@example.com", "--password", "adminpass1")
	if err != nil || !strings.HasPrefix(out, "CREATED root@example.com") {
		t.Fatalf("create-admin: %q %v", out, err)
	}
	out, err = run(t, open, "user", "create-admin", "--email", "root@example.com")
	if err != nil || !strings.HasPrefix(out, "READY root@example.com") {
		t.Fatalf("create-admin again: %q %v", out, err)
	}

	if _, err := authService.RegisterUser(ctx, service.RegisterInput{Email: "pat@example.com", Password: "password123"}); err != nil {
		t.Fatal(err)
	}

	out, err = run(t, open, "user", "list", "--pending", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var pending []map[string]any
	if err := json.Unmarshal([]byte(out), &pending); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(pending) != 1 || pending[0]["email"] != "pat@example.com" {
		t.Fatalf("pending = %v", pending)
	}

	if out, err := run(t, open, "user", "approve", "pat@example.com"); err != nil || out != "APPROVED pat@example.com\n" {
		t.Fatalf("approve: %q %v", out, err)
	}
	if _, _, err := authService.Login(ctx, "pat@example.com", "password123"); err != nil {
		t.Fatalf("login after approve: %v", err)
	}

	if out, err := run(t, open, "user", "set-role", "pat@example.com", "admin"); err != nil || out != "ROLE pat@example.com ADMIN\n" {
		t.Fatalf("set-role: %q %v", out, err)
	}
	if _, err := run(t, open, "user", "set-role", "pat@example.com", "owner"); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := run(t, open, "user", "approve", "ghost@example.com"); err == nil {
		t.Fatal("expected not found error")
	}

	out, err = run(t, open, "user", "list")
	if err != nil || !strings.Contains(out, "EMAIL") || strings.Count(out, "@example.com") != 2 {
		t.Fatalf("list: %q %v", out, err)
	}
}

func TestMigrateCommand(t *testing.T) {
	open, _ := memoryOpener(t)
	out, err := run(t, open, "migrate", "--list")
	if err != nil || !strings.Contains(out, "001_init.sql") {
		t.Fatalf("migrate --list: %q %v", out, err)
	}
	if _, err := run(t, open, "migrate"); err == nil {
		t.Fatal("expected error without a database")
	}
}
