package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quiz-api/internal/auth"
	"quiz-api/internal/config"
	"quiz-api/pkg/database/dbtest"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestCreateUserCommand(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "quiz.db")
	path := writeConfig(t, "database:\n  driver: sqlite\n  dsn: "+dsn+"\nauth:\n  secret: s\n")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "create-user", "--username", "carol", "--password", "pw", "--admin"})
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("create-user: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	db, err := openDatabase(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeDatabase(db)
	user, err := newAuthService(db, cfg).Authenticate(context.Background(), "carol", "pw")
	if err != nil || !user.IsAdmin {
		t.Fatalf("authenticate carol: %+v, %v", user, err)
	}
}

func TestCreateUserRequiresFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", writeConfig(t, ""), "create-user", "--username", "dave"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--password") {
		t.Fatalf("expected missing flag error, got %v", err)
	}
}

func TestBootstrapUsers(t *testing.T) {
	db := dbtest.Open(t)
	service := auth.NewService(auth.NewRepository(db), "s", 0)
	cfg := config.Default()
	cfg.Auth.TestUser = config.User{}
	ctx := context.Background()

	if err := bootstrapUsers(ctx, service, cfg); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	cfg.Auth.Admin.Password = "rotated"
	if err := bootstrapUsers(ctx, service, cfg); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if _, err := service.Authenticate(ctx, "admin", "rotated"); err != nil {
		t.Fatalf("rotated password rejected: %v", err)
	}
	if _, err := service.Authenticate(ctx, "test", "test"); err == nil {
		t.Fatalf("disabled test user was created")
	}
}

func TestConnectRedisWithoutAddress(t *testing.T) {
	if rc := connectRedis(context.Background(), config.Default()); rc != nil {
		t.Fatalf("expected no cache without an address")
	}
}
