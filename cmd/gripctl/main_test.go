package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gripid/tracker-core/internal/auth"
)

const testSecret = "gripctl-test-secret-at-least-32-chars"

// testConfig writes a config with a fresh database and returns its path.
func testConfig(t *testing.T, secret string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: "` + filepath.Join(dir, "gripid.db") + `"
logging:
  level: error
  format: text
security:
  jwt:
    secret: "` + secret + `"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestImportHistoryExport(t *testing.T) {
	cfg := testConfig(t, "")
	csv := writeFile(t, "stock.csv", "sn_no,imei_1,status,note\n"+
		"GRIPID-V6-001,356938035643809,In Stock,Batch 7\n"+
		"gripid-v6-001,,,\n"+
		",356938035643817,,\n")

	out, err := runCLI(t, "--config", cfg, "import", csv)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "added 1, skipped 1, failed 1") {
		t.Errorf("import output = %q", out)
	}
	if !strings.Contains(out, "SN already exists") || !strings.Contains(out, "Missing Serial Number") {
		t.Errorf("import log missing reasons: %q", out)
	}

	out, err = runCLI(t, "--config", cfg, "history", "Gripid-V6-001")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "In Stock") || !strings.Contains(out, "Batch 7") {
		t.Errorf("history output = %q", out)
	}

	out, err = runCLI(t, "--config", cfg, "history", "GRIPID-NOPE")
	if err != nil || !strings.Contains(out, "no history") {
		t.Errorf("unknown serial history = %q, %v", out, err)
	}

	dest := filepath.Join(t.TempDir(), "inventory.csv")
	out, err = runCLI(t, "--config", cfg, "export", dest)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out, "exported 1 devices") {
		t.Errorf("export output = %q", out)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "SN,IMEI 1,IMEI 2,Status,Added On\n") {
		t.Errorf("export content = %q", data)
	}

	// An export re-imports as all skipped.
	out, err = runCLI(t, "--config", cfg, "import", dest)
	if err != nil {
		t.Fatalf("re-import error = %v", err)
	}
	if !strings.Contains(out, "added 0, skipped 1, failed 0") {
		t.Errorf("re-import output = %q", out)
	}
}

func TestExport_XLSXFlag(t *testing.T) {
	cfg := testConfig(t, "")
	dest := filepath.Join(t.TempDir(), "inventory.out")

	if _, err := runCLI(t, "--config", cfg, "export", "--format", "xlsx", dest); err != nil {
		t.Fatalf("export error = %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("xlsx export is not a zip archive")
	}
}

func TestReconcile(t *testing.T) {
	cfg := testConfig(t, "")
	out, err := runCLI(t, "--config", cfg, "reconcile", "--repair")
	if err != nil {
		t.Fatalf("reconcile error = %v", err)
	}
	if !strings.Contains(out, "no status drift found") {
		t.Errorf("reconcile output = %q", out)
	}
}

func TestToken(t *testing.T) {
	cfg := testConfig(t, testSecret)

	out, err := runCLI(t, "--config", cfg, "token", "--subject", "scanner-3", "--role", "viewer", "--ttl", "5")
	if err != nil {
		t.Fatalf("token error = %v", err)
	}
	claims, err := auth.ParseToken(strings.TrimSpace(out), testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "scanner-3" || claims.Role != auth.RoleViewer {
		t.Errorf("claims = %+v", claims)
	}

	t.Run("auth disabled", func(t *testing.T) {
		if _, err := runCLI(t, "--config", testConfig(t, ""), "token", "--subject", "x"); err == nil {
			t.Error("token should fail without a JWT secret")
		}
	})
}

func TestUsageErrors(t *testing.T) {
	cfg := testConfig(t, testSecret)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"--config", cfg}},
		{"unknown command", []string{"--config", cfg, "frobnicate"}},
		{"unknown global flag", []string{"--nope"}},
		{"import without file", []string{"--config", cfg, "import"}},
		{"history with two serials", []string{"--config", cfg, "history", "A", "B"}},
		{"token without subject", []string{"--config", cfg, "token"}},
		{"token bad role", []string{"--config", cfg, "token", "--subject", "x", "--role", "root"}},
		{"reconcile extra arg", []string{"--config", cfg, "reconcile", "now"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if !errors.Is(err, errUsage) {
				t.Errorf("error = %v, want usage error", err)
			}
		})
	}
}

func TestImport_UnsupportedExtension(t *testing.T) {
	cfg := testConfig(t, "")
	path := writeFile(t, "stock.txt", "SN\nGRIPID001\n")

	if _, err := runCLI(t, "--config", cfg, "import", path); err == nil {
		t.Error("import of .txt should fail")
	}
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "--version")
	if err != nil || !strings.HasPrefix(out, "gripctl ") {
		t.Errorf("--version = %q, %v", out, err)
	}
}
