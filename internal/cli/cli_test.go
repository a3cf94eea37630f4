package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const shopPage = `<html><body>
<nav id="nav"><a id="home" href="/" data-analytics-section="nav">home</a></nav>
<div class="analytics-exclude"><a id="admin" href="/admin">admin</a></div>
</body></html>`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CLICKTRACE_DATABASE", filepath.Join(t.TempDir(), "unused.db"))

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.html")
	if err := os.WriteFile(path, []byte(shopPage), 0o644); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	return path
}

func TestSimulateDryRun(t *testing.T) {
	out, err := runCLI(t, "simulate", "--page", writePage(t), "--url", "/t", "--dry-run",
		"--insert", `#nav=<a id="late" href="/late">late</a>`,
		"--click", "#home", "--click", "#late", "--click", "#admin")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	wantLines := []string{
		"click #home id=home prevented=true",
		"click #late id=late prevented=true",
		"click #admin id=admin prevented=false",
		"navigate http://localhost/admin",
		"POST http://localhost/t ",
		"section=nav",
		"navigate http://localhost/late",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "POST "); n != 2 {
		t.Errorf("Expected 2 posts, got %d:\n%s", n, out)
	}
}

func TestSimulateRequiresPage(t *testing.T) {
	if _, err := runCLI(t, "simulate", "--click", "a"); err == nil {
		t.Error("Expected an error without --page")
	}
}

func TestSimulateWatchNeedsConfig(t *testing.T) {
	if _, err := runCLI(t, "simulate", "--page", writePage(t), "--watch"); err == nil {
		t.Error("Expected an error for --watch without --config")
	}
}

func TestSimulateBadInsert(t *testing.T) {
	if _, err := runCLI(t, "simulate", "--page", writePage(t), "--insert", "no-separator"); err == nil {
		t.Error("Expected an error for a malformed --insert")
	}
}
