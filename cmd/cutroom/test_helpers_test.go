package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cutroom/internal/api"
	"cutroom/internal/testsupport"
)

type cliTestEnv struct {
	fb         *testsupport.FakeBackend
	configPath string
	baseDir    string
	exportDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	fb := testsupport.NewFakeBackend(t)
	t.Setenv("CUTROOM_BACKEND_URL", fb.URL)
	t.Setenv("CUTROOM_LOG_LEVEL", "error")

	env := &cliTestEnv{
		fb:         fb,
		configPath: filepath.Join(homeDir, ".config", "cutroom", "config.toml"),
		baseDir:    base,
		exportDir:  filepath.Join(base, "exports"),
	}
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[backend]
base_url = %q
retries = 0
timeout_seconds = 5

[paths]
state_dir = %q
log_dir = %q
export_dir = %q

[progress]
refresh_delay_ms = 0

[logging]
level = "error"

[preview]
bind = "127.0.0.1:0"
`, env.fb.URL,
		filepath.Join(env.baseDir, "state"),
		filepath.Join(env.baseDir, "logs"),
		env.exportDir,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// serveProject answers GET /api/project/{id} with project.
func (env *cliTestEnv) serveProject(project api.Project) {
	env.fb.JSON(http.MethodGet, "/api/project/"+project.Metadata.ID, http.StatusOK, project)
}

// createProject registers the project with the backend and runs
// `projects create` so the workspace knows about it.
func (env *cliTestEnv) createProject(t *testing.T, project api.Project) {
	t.Helper()
	meta := project.Metadata
	env.fb.JSON(http.MethodPost, "/api/project/create", http.StatusOK, api.CreateProjectResponse{ProjectID: meta.ID, Metadata: meta})
	env.serveProject(project)
	if _, stderr, err := runCLI(t, env, nil, "projects", "create", meta.Title); err != nil {
		t.Fatalf("projects create: %v (stderr=%s)", err, stderr)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	cmd.SetIn(stdin)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substring string) {
	t.Helper()
	if !strings.Contains(output, substring) {
		t.Fatalf("expected output to contain %q, got: %s", substring, output)
	}
}
