package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/repositories"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/taxonomy"
	tu "github.com/desertthunder/gmx/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			transport := tu.NewFakeService(nil, 0)
			session := services.StaticTokenSession("token")

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Transport:  transport,
				Session:    session,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.transport != transport {
				t.Error("expected transport to be set")
			}
			if runner.session != session {
				t.Error("expected session to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses configured timeout", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Service.Timeout = 7 * time.Second
			runner := NewRunner(RunnerOpts{
				Config:     config,
				HTTPClient: nil,
			})

			if runner.httpClient == nil || runner.httpClient == http.DefaultClient {
				t.Fatal("expected a dedicated httpClient")
			}
			if runner.httpClient.Timeout != 7*time.Second {
				t.Errorf("expected 7s timeout, got %v", runner.httpClient.Timeout)
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with empty configPath", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "",
			})

			if runner.configPath != "" {
				t.Errorf("expected empty configPath, got %s", runner.configPath)
			}
		})
	})

	t.Run("loadSession", func(t *testing.T) {
		t.Run("access token wins over capture", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Service.AccessToken = "token"
			config.Service.CurlPath = "/does/not/exist.curl"
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.DiscardLogger()})

			session, err := runner.loadSession()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if session == nil {
				t.Fatal("expected a token session")
			}
		})

		t.Run("unreadable capture is missing credentials", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Service.AccessToken = ""
			config.Service.CurlPath = filepath.Join(t.TempDir(), "missing.curl")
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.DiscardLogger()})

			_, err := runner.loadSession()
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("no session sends unauthenticated", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Service.AccessToken = ""
			config.Service.CurlPath = ""
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.DiscardLogger()})

			session, err := runner.loadSession()
			if err != nil || session != nil {
				t.Errorf("expected nil session and no error, got %v, %v", session, err)
			}
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("missing file keeps current config", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.DiscardLogger()})

			if err := runner.loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config != config {
				t.Error("expected config to be kept")
			}
		})

		t.Run("existing file replaces config", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := shared.CreateConfigFile(path); err != nil {
				t.Fatalf("failed to create config: %v", err)
			}
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.DiscardLogger()})

			if err := runner.loadConfig(path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config == config {
				t.Error("expected config to be replaced")
			}
			if runner.configPath != path {
				t.Errorf("expected configPath %s, got %s", path, runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writes plain text without formatting", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("simple text")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "simple text" {
				t.Errorf("expected 'simple text', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func newCommandRunner(t *testing.T) (*Runner, *tu.FakeService, *bytes.Buffer) {
	t.Helper()

	fake := tu.NewFakeService(nil, 0)
	fake.Seed(
		tu.NewTrack("42", "A", "Band", "LP"),
		tu.NewTrack("43", "Eleven", "Other Band", "EP"),
	)

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "gmx.db")
	config.Reconcile = shared.ReconcileConfig{
		Settle:       time.Millisecond,
		MaxWait:      time.Second,
		PollInterval: 5 * time.Millisecond,
		Backoff:      2,
		MaxInterval:  50 * time.Millisecond,
	}
	config.Scenarios.SongID = "42"
	config.Scenarios.UploadFile = ""

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:    config,
		Transport: fake,
		Session:   services.StaticTokenSession("token"),
		Logger:    shared.DiscardLogger(),
		Output:    output,
	})
	t.Cleanup(func() { runner.Close() })
	return runner, fake, output
}

func runCommand(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	argv := append([]string{"gmx", "--config", filepath.Join(t.TempDir(), "missing.toml")}, args...)
	return r.app().Run(context.Background(), argv)
}

func TestPlaylistCommands(t *testing.T) {
	t.Run("create then list", func(t *testing.T) {
		runner, fake, output := newCommandRunner(t)

		if err := runCommand(t, runner, "playlist", "create", "Road Trip"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "✓ Playlist created: Road Trip") {
			t.Errorf("expected create confirmation, got %q", output.String())
		}
		if names := fake.PlaylistNames(); len(names) != 1 || names[0] != "Road Trip" {
			t.Errorf("expected one playlist, got %v", names)
		}

		output.Reset()
		if err := runCommand(t, runner, "playlist", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Found 1 playlist(s)") {
			t.Errorf("expected one listed playlist, got %q", output.String())
		}
	})

	t.Run("add reports songs already present", func(t *testing.T) {
		runner, _, output := newCommandRunner(t)

		if err := runCommand(t, runner, "playlist", "create", "Mix"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := runCommand(t, runner, "playlist", "add", "pl-1", "42"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		output.Reset()
		if err := runCommand(t, runner, "playlist", "add", "pl-1", "42", "43"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		result := output.String()
		if !strings.Contains(result, "Added 1 of 2") {
			t.Errorf("expected one new song, got %q", result)
		}
		if !strings.Contains(result, "Already present: 42") {
			t.Errorf("expected 42 reported as present, got %q", result)
		}
	})

	t.Run("missing name is a usage error", func(t *testing.T) {
		runner, _, _ := newCommandRunner(t)

		err := runCommand(t, runner, "playlist", "create")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if code := exitCode(err); code != 2 {
			t.Errorf("expected exit code 2, got %d", code)
		}
	})
}

func TestTrackEdit(t *testing.T) {
	t.Run("verifies the written change", func(t *testing.T) {
		runner, fake, output := newCommandRunner(t)

		if err := runCommand(t, runner, "track", "edit", "--set", "rating=4", "--set", "genre=Jazz", "42"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(output.String(), "Track 42: verified") {
			t.Errorf("expected verified report, got %q", output.String())
		}
		rec, _ := fake.Track("42")
		if rec["rating"] != int64(4) || rec["genre"] != "Jazz" {
			t.Errorf("expected rating 4 and genre Jazz, got %v and %v", rec["rating"], rec["genre"])
		}
	})

	t.Run("no-verify only sends", func(t *testing.T) {
		runner, _, output := newCommandRunner(t)

		if err := runCommand(t, runner, "track", "edit", "--no-verify", "--set", "year=1999", "42"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Change sent for 42 (year)") {
			t.Errorf("expected send confirmation, got %q", output.String())
		}
	})

	t.Run("writes the report to a file", func(t *testing.T) {
		runner, _, _ := newCommandRunner(t)
		path := filepath.Join(t.TempDir(), "report.md")

		err := runCommand(t, runner, "track", "edit", "--format", "markdown", "--output", path, "--set", "rating=2", "42")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "42") {
			t.Error("expected exported report to name the track")
		}
	})
}

func TestParseAssignments(t *testing.T) {
	tax := taxonomy.Default()

	t.Run("types values by field kind", func(t *testing.T) {
		delta, err := parseAssignments(tax, []string{"rating=3", "name=New Name", "comment=null", "deleted=false"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if delta["rating"] != int64(3) {
			t.Errorf("expected int64 rating, got %T", delta["rating"])
		}
		if delta["name"] != "New Name" {
			t.Errorf("expected name, got %v", delta["name"])
		}
		if v, ok := delta["comment"]; !ok || v != nil {
			t.Errorf("expected comment cleared, got %v", v)
		}
		if delta["deleted"] != false {
			t.Errorf("expected bool deleted, got %v", delta["deleted"])
		}
	})

	tests := []struct {
		name  string
		pairs []string
		want  error
	}{
		{"no assignments", nil, shared.ErrMissingArgument},
		{"missing equals", []string{"rating"}, shared.ErrInvalidArgument},
		{"unknown field", []string{"mood=happy"}, shared.ErrUnclassifiedField},
		{"not an integer", []string{"rating=five"}, shared.ErrInvalidArgument},
		{"clearing an editable field", []string{"name=null"}, shared.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAssignments(tax, tt.pairs)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("values outside the perturbation range are accepted", func(t *testing.T) {
		delta, err := parseAssignments(tax, []string{"rating=9"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if delta["rating"] != int64(9) {
			t.Errorf("expected int64(9), got %v (%T)", delta["rating"], delta["rating"])
		}
	})
}

func TestScenarioCommands(t *testing.T) {
	t.Run("run records history", func(t *testing.T) {
		runner, _, output := newCommandRunner(t)

		if err := runCommand(t, runner, "scenario", "run", "search"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "search") {
			t.Errorf("expected search outcome, got %q", output.String())
		}

		output.Reset()
		if err := runCommand(t, runner, "history", "runs"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "search") {
			t.Errorf("expected recorded search run, got %q", output.String())
		}
	})

	t.Run("upload without a file is not run", func(t *testing.T) {
		runner, _, _ := newCommandRunner(t)

		err := runCommand(t, runner, "scenario", "run", "search", "upload-delete")
		if err == nil {
			t.Fatal("expected upload-delete build error")
		}
		if !strings.Contains(err.Error(), "upload-delete") {
			t.Errorf("expected error naming upload-delete, got %v", err)
		}
	})

	t.Run("exact names leave an unsuffixed playlist", func(t *testing.T) {
		runner, fake, _ := newCommandRunner(t)
		fake.Inject(services.OpRenamePlaylist, http.StatusInternalServerError, "oops")

		if err := runCommand(t, runner, "scenario", "run", "--exact-names", "playlist-lifecycle"); err == nil {
			t.Fatal("expected the failed run to fail the command")
		}
		names := fake.PlaylistNames()
		if len(names) != 1 || names[0] != "test playlist" {
			t.Errorf("expected [test playlist], got %v", names)
		}
	})

	t.Run("requires names or --all", func(t *testing.T) {
		runner, _, _ := newCommandRunner(t)

		if err := runCommand(t, runner, "scenario", "run"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		runner, _, output := newCommandRunner(t)

		if err := runCommand(t, runner, "scenario", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "playlist-lifecycle") {
			t.Errorf("expected scenario names, got %q", output.String())
		}
	})
}

func TestCleanup(t *testing.T) {
	runner, fake, output := newCommandRunner(t)

	if err := runCommand(t, runner, "playlist", "create", "test playlist"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	db, err := runner.database()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	repo := repositories.NewLeftoverRepository(db)
	for _, l := range []*models.Leftover{
		models.NewLeftover(0, "run-1", models.LeftoverPlaylist, "pl-1", "test playlist"),
		models.NewLeftover(0, "run-1", models.LeftoverTrack, "gone-7", "upload.mp3"),
	} {
		if err := repo.Create(l); err != nil {
			t.Fatalf("failed to create leftover: %v", err)
		}
	}

	t.Run("dry run only lists", func(t *testing.T) {
		output.Reset()
		if err := runCommand(t, runner, "cleanup", "--dry-run"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Would delete 2 leftover(s)") {
			t.Errorf("expected dry run listing, got %q", output.String())
		}
		if len(fake.PlaylistNames()) != 1 {
			t.Error("expected playlist to survive a dry run")
		}
	})

	t.Run("deletes live entities and resolves gone ones", func(t *testing.T) {
		output.Reset()
		if err := runCommand(t, runner, "cleanup"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Cleaned up 2 of 2 leftover(s)") {
			t.Errorf("expected both cleaned, got %q", output.String())
		}
		if len(fake.PlaylistNames()) != 0 {
			t.Errorf("expected playlist deleted, got %v", fake.PlaylistNames())
		}

		output.Reset()
		if err := runCommand(t, runner, "history", "leftovers"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.Contains(output.String(), "pl-1") {
			t.Errorf("expected no unresolved leftovers, got %q", output.String())
		}
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		err := runCommand(t, runner, "cleanup", "--kind", "album")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("database creates config and schema", func(t *testing.T) {
		runner, _, output := newCommandRunner(t)
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")

		wd := tu.MustGetwd(t)
		tu.MustChdir(t, dir)
		defer tu.MustChdir(t, wd)

		err := runner.app().Run(context.Background(), []string{"gmx", "--config", configPath, "setup", "database"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, configPath)
		tu.AssertFileExists(t, filepath.Join(dir, "gmx.db"))
		if !strings.Contains(output.String(), "✓ Database ready") {
			t.Errorf("expected ready message, got %q", output.String())
		}
	})

	t.Run("session saves the capture", func(t *testing.T) {
		runner, _, output := newCommandRunner(t)
		dir := filepath.Join(t.TempDir(), "gmx")
		path := filepath.Join(dir, "session.curl")
		capture := `curl 'https://music.example.com/api/tracks' -H 'Cookie: SID=abc; HSID=def'`

		if err := runCommand(t, runner, "setup", "session", "--curl", capture, "--output", path, "--check"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertDirExists(t, dir)
		if tu.MustReadFile(t, path) != capture {
			t.Error("expected the raw capture to be saved")
		}
		result := output.String()
		if !strings.Contains(result, "✓ Session captured (2 cookie(s))") {
			t.Errorf("expected cookie count, got %q", result)
		}
		if !strings.Contains(result, "✓ Session works") {
			t.Errorf("expected session check, got %q", result)
		}
	})

	t.Run("session without a cookie is rejected", func(t *testing.T) {
		runner, _, _ := newCommandRunner(t)

		err := runCommand(t, runner, "setup", "session", "--curl", `curl -H 'X-Client: web' https://music.example.com`)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("list: %w", shared.ErrSessionExpired), 3},
		{shared.ErrMissingCredentials, 3},
		{shared.ErrMissingArgument, 2},
		{shared.ErrInvalidArgument, 2},
		{shared.ErrTransport, 1},
		{errors.Join(shared.ErrRejected, shared.ErrSessionExpired), 3},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("expected exit code %d for %v, got %d", tt.want, tt.err, got)
		}
	}
}

func TestSandboxRouter(t *testing.T) {
	runner, fake, _ := newCommandRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	router := runner.sandboxRouter(ctx, fake.Handler())

	t.Run("healthz needs no credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("library needs credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tracks", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("healthz reports shutdown", func(t *testing.T) {
		cancel()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}
