package shared

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{name: "basic normalization", in: "Test Playlist", want: "test playlist"},
		{name: "extra whitespace", in: "  Test   Playlist  ", want: "test playlist"},
		{name: "mixed case", in: "TeSt PlAyLiSt", want: "test playlist"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to provided writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("hello", "key", "value")

		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected log output to contain message, got %q", buf.String())
		}
	})

	t.Run("WithLogger adds fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "dispatch")
		logger.Info("call")

		if !strings.Contains(buf.String(), "component=dispatch") {
			t.Errorf("expected child logger fields, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "gmx.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		logger.Info("written")
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string length 36, got %d", len(a))
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := MarshalJSON(map[string]int{"a": 1}, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(string(data), "\n") {
		t.Error("expected pretty output to be indented")
	}

	data, err = MarshalJSON(map[string]int{"a": 1}, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("unexpected compact output %s", data)
	}
}

func TestOpenBrowser(t *testing.T) {
	t.Run("rejects non-http URLs", func(t *testing.T) {
		for _, u := range []string{"file:///etc/passwd", "javascript:alert(1)", "not a url"} {
			if err := OpenBrowser(u); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for %q, got %v", u, err)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		err := OpenBrowser("https://stream.example.com/song/42")
		if err == nil || !strings.Contains(err.Error(), "unsupported platform") {
			t.Errorf("expected unsupported platform error, got %v", err)
		}
	})

	t.Run("platform commands", func(t *testing.T) {
		for goos, bin := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
			cmd, err := browserCommand(goos, "https://example.com")
			if err != nil {
				t.Fatalf("expected no error for %s, got %v", goos, err)
			}
			if filepath.Base(cmd.Args[0]) != bin {
				t.Errorf("expected %s for %s, got %s", bin, goos, cmd.Args[0])
			}
		}
	})
}
