package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv("OUTREACH_TEST_KEY", " from-env ")

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{
			name:   "file wins",
			src:    Source{File: keyFile, Value: "inline", Env: "OUTREACH_TEST_KEY"},
			expect: "from-file",
		},
		{
			name:   "inline before env",
			src:    Source{Value: " inline ", Env: "OUTREACH_TEST_KEY"},
			expect: "inline",
		},
		{
			name:   "env fallback",
			src:    Source{Env: "OUTREACH_TEST_KEY"},
			expect: "from-env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	t.Setenv("OUTREACH_EMPTY_KEY", "")

	tests := []struct {
		name    string
		src     Source
		message string
	}{
		{name: "missing file", src: Source{Name: "api key", File: filepath.Join(dir, "nope")}, message: "reading api key from file"},
		{name: "empty file", src: Source{Name: "api key", File: empty}, message: "is empty"},
		{name: "empty env", src: Source{Name: "api key", Env: "OUTREACH_EMPTY_KEY"}, message: "OUTREACH_EMPTY_KEY is empty"},
		{name: "nothing configured", src: Source{}, message: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("expected error to contain %q, got %v", tt.message, err)
			}
		})
	}
}
