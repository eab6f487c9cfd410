package envutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTypedGetters(t *testing.T) {
	t.Setenv("NEPQ_TEST_INT", "42")
	t.Setenv("NEPQ_TEST_BAD_INT", "forty")
	t.Setenv("NEPQ_TEST_BOOL", "yes")
	t.Setenv("NEPQ_TEST_SECS", "90")
	t.Setenv("NEPQ_TEST_DUR", "2m")

	if got := Int("NEPQ_TEST_INT", 1, nil); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
	if got := Int("NEPQ_TEST_BAD_INT", 7, nil); got != 7 {
		t.Fatalf("Int fallback: want=7 got=%d", got)
	}
	if got := Bool("NEPQ_TEST_BOOL", false, nil); !got {
		t.Fatalf("Bool: want=true")
	}
	if got := Duration("NEPQ_TEST_SECS", 0, nil); got != 90*time.Second {
		t.Fatalf("Duration secs: got=%s", got)
	}
	if got := Duration("NEPQ_TEST_DUR", 0, nil); got != 2*time.Minute {
		t.Fatalf("Duration: got=%s", got)
	}
	if got := String("NEPQ_TEST_MISSING", "fallback", nil); got != "fallback" {
		t.Fatalf("String: got=%s", got)
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("NEPQ_DOTENV_NEW=from-file\nNEPQ_DOTENV_SET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("NEPQ_DOTENV_SET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("NEPQ_DOTENV_NEW") })

	LoadDotEnv(nil, path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("NEPQ_DOTENV_NEW"); got != "from-file" {
		t.Fatalf("NEPQ_DOTENV_NEW: got=%q", got)
	}
	if got := os.Getenv("NEPQ_DOTENV_SET"); got != "from-env" {
		t.Fatalf("NEPQ_DOTENV_SET: got=%q", got)
	}
}
