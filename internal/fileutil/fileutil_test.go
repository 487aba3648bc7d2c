package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"movie.mp4", "movie.mp4"},
		{"../../etc/passwd", "passwd"},
		{"a/b\\c:d.mkv", "d.mkv"},
		{`C:\Users\someone\clip.mp4`, "clip.mp4"},
		{"what?.mp4", "what_.mp4"},
		{"  spaced  .mp4", "spaced  .mp4"},
		{"", "file"},
		{"...", "file"},
		{"it's a clip.mov", "it_s a clip.mov"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUserDirNamespacesByID(t *testing.T) {
	base := t.TempDir()

	a, err := UserDir(base, 1001)
	if err != nil {
		t.Fatalf("UserDir: %v", err)
	}
	b, err := UserDir(base, 1002)
	if err != nil {
		t.Fatalf("UserDir: %v", err)
	}

	if a == b {
		t.Fatal("expected distinct directories per user")
	}
	if filepath.Base(a) != "1001" {
		t.Fatalf("unexpected dir name %q", a)
	}
	if info, err := os.Stat(a); err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %q: %v", a, err)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mp4")

	if got := UniquePath(path); got != path {
		t.Fatalf("fresh path should be unchanged, got %q", got)
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got := UniquePath(path)
	if got != filepath.Join(dir, "out_1.mp4") {
		t.Fatalf("UniquePath = %q", got)
	}
}

func TestEnsureFreeSpace(t *testing.T) {
	dir := t.TempDir()

	if err := EnsureFreeSpace(dir, 0); err != nil {
		t.Fatalf("zero requirement should pass: %v", err)
	}
	if err := EnsureFreeSpace(dir, 1); err != nil {
		t.Fatalf("one byte should be available: %v", err)
	}
	// An absurd requirement must fail.
	if err := EnsureFreeSpace(dir, 1<<62); err == nil {
		t.Fatal("expected insufficient space error")
	}
}

func TestRemoveAllIgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	if err := os.WriteFile(present, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveAll(present, filepath.Join(dir, "missing"), ""); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := os.Stat(present); !os.IsNotExist(err) {
		t.Fatal("expected file removed")
	}
}
