// Package fileutil provides filesystem helpers shared across the pipeline:
// safe filename handling, per-user working directories, and a free-space
// preflight for incoming jobs.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// filenameReplacer maps characters that are unsafe in filenames (or in ffmpeg
// filter arguments) to underscores.
var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"'", "_",
	"\x00", "_",
)

// SanitizeFilename strips path separators and shell-hostile characters from a
// user-supplied filename. Chat clients send names with backslash or drive
// prefixes, so everything up to the last separator of any flavor is dropped
// before the remaining characters are cleaned. The extension is preserved. An
// empty or fully stripped name becomes "file".
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\:`); i >= 0 {
		name = name[i+1:]
	}
	name = filepath.Base(name)
	name = filenameReplacer.Replace(name)
	name = strings.Trim(name, " .")
	if name == "" {
		return "file"
	}
	return name
}

// UserDir returns (creating if needed) the working directory namespaced to a
// single user so concurrent jobs for different users never share paths.
func UserDir(baseDir string, userID int64) (string, error) {
	dir := filepath.Join(baseDir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create user directory: %w", err)
	}
	return dir, nil
}

// UniquePath returns path if it does not exist, otherwise appends a numeric
// suffix before the extension until an unused name is found.
func UniquePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

// FreeSpace reports the number of bytes available to unprivileged writes on
// the filesystem containing path.
func FreeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// EnsureFreeSpace fails when the filesystem holding path has fewer than
// required bytes available. A zero requirement always passes.
func EnsureFreeSpace(path string, required uint64) error {
	if required == 0 {
		return nil
	}
	free, err := FreeSpace(path)
	if err != nil {
		return err
	}
	if free < required {
		return fmt.Errorf("insufficient disk space on %s: %d bytes free, %d required", path, free, required)
	}
	return nil
}

// RemoveAll removes paths best-effort, returning the first error encountered.
// Missing paths are not errors.
func RemoveAll(paths ...string) error {
	var firstErr error
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := os.RemoveAll(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
