// Package envfile reads and writes per-stage variable files. It treats a
// file as an ordered list of lines and assumes nothing beyond "name=value
// per line": comments, blank lines and unknown lines pass through untouched,
// so a round trip preserves the file layout.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const filePermissions = 0600

// ReadAll returns the file's lines in order. A missing file is not an
// error; it reads as empty.
func ReadAll(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(content, "\n")
	// A trailing newline yields one empty phantom line; drop it so that
	// read-then-write does not grow the file.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines, nil
}

// ExtractVariables maps variable names to values. Lines without "=", blank
// lines and comments are skipped. Values split at the first "=" so values
// containing "=" survive intact.
func ExtractVariables(lines []string) map[string]string {
	vars := make(map[string]string)
	for _, line := range lines {
		name, value, ok := splitVariable(line)
		if !ok {
			continue
		}
		vars[name] = value
	}
	return vars
}

// UpdateMany returns a copy of lines with the values of the named variables
// replaced. Lines not naming an updated variable are returned verbatim,
// preserving comments and ordering.
func UpdateMany(lines []string, updates map[string]string) []string {
	updated := make([]string, len(lines))
	for i, line := range lines {
		name, _, ok := splitVariable(line)
		if !ok {
			updated[i] = line
			continue
		}
		if newValue, change := updates[name]; change {
			updated[i] = name + "=" + newValue
		} else {
			updated[i] = line
		}
	}
	return updated
}

// WriteAll replaces the file's content with the given lines. The write goes
// through a temporary file in the same directory followed by a rename, so a
// crash never leaves a half-written variable file.
func WriteAll(path string, lines []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}

	if _, err = tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, filePermissions); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// splitVariable parses one line into a name/value pair. It reports ok=false
// for blank lines, comments and lines without "=".
func splitVariable(line string) (name, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	idx := strings.Index(trimmed, "=")
	if idx <= 0 {
		return "", "", false
	}
	name = strings.TrimSpace(trimmed[:idx])
	value = trimmed[idx+1:]
	if name == "" {
		return "", "", false
	}
	return name, value, true
}
