package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/policyinsight/ddops/internal/logging"
)

const (
	// maxJSONFileSize all templates should be less than 1MB so use that as a
	// cut off to avoid reading invalid, extremely large, files
	maxJSONFileSize = 1024 * 1024 // 1MB
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteJSONFile writes data as JSON to the specified path with indentation.
// Creates the parent directory if it doesn't exist.
func WriteJSONFile(path string, data any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}

	return nil
}

// SanitizeFilename keeps letters, digits, spaces, hyphens and underscores,
// then lower-cases the result and turns spaces into hyphens.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	return strings.ToLower(strings.ReplaceAll(safe, " ", "-"))
}

// ReadJSONFile reads a JSON object from path, tolerating a UTF-8 BOM. It
// returns the raw text alongside the parsed object; numbers are decoded as
// json.Number so large ids survive a round trip.
func ReadJSONFile(path string) ([]byte, map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if info.Size() > maxJSONFileSize {
		return nil, nil, fmt.Errorf("%s is too large (%d bytes, max %d)", path, info.Size(), maxJSONFileSize)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return raw, nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	if obj == nil {
		return raw, nil, fmt.Errorf("invalid JSON in %s: expected an object", path)
	}
	return raw, obj, nil
}

// ListJSONFiles returns the *.json files directly inside dir, sorted by name.
// A missing directory is reported with an error wrapping fs.ErrNotExist.
func ListJSONFiles(dir string) ([]string, error) {
	return ListFiles(dir, ".json")
}

// ListFiles returns the files directly inside dir whose name ends in ext,
// sorted by name. Unreadable entries are logged and skipped.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		if _, err := e.Info(); err != nil {
			logging.Logger.Warn("failed to access file", "path", filepath.Join(dir, e.Name()), "error", err)
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// IsNotExist reports whether err means a file or directory is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
