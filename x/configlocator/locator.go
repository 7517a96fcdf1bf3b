// Package configlocator finds and interprets YAML parameter files spread over several source trees.
package configlocator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ErrDuplicateConfigKey is returned by IndexByKey when two files map to the same key.
var ErrDuplicateConfigKey = errors.New("configlocator: duplicate config key")

// File is a located configuration file.
type File struct {
	Path     string
	Contents []byte
}

// ConfigError reports a file whose contents could not be interpreted.
type ConfigError struct {
	Filename string
	Contents []byte
	Err      error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not interpret %s: %v\ncontents:", e.Filename, e.Err)
	for _, line := range strings.Split(strings.TrimRight(string(e.Contents), "\n"), "\n") {
		b.WriteString("\n > ")
		b.WriteString(line)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LookEverywhere returns every file under each source matching pattern, in source order and then
// lexical order within a source. pattern is matched against the path relative to the source and
// may use ** to cross directories. Missing sources are skipped.
func LookEverywhere(pattern string, sources []string) ([]File, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("configlocator: invalid pattern %q", pattern)
	}

	var files []File
	for _, src := range sources {
		info, err := os.Stat(src)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("configlocator: stat source %s: %w", src, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("configlocator: source %s is not a directory", src)
		}

		matches, err := doublestar.Glob(os.DirFS(src), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("configlocator: glob %s in %s: %w", pattern, src, err)
		}
		sort.Strings(matches)

		for _, rel := range matches {
			path := filepath.Join(src, filepath.FromSlash(rel))
			contents, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("configlocator: read %s: %w", path, err)
			}
			files = append(files, File{Path: path, Contents: contents})
		}
	}
	return files, nil
}

// Interpret decodes f as YAML into out. Unknown keys are rejected. When out implements
// Validate() error, it is validated as well. Every failure is a *ConfigError.
func Interpret(f File, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(f.Contents))
	dec.KnownFields(true)

	err := dec.Decode(out)
	if errors.Is(err, io.EOF) {
		// An empty file overrides nothing.
		err = nil
	}
	if err == nil {
		if v, ok := out.(interface{ Validate() error }); ok {
			err = v.Validate()
		}
	}
	if err != nil {
		return &ConfigError{Filename: f.Path, Contents: f.Contents, Err: err}
	}
	return nil
}

// IndexByKey maps each file to key(file). Two files with the same key are an error naming both.
func IndexByKey(files []File, key func(File) string) (map[string]File, error) {
	index := make(map[string]File, len(files))
	for _, f := range files {
		k := key(f)
		if prev, ok := index[k]; ok {
			return nil, fmt.Errorf("%w %q:\n%s\n%s", ErrDuplicateConfigKey, k, prev.Path, f.Path)
		}
		index[k] = f
	}
	return index, nil
}

// BaseKey returns the file name with suffix removed, e.g. "default" for "default.coordinator.yaml".
func BaseKey(suffix string) func(File) string {
	return func(f File) string {
		return strings.TrimSuffix(filepath.Base(f.Path), suffix)
	}
}
