// pattern: Imperative Shell
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/containeroo/resolver"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/pweiskircher/buganize/internal/contracts"
)

// DefaultPath returns the per-user config location, e.g.
// ~/.config/buganize/config.toml on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, contracts.DefaultConfigDir, contracts.DefaultConfigFile), nil
}

// Load reads the config at path. An empty path means the default location,
// which may be absent; an explicit path must exist.
func Load(path string) (File, error) {
	explicit := strings.TrimSpace(path)
	if explicit != "" {
		return Read(explicit)
	}

	defaultPath, err := DefaultPath()
	if err != nil {
		return File{}, nil
	}

	file, err := Read(defaultPath)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return File{}, nil
	}
	return file, err
}

func Read(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, &Error{Code: ErrorCodeReadFailed, Path: path, Err: err}
	}

	file, err := decode(path, raw)
	if err != nil {
		return File{}, &Error{Code: ErrorCodeParseFailed, Path: path, Err: err}
	}

	if err := resolveReferences(&file); err != nil {
		return File{}, &Error{Code: ErrorCodeResolveFailed, Path: path, Err: err}
	}

	if err := Validate(file); err != nil {
		return File{}, &Error{Code: ErrorCodeValidationFailed, Path: path, Err: err}
	}

	return file, nil
}

func decode(path string, raw []byte) (File, error) {
	var file File

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(raw))
		decoder.KnownFields(true)
		if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return File{}, fmt.Errorf("failed to decode config YAML: %w", err)
		}
	default:
		decoder := toml.NewDecoder(bytes.NewReader(raw))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&file); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return File{}, fmt.Errorf("unknown config keys:\n%s", strict.String())
			}
			return File{}, fmt.Errorf("failed to decode config TOML: %w", err)
		}
	}

	return file, nil
}

// resolveReferences expands env:, file: and similar references in string
// values so secrets and per-machine values can stay out of the file.
func resolveReferences(file *File) error {
	resolve := func(field string, value *string) error {
		if *value == "" {
			return nil
		}
		resolved, err := resolver.ResolveVariable(*value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		*value = resolved
		return nil
	}

	var problems []error
	add := func(err error) {
		if err != nil {
			problems = append(problems, err)
		}
	}

	add(resolve("base_url", &file.BaseURL))
	add(resolve("timeout", &file.Timeout))
	add(resolve("cache_dir", &file.CacheDir))
	add(resolve("response_cache_ttl", &file.ResponseCacheTTL))
	add(resolve("log.level", &file.Log.Level))
	add(resolve("log.format", &file.Log.Format))
	for index := range file.Trackers {
		add(resolve(fmt.Sprintf("trackers[%d]", index), &file.Trackers[index]))
	}
	for index := range file.Tracker {
		add(resolve(fmt.Sprintf("tracker[%d].url", index), &file.Tracker[index].URL))
	}

	return errors.Join(problems...)
}
