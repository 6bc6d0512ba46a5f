// pattern: Functional Core
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pweiskircher/buganize/internal/contracts"
)

// File is the on-disk configuration. Every key is optional.
type File struct {
	BaseURL          string            `toml:"base_url" yaml:"base_url"`
	Timeout          string            `toml:"timeout" yaml:"timeout"`
	PageSize         int               `toml:"page_size" yaml:"page_size"`
	Trackers         []string          `toml:"trackers" yaml:"trackers"`
	UpdateCheck      *bool             `toml:"update_check" yaml:"update_check"`
	CacheDir         string            `toml:"cache_dir" yaml:"cache_dir"`
	ResponseCacheTTL string            `toml:"response_cache_ttl" yaml:"response_cache_ttl"`
	BatchSize        int               `toml:"batch_size" yaml:"batch_size"`
	Concurrency      int               `toml:"concurrency" yaml:"concurrency"`
	Log              LogSection        `toml:"log" yaml:"log"`
	Fields           map[string]string `toml:"fields" yaml:"fields"`
	Tracker          []TrackerEntry    `toml:"tracker" yaml:"tracker"`
}

type LogSection struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// TrackerEntry declares a tracker beyond the built-in ones.
type TrackerEntry struct {
	Name string `toml:"name" yaml:"name"`
	ID   string `toml:"id" yaml:"id"`
	URL  string `toml:"url" yaml:"url"`
}

// Validate reports every problem in the file at once.
func Validate(file File) error {
	var problems []error

	if _, err := parseDuration(file.Timeout, false); err != nil {
		problems = append(problems, fmt.Errorf("timeout: %w", err))
	}
	if _, err := parseDuration(file.ResponseCacheTTL, true); err != nil {
		problems = append(problems, fmt.Errorf("response_cache_ttl: %w", err))
	}
	if file.PageSize != 0 && !contracts.IsAllowedPageSize(file.PageSize) {
		problems = append(problems, fmt.Errorf("page_size: %d is not one of %v", file.PageSize, contracts.AllowedPageSizes))
	}
	if file.BatchSize < 0 {
		problems = append(problems, errors.New("batch_size: must not be negative"))
	}
	if file.Concurrency < 0 {
		problems = append(problems, errors.New("concurrency: must not be negative"))
	}
	for index, name := range file.Trackers {
		if strings.TrimSpace(name) == "" {
			problems = append(problems, fmt.Errorf("trackers[%d]: must not be empty", index))
		}
	}
	if level := strings.TrimSpace(file.Log.Level); level != "" && !isKnownLevel(level) {
		problems = append(problems, fmt.Errorf("log.level: unsupported level %q", level))
	}
	if format := strings.ToLower(strings.TrimSpace(file.Log.Format)); format != "" && format != "text" && format != "json" {
		problems = append(problems, fmt.Errorf("log.format: unsupported format %q", file.Log.Format))
	}
	if _, err := ParseFieldTable(file.Fields); err != nil {
		problems = append(problems, err)
	}
	for index, entry := range file.Tracker {
		if strings.TrimSpace(entry.Name) == "" {
			problems = append(problems, fmt.Errorf("tracker[%d].name: must be set", index))
		}
		if id, err := strconv.ParseInt(strings.TrimSpace(entry.ID), 10, 64); err != nil || id <= 0 {
			problems = append(problems, fmt.Errorf("tracker[%d].id: must be a positive integer", index))
		}
	}

	return errors.Join(problems...)
}

// ParseFieldTable converts the [fields] section into field-ID overrides.
func ParseFieldTable(fields map[string]string) (map[int64]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	parsed := make(map[int64]string, len(fields))
	var problems []error
	for rawID, name := range fields {
		id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
		if err != nil || id <= 0 {
			problems = append(problems, fmt.Errorf("fields: key %q must be a positive integer field ID", rawID))
			continue
		}
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			problems = append(problems, fmt.Errorf("fields: name for field %d must not be empty", id))
			continue
		}
		parsed[id] = trimmed
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return parsed, nil
}

func parseDuration(value string, allowZero bool) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}

	parsed, err := time.ParseDuration(trimmed)
	if err != nil {
		if seconds, numErr := strconv.Atoi(trimmed); numErr == nil {
			parsed = time.Duration(seconds) * time.Second
		} else {
			return 0, err
		}
	}
	if parsed < 0 || (parsed == 0 && !allowZero) {
		return 0, fmt.Errorf("duration %q must be positive", trimmed)
	}
	return parsed, nil
}

func isKnownLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}
