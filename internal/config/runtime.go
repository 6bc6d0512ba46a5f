// pattern: Functional Core
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pweiskircher/buganize/internal/contracts"
)

const (
	EnvBaseURL       = "BUGANIZE_BASE_URL"
	EnvTrackers      = "BUGANIZE_TRACKERS"
	EnvTimeout       = "BUGANIZE_TIMEOUT"
	EnvNoUpdateCheck = "BUGANIZE_NO_UPDATE_CHECK"
)

// RuntimeFlags carries the command-line values that override config. Zero
// values mean "not given".
type RuntimeFlags struct {
	BaseURL       string
	Trackers      []string
	Timeout       time.Duration
	NoUpdateCheck bool
	Debug         bool
}

type Environment struct {
	BaseURL       string
	Trackers      string
	Timeout       string
	NoUpdateCheck string
}

type RuntimeSettings struct {
	BaseURL          string
	Trackers         []string
	ExtraTrackers    []TrackerEntry
	Timeout          time.Duration
	PageSize         int
	UpdateCheck      bool
	CacheDir         string
	ResponseCacheTTL time.Duration
	BatchSize        int
	Concurrency      int
	LogLevel         string
	LogFormat        string
	Fields           map[int64]string
}

// Resolve merges flags, environment, config file and built-in defaults, in
// that order of precedence.
func Resolve(file File, flags RuntimeFlags, env Environment) (RuntimeSettings, error) {
	if err := Validate(file); err != nil {
		return RuntimeSettings{}, &ResolveError{
			Code:    ResolveErrorCodeInvalidConfig,
			Message: "configuration is invalid",
			Err:     err,
		}
	}

	if flags.Timeout < 0 {
		return RuntimeSettings{}, &ResolveError{
			Code:    ResolveErrorCodeInvalidFlag,
			Message: "--timeout must be positive",
		}
	}

	envTimeout, err := parseDuration(env.Timeout, false)
	if err != nil {
		return RuntimeSettings{}, &ResolveError{
			Code:    ResolveErrorCodeInvalidEnv,
			Message: EnvTimeout + " is not a valid duration",
			Err:     err,
		}
	}

	noUpdateCheck, err := parseBoolEnv(env.NoUpdateCheck)
	if err != nil {
		return RuntimeSettings{}, &ResolveError{
			Code:    ResolveErrorCodeInvalidEnv,
			Message: EnvNoUpdateCheck + " must be a boolean",
			Err:     err,
		}
	}

	fileTimeout, _ := parseDuration(file.Timeout, false)
	cacheTTL, _ := parseDuration(file.ResponseCacheTTL, true)
	fields, _ := ParseFieldTable(file.Fields)

	settings := RuntimeSettings{
		BaseURL:          firstNonEmpty(strings.TrimSpace(flags.BaseURL), env.BaseURL, strings.TrimSpace(file.BaseURL), contracts.DefaultBaseURL),
		Trackers:         firstNonEmptyList(cleanList(flags.Trackers), splitList(env.Trackers), cleanList(file.Trackers)),
		ExtraTrackers:    append([]TrackerEntry(nil), file.Tracker...),
		Timeout:          firstPositive(flags.Timeout, envTimeout, fileTimeout, contracts.DefaultHTTPTimeout),
		PageSize:         firstPositiveInt(file.PageSize, contracts.DefaultPageSize),
		UpdateCheck:      !flags.NoUpdateCheck && !noUpdateCheck && (file.UpdateCheck == nil || *file.UpdateCheck),
		CacheDir:         strings.TrimSpace(file.CacheDir),
		ResponseCacheTTL: cacheTTL,
		BatchSize:        firstPositiveInt(file.BatchSize, contracts.DefaultBatchSize),
		Concurrency:      firstPositiveInt(file.Concurrency, contracts.DefaultConcurrency),
		LogLevel:         firstNonEmpty(strings.TrimSpace(file.Log.Level), contracts.DefaultLogLevel),
		LogFormat:        firstNonEmpty(strings.ToLower(strings.TrimSpace(file.Log.Format)), contracts.DefaultLogFormat),
		Fields:           fields,
	}
	if flags.Debug {
		settings.LogLevel = "debug"
	}

	return settings, nil
}

func EnvironmentFromOS() Environment {
	return EnvironmentFromLookup(os.LookupEnv)
}

func EnvironmentFromLookup(lookup func(string) (string, bool)) Environment {
	if lookup == nil {
		return Environment{}
	}

	return Environment{
		BaseURL:       lookupTrimmed(lookup, EnvBaseURL),
		Trackers:      lookupTrimmed(lookup, EnvTrackers),
		Timeout:       lookupTrimmed(lookup, EnvTimeout),
		NoUpdateCheck: lookupTrimmed(lookup, EnvNoUpdateCheck),
	}
}

func parseBoolEnv(value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return cleanList(strings.Split(value, ","))
}

func cleanList(values []string) []string {
	var cleaned []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

func firstNonEmptyList(lists ...[]string) []string {
	for _, list := range lists {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, value := range values {
		if value > 0 {
			return value
		}
	}
	return 0
}

func firstPositiveInt(values ...int) int {
	for _, value := range values {
		if value > 0 {
			return value
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func lookupTrimmed(lookup func(string) (string, bool), key string) string {
	value, ok := lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
