package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pweiskircher/buganize/internal/cache"
	"github.com/pweiskircher/buganize/internal/commands"
	"github.com/pweiskircher/buganize/internal/config"
	"github.com/pweiskircher/buganize/internal/contracts"
	"github.com/pweiskircher/buganize/internal/export"
	httpclient "github.com/pweiskircher/buganize/internal/http"
	"github.com/pweiskircher/buganize/internal/logging"
	"github.com/pweiskircher/buganize/internal/output"
	"github.com/pweiskircher/buganize/internal/tracker"
	"github.com/pweiskircher/buganize/internal/update"
	"github.com/pweiskircher/buganize/internal/wire"
)

// commandEnv is everything a command needs once flags, environment and
// config have been resolved.
type commandEnv struct {
	settings  config.RuntimeSettings
	registry  tracker.Registry
	api       tracker.API
	fields    []output.ExtraField
	allFields bool
	exports   []contracts.ExportFormat
	updates   *update.Checker
	logger    *slog.Logger
	store     *cache.Store
}

func (env *commandEnv) issueOptions() commands.IssueOptions {
	return commands.IssueOptions{Fields: env.fields, AllFields: env.allFields}
}

func (env *commandEnv) Close() error {
	if env == nil || env.store == nil {
		return nil
	}
	return env.store.Close()
}

func execute(ctx context.Context, app AppContext, state *executionState, def commandDefinition, runner commandRunner, args []string) error {
	start := app.Now()

	env, err := buildCommandEnv(app, state.global, def.Name)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := env.Close(); closeErr != nil {
			env.logger.Debug("failed to close cache", "error", closeErr)
		}
	}()

	var notices <-chan update.Notice
	if env.updates != nil {
		updateCtx, cancelUpdate := context.WithCancel(ctx)
		notices = startUpdateCheck(updateCtx, env.updates, app.Version)
		// Runs before the cache is closed: the check reads and writes it.
		defer func() {
			cancelUpdate()
			for range notices {
			}
		}()
	}

	report, runErr := runner(ctx, env, args)
	if report.CommandName == "" {
		report.CommandName = string(def.Name)
	}

	if err := output.Write(state.global.OutputOptions(), app.Stdout, app.Stderr, report, app.Now().Sub(start), runErr); err != nil {
		return err
	}

	if runErr == nil && len(env.exports) > 0 {
		paths, exportErr := export.Save(state.global.ExportDir, env.exports, report.Rows, app.Now())
		for _, path := range paths {
			_, _ = fmt.Fprintf(app.Stderr, "exported %s\n", path)
		}
		if exportErr != nil {
			_, _ = fmt.Fprintln(app.Stderr, output.FormatDiagnostic(exportErr))
			runErr = exportErr
		}
	}

	if notices != nil {
		if notice, ok := <-notices; ok {
			_, _ = fmt.Fprintln(app.Stderr, notice.String())
		}
	}

	if code := output.ResolveExitCode(report, runErr); code != contracts.ExitCodeSuccess {
		return &codedExitError{Code: code}
	}
	return nil
}

func buildCommandEnv(app AppContext, flags GlobalFlags, name contracts.CommandName) (*commandEnv, error) {
	file, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	settings, err := config.Resolve(file, config.RuntimeFlags{
		Trackers:      flags.Trackers,
		Timeout:       flags.Timeout,
		NoUpdateCheck: flags.NoUpdateCheck,
		Debug:         flags.Debug,
	}, config.EnvironmentFromLookup(app.LookupEnv))
	if err != nil {
		return nil, err
	}

	format, err := logging.ParseFormat(settings.LogFormat)
	if err != nil {
		return nil, err
	}
	logger := logging.New(app.Stderr, format, logging.ParseLevel(settings.LogLevel))

	fields, err := output.SelectFields(flags.Fields, flags.AllFields)
	if err != nil {
		return nil, err
	}

	exports, err := parseExportFormats(flags.Exports)
	if err != nil {
		return nil, err
	}

	env := &commandEnv{
		settings:  settings,
		registry:  tracker.NewRegistry(extraTrackers(settings.ExtraTrackers)...),
		fields:    fields,
		allFields: flags.AllFields,
		exports:   exports,
		logger:    logger,
	}

	checkUpdates := settings.UpdateCheck && app.Version != update.DevVersion
	needsNetwork := contracts.RequiresNetwork(name)
	if checkUpdates || (needsNetwork && settings.ResponseCacheTTL > 0) {
		env.store = openCache(settings.CacheDir, logger)
	}

	if needsNetwork {
		trackerIDs, err := env.registry.ResolveIDs(settings.Trackers)
		if err != nil {
			_ = env.Close()
			return nil, err
		}

		options := tracker.ClientOptions{
			BaseURL:      settings.BaseURL,
			TrackerIDs:   trackerIDs,
			HTTPDoer:     app.HTTPDoer,
			RetryOptions: httpclient.Options{Timeout: settings.Timeout},
			Fields:       wire.DefaultFieldTable().Merge(wire.FieldTable(settings.Fields)),
			BatchSize:    settings.BatchSize,
			Concurrency:  settings.Concurrency,
			CacheTTL:     settings.ResponseCacheTTL,
			Logger:       logger,
		}
		if env.store != nil {
			options.Cache = env.store.Bucket(cache.BucketResponses)
		}

		client, err := tracker.NewClient(options)
		if err != nil {
			_ = env.Close()
			return nil, err
		}
		env.api = client
	}

	if checkUpdates {
		options := update.Options{APIBaseURL: app.UpdateAPIBaseURL, Logger: logger}
		if env.store != nil {
			options.Cache = env.store.Bucket(cache.BucketUpdates)
		}
		env.updates = update.New(options)
	}

	return env, nil
}

// openCache opens the persistent cache. Failure only costs caching, so it
// is logged and nil is returned.
func openCache(dir string, logger *slog.Logger) *cache.Store {
	path := ""
	if dir != "" {
		path = filepath.Join(dir, contracts.DefaultCacheFile)
	} else {
		defaultPath, err := cache.DefaultPath()
		if err != nil {
			logger.Debug("cache disabled", "error", err)
			return nil
		}
		path = defaultPath
	}

	store, err := cache.Open(path)
	if err != nil {
		logger.Debug("cache disabled", "path", path, "error", err)
		return nil
	}
	if removed, err := store.Prune(); err != nil {
		logger.Debug("cache prune failed", "error", err)
	} else if removed > 0 {
		logger.Debug("pruned expired cache entries", "removed", removed)
	}
	return store
}

func startUpdateCheck(ctx context.Context, checker *update.Checker, version string) <-chan update.Notice {
	notices := make(chan update.Notice, 1)
	go func() {
		defer close(notices)
		if notice, ok := checker.Check(ctx, version); ok {
			notices <- notice
		}
	}()
	return notices
}

func parseExportFormats(values []string) ([]contracts.ExportFormat, error) {
	var (
		formats  []contracts.ExportFormat
		problems []error
	)
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.ToLower(strings.TrimSpace(part))
			if trimmed == "" {
				continue
			}
			format, err := contracts.ParseExportFormat(trimmed)
			if err != nil {
				problems = append(problems, err)
				continue
			}
			formats = append(formats, format)
		}
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return formats, nil
}

func extraTrackers(entries []config.TrackerEntry) []tracker.Tracker {
	trackers := make([]tracker.Tracker, 0, len(entries))
	for _, entry := range entries {
		trackers = append(trackers, tracker.Tracker{Name: entry.Name, ID: strings.TrimSpace(entry.ID), URL: entry.URL})
	}
	return trackers
}
