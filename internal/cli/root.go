package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/pweiskircher/buganize/internal/contracts"
	httpclient "github.com/pweiskircher/buganize/internal/http"
	"github.com/pweiskircher/buganize/internal/output"
)

type AppContext struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Now     func() time.Time
	Version string
	// LookupEnv replaces os.LookupEnv, mainly for tests.
	LookupEnv func(string) (string, bool)
	// HTTPDoer replaces the tracker transport, mainly for tests.
	HTTPDoer httpclient.Doer
	// UpdateAPIBaseURL points the release check at another host.
	UpdateAPIBaseURL string
}

type GlobalFlags struct {
	JSON          bool
	Template      string
	Trackers      []string
	Fields        []string
	AllFields     bool
	Exports       []string
	ExportDir     string
	Debug         bool
	Timeout       time.Duration
	ConfigPath    string
	NoUpdateCheck bool
}

func (flags GlobalFlags) OutputOptions() output.Options {
	switch {
	case flags.JSON:
		return output.Options{Mode: contracts.OutputModeJSON}
	case flags.Template != "":
		return output.Options{Mode: contracts.OutputModeTemplate, Template: flags.Template}
	default:
		return output.Options{Mode: contracts.OutputModeHuman}
	}
}

type executionState struct {
	global      GlobalFlags
	commandName string
}

func (state *executionState) resolvedCommandName() string {
	if state.commandName != "" {
		return state.commandName
	}
	return "root"
}

// Run executes the CLI using shared output and exit-code plumbing.
func Run(args []string, stdout io.Writer, stderr io.Writer, version string) int {
	return RunWithContext(AppContext{Stdout: stdout, Stderr: stderr, Version: version}, args)
}

func RunWithContext(app AppContext, args []string) int {
	app = normalizeAppContext(app)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, state := newRootCommand(app)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return int(contracts.ExitCodeSuccess)
	}

	var exitErr *codedExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}

	report := output.Report{CommandName: state.resolvedCommandName()}
	if renderErr := output.Write(state.global.OutputOptions(), app.Stdout, app.Stderr, report, 0, err); renderErr != nil {
		_, _ = fmt.Fprintln(app.Stderr, output.FormatDiagnostic(renderErr))
	}

	return int(contracts.ExitCodeFatal)
}

// NewRootCommand constructs the Cobra command tree for the CLI.
func NewRootCommand(app AppContext) *cobra.Command {
	root, _ := newRootCommand(app)
	return root
}

func newRootCommand(app AppContext) (*cobra.Command, *executionState) {
	app = normalizeAppContext(app)
	state := &executionState{}

	root := &cobra.Command{
		Use:           "buganize",
		Short:         "Search and read Google Issue Tracker issues",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)
	root.SetVersionTemplate("buganize {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.BoolVar(&state.global.JSON, "json", false, "emit machine-readable JSON envelope output")
	flags.StringVar(&state.global.Template, "template", "", "render output with a Go template (sprig functions available)")
	flags.StringArrayVarP(&state.global.Trackers, "tracker", "t", nil, "limit to a tracker by name or ID (repeatable)")
	flags.StringArrayVarP(&state.global.Fields, "field", "f", nil, "extra field to display (repeatable or comma-separated)")
	flags.BoolVarP(&state.global.AllFields, "all-fields", "F", false, "show all available fields")
	flags.StringArrayVarP(&state.global.Exports, "export", "e", nil, "export format: csv, json or yaml (repeatable)")
	flags.StringVar(&state.global.ExportDir, "export-dir", ".", "directory for exported files")
	flags.BoolVar(&state.global.Debug, "debug", false, "enable debug logging")
	flags.DurationVar(&state.global.Timeout, "timeout", 0, fmt.Sprintf("request timeout (default %s)", contracts.DefaultHTTPTimeout))
	flags.StringVar(&state.global.ConfigPath, "config", "", "config file path (default user config dir)")
	flags.BoolVar(&state.global.NoUpdateCheck, "no-update-check", false, "skip the release update check")

	for _, def := range commandDefinitions() {
		root.AddCommand(newCommand(app, state, def))
	}

	return root, state
}

func newCommand(app AppContext, state *executionState, def commandDefinition) *cobra.Command {
	cmd := &cobra.Command{
		Use:   def.Use,
		Short: def.Short,
		Args:  def.Args,
		PreRun: func(cmd *cobra.Command, args []string) {
			state.commandName = string(def.Name)
		},
	}

	runner := def.Build(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), app, state, def, runner, args)
	}
	return cmd
}

func normalizeAppContext(app AppContext) AppContext {
	if app.Stdout == nil {
		app.Stdout = io.Discard
	}
	if app.Stderr == nil {
		app.Stderr = io.Discard
	}
	if app.Now == nil {
		app.Now = time.Now
	}
	if app.Version == "" {
		app.Version = "dev"
	}
	if app.LookupEnv == nil {
		app.LookupEnv = os.LookupEnv
	}
	return app
}

type codedExitError struct {
	Code contracts.ExitCode
}

func (err codedExitError) Error() string {
	return fmt.Sprintf("exit with code %d", err.Code)
}
