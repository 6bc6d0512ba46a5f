package contracts

import "errors"

const JSONEnvelopeVersionV1 = "1"

type OutputMode string

const (
	OutputModeHuman    OutputMode = "human"
	OutputModeJSON     OutputMode = "json"
	OutputModeTemplate OutputMode = "template"
)

type StreamContract struct {
	StdoutRule string
	StderrRule string
}

var OutputStreamContracts = map[OutputMode]StreamContract{
	OutputModeJSON: {
		StdoutRule: "stdout MUST contain exactly one JSON envelope object and no extra prose",
		StderrRule: "stderr MAY contain diagnostics/logs and MUST NOT contain envelope fragments",
	},
	OutputModeHuman: {
		StdoutRule: "stdout SHOULD contain human-readable primary output",
		StderrRule: "stderr SHOULD contain warnings/errors/diagnostics and update notices",
	},
	OutputModeTemplate: {
		StdoutRule: "stdout MUST contain only the rendered template output",
		StderrRule: "stderr SHOULD contain warnings/errors/diagnostics",
	},
}

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
	ExportFormatYAML ExportFormat = "yaml"
)

var SupportedExportFormats = []ExportFormat{ExportFormatCSV, ExportFormatJSON, ExportFormatYAML}

func ParseExportFormat(value string) (ExportFormat, error) {
	for _, format := range SupportedExportFormats {
		if string(format) == value {
			return format, nil
		}
	}
	return "", errors.New("unsupported export format " + `"` + value + `"`)
}

type ExitCode int

const (
	ExitCodeSuccess ExitCode = 0
	ExitCodeFatal   ExitCode = 1
	ExitCodePartial ExitCode = 2
)

// ExitCodeMeaning freezes the CLI matrix semantics.
var ExitCodeMeaning = map[ExitCode]string{
	ExitCodeSuccess: "success",
	ExitCodePartial: "partial success: some requested issues were not returned",
	ExitCodeFatal:   "fatal command failure (config/transport/decode)",
}

type CommandEnvelope struct {
	EnvelopeVersion string          `json:"envelope_version"`
	Command         CommandMeta     `json:"command"`
	Counts          AggregateCounts `json:"counts"`
	Warnings        []string        `json:"warnings,omitempty"`
	Data            any             `json:"data"`
}

type CommandMeta struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
}

type AggregateCounts struct {
	Returned int   `json:"returned"`
	Total    int64 `json:"total,omitempty"`
	Missing  int   `json:"missing,omitempty"`
}

func ValidateEnvelopeBasics(env CommandEnvelope) error {
	if env.EnvelopeVersion != JSONEnvelopeVersionV1 {
		return errors.New("unsupported envelope_version")
	}
	if env.Command.Name == "" {
		return errors.New("command name is required")
	}
	return nil
}

func ResolveExitCode(counts AggregateCounts, fatalErr bool) ExitCode {
	if fatalErr {
		return ExitCodeFatal
	}
	if counts.Missing > 0 {
		return ExitCodePartial
	}
	return ExitCodeSuccess
}
