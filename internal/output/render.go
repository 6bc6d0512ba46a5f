package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/pweiskircher/buganize/internal/contracts"
)

// pattern: Imperative Shell

type Options struct {
	Mode     contracts.OutputMode
	Template string
}

func Write(options Options, stdout io.Writer, stderr io.Writer, report Report, duration time.Duration, fatalErr error) error {
	switch options.Mode {
	case contracts.OutputModeJSON:
		env, err := BuildEnvelope(report, duration)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(env); err != nil {
			return fmt.Errorf("failed to write JSON envelope: %w", err)
		}
		return writeDiagnostic(stderr, fatalErr)
	case contracts.OutputModeTemplate:
		if fatalErr != nil {
			return writeDiagnostic(stderr, fatalErr)
		}
		if err := RenderTemplate(stdout, options.Template, report.Data); err != nil {
			return err
		}
		return writeWarnings(stderr, report.Warnings)
	case contracts.OutputModeHuman, "":
		if fatalErr != nil {
			return writeDiagnostic(stderr, fatalErr)
		}
		if report.View != nil {
			if err := report.View.Render(stdout); err != nil {
				return fmt.Errorf("failed to write human output: %w", err)
			}
		}
		return writeWarnings(stderr, report.Warnings)
	default:
		return fmt.Errorf("unsupported output mode %q", options.Mode)
	}
}

// ParseTemplate compiles a --template value with the sprig function set.
func ParseTemplate(text string) (*template.Template, error) {
	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse output template: %w", err)
	}
	return tmpl, nil
}

func RenderTemplate(w io.Writer, text string, data any) error {
	tmpl, err := ParseTemplate(text)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render output template: %w", err)
	}
	return nil
}

func writeDiagnostic(stderr io.Writer, fatalErr error) error {
	if fatalErr == nil {
		return nil
	}
	if _, err := fmt.Fprintln(stderr, FormatDiagnostic(fatalErr)); err != nil {
		return fmt.Errorf("failed to write diagnostics: %w", err)
	}
	return nil
}

func writeWarnings(stderr io.Writer, warnings []string) error {
	for _, warning := range warnings {
		if _, err := fmt.Fprintln(stderr, "warning: "+warning); err != nil {
			return fmt.Errorf("failed to write diagnostics: %w", err)
		}
	}
	return nil
}

func FormatDiagnostic(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "failed to execute command"
	}
	if strings.HasPrefix(msg, "failed to ") {
		return msg
	}
	return "failed to execute command: " + msg
}
