package output

import (
	"fmt"
	"time"

	"github.com/pweiskircher/buganize/internal/contracts"
	"github.com/pweiskircher/buganize/internal/export"
)

// pattern: Functional Core

// Report is command-level output data that can be rendered in human, JSON
// or template mode and exported as rows.
type Report struct {
	CommandName string
	Counts      contracts.AggregateCounts
	Warnings    []string
	// Data is the typed payload for JSON and template output.
	Data any
	View View
	Rows []export.Row
}

func BuildEnvelope(report Report, duration time.Duration) (contracts.CommandEnvelope, error) {
	env := contracts.CommandEnvelope{
		EnvelopeVersion: contracts.JSONEnvelopeVersionV1,
		Command: contracts.CommandMeta{
			Name:       report.CommandName,
			DurationMS: duration.Milliseconds(),
		},
		Counts:   report.Counts,
		Warnings: report.Warnings,
		Data:     report.Data,
	}

	if err := contracts.ValidateEnvelopeBasics(env); err != nil {
		return contracts.CommandEnvelope{}, fmt.Errorf("failed to build command envelope: %w", err)
	}

	return env, nil
}

func ResolveExitCode(report Report, fatalErr error) contracts.ExitCode {
	return contracts.ResolveExitCode(report.Counts, fatalErr != nil)
}
