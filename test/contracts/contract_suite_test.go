package contracts_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pweiskircher/buganize/internal/cli"
	"github.com/pweiskircher/buganize/internal/contracts"
)

func batchServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		details := make([]any, 31)
		details[5] = "known issue"
		entry := make([]any, 48)
		entry[1] = 11
		entry[2] = details

		body, err := json.Marshal([]any{[]any{"b.BatchGetIssuesResponse", nil, []any{[]any{entry}}}})
		if !assert.NoError(t, err) {
			return
		}
		_, _ = w.Write(append([]byte(")]}'\n"), body...))
	}))
	t.Cleanup(server.Close)
	return server
}

func run(t *testing.T, env map[string]string, args ...string) (int, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := cli.RunWithContext(cli.AppContext{
		Stdout:  stdout,
		Stderr:  stderr,
		Version: "dev",
		LookupEnv: func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		},
	}, args)
	return code, stdout, stderr
}

func decodeSingleEnvelope(t *testing.T, stdout []byte) contracts.CommandEnvelope {
	t.Helper()

	decoder := json.NewDecoder(bytes.NewReader(stdout))
	var envelope contracts.CommandEnvelope
	require.NoError(t, decoder.Decode(&envelope), "expected JSON envelope on stdout")
	require.ErrorIs(t, decoder.Decode(&contracts.CommandEnvelope{}), io.EOF, "expected exactly one envelope on stdout")
	require.NoError(t, contracts.ValidateEnvelopeBasics(envelope))
	return envelope
}

func TestCLIFatalOutputContractForJSONAndHumanModes(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.toml")

	t.Run("json mode writes one envelope to stdout and diagnostics to stderr", func(t *testing.T) {
		exitCode, stdout, stderr := run(t, nil, "--json", "--config", missing, "trackers")
		require.Equal(t, int(contracts.ExitCodeFatal), exitCode)

		envelope := decodeSingleEnvelope(t, stdout.Bytes())
		assert.Equal(t, string(contracts.CommandTrackers), envelope.Command.Name)
		assert.NotZero(t, stderr.Len(), "expected diagnostics on stderr")
		assert.NotContains(t, stderr.String(), "\"envelope_version\"")
	})

	t.Run("human mode keeps fatal diagnostics off stdout", func(t *testing.T) {
		exitCode, stdout, stderr := run(t, nil, "--config", missing, "trackers")
		require.Equal(t, int(contracts.ExitCodeFatal), exitCode)
		assert.Empty(t, stdout.String())
		assert.NotZero(t, stderr.Len(), "expected diagnostics on stderr")
	})
}

func TestCLIPartialResultContract(t *testing.T) {
	server := batchServer(t)
	env := map[string]string{"BUGANIZE_BASE_URL": server.URL + "/action"}
	config := filepath.Join(t.TempDir(), "config.yaml")
	writeEmptyFile(t, config)

	exitCode, stdout, stderr := run(t, env, "--json", "--config", config, "issues", "11", "12")
	require.Equal(t, int(contracts.ExitCodePartial), exitCode, stderr.String())

	envelope := decodeSingleEnvelope(t, stdout.Bytes())
	assert.Equal(t, 1, envelope.Counts.Returned)
	assert.Equal(t, 1, envelope.Counts.Missing)
	require.Len(t, envelope.Warnings, 1)
	assert.Contains(t, envelope.Warnings[0], "12")
}

func TestCLITemplateModeWritesOnlyRenderedOutput(t *testing.T) {
	config := filepath.Join(t.TempDir(), "config.toml")
	writeEmptyFile(t, config)

	exitCode, stdout, _ := run(t, nil, "--config", config, "trackers", "--template", `{{len .}}`)
	require.Equal(t, int(contracts.ExitCodeSuccess), exitCode)
	assert.Equal(t, "2", stdout.String())
}

func writeEmptyFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}
