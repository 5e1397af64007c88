package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/activetext/pkg/errors"
)

// isolate keeps the host's config files and ACTIVETEXT_* variables out of
// the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if k, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "ACTIVETEXT_") {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
	}
}

func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	isolate(t)

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "activetext", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"extract", "patterns", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"config", "log-level", "output", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, OutputText, cmd.PersistentFlags().Lookup("output").DefValue)
	assert.Equal(t, "o", cmd.PersistentFlags().Lookup("output").Shorthand)
}

func TestRoot_InvalidOutputFormat(t *testing.T) {
	_, _, err := executeCommand(t, "", "version", "-o", "yaml")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestRoot_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activetext.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extractor:\n  enabled_types: [mention]\n"), 0o644))

	out, _, err := executeCommand(t, "", "--config", path, "extract", "#tag @who")
	require.NoError(t, err)
	assert.Contains(t, out, "mention")
	assert.NotContains(t, out, "hashtag")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, _, err := executeCommand(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "version")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigNotFound))
}

func TestGetCLIContext_Missing(t *testing.T) {
	_, err := GetCLIContext(&cobra.Command{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPrintError(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetErr(&buf)

	PrintError(cmd, nil)
	assert.Empty(t, buf.String())

	PrintError(cmd, errors.NewInvalidInputError("bad"))
	assert.Equal(t, "Error: [COMMON_002] bad\n", buf.String())
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"A", "LONGER"}, [][]string{{"xyz", "1"}, {"日本", "2"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "A     LONGER", lines[0])
	assert.Equal(t, "----  ------", lines[1])
	assert.Equal(t, "xyz   1", lines[2])
	assert.Equal(t, "日本  2", lines[3])

	assert.Empty(t, FormatTable(nil, nil))
}

func TestVersionCmd(t *testing.T) {
	out, _, err := executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "activetext "+Version)

	out, _, err = executeCommand(t, "", "version", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "`+Version+`"`)
}

func TestPatternsCmd(t *testing.T) {
	out, _, err := executeCommand(t, "", "patterns", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "KIND")
	for _, kind := range []string{"hashtag", "mention", "email", "url"} {
		assert.Contains(t, out, kind)
	}

	_, _, err = executeCommand(t, "", "patterns", "extra")
	assert.Error(t, err)
}
