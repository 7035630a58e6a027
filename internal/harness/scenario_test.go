package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	lib, err := filepath.Abs(libraryPath())
	require.NoError(t, err)
	data, err := os.ReadFile(lib)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "library.yaml"), data, 0644))

	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario_ResolvesLibraryPath(t *testing.T) {
	path := writeScenario(t, `
name: ok
description: resolves library
library: library.yaml
assertions:
  - {type: row_count, count: 6}
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "library.yaml"), s.Library)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown field",
			body: "name: x\ndescription: x\nlibrary: library.yaml\nasertions: []\n",
			want: "parse scenario",
		},
		{
			name: "missing name",
			body: "description: x\nlibrary: library.yaml\nassertions: [{type: rows}]\n",
			want: "name is required",
		},
		{
			name: "missing library file",
			body: "name: x\ndescription: x\nlibrary: nope.yaml\nassertions: [{type: rows}]\n",
			want: "library file",
		},
		{
			name: "no assertions",
			body: "name: x\ndescription: x\nlibrary: library.yaml\n",
			want: "assertions list is required",
		},
		{
			name: "bad stage kind",
			body: "name: x\ndescription: x\nlibrary: library.yaml\nstages: [{kind: colour}]\nassertions: [{type: rows}]\n",
			want: `unknown stage kind "colour"`,
		},
		{
			name: "bank without collection",
			body: "name: x\ndescription: x\nlibrary: library.yaml\nstages: [{kind: bank}]\nassertions: [{type: rows}]\n",
			want: "collection is required for bank",
		},
		{
			name: "filter stage out of range",
			body: "name: x\ndescription: x\nlibrary: library.yaml\nsteps: [{filter: {stage: 0}}]\nassertions: [{type: rows}]\n",
			want: "filter stage 0 out of range",
		},
		{
			name: "step with two actions",
			body: "name: x\ndescription: x\nlibrary: library.yaml\nsteps: [{refresh: true, edit: {sound: a}}]\nassertions: [{type: rows}]\n",
			want: "exactly one of",
		},
		{
			name: "bad mode",
			body: "name: x\ndescription: x\nlibrary: library.yaml\nallocate: {mode: random}\nassertions: [{type: rows}]\n",
			want: `unknown allocation mode "random"`,
		},
		{
			name: "alert without allocate",
			body: "name: x\ndescription: x\nlibrary: library.yaml\nassertions: [{type: alert, alert: None}]\n",
			want: "alert requires an allocate block",
		},
		{
			name: "allocation without slots",
			body: "name: x\ndescription: x\nlibrary: library.yaml\nallocate: {}\nassertions: [{type: allocation}]\n",
			want: "slots is required",
		},
		{
			name: "unknown assertion",
			body: "name: x\ndescription: x\nlibrary: library.yaml\nassertions: [{type: trace_order}]\n",
			want: `unknown assertion type "trace_order"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
