package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_SequentialByName(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "export", "--db", db, "--format", "json",
		"--to", "Live", "--select", "4,1", "--mode", "sequential", "--order", "name")
	require.NoError(t, err)

	resp := decode[ExportReport](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, resp.SessionID, resp.Data.SessionID)
	assert.Equal(t, "None", resp.Data.Alert)
	assert.Equal(t, 2, resp.Data.Written)
	assert.Empty(t, resp.Data.Missing)
	assert.Equal(t, []ExportEntry{
		{UID: 4, Name: "Bass Four", Source: "----", Slot: "A000"},
		{UID: 1, Name: "Bass One", Source: "----", Slot: "A001"},
	}, resp.Data.Entries)

	// The export is persisted.
	out, err = execute(t, "list", "--db", db, "--format", "json", "--collection", "Live", "--sort", "slot")
	require.NoError(t, err)
	// Bass One moved from A005 to A001 rather than gaining a second slot.
	names := listNames(t, out)
	assert.Equal(t, []string{"Bass Four", "Bass One", "Lead Two", "Pad Three"}, names)
}

func TestExport_AutoKeepsSourceSlots(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "export", "--db", db, "--format", "json",
		"--from", "Factory", "--to", "Empty", "--select", "3,2")
	require.NoError(t, err)

	resp := decode[ExportReport](t, out)
	assert.Equal(t, []ExportEntry{
		{UID: 3, Name: "Pad Three", Source: "A002", Slot: "A002"},
		{UID: 2, Name: "Lead Two", Source: "A001", Slot: "A001"},
	}, resp.Data.Entries)
	assert.Equal(t, 2, resp.Data.Written)

	out, err = execute(t, "collections", "--db", db, "--format", "json")
	require.NoError(t, err)
	colls := decode[[]CollectionInfo](t, out)
	require.Len(t, colls.Data, 3)
	assert.Equal(t, 2, colls.Data[2].Sounds)
}

func TestExport_SelectsThroughFilters(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "export", "--db", db, "--format", "json",
		"--to", "Empty", "--tag", "warm", "--mode", "sequential", "--dry-run")
	require.NoError(t, err)

	resp := decode[ExportReport](t, out)
	assert.True(t, resp.Data.DryRun)
	assert.Equal(t, 0, resp.Data.Written)
	require.Len(t, resp.Data.Entries, 2)
	assert.Equal(t, "Pad Three", resp.Data.Entries[0].Name)
	assert.Equal(t, "Pad Six", resp.Data.Entries[1].Name)
}

func TestExport_DryRunText(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "export", "--db", db, "--to", "Live", "--select", "5,99", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Keys Five")
	assert.Contains(t, out, "Skipped missing uids: [99]")
	assert.Contains(t, out, "Alert: None")
	assert.Contains(t, out, "Dry run: 1 sounds allocated, nothing written")

	// Nothing was written.
	out, err = execute(t, "list", "--db", db, "--format", "json", "--collection", "Live")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bass One", "Lead Two", "Pad Three"}, listNames(t, out))
}

func TestExport_ReadOnlyTarget(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "export", "--db", db, "--to", "Factory", "--select", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeExportFailed)
	assert.Contains(t, out, "Export refused")
}

func TestExport_ReadOnlyTargetJSON(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "export", "--db", db, "--format", "json", "--to", "Factory", "--select", "1")
	require.Error(t, err)

	resp := decode[ExportReport](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeExportFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "EXPORT_FAILED")
	assert.Len(t, resp.Data.Entries, 1)
}

func TestExport_Errors(t *testing.T) {
	db := importedDB(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing target", []string{"--select", "1"}, "required flag"},
		{"unknown target", []string{"--to", "Nowhere"}, "unknown collection Nowhere"},
		{"unknown source", []string{"--to", "Live", "--from", "Nowhere"}, "unknown collection Nowhere"},
		{"bad mode", []string{"--to", "Live", "--mode", "random"}, "invalid --mode"},
		{"bad order", []string{"--to", "Live", "--order", "size"}, "invalid --order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"export", "--db", db}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
