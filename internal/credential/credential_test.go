package credential

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr string
	}{
		{name: "valid", input: `[{"key":"c_user","value":"1"},{"key":"xs","value":"2"}]`, wantLen: 2},
		{name: "comments allowed", input: "[\n// exported today\n{\"key\":\"c_user\"}\n]", wantLen: 1},
		{name: "empty input", input: "  ", wantErr: "empty"},
		{name: "object not array", input: `{"key":"c_user"}`, wantErr: "not a JSON array"},
		{name: "empty array", input: `[]`, wantErr: "empty array"},
		{name: "scalar entry", input: `[{"key":"a"}, 3]`, wantErr: "entry 1 is not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := Parse("test", []byte(tt.input))
			if tt.wantErr != "" {
				var invalid *InvalidSessionError
				require.True(t, errors.As(err, &invalid), "got %v", err)
				assert.Contains(t, invalid.Reason, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, blob, tt.wantLen)
		})
	}
}

func TestSourceLoad_InlineWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appstate.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"key":"file"}]`), 0o600))

	blob, err := Source{Inline: `[{"key":"env"},{"key":"env2"}]`, Path: path}.Load()
	require.NoError(t, err)
	assert.Len(t, blob, 2)
}

func TestSourceLoad_RefreshedSnapshotWinsOverInline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appstate.json")
	inline := `[{"key":"env"},{"key":"env2"}]`
	started := time.Now().Add(-time.Minute)

	tests := []struct {
		name     string
		content  string
		modTime  time.Time
		wantKeys int
	}{
		{"snapshot from before start", `[{"key":"file"}]`, started.Add(-time.Hour), 2},
		{"snapshot written since start", `[{"key":"file"}]`, started.Add(time.Second), 1},
		{"broken snapshot since start", `not json`, started.Add(time.Second), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			require.NoError(t, os.Chtimes(path, tt.modTime, tt.modTime))

			blob, err := Source{Inline: inline, Path: path, Since: started}.Load()
			require.NoError(t, err)
			assert.Len(t, blob, tt.wantKeys)
		})
	}
}

func TestSourceLoad_MissingFile(t *testing.T) {
	_, err := Source{Path: filepath.Join(t.TempDir(), "appstate.json")}.Load()

	var invalid *InvalidSessionError
	require.True(t, errors.As(err, &invalid))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSaveSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appstate.json")

	blob, err := Parse("test", []byte(`[{"key":"c_user","value":"1"}]`))
	require.NoError(t, err)
	require.NoError(t, SaveSnapshot(path, blob))

	reloaded, err := Source{Path: path}.Load()
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.JSONEq(t, `{"key":"c_user","value":"1"}`, string(reloaded[0]))

	// an empty blob leaves the previous snapshot alone
	require.NoError(t, SaveSnapshot(path, nil))
	again, err := Source{Path: path}.Load()
	require.NoError(t, err)
	assert.Len(t, again, 1)
}
