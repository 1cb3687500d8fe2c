package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_EmbeddedOrder(t *testing.T) {
	ms, err := List()
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "0001_profiles", ms[0].Version)
	assert.Equal(t, "0002_profiles_user_type_check", ms[1].Version)
	assert.Contains(t, ms[0].SQL, "CREATE TABLE IF NOT EXISTS profiles")
}

func TestLoad_SortsAndSkipsNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_b.sql":   {Data: []byte("SELECT 2")},
		"m/0001_a.sql":   {Data: []byte("SELECT 1")},
		"m/README.md":    {Data: []byte("notes")},
		"m/sub/0003.sql": {Data: []byte("SELECT 3")},
	}
	ms, err := load(fsys, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, Migration{Version: "0001_a", SQL: "SELECT 1"}, ms[0])
	assert.Equal(t, "0002_b", ms[1].Version)
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := load(fstest.MapFS{}, "nope")
	require.Error(t, err)
}
