package database

import (
	"testing"
	"testing/fstest"

	"github.com/m3rciful/funnelbot/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpFilesAndAppliedRange(t *testing.T) {
	src := fstest.MapFS{
		"000002_users_chat_index.up.sql": {Data: []byte("--")},
		"000001_create_users.up.sql":     {Data: []byte("--")},
		"000001_create_users.down.sql":   {Data: []byte("--")},
		"README.md":                      {Data: []byte("x")},
	}

	files, err := upFiles(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_users.up.sql", "000002_users_chat_index.up.sql"}, files)

	assert.Len(t, appliedBetween(files, 0, 2), 2)
	assert.Empty(t, appliedBetween(files, 2, 2))
	assert.Equal(t, []string{"000002_users_chat_index.up.sql"}, appliedBetween(files, 1, 2))
	assert.Empty(t, appliedBetween([]string{"notes_up.sql"}, 0, 9))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := upFiles(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	for _, up := range ups {
		down := up[:len(up)-len(".up.sql")] + ".down.sql"
		_, err := migrations.FS.Open(down)
		assert.NoError(t, err, "missing %s", down)
	}
}

func TestRunMigrationsRequiresSource(t *testing.T) {
	assert.Error(t, RunMigrations(Config{}, nil))
}
