package migration

import (
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFSMigrator(fsys fstest.MapFS) *Migrator {
	return &Migrator{files: fsys, logger: testLogger()}
}

func TestLoadSteps(t *testing.T) {
	t.Run("pairs load sorted by version", func(t *testing.T) {
		m := newFSMigrator(fstest.MapFS{
			"002_add_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INT)")},
			"002_add_widgets.down.sql": {Data: []byte("DROP TABLE widgets")},
			"001_baseline.up.sql":      {Data: []byte("CREATE TABLE base (id INT)")},
			"001_baseline.down.sql":    {Data: []byte("DROP TABLE base")},
		})

		steps, err := m.loadSteps()
		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.Equal(t, 1, steps[0].version)
		assert.Equal(t, "baseline", steps[0].name)
		assert.Equal(t, 2, steps[1].version)
		assert.Equal(t, "DROP TABLE widgets", steps[1].downSQL)
	})

	t.Run("missing down file is an error", func(t *testing.T) {
		m := newFSMigrator(fstest.MapFS{
			"001_baseline.up.sql": {Data: []byte("CREATE TABLE base (id INT)")},
		})

		_, err := m.loadSteps()
		assert.ErrorContains(t, err, "no down file")
	})

	t.Run("malformed filename is an error", func(t *testing.T) {
		m := newFSMigrator(fstest.MapFS{
			"baseline.up.sql":   {Data: []byte("CREATE TABLE base (id INT)")},
			"baseline.down.sql": {Data: []byte("DROP TABLE base")},
		})

		_, err := m.loadSteps()
		assert.ErrorContains(t, err, "malformed migration")
	})

	t.Run("non-numeric version is an error", func(t *testing.T) {
		m := newFSMigrator(fstest.MapFS{
			"one_baseline.up.sql":   {Data: []byte("CREATE TABLE base (id INT)")},
			"one_baseline.down.sql": {Data: []byte("DROP TABLE base")},
		})

		_, err := m.loadSteps()
		assert.ErrorContains(t, err, "malformed migration version")
	})
}

func TestParseStepName(t *testing.T) {
	version, name, err := parseStepName("003_create_account_job_schedules.up.sql")
	require.NoError(t, err)
	assert.Equal(t, 3, version)
	assert.Equal(t, "create_account_job_schedules", name)
}

func TestChecksum(t *testing.T) {
	a := checksum("CREATE TABLE a (id INT)")
	b := checksum("CREATE TABLE b (id INT)")

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, checksum("CREATE TABLE a (id INT)"))
}
