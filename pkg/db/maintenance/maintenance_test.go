package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowthepast/pkg/db"
)

func setup(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Init(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	old := time.Now().Add(-48 * time.Hour).Unix()
	_, err = d.Exec("INSERT INTO cache (key, value, created_at) VALUES ('old', x'00', ?), ('fresh', x'00', ?)", old, time.Now().Unix())
	require.NoError(t, err)
	_, err = d.Exec("INSERT INTO places (id, name) VALUES ('p-1', 'Hegra')")
	require.NoError(t, err)
	return d
}

func count(t *testing.T, d *db.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, d.QueryRow("SELECT count(*) FROM "+table).Scan(&n))
	return n
}

func TestRun(t *testing.T) {
	d := setup(t)
	Run(context.Background(), d, 24*time.Hour)

	assert.Equal(t, 0, count(t, d, "places"))
	assert.Equal(t, 1, count(t, d, "cache"))
}

func TestRun_ZeroTTLKeepsCache(t *testing.T) {
	d := setup(t)
	Run(context.Background(), d, 0)
	assert.Equal(t, 2, count(t, d, "cache"))
}

func TestSchedule(t *testing.T) {
	d := setup(t)

	stop, err := Schedule(context.Background(), d, "", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, stop)

	_, err = Schedule(context.Background(), d, "not a cron line", time.Hour)
	assert.Error(t, err)

	stop, err = Schedule(context.Background(), d, "@every 50ms", 24*time.Hour)
	require.NoError(t, err)
	defer stop()

	assert.Eventually(t, func() bool {
		var n int
		_ = d.QueryRow("SELECT count(*) FROM cache").Scan(&n)
		return n == 1
	}, 3*time.Second, 50*time.Millisecond)
	stop()
	stop()
}
