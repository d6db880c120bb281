package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/casedesk/go-casedesk/client"
	"github.com/casedesk/go-casedesk/reqcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, reqcache.DefaultTTL, cfg.CacheTTL)
	assert.Equal(t, reqcache.DefaultSweepInterval, cfg.SweepInterval)
	assert.Equal(t, reqcache.DefaultOrphanThreshold, cfg.OrphanThreshold)
	assert.Equal(t, client.DefaultTTLs, cfg.TTLs)
	assert.NotEmpty(t, cfg.DBPath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CASEDESK_DB", "/tmp/cases.db")
	t.Setenv("CASEDESK_CACHE_TTL", "45s")
	t.Setenv("CASEDESK_CACHE_SWEEP_INTERVAL", "2m")
	t.Setenv("CASEDESK_TTL_SOURCES", "1h30m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cases.db", cfg.DBPath)
	assert.Equal(t, 45*time.Second, cfg.CacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 90*time.Minute, cfg.TTLs.Sources)
	// Untouched settings keep their defaults.
	assert.Equal(t, client.DefaultTTLs.Files, cfg.TTLs.Files)
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("CASEDESK_CACHE_TTL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CASEDESK_CACHE_TTL")
}

func TestParseEnvBuffer(t *testing.T) {
	vars := parseEnvBuffer([]byte(`
# comment
CASEDESK_DB="/data/cases.db"
EMPTY=
QUOTED='hello world'
BARE
`))
	require.Len(t, vars, 4)
	assert.Equal(t, Var{"CASEDESK_DB", "/data/cases.db"}, vars[0])
	assert.Equal(t, Var{"EMPTY", ""}, vars[1])
	assert.Equal(t, Var{"QUOTED", "hello world"}, vars[2])
	assert.Equal(t, Var{"BARE", ""}, vars[3])
}

func TestInterpolation(t *testing.T) {
	t.Setenv("CASEDESK_HOME", "/srv/casedesk")
	vars := parseEnvBuffer([]byte(`
BASE=${CASEDESK_HOME}
CASEDESK_DB=${BASE}/cases.db
WITH_DEFAULT=${MISSING:-fallback}
PRESERVED=${MISSING}
`))
	byKey := map[string]string{}
	for _, v := range vars {
		byKey[v.Key] = v.Val
	}
	assert.Equal(t, "/srv/casedesk", byKey["BASE"])
	assert.Equal(t, "/srv/casedesk/cases.db", byKey["CASEDESK_DB"])
	assert.Equal(t, "fallback", byKey["WITH_DEFAULT"])
	assert.Equal(t, "${MISSING}", byKey["PRESERVED"])
}

func TestApplyEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CASEDESK_APPLY_A=from-file\nCASEDESK_APPLY_B=from-file\n"), 0o644))

	t.Setenv("CASEDESK_APPLY_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("CASEDESK_APPLY_A") })

	require.NoError(t, ApplyEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("CASEDESK_APPLY_A"))
	assert.Equal(t, "from-env", os.Getenv("CASEDESK_APPLY_B"))
}

func TestApplyEnvFileMissing(t *testing.T) {
	assert.NoError(t, ApplyEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}
