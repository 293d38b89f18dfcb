// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"icfes-recommender/internal/recommendation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
app:
  name: icfes-recommender
  environment: test
database:
  postgres:
    host: localhost
    database: icfes
    user: icfes
  redis:
    address: localhost:6379
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "recommendations", cfg.Database.Elasticsearch.Index)
	assert.False(t, cfg.Database.Elasticsearch.Enabled)
	assert.False(t, cfg.Camunda.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 300000, cfg.Recommendation.CacheTTL)
	assert.Equal(t, 4, cfg.Recommendation.BatchConcurrency)
	assert.Equal(t, 5*time.Minute, GetDuration(cfg.Recommendation.CacheTTL))
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML+`
workers:
  recommend-areas:
    enabled: true
  recommend-areas-batch:
    enabled: false
    timeout: 120000
`))
	require.NoError(t, err)

	w := GetWorkerConfig(cfg, "recommend-areas")
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)

	assert.Equal(t, 120000, GetWorkerConfig(cfg, "recommend-areas-batch").Timeout)
	assert.False(t, IsWorkerEnabled(cfg, "recommend-areas-batch"))
	assert.True(t, IsWorkerEnabled(cfg, "fetch-student-recommendation"))
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, `
database:
  postgres:
    host: localhost
    database: icfes
    user: icfes
    password: ${TEST_PG_PASSWORD}
  redis:
    address: localhost:6379
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name: "missing postgres host",
			yaml: `
database:
  postgres:
    database: icfes
    user: icfes
  redis:
    address: localhost:6379
`,
			errMsg: "database.postgres.host is required",
		},
		{
			name: "missing redis address",
			yaml: `
database:
  postgres:
    host: localhost
    database: icfes
    user: icfes
`,
			errMsg: "database.redis.address is required",
		},
		{
			name:   "camunda enabled without broker",
			yaml:   baseYAML + "camunda:\n  enabled: true\n",
			errMsg: "camunda.broker_address is required",
		},
		{
			name: "elasticsearch enabled without addresses",
			yaml: `
database:
  postgres:
    host: localhost
    database: icfes
    user: icfes
  redis:
    address: localhost:6379
  elasticsearch:
    enabled: true
`,
			errMsg: "database.elasticsearch.addresses is required",
		},
		{
			name: "unknown catalog category",
			yaml: baseYAML + `
recommendation:
  catalog:
    - category: Deportes
      programs: ["Educación Física"]
`,
			errMsg: `unknown category "Deportes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromFile(writeConfig(t, tt.yaml))
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestBuildCatalog(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML+`
recommendation:
  catalog:
    - category: STEM
      programs: ["Física", "Estadística"]
`))
	require.NoError(t, err)

	catalog, err := BuildCatalog(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"Física", "Estadística"}, catalog.Programs(recommendation.CategorySTEM))
	assert.Equal(t,
		recommendation.DefaultCatalog().Programs(recommendation.CategoryHumanidades),
		catalog.Programs(recommendation.CategoryHumanidades),
	)
}

func TestBuildCatalog_NoOverrides(t *testing.T) {
	catalog, err := BuildCatalog(&Config{})
	require.NoError(t, err)
	assert.Len(t, catalog.Programs(recommendation.CategorySalud), 4)
}
