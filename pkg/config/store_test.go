package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stratus-data/stratus/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
database:
  name: TASTY_BYTES
  schemas:
    raw: RAW_DATA
    harmonized: HARMONIZED
data_sources:
  weather_data:
    table: weather_hamburg
    schema: harmonized
    refresh_frequency: daily
    retention_days: 365
data_quality:
  validation_rules:
    - name: null_check
      type: completeness
      threshold: 95
      critical: true
pipeline:
  stages:
    ingestion:
      batch_size: 10000
      parallel_workers: 4
  logging:
    level: INFO
`

func newTestStore(t *testing.T, content string) *Store {
	t.Helper()
	store, err := New(writeConfig(t, content), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	return store
}

func TestNew(t *testing.T) {
	t.Run("complete document loads", func(t *testing.T) {
		store := newTestStore(t, minimalConfig)
		assert.Equal(t, "TASTY_BYTES", store.DatabaseConfig().Name)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.True(t, errors.IsType(err, errors.TypeNotFound))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := New(writeConfig(t, "database: [unclosed"))
		assert.True(t, errors.IsType(err, errors.TypeMalformed))
	})

	t.Run("missing sections are all reported", func(t *testing.T) {
		_, err := New(writeConfig(t, "database:\n  name: DB\n"))
		require.True(t, errors.IsType(err, errors.TypeSchema))
		assert.Contains(t, err.Error(), "data_sources")
		assert.Contains(t, err.Error(), "data_quality")
		assert.Contains(t, err.Error(), "pipeline")
		assert.NotContains(t, err.Error(), "[database")
	})

	t.Run("invalid logging level does not fail construction", func(t *testing.T) {
		cfg := `
database: {name: DB, schemas: {}}
data_sources: {}
data_quality: {}
pipeline:
  logging:
    level: SHOUTING
`
		store, err := New(writeConfig(t, cfg))
		require.NoError(t, err)
		assert.NotNil(t, store)
	})
}

func TestDatabaseConfig(t *testing.T) {
	db := newTestStore(t, minimalConfig).DatabaseConfig()

	assert.Equal(t, "TASTY_BYTES", db.Name)
	assert.Equal(t, map[string]string{
		"raw":        "RAW_DATA",
		"harmonized": "HARMONIZED",
	}, db.Schemas)
}

func TestDataSourceConfig(t *testing.T) {
	store := newTestStore(t, minimalConfig)

	t.Run("known source round-trips", func(t *testing.T) {
		attrs, err := store.DataSourceConfig("weather_data")
		require.NoError(t, err)
		assert.Equal(t, "weather_hamburg", attrs["table"])
		assert.Equal(t, "harmonized", attrs["schema"])
		assert.Equal(t, "daily", attrs["refresh_frequency"])
		assert.Equal(t, 365, attrs["retention_days"])
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := store.DataSourceConfig("missing")
		assert.True(t, errors.IsType(err, errors.TypeNotFound))
		assert.Contains(t, err.Error(), "missing")
	})
}

func TestDataQualityRules(t *testing.T) {
	t.Run("document order", func(t *testing.T) {
		cfg := `
database: {name: DB, schemas: {}}
data_sources: {}
data_quality:
  validation_rules:
    - {name: a, type: completeness, threshold: 95, critical: true}
    - {name: b, type: timeliness, threshold: 24, critical: false}
    - name: c
      type: uniqueness
      threshold: 100
      critical: true
      rules:
        sales_range: [0, 5000000]
pipeline: {}
`
		rules := newTestStore(t, cfg).DataQualityRules()
		require.Len(t, rules, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{rules[0].Name, rules[1].Name, rules[2].Name})
		assert.Equal(t, 24.0, rules[1].Threshold)
		assert.Equal(t, map[string][]float64{"sales_range": {0, 5000000}}, rules[2].Rules)
	})

	t.Run("absent rule list yields empty slice", func(t *testing.T) {
		cfg := `
database: {name: DB, schemas: {}}
data_sources: {}
data_quality: {}
pipeline: {}
`
		assert.Empty(t, newTestStore(t, cfg).DataQualityRules())
	})
}

func TestValidateThresholds(t *testing.T) {
	cfg := `
database: {name: DB, schemas: {}}
data_sources: {}
data_quality:
  validation_rules:
    - {name: ok_completeness, type: completeness, threshold: 100, critical: true}
    - {name: bad_completeness, type: completeness, threshold: 101, critical: true}
    - {name: ok_uniqueness, type: uniqueness, threshold: 0, critical: false}
    - {name: bad_uniqueness, type: uniqueness, threshold: -1, critical: false}
    - {name: ok_timeliness, type: timeliness, threshold: 0, critical: false}
    - {name: bad_timeliness, type: timeliness, threshold: -0.5, critical: false}
    - {name: unchecked, type: consistency, threshold: 9000, critical: false}
pipeline: {}
`
	results := newTestStore(t, cfg).ValidateThresholds()

	assert.Equal(t, map[string]bool{
		"ok_completeness":  true,
		"bad_completeness": false,
		"ok_uniqueness":    true,
		"bad_uniqueness":   false,
		"ok_timeliness":    true,
		"bad_timeliness":   false,
		"unchecked":        true,
	}, results)
}

func TestValidateThresholdsDuplicateNames(t *testing.T) {
	// later entries overwrite earlier ones: last-write-wins
	cfg := `
database: {name: DB, schemas: {}}
data_sources: {}
data_quality:
  validation_rules:
    - {name: dup, type: completeness, threshold: 50, critical: true}
    - {name: dup, type: completeness, threshold: 150, critical: true}
pipeline: {}
`
	results := newTestStore(t, cfg).ValidateThresholds()
	require.Len(t, results, 1)
	assert.False(t, results["dup"])
}

func TestPipelineStage(t *testing.T) {
	store := newTestStore(t, minimalConfig)

	t.Run("known stage", func(t *testing.T) {
		stage, err := store.PipelineStage("ingestion")
		require.NoError(t, err)
		require.NotNil(t, stage.BatchSize)
		require.NotNil(t, stage.ParallelWorkers)
		assert.Equal(t, 10000, *stage.BatchSize)
		assert.Equal(t, 4, *stage.ParallelWorkers)
		assert.Nil(t, stage.ErrorHandling)
		assert.Nil(t, stage.Compression)
	})

	t.Run("missing stage", func(t *testing.T) {
		_, err := store.PipelineStage("export")
		assert.True(t, errors.IsType(err, errors.TypeNotFound))
	})

	t.Run("unknown field is a schema error", func(t *testing.T) {
		cfg := `
database: {name: DB, schemas: {}}
data_sources: {}
data_quality: {}
pipeline:
  stages:
    export:
      export_formats: [csv, parquet]
      compression: gzip
      shard_count: 8
`
		store := newTestStore(t, cfg)
		_, err := store.PipelineStage("export")
		require.True(t, errors.IsType(err, errors.TypeSchema))
		assert.Contains(t, err.Error(), "export")
	})

	t.Run("all knobs decode", func(t *testing.T) {
		cfg := `
database: {name: DB, schemas: {}}
data_sources: {}
data_quality: {}
pipeline:
  stages:
    export:
      batch_size: 500
      parallel_workers: 2
      error_handling: retry
      warehouse_size: X-Small
      timeout_minutes: 30
      auto_suspend_minutes: 5
      export_formats: [csv, parquet]
      compression: gzip
`
		stage, err := newTestStore(t, cfg).PipelineStage("export")
		require.NoError(t, err)
		assert.Equal(t, "retry", *stage.ErrorHandling)
		assert.Equal(t, "X-Small", *stage.WarehouseSize)
		assert.Equal(t, 30, *stage.TimeoutMinutes)
		assert.Equal(t, 5, *stage.AutoSuspendMinutes)
		assert.Equal(t, []string{"csv", "parquet"}, stage.ExportFormats)
		assert.Equal(t, "gzip", *stage.Compression)
	})
}

func TestRawSections(t *testing.T) {
	cfg := minimalConfig + `
streamlit:
  page_title: Weather and Sales
monitoring:
  enabled: true
  alert_channel: "#data-alerts"
`
	store := newTestStore(t, cfg)

	assert.Equal(t, "Weather and Sales", store.StreamlitConfig()["page_title"])
	assert.Equal(t, true, store.MonitoringConfig()["enabled"])

	// absent sections default to an empty mapping
	bare := newTestStore(t, minimalConfig)
	assert.Empty(t, bare.StreamlitConfig())
	assert.Empty(t, bare.MonitoringConfig())
}

func TestUpdateConfig(t *testing.T) {
	t.Run("persist and reload round-trip", func(t *testing.T) {
		path := writeConfig(t, minimalConfig)
		store, err := New(path, WithLogger(zap.NewNop()))
		require.NoError(t, err)

		require.NoError(t, store.UpdateConfig("pipeline", "retries", 3))

		reloaded, err := New(path, WithLogger(zap.NewNop()))
		require.NoError(t, err)
		value, err := reloaded.Get("pipeline", "retries")
		require.NoError(t, err)
		assert.Equal(t, 3, value)
	})

	t.Run("creates absent section", func(t *testing.T) {
		path := writeConfig(t, minimalConfig)
		store, err := New(path, WithLogger(zap.NewNop()))
		require.NoError(t, err)

		require.NoError(t, store.UpdateConfig("monitoring", "enabled", true))
		assert.Equal(t, true, store.MonitoringConfig()["enabled"])

		reloaded, err := New(path, WithLogger(zap.NewNop()))
		require.NoError(t, err)
		assert.True(t, reloaded.Summary().MonitoringEnabled)
	})
}

func TestConnectionParams(t *testing.T) {
	envKeys := []string{"ACCOUNT", "USER", "PASSWORD", "WAREHOUSE", "ROLE"}

	t.Run("all variables missing", func(t *testing.T) {
		for _, key := range envKeys {
			t.Setenv(EnvPrefix+"_"+key, "")
		}

		store := newTestStore(t, minimalConfig)
		_, err := store.ConnectionParams()
		require.True(t, errors.IsType(err, errors.TypeEnvironment))
		for _, key := range envKeys {
			assert.Contains(t, err.Error(), EnvPrefix+"_"+key)
		}
	})

	t.Run("partial set still reports the full missing list", func(t *testing.T) {
		for _, key := range envKeys {
			t.Setenv(EnvPrefix+"_"+key, "")
		}
		t.Setenv("SNOWFLAKE_ACCOUNT", "xy12345")
		t.Setenv("SNOWFLAKE_USER", "pipeline")

		store := newTestStore(t, minimalConfig)
		_, err := store.ConnectionParams()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SNOWFLAKE_PASSWORD")
		assert.Contains(t, err.Error(), "SNOWFLAKE_WAREHOUSE")
		assert.Contains(t, err.Error(), "SNOWFLAKE_ROLE")
		assert.NotContains(t, err.Error(), "SNOWFLAKE_ACCOUNT")
	})

	t.Run("all variables set", func(t *testing.T) {
		t.Setenv("SNOWFLAKE_ACCOUNT", "xy12345.eu-central-1")
		t.Setenv("SNOWFLAKE_USER", "pipeline")
		t.Setenv("SNOWFLAKE_PASSWORD", "secret")
		t.Setenv("SNOWFLAKE_WAREHOUSE", "COMPUTE_WH")
		t.Setenv("SNOWFLAKE_ROLE", "SYSADMIN")

		store := newTestStore(t, minimalConfig)
		params, err := store.ConnectionParams()
		require.NoError(t, err)

		assert.Equal(t, ConnectionParams{
			"account":   "xy12345.eu-central-1",
			"user":      "pipeline",
			"password":  "secret",
			"warehouse": "COMPUTE_WH",
			"role":      "SYSADMIN",
			"database":  "TASTY_BYTES",
		}, params)
	})
}

func TestSummary(t *testing.T) {
	store := newTestStore(t, minimalConfig)
	summary := store.Summary()

	assert.Equal(t, "TASTY_BYTES", summary.Database)
	assert.Equal(t, []string{"weather_data"}, summary.DataSources)
	assert.Equal(t, 1, summary.DataQualityRules)
	assert.Equal(t, []string{"ingestion"}, summary.PipelineStages)
	assert.False(t, summary.MonitoringEnabled)
	assert.Equal(t, store.Path(), summary.ConfigFile)
}

func TestParseKeyPath(t *testing.T) {
	section, key, err := ParseKeyPath("pipeline.retries")
	require.NoError(t, err)
	assert.Equal(t, "pipeline", section)
	assert.Equal(t, "retries", key)

	// only the first dot splits, keys may contain dots
	section, key, err = ParseKeyPath("streamlit.page.title")
	require.NoError(t, err)
	assert.Equal(t, "streamlit", section)
	assert.Equal(t, "page.title", key)

	_, _, err = ParseKeyPath("nodot")
	assert.Error(t, err)
	_, _, err = ParseKeyPath(".key")
	assert.Error(t, err)
}
