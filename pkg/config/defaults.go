package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stratus-data/stratus/pkg/errors"
)

// DefaultDocument returns the canonical minimal configuration: the
// TASTY_BYTES database with its three schema aliases, the Hamburg
// weather data source, one critical completeness rule, and a single
// ingestion stage.
func DefaultDocument() map[string]interface{} {
	return map[string]interface{}{
		SectionDatabase: map[string]interface{}{
			"name": "TASTY_BYTES",
			"schemas": map[string]interface{}{
				"raw":        "RAW_DATA",
				"harmonized": "HARMONIZED",
				"analytics":  "ANALYTICS",
			},
		},
		SectionDataSources: map[string]interface{}{
			"weather_data": map[string]interface{}{
				"table":             "weather_hamburg",
				"schema":            "harmonized",
				"refresh_frequency": "daily",
				"retention_days":    365,
			},
		},
		SectionDataQuality: map[string]interface{}{
			"validation_rules": []interface{}{
				map[string]interface{}{
					"name":      "null_check",
					"type":      RuleCompleteness,
					"threshold": 95,
					"critical":  true,
				},
			},
		},
		SectionPipeline: map[string]interface{}{
			"stages": map[string]interface{}{
				"ingestion": map[string]interface{}{
					"batch_size":       10000,
					"parallel_workers": 4,
				},
			},
			"logging": map[string]interface{}{
				"level": "INFO",
			},
		},
	}
}

// WriteDefaultDocument writes the canonical default configuration to
// path, overwriting any existing file. It is the recovery action when
// loading a config fails.
func WriteDefaultDocument(path string) error {
	data, err := yaml.Marshal(DefaultDocument())
	if err != nil {
		return errors.Wrap(err, errors.TypeConfig, "failed to serialize default configuration")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return errors.Wrap(err, errors.TypeConfig, "failed to create temporary config file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.TypeConfig, "failed to write default configuration")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.TypeConfig, "failed to close temporary config file")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.TypeConfig, "failed to replace configuration file")
	}

	return nil
}
