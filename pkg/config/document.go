package config

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/stratus-data/stratus/pkg/errors"
)

// Section names of the four mandatory top-level document sections.
const (
	SectionDatabase    = "database"
	SectionDataSources = "data_sources"
	SectionDataQuality = "data_quality"
	SectionPipeline    = "pipeline"
)

// requiredSections lists the sections a document must carry to load.
var requiredSections = []string{
	SectionDatabase,
	SectionDataSources,
	SectionDataQuality,
	SectionPipeline,
}

// DatabaseConfig identifies the logical warehouse database and its
// named schema aliases (e.g. "raw" -> "RAW_DATA").
type DatabaseConfig struct {
	Name    string            `yaml:"name" json:"name"`
	Schemas map[string]string `yaml:"schemas" json:"schemas"`
}

// Data-quality rule types with defined threshold semantics. Rules of
// any other type pass threshold validation unchecked.
const (
	RuleCompleteness = "completeness"
	RuleUniqueness   = "uniqueness"
	RuleTimeliness   = "timeliness"
)

// DataQualityRule is a single validation rule from
// data_quality.validation_rules. Threshold ranges are not enforced at
// construction; see Store.ValidateThresholds.
type DataQualityRule struct {
	Name      string               `yaml:"name" json:"name"`
	Type      string               `yaml:"type" json:"type"`
	Threshold float64              `yaml:"threshold" json:"threshold"`
	Critical  bool                 `yaml:"critical" json:"critical"`
	Rules     map[string][]float64 `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// ThresholdValid reports whether the rule's threshold satisfies the
// type-specific range: completeness and uniqueness thresholds are
// percentages in [0, 100], timeliness thresholds are non-negative.
func (r DataQualityRule) ThresholdValid() bool {
	switch r.Type {
	case RuleCompleteness, RuleUniqueness:
		return r.Threshold >= 0 && r.Threshold <= 100
	case RuleTimeliness:
		return r.Threshold >= 0
	default:
		return true
	}
}

// PipelineStageConfig is the sparse record of tuning knobs for a named
// pipeline stage. Absent knobs stay nil; no defaults are applied.
type PipelineStageConfig struct {
	BatchSize          *int     `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
	ParallelWorkers    *int     `yaml:"parallel_workers,omitempty" json:"parallel_workers,omitempty"`
	ErrorHandling      *string  `yaml:"error_handling,omitempty" json:"error_handling,omitempty"`
	WarehouseSize      *string  `yaml:"warehouse_size,omitempty" json:"warehouse_size,omitempty"`
	TimeoutMinutes     *int     `yaml:"timeout_minutes,omitempty" json:"timeout_minutes,omitempty"`
	AutoSuspendMinutes *int     `yaml:"auto_suspend_minutes,omitempty" json:"auto_suspend_minutes,omitempty"`
	ExportFormats      []string `yaml:"export_formats,omitempty" json:"export_formats,omitempty"`
	Compression        *string  `yaml:"compression,omitempty" json:"compression,omitempty"`
}

// Summary is the derived snapshot returned by Store.Summary.
type Summary struct {
	Database          string   `json:"database"`
	DataSources       []string `json:"data_sources"`
	DataQualityRules  int      `json:"data_quality_rules"`
	PipelineStages    []string `json:"pipeline_stages"`
	MonitoringEnabled bool     `json:"monitoring_enabled"`
	ConfigFile        string   `json:"config_file"`
}

// decodeSection re-marshals a raw document subtree and decodes it into
// a typed record. With strict set, unknown keys in the subtree fail the
// decode, which the caller surfaces as a schema error.
func decodeSection(raw interface{}, out interface{}, strict bool) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(strict)

	return dec.Decode(out)
}

// validateSections checks the four mandatory sections and reports every
// missing one in a single error.
func validateSections(doc map[string]interface{}) error {
	var missing []string
	for _, section := range requiredSections {
		if _, ok := doc[section]; !ok {
			missing = append(missing, section)
		}
	}

	if len(missing) > 0 {
		return errors.Newf(errors.TypeSchema,
			"missing required configuration sections: %v", missing).
			WithDetail("missing_sections", missing)
	}

	return nil
}
