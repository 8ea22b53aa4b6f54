package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/stratus-data/stratus/pkg/errors"
	"github.com/stratus-data/stratus/pkg/logger"
	"github.com/stratus-data/stratus/pkg/metrics"
)

// DefaultPath is the conventional location of the pipeline config.
const DefaultPath = "config.yaml"

// Store is the in-memory configuration document plus its origin path.
// All accessors read the in-memory copy; UpdateConfig is the only
// mutator and persists the whole document back to the path.
type Store struct {
	mu   sync.Mutex
	path string
	doc  map[string]interface{}
	log  *zap.Logger
}

// Option customizes store construction.
type Option func(*Store)

// WithLogger injects the logger used for update and validation events.
// Without it the store builds its own from the document's
// pipeline.logging.level (default info; unknown level names fall back
// to info rather than failing construction).
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New loads and validates the document at path.
//
// It fails with a not_found error when the file does not exist, a
// malformed error when the YAML does not parse, and a schema error
// naming every missing mandatory section.
func New(path string, opts ...Option) (*Store, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the caller
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.TypeNotFound, "configuration file not found").
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.TypeConfig, "failed to read configuration file").
			WithDetail("path", path)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.TypeMalformed, "invalid YAML in configuration file").
			WithDetail("path", path)
	}

	if err := validateSections(doc); err != nil {
		return nil, err
	}

	s := &Store{path: path, doc: doc}
	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = s.buildLogger()
	}

	return s, nil
}

// buildLogger constructs the store's logger at the level named under
// pipeline.logging.level. Construction never fails here: an invalid
// level name falls back to info, and a logger build failure falls back
// to a no-op logger.
func (s *Store) buildLogger() *zap.Logger {
	level := logger.ParseLevel(s.loggingLevel())

	log, err := logger.New(logger.Config{Level: level.String(), Encoding: "json"})
	if err != nil {
		return zap.NewNop()
	}

	return log.Named("config")
}

// loggingLevel reads pipeline.logging.level, defaulting to info.
func (s *Store) loggingLevel() string {
	pipeline, _ := s.doc[SectionPipeline].(map[string]interface{})
	logging, _ := pipeline["logging"].(map[string]interface{})
	if level, ok := logging["level"].(string); ok {
		return level
	}
	return "info"
}

// Path returns the file path backing the store.
func (s *Store) Path() string {
	return s.path
}

// DatabaseConfig returns the database section. Section presence is
// guaranteed by construction, so this cannot fail once New succeeded.
func (s *Store) DatabaseConfig() DatabaseConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	var db DatabaseConfig
	// best-effort decode: a malformed subtree yields the zero record
	_ = decodeSection(s.doc[SectionDatabase], &db, false)
	return db
}

// DataSourceConfig returns the opaque attribute mapping for the named
// data source, or a not_found error when the source is absent.
func (s *Store) DataSourceConfig(name string) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources, _ := s.doc[SectionDataSources].(map[string]interface{})
	raw, ok := sources[name]
	if !ok {
		return nil, errors.Newf(errors.TypeNotFound,
			"data source %q not found in configuration", name).
			WithDetail("source", name)
	}

	attrs, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.Newf(errors.TypeSchema,
			"data source %q is not a mapping", name).
			WithDetail("source", name)
	}

	return attrs, nil
}

// DataQualityRules returns the validation rules in document order. An
// absent rule list yields an empty slice, not an error.
func (s *Store) DataQualityRules() []DataQualityRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dataQualityRulesLocked()
}

func (s *Store) dataQualityRulesLocked() []DataQualityRule {
	quality, _ := s.doc[SectionDataQuality].(map[string]interface{})
	rawRules, _ := quality["validation_rules"].([]interface{})

	rules := make([]DataQualityRule, 0, len(rawRules))
	for _, raw := range rawRules {
		var rule DataQualityRule
		if err := decodeSection(raw, &rule, false); err != nil {
			continue
		}
		rules = append(rules, rule)
	}

	return rules
}

// ValidateThresholds checks every data-quality rule against its
// type-specific threshold range and returns a map from rule name to
// validity. Invalid rules are logged at warn level. Duplicate rule
// names follow last-write-wins in document order. It never errors, so
// callers can always inspect the full result set.
func (s *Store) ValidateThresholds() map[string]bool {
	s.mu.Lock()
	rules := s.dataQualityRulesLocked()
	s.mu.Unlock()

	results := make(map[string]bool, len(rules))
	for _, rule := range rules {
		valid := rule.ThresholdValid()
		results[rule.Name] = valid

		if !valid {
			metrics.ThresholdValidationFailures.WithLabelValues(rule.Type).Inc()
			s.log.Warn("invalid data-quality threshold",
				zap.String("rule", rule.Name),
				zap.String("type", rule.Type),
				zap.Float64("threshold", rule.Threshold))
		}
	}

	return results
}

// PipelineStage returns the configuration for the named pipeline stage.
// Lookup of an absent stage fails with not_found. The stage record is
// strictly mapped: keys outside PipelineStageConfig's field set fail
// with a schema error (the documented strict policy).
func (s *Store) PipelineStage(name string) (PipelineStageConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pipeline, _ := s.doc[SectionPipeline].(map[string]interface{})
	stages, _ := pipeline["stages"].(map[string]interface{})

	raw, ok := stages[name]
	if !ok {
		return PipelineStageConfig{}, errors.Newf(errors.TypeNotFound,
			"pipeline stage %q not found in configuration", name).
			WithDetail("stage", name)
	}

	var stage PipelineStageConfig
	if err := decodeSection(raw, &stage, true); err != nil {
		return PipelineStageConfig{}, errors.Wrap(err, errors.TypeSchema,
			fmt.Sprintf("pipeline stage %q has unrecognized fields", name)).
			WithDetail("stage", name)
	}

	return stage, nil
}

// StreamlitConfig returns the raw streamlit section, empty when absent.
func (s *Store) StreamlitConfig() map[string]interface{} {
	return s.rawSection("streamlit")
}

// MonitoringConfig returns the raw monitoring section, empty when
// absent.
func (s *Store) MonitoringConfig() map[string]interface{} {
	return s.rawSection("monitoring")
}

func (s *Store) rawSection(name string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if section, ok := s.doc[name].(map[string]interface{}); ok {
		return section
	}
	return map[string]interface{}{}
}

// UpdateConfig sets doc[section][key] = value, creating the section
// when absent, and persists the whole document back to the original
// path. The write goes through a temporary file and an atomic rename.
func (s *Store) UpdateConfig(section, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.doc[section].(map[string]interface{})
	if !ok {
		target = map[string]interface{}{}
		s.doc[section] = target
	}
	target[key] = value

	if err := s.saveLocked(); err != nil {
		return err
	}

	metrics.ConfigUpdates.WithLabelValues(section).Inc()
	s.log.Info("configuration updated",
		zap.String("section", section),
		zap.String("key", key),
		zap.Any("value", value))

	return nil
}

// saveLocked serializes the document and atomically replaces the file.
func (s *Store) saveLocked() error {
	data, err := yaml.Marshal(s.doc)
	if err != nil {
		return errors.Wrap(err, errors.TypeConfig, "failed to serialize configuration")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return errors.Wrap(err, errors.TypeConfig, "failed to create temporary config file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.TypeConfig, "failed to write configuration")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.TypeConfig, "failed to close temporary config file")
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.TypeConfig, "failed to replace configuration file")
	}

	return nil
}

// Summary returns a derived snapshot of the configuration: database
// name, data-source names, rule count, stage names, the monitoring
// enabled flag (default false), and the backing file path.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var db DatabaseConfig
	_ = decodeSection(s.doc[SectionDatabase], &db, false)

	sources, _ := s.doc[SectionDataSources].(map[string]interface{})
	sourceNames := sortedKeys(sources)

	pipeline, _ := s.doc[SectionPipeline].(map[string]interface{})
	stages, _ := pipeline["stages"].(map[string]interface{})
	stageNames := sortedKeys(stages)

	monitoring, _ := s.doc["monitoring"].(map[string]interface{})
	enabled, _ := monitoring["enabled"].(bool)

	return Summary{
		Database:          db.Name,
		DataSources:       sourceNames,
		DataQualityRules:  len(s.dataQualityRulesLocked()),
		PipelineStages:    stageNames,
		MonitoringEnabled: enabled,
		ConfigFile:        s.path,
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the raw value at section.key. It exists for the CLI's
// read path and reports not_found for an absent section or key.
func (s *Store) Get(section, key string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.doc[section].(map[string]interface{})
	if !ok {
		return nil, errors.Newf(errors.TypeNotFound, "section %q not found", section)
	}

	value, ok := target[key]
	if !ok {
		return nil, errors.Newf(errors.TypeNotFound, "key %q not found in section %q", key, section)
	}

	return value, nil
}

// ParseKeyPath splits a "section.key" reference used by the CLI.
func ParseKeyPath(ref string) (section, key string, err error) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Newf(errors.TypeValidation,
			"invalid key path %q, expected section.key", ref)
	}
	return parts[0], parts[1], nil
}
