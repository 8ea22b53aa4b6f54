// Package stratus manages the configuration and dashboard surface of the
// Tasty Bytes weather/sales pipeline.
//
// The pipeline correlates Hamburg weather data with daily food truck sales
// in Snowflake. Stratus owns its YAML configuration document, validates
// the data quality thresholds it declares, and serves the resulting daily
// metrics over HTTP.
//
// # Packages
//
//   - pkg/config: the configuration store. Loads, validates, and persists
//     the pipeline's YAML document with typed accessors per section.
//   - pkg/warehouse: Snowflake access for the pre-aggregated daily
//     weather/sales table.
//   - pkg/dashboard: filtering, KPI summaries, correlations, and CSV
//     export over the daily metrics.
//   - pkg/api: the HTTP API exposing dashboard data and configuration.
//   - pkg/errors, pkg/logger, pkg/metrics: structured errors, zap logging,
//     and Prometheus collectors shared across the module.
//
// The stratus command in cmd/stratus ties these together: it initializes
// and edits configuration, validates thresholds, checks warehouse
// connectivity, and runs the API server.
package stratus
