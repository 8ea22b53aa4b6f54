// Package config implements the configuration store for the Stratus
// pipeline: a YAML document loaded from disk, validated for its four
// mandatory sections (database, data_sources, data_quality, pipeline),
// and exposed through typed accessors.
//
// The store holds the whole document in memory after load. Point
// mutations through UpdateConfig rewrite the file wholesale via a
// temporary file and an atomic rename, so a crashed write never leaves
// a truncated document behind.
//
// The design assumes a single owning process; there is no cross-process
// locking and the last writer to the file wins.
package config
