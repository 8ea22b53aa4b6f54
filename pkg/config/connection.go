package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/stratus-data/stratus/pkg/errors"
)

// EnvPrefix is the prefix of the required Snowflake environment
// variables (SNOWFLAKE_ACCOUNT, SNOWFLAKE_USER, ...).
const EnvPrefix = "SNOWFLAKE"

// connectionKeys are the required connection parameters, sourced from
// the environment with the prefix and surfaced under these keys.
var connectionKeys = []string{"account", "user", "password", "warehouse", "role"}

// ConnectionParams holds warehouse connection parameters keyed by the
// lower-cased, prefix-stripped environment variable names plus the
// stored database name under "database".
type ConnectionParams map[string]string

// ConnectionParams assembles connection parameters from the five
// required environment variables and merges in the database name from
// the stored configuration.
//
// When one or more variables are unset (or empty) it fails with an
// environment error listing every missing variable name, not just the
// first.
func (s *Store) ConnectionParams() (ConnectionParams, error) {
	env := viper.New()
	env.SetEnvPrefix(EnvPrefix)
	env.AutomaticEnv()

	params := make(ConnectionParams, len(connectionKeys)+1)
	var missing []string

	for _, key := range connectionKeys {
		value := env.GetString(key)
		if value == "" {
			missing = append(missing, EnvPrefix+"_"+strings.ToUpper(key))
			continue
		}
		params[key] = value
	}

	if len(missing) > 0 {
		return nil, errors.Newf(errors.TypeEnvironment,
			"missing required environment variables: %v", missing).
			WithDetail("missing", missing)
	}

	params["database"] = s.DatabaseConfig().Name

	return params, nil
}
