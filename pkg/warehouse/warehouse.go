// Package warehouse provides the thin Snowflake glue for Stratus: DSN
// assembly from connection parameters, a pooled database/sql client,
// and the single read the dashboard needs. Query semantics stay inside
// the warehouse; this package only moves rows.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/stratus-data/stratus/pkg/config"
	"github.com/stratus-data/stratus/pkg/dashboard"
	"github.com/stratus-data/stratus/pkg/errors"
	"github.com/stratus-data/stratus/pkg/metrics"
)

const (
	defaultPoolSize    = 4
	defaultConnTimeout = 10 * time.Second
)

// DSN builds a Snowflake connection string from connection parameters
// assembled by the configuration store.
func DSN(params config.ConnectionParams) (string, error) {
	cfg := &sf.Config{
		Account:   params["account"],
		User:      params["user"],
		Password:  params["password"],
		Database:  params["database"],
		Warehouse: params["warehouse"],
		Role:      params["role"],
	}

	dsn, err := sf.DSN(cfg)
	if err != nil {
		return "", errors.Wrap(err, errors.TypeConnection, "failed to build Snowflake DSN")
	}

	return dsn, nil
}

// Client is a pooled Snowflake connection.
type Client struct {
	db  *sql.DB
	log *zap.Logger
}

// Connect opens a connection pool against Snowflake using the given
// parameters and verifies it with a ping.
func Connect(ctx context.Context, params config.ConnectionParams, log *zap.Logger) (*Client, error) {
	dsn, err := DSN(params)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.TypeConnection, "failed to open Snowflake connection pool")
	}

	db.SetMaxOpenConns(defaultPoolSize)
	db.SetMaxIdleConns(defaultPoolSize / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.TypeConnection, "failed to ping Snowflake")
	}

	log.Info("connected to Snowflake",
		zap.String("account", params["account"]),
		zap.String("database", params["database"]),
		zap.String("warehouse", params["warehouse"]))

	return &Client{db: db, log: log}, nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// DailyMetrics reads the pre-aggregated weather/sales rows from the
// named schema and table, ordered by date.
func (c *Client) DailyMetrics(ctx context.Context, database, schema, table string) ([]dashboard.DailyMetric, error) {
	for _, ident := range []string{database, schema, table} {
		if !validIdent(ident) {
			return nil, errors.Newf(errors.TypeValidation, "invalid identifier %q", ident)
		}
	}

	// identifiers stay unquoted so Snowflake's case folding applies,
	// matching how the warehouse view is addressed elsewhere
	query := fmt.Sprintf(
		`SELECT DATE, DAILY_SALES, AVG_TEMPERATURE_FAHRENHEIT, AVG_PRECIPITATION_INCHES, MAX_WIND_SPEED_100M_MPH
		 FROM %s.%s.%s ORDER BY DATE`,
		database, schema, table)

	start := time.Now()
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		metrics.WarehouseQueries.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, errors.TypeQuery, "failed to query daily metrics").
			WithDetail("table", table)
	}
	defer rows.Close()

	var out []dashboard.DailyMetric
	for rows.Next() {
		var m dashboard.DailyMetric
		if err := rows.Scan(&m.Date, &m.DailySales, &m.AvgTemperatureF, &m.AvgPrecipitation, &m.MaxWindSpeedMPH); err != nil {
			metrics.WarehouseQueries.WithLabelValues("error").Inc()
			return nil, errors.Wrap(err, errors.TypeQuery, "failed to scan daily metrics row")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		metrics.WarehouseQueries.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, errors.TypeQuery, "failed to read daily metrics rows")
	}

	metrics.WarehouseQueries.WithLabelValues("success").Inc()
	metrics.WarehouseQueryDuration.Observe(time.Since(start).Seconds())

	c.log.Debug("daily metrics fetched",
		zap.String("table", table),
		zap.Int("rows", len(out)),
		zap.Duration("duration", time.Since(start)))

	return out, nil
}

// validIdent accepts plain Snowflake identifiers: letters, digits, and
// underscores, not starting with a digit.
func validIdent(ident string) bool {
	if ident == "" {
		return false
	}
	for i := 0; i < len(ident); i++ {
		c := ident[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
