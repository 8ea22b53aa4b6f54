package api

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/stratus-data/stratus/pkg/dashboard"
	"github.com/stratus-data/stratus/pkg/errors"
)

const dateLayout = "2006-01-02"

// parseFilter reads the dashboard filter from query parameters: from
// and to (YYYY-MM-DD), metrics (comma-separated), min_sales_m and
// max_sales_m (millions of dollars).
func parseFilter(c fiber.Ctx) (dashboard.Filter, error) {
	var f dashboard.Filter

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.Newf(errors.TypeValidation, "invalid from date %q, expected YYYY-MM-DD", raw)
		}
		f.From = t
	}

	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.Newf(errors.TypeValidation, "invalid to date %q, expected YYYY-MM-DD", raw)
		}
		f.To = t
	}

	if raw := c.Query("metrics"); raw != "" {
		for _, metric := range strings.Split(raw, ",") {
			metric = strings.TrimSpace(metric)
			if !validMetric(metric) {
				return f, errors.Newf(errors.TypeValidation, "unknown metric %q", metric)
			}
			f.Metrics = append(f.Metrics, metric)
		}
	}

	if raw := c.Query("min_sales_m"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, errors.Newf(errors.TypeValidation, "invalid min_sales_m %q", raw)
		}
		f.MinSalesM = v
	}

	if raw := c.Query("max_sales_m"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, errors.Newf(errors.TypeValidation, "invalid max_sales_m %q", raw)
		}
		f.MaxSalesM = v
	}

	return f, nil
}

func validMetric(metric string) bool {
	for _, m := range dashboard.AllMetrics {
		if m == metric {
			return true
		}
	}
	return false
}

// fetchRows resolves the requested data source through the config
// store and reads its rows from the metrics provider. The source's
// schema alias is resolved against the database's schema mapping.
func (s *Service) fetchRows(c fiber.Ctx) ([]dashboard.DailyMetric, error) {
	source := c.Query("source", s.cfg.DefaultSource)

	attrs, err := s.store.DataSourceConfig(source)
	if err != nil {
		return nil, err
	}

	table, _ := attrs["table"].(string)
	if table == "" {
		return nil, errors.Newf(errors.TypeSchema, "data source %q has no table", source)
	}

	alias, _ := attrs["schema"].(string)
	db := s.store.DatabaseConfig()
	schema := alias
	if resolved, ok := db.Schemas[alias]; ok {
		schema = resolved
	}

	return s.provider.DailyMetrics(c.Context(), db.Name, schema, table)
}

func (s *Service) handleMetrics(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	rows, err := s.fetchRows(c)
	if err != nil {
		return err
	}

	filtered := filter.Apply(rows)
	return c.JSON(fiber.Map{
		"count": len(filtered),
		"rows":  filtered,
	})
}

func (s *Service) handleSummary(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	rows, err := s.fetchRows(c)
	if err != nil {
		return err
	}

	return c.JSON(dashboard.Summarize(filter.Apply(rows)))
}

func (s *Service) handleCorrelations(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	rows, err := s.fetchRows(c)
	if err != nil {
		return err
	}

	correlations := dashboard.Correlations(filter.Apply(rows))
	for _, metric := range dashboard.AllMetrics {
		if !filter.Selected(metric) {
			delete(correlations, metric)
		}
	}

	return c.JSON(correlations)
}

func (s *Service) handleExport(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	rows, err := s.fetchRows(c)
	if err != nil {
		return err
	}

	filtered := filter.Apply(rows)

	var buf bytes.Buffer
	if c.Query("compress") == "gzip" {
		if err := dashboard.WriteCSVGzip(&buf, filtered); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/gzip")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="hamburg_weather_sales.csv.gz"`)
	} else {
		if err := dashboard.WriteCSV(&buf, filtered); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="hamburg_weather_sales.csv"`)
	}

	return c.Send(buf.Bytes())
}

func (s *Service) handleConfigSummary(c fiber.Ctx) error {
	return c.JSON(s.store.Summary())
}

func (s *Service) handleConfigQuality(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"rules":   s.store.DataQualityRules(),
		"results": s.store.ValidateThresholds(),
	})
}
