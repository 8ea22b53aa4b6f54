// Package dashboard implements the data side of the weather and sales
// analytics dashboard for Hamburg: filtering of the pre-aggregated
// daily metric rows, the KPI summary block, and the correlation matrix
// between sales and weather. Rendering is left to whatever front end
// consumes the API.
package dashboard

import (
	"math"
	"time"
)

// Weather metric identifiers used for metric selection and in the
// correlation matrix.
const (
	MetricTemperature   = "temperature"
	MetricPrecipitation = "precipitation"
	MetricWindSpeed     = "wind_speed"
)

// AllMetrics lists every selectable weather metric.
var AllMetrics = []string{MetricTemperature, MetricPrecipitation, MetricWindSpeed}

// DailyMetric is one row of the pre-aggregated weather/sales table:
// one day of sales joined with that day's weather in Hamburg.
type DailyMetric struct {
	Date             time.Time `json:"date"`
	DailySales       float64   `json:"daily_sales"`
	AvgTemperatureF  float64   `json:"avg_temperature_fahrenheit"`
	AvgPrecipitation float64   `json:"avg_precipitation_inches"`
	MaxWindSpeedMPH  float64   `json:"max_wind_speed_100m_mph"`
}

// Filter mirrors the dashboard's sidebar controls: a date range, a
// weather metric multi-select, and a sales-range slider in millions of
// dollars. Zero values leave the corresponding dimension unfiltered.
type Filter struct {
	From      time.Time
	To        time.Time
	Metrics   []string
	MinSalesM float64
	MaxSalesM float64
}

// Apply returns the rows matching the filter, preserving input order.
func (f Filter) Apply(rows []DailyMetric) []DailyMetric {
	out := make([]DailyMetric, 0, len(rows))
	for _, row := range rows {
		if !f.From.IsZero() && row.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && row.Date.After(f.To) {
			continue
		}

		salesM := row.DailySales / 1e6
		if f.MinSalesM != 0 && salesM < f.MinSalesM {
			continue
		}
		if f.MaxSalesM != 0 && salesM > f.MaxSalesM {
			continue
		}

		out = append(out, row)
	}
	return out
}

// Selected reports whether a weather metric is part of the filter's
// selection. An empty selection means all metrics.
func (f Filter) Selected(metric string) bool {
	if len(f.Metrics) == 0 {
		return true
	}
	for _, m := range f.Metrics {
		if m == metric {
			return true
		}
	}
	return false
}

// KPISummary is the dashboard's headline metric block.
type KPISummary struct {
	Days               int     `json:"days"`
	AvgDailySales      float64 `json:"avg_daily_sales"`
	AvgTemperatureF    float64 `json:"avg_temperature_fahrenheit"`
	TotalPrecipitation float64 `json:"total_precipitation_inches"`
	MaxWindSpeedMPH    float64 `json:"max_wind_speed_100m_mph"`
}

// Summarize computes the KPI block over the given rows. An empty input
// yields the zero summary.
func Summarize(rows []DailyMetric) KPISummary {
	if len(rows) == 0 {
		return KPISummary{}
	}

	var sales, temp, precip, maxWind float64
	for _, row := range rows {
		sales += row.DailySales
		temp += row.AvgTemperatureF
		precip += row.AvgPrecipitation
		if row.MaxWindSpeedMPH > maxWind {
			maxWind = row.MaxWindSpeedMPH
		}
	}

	n := float64(len(rows))
	return KPISummary{
		Days:               len(rows),
		AvgDailySales:      sales / n,
		AvgTemperatureF:    temp / n,
		TotalPrecipitation: precip,
		MaxWindSpeedMPH:    maxWind,
	}
}

// Correlations returns the Pearson correlation of daily sales against
// each weather metric. Series with zero variance (or fewer than two
// rows) report a correlation of 0.
func Correlations(rows []DailyMetric) map[string]float64 {
	sales := make([]float64, len(rows))
	series := map[string][]float64{
		MetricTemperature:   make([]float64, len(rows)),
		MetricPrecipitation: make([]float64, len(rows)),
		MetricWindSpeed:     make([]float64, len(rows)),
	}

	for i, row := range rows {
		sales[i] = row.DailySales
		series[MetricTemperature][i] = row.AvgTemperatureF
		series[MetricPrecipitation][i] = row.AvgPrecipitation
		series[MetricWindSpeed][i] = row.MaxWindSpeedMPH
	}

	out := make(map[string]float64, len(series))
	for metric, values := range series {
		out[metric] = pearson(sales, values)
	}
	return out
}

func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}

	n := float64(len(x))
	var meanX, meanY float64
	for i := range x {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
