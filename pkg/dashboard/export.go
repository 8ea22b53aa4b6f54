package dashboard

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/stratus-data/stratus/pkg/errors"
)

// csvHeader matches the column names of the underlying warehouse view,
// so exported files line up with what the warehouse returns.
var csvHeader = []string{
	"DATE",
	"DAILY_SALES",
	"AVG_TEMPERATURE_FAHRENHEIT",
	"AVG_PRECIPITATION_INCHES",
	"MAX_WIND_SPEED_100M_MPH",
}

// WriteCSV writes the rows as CSV to w, header first.
func WriteCSV(w io.Writer, rows []DailyMetric) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, errors.TypeInternal, "failed to write CSV header")
	}

	for _, row := range rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			strconv.FormatFloat(row.DailySales, 'f', 2, 64),
			strconv.FormatFloat(row.AvgTemperatureF, 'f', 1, 64),
			strconv.FormatFloat(row.AvgPrecipitation, 'f', 2, 64),
			strconv.FormatFloat(row.MaxWindSpeedMPH, 'f', 1, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.TypeInternal, "failed to write CSV row")
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVGzip writes the rows as gzip-compressed CSV to w.
func WriteCSVGzip(w io.Writer, rows []DailyMetric) error {
	gz := gzip.NewWriter(w)

	if err := WriteCSV(gz, rows); err != nil {
		gz.Close()
		return err
	}

	if err := gz.Close(); err != nil {
		return errors.Wrap(err, errors.TypeInternal, "failed to finish gzip stream")
	}
	return nil
}
