package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/nhle/airwatch/internal/model"
)

var csvHeader = []string{"date", "temperature", "feels_like", "humidity", "pressure", "wind_speed", "description", "city"}

// WriteCSV writes weather history rows as CSV.
func WriteCSV(w io.Writer, records []model.WeatherRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.CreatedAt.Format(time.DateTime),
			strconv.FormatFloat(r.Temperature, 'f', 1, 64),
			strconv.FormatFloat(r.FeelsLike, 'f', 1, 64),
			strconv.Itoa(r.Humidity),
			strconv.FormatFloat(r.Pressure, 'f', 0, 64),
			strconv.FormatFloat(r.WindSpeed, 'f', 1, 64),
			r.Description,
			r.City,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// exportFile writes records to weather_history_<date>.csv in the
// working directory and returns the file name.
func exportFile(records []model.WeatherRecord, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("no history to export")
	}
	name := "weather_history_" + now.Format(time.DateOnly) + ".csv"
	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return name, f.Close()
}
