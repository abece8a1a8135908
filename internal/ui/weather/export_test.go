package weather

import (
	"bytes"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/model"
)

func TestWriteCSV(t *testing.T) {
	records := []model.WeatherRecord{
		{
			Temperature: 21.46,
			FeelsLike:   20,
			Humidity:    40,
			Pressure:    1013.2,
			WindSpeed:   3.26,
			Description: "clear sky, light wind",
			City:        "Khouribga",
			CreatedAt:   model.LocalTime{Time: time.Date(2025, 5, 2, 14, 0, 0, 0, time.UTC)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"2025-05-02 14:00:00", "21.5", "20.0", "40", "1013", "3.3", "clear sky, light wind", "Khouribga"}, rows[1])
}

func TestExportFile(t *testing.T) {
	t.Chdir(t.TempDir())
	now := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)

	_, err := exportFile(nil, now)
	assert.Error(t, err)

	name, err := exportFile([]model.WeatherRecord{{City: "Safi"}}, now)
	require.NoError(t, err)
	assert.Equal(t, "weather_history_2025-05-02.csv", name)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Safi")
}
