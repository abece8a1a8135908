package airquality

import (
	"slices"
	"strings"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/theme"
)

var bars = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the last width values as block characters scaled
// between their minimum and maximum, colored by AQI band.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := slices.Min(values), slices.Max(values)
	var b strings.Builder
	for _, v := range values {
		i := len(bars) - 1
		if hi > lo {
			i = int((v - lo) / (hi - lo) * float64(len(bars)-1))
		}
		b.WriteString(theme.AQIStyle(model.CategoryForAQI(v)).Render(string(bars[i])))
	}
	return b.String()
}
