package airquality

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestSparklineEmpty(t *testing.T) {
	assert.Empty(t, Sparkline(nil, 10))
	assert.Empty(t, Sparkline([]float64{1, 2}, 0))
}

func TestSparklineKeepsLatestValues(t *testing.T) {
	out := Sparkline([]float64{500, 10, 20, 30}, 3)
	assert.Equal(t, 3, lipgloss.Width(out))
	assert.True(t, strings.Contains(out, "▁"))
	assert.True(t, strings.Contains(out, "█"))
}

func TestSparklineFlatSeries(t *testing.T) {
	out := Sparkline([]float64{42, 42, 42}, 10)
	assert.Equal(t, 3, lipgloss.Width(out))
	assert.Equal(t, 3, strings.Count(out, "█"))
}
