package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(ts time.Time, temp float64, code int, cond Condition) ForecastPoint {
	return ForecastPoint{Time: ts, Temp: temp, ConditionCode: code, Condition: cond}
}

func TestAggregateDay(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	points := []ForecastPoint{
		point(day, 10, 800, ConditionClear),
		point(day.Add(3*time.Hour), 14, 500, ConditionRain),
		point(day.Add(6*time.Hour), 18, 500, ConditionRain),
		point(day.Add(9*time.Hour), 22, 800, ConditionClear),
	}

	s := AggregateDay(day, points)
	assert.Equal(t, 16.0, s.AvgTemp)
	assert.Equal(t, 10.0, s.MinTemp)
	assert.Equal(t, 22.0, s.MaxTemp)
	// 500 reaches two occurrences before 800 does.
	assert.Equal(t, 500, s.ConditionCode)
	assert.Equal(t, ConditionRain, s.Condition)
}

func TestAggregateDayEmpty(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := AggregateDay(day, nil)
	assert.Equal(t, day, s.Date)
	assert.Equal(t, ConditionUnknown, s.Condition)
}

func TestForecastDaily(t *testing.T) {
	start := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	fc := &Forecast{}
	for i := 0; i < 6; i++ {
		fc.Points = append(fc.Points, point(start.Add(time.Duration(i)*3*time.Hour), float64(i), 800, ConditionClear))
	}

	days := fc.Daily()
	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), days[0].Date)
	assert.Equal(t, 0.5, days[0].AvgTemp)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), days[1].Date)
	assert.Equal(t, 3.5, days[1].AvgTemp)

	var nilForecast *Forecast
	assert.Nil(t, nilForecast.Daily())
}

func TestForecastHourly(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fc := &Forecast{}
	for i := 0; i < 10; i++ {
		fc.Points = append(fc.Points, point(start.Add(time.Duration(i)*3*time.Hour), float64(i), 800, ConditionClear))
	}

	assert.Len(t, fc.Hourly(8), 8)
	assert.Len(t, fc.Hourly(20), 10)
	assert.Nil(t, fc.Hourly(0))

	got := fc.Hourly(2)
	got[0].Temp = 99
	assert.Equal(t, 0.0, fc.Points[0].Temp, "Hourly returns a copy")
}

func TestAQILabel(t *testing.T) {
	assert.Equal(t, "Good", AQILabel(1))
	assert.Equal(t, "Very Poor", AirQuality{Level: 5}.Label())
	assert.Equal(t, "Unknown", AQILabel(0))
}
