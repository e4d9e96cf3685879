package weather

import (
	"time"
)

// Hourly returns up to n upcoming points of the series. With the 3-hour
// granularity providers return, 8 points cover the next 24 hours.
func (f *Forecast) Hourly(n int) []ForecastPoint {
	if f == nil || n <= 0 {
		return nil
	}
	if n > len(f.Points) {
		n = len(f.Points)
	}
	out := make([]ForecastPoint, n)
	copy(out, f.Points[:n])
	return out
}

// Daily combines the series into one summary per UTC day, in date order.
func (f *Forecast) Daily() []DailySummary {
	if f == nil || len(f.Points) == 0 {
		return nil
	}

	var (
		days   []DailySummary
		bucket []ForecastPoint
		day    time.Time
	)
	for _, p := range f.Points {
		ts := p.Time.UTC()
		d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if !d.Equal(day) && len(bucket) > 0 {
			days = append(days, AggregateDay(day, bucket))
			bucket = bucket[:0]
		}
		day = d
		bucket = append(bucket, p)
	}
	days = append(days, AggregateDay(day, bucket))
	return days
}

// AggregateDay combines the points of one day into a DailySummary.
// Temperature is averaged; the condition is the most frequent code, and on a
// tie the code that reached the winning count first is kept.
func AggregateDay(day time.Time, points []ForecastPoint) DailySummary {
	if len(points) == 0 {
		return DailySummary{
			Date:      day,
			Condition: ConditionUnknown,
		}
	}

	var sumTemp float64
	minTemp, maxTemp := points[0].Temp, points[0].Temp
	counts := make(map[int]int)
	best := points[0]

	for _, p := range points {
		sumTemp += p.Temp
		if p.Temp < minTemp {
			minTemp = p.Temp
		}
		if p.Temp > maxTemp {
			maxTemp = p.Temp
		}

		counts[p.ConditionCode]++
		if counts[p.ConditionCode] > counts[best.ConditionCode] {
			best = p
		}
	}

	return DailySummary{
		Date:          day,
		AvgTemp:       sumTemp / float64(len(points)),
		MinTemp:       minTemp,
		MaxTemp:       maxTemp,
		ConditionCode: best.ConditionCode,
		Condition:     best.Condition,
	}
}
