// README: Korea Standard Time calendar helpers computed by fixed offset.
package types

import "time"

// KST has no daylight saving, so a fixed +9h offset is exact and does not
// depend on the host's tzdata or TZ setting.
const kstOffset = 9 * time.Hour

// KSTDay returns the KST calendar date of t as midnight UTC of that date.
func KSTDay(t time.Time) time.Time {
	k := t.UTC().Add(kstOffset)
	return time.Date(k.Year(), k.Month(), k.Day(), 0, 0, 0, 0, time.UTC)
}

// KSTPeriod returns the KST month of t as "YYYY-MM".
func KSTPeriod(t time.Time) string {
	return t.UTC().Add(kstOffset).Format("2006-01")
}

// KSTPeriodBounds returns the UTC instants [start, end) covering a "YYYY-MM" KST month.
func KSTPeriodBounds(period string) (time.Time, time.Time, error) {
	m, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := m.Add(-kstOffset)
	end := m.AddDate(0, 1, 0).Add(-kstOffset)
	return start, end, nil
}
