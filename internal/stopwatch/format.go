package stopwatch

import (
	"fmt"
	"time"
)

// Format renders elapsed time as MM:SS.CC below one hour and HH:MM:SS from
// one hour on. Centiseconds are truncated, and dropped past the hour.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalHundredths := d.Milliseconds() / 10
	hundredths := totalHundredths % 100
	totalSeconds := totalHundredths / 100
	s := totalSeconds % 60
	m := (totalSeconds / 60) % 60
	h := totalSeconds / 3600

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d.%02d", m, s, hundredths)
}

// LapLabel numbers the lap at index i of a newest-first list of n laps.
func LapLabel(i, n int) string {
	return fmt.Sprintf("Lap %d", n-i)
}
