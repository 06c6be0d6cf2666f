// Package durationfmt renders a time.Duration as a calibrated-width
// string, matching the original libmussh formatter's four width tiers
// plus a seconds-only tier at or beyond one day.
package durationfmt

import (
	"fmt"
	"time"
)

// Format renders d as:
//
//	< 1s:      00:00:00.mmm
//	< 60s:     00:00:SS.mmm
//	< 3600s:   00:MM:SS.mmm
//	< 86400s:  H:MM:SS.mmm (no leading zero on hours)
//	>= 86400s: <seconds>s
func Format(d time.Duration) string {
	seconds := int64(d / time.Second)
	millis := int64(d/time.Millisecond) % 1000

	switch {
	case seconds < 1:
		return fmt.Sprintf("00:00:00.%03d", int64(d/time.Millisecond))
	case seconds < 60:
		return fmt.Sprintf("00:00:%02d.%03d", seconds, millis)
	case seconds < 3600:
		minutes := seconds / 60
		secs := seconds % 60
		return fmt.Sprintf("00:%02d:%02d.%03d", minutes, secs, millis)
	case seconds < 86400:
		totalMinutes := seconds / 60
		secs := seconds % 60
		hours := totalMinutes / 60
		minutes := totalMinutes % 60
		return fmt.Sprintf("%d:%02d:%02d.%03d", hours, minutes, secs, millis)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
