package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Since reports the elapsed milliseconds from start.
func Since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
