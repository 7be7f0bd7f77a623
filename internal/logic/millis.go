package logic

import "time"

// Millis is a millisecond tick counter. It wraps after 2^32 ms (~49.7 days),
// so comparisons must go through After rather than the < operator.
type Millis uint32

// MillisFromDuration converts d to Millis, truncating to the counter width.
func MillisFromDuration(d time.Duration) Millis {
	return Millis(uint32(d.Milliseconds()))
}

// Elapsed returns the tick value for now, counted from start.
func Elapsed(start, now time.Time) Millis {
	return MillisFromDuration(now.Sub(start))
}

// Add returns m advanced by d, wrapping on overflow.
func (m Millis) Add(d Millis) Millis {
	return m + d
}

// After reports whether m is strictly later than t. The result is correct
// as long as the two ticks are less than 2^31 ms apart.
func (m Millis) After(t Millis) bool {
	return int32(m-t) > 0
}

// Sub returns m - t as a signed distance.
func (m Millis) Sub(t Millis) int64 {
	return int64(int32(m - t))
}

// Duration converts m to a time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}
