package resolver

// Magnitude thresholds used to guess the unit of a raw duration.
// Platforms disagree on units and nothing in the payload says which one is used,
// so values are classified by size: a value of at least microsecondThreshold is read
// as microseconds, at least millisecondThreshold as milliseconds, anything smaller as seconds.
// Durations of about 2.7 hours or more reported in seconds are misread as milliseconds.
const (
	microsecondThreshold = 1e8
	millisecondThreshold = 1e4
)

// NormalizeDuration converts a raw platform duration to seconds.
// Negative or zero input returns 0.
func NormalizeDuration(raw float64) float64 {
	switch {
	case raw <= 0:
		return 0
	case raw >= microsecondThreshold:
		return raw / 1e6
	case raw >= millisecondThreshold:
		return raw / 1e3
	default:
		return raw
	}
}
