package liveness

// Devices report their last-seen marker in one of three numeric formats and
// give no indication which. The magnitude heuristic lives here and nowhere
// else.
type TimestampFormat string

const (
	// FormatRelative: a device-local counter (e.g. seconds since boot).
	// Not comparable to wall-clock time.
	FormatRelative TimestampFormat = "relative"
	// FormatEpochSeconds: wall-clock epoch in seconds.
	FormatEpochSeconds TimestampFormat = "epoch_seconds"
	// FormatEpochMillis: wall-clock epoch in milliseconds.
	FormatEpochMillis TimestampFormat = "epoch_millis"
)

const (
	// Epoch seconds passed 1e9 in 2001; no fielded device predates that, so
	// anything smaller is a boot-relative counter.
	relativeCeiling = 1e9
	// Epoch milliseconds passed 1e12 in 2001.
	millisFloor = 1e12
)

// ClassifyLastSeen tags a raw lastSeen value with its format and, for
// wall-clock formats, returns the value normalized to epoch milliseconds.
// Relative counters are returned unchanged.
func ClassifyLastSeen(value float64) (TimestampFormat, int64) {
	switch {
	case value < relativeCeiling:
		return FormatRelative, int64(value)
	case value < millisFloor:
		return FormatEpochSeconds, int64(value * 1000)
	default:
		return FormatEpochMillis, int64(value)
	}
}
