package resilience

import (
	"math/rand/v2"
	"time"
)

// maxBackoffShift keeps the exponential factor from overflowing time.Duration.
const maxBackoffShift = 20

// Backoff returns base*2^(attempt-1) with +/- jitterPct applied (0.2 == 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	return jitter(exponential(base, attempt), jitterPct)
}

// CappedBackoff is Backoff bounded by limit before jitter is applied.
func CappedBackoff(base time.Duration, attempt int, jitterPct float64, limit time.Duration) time.Duration {
	d := exponential(base, attempt)
	if limit > 0 && d > limit {
		d = limit
	}
	return jitter(d, jitterPct)
}

func exponential(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return base << uint(shift)
}

func jitter(d time.Duration, pct float64) time.Duration {
	if pct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * pct
	return d + time.Duration(delta)
}
