package utils

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatDuration formats d as seconds with millisecond precision, e.g. "1.234 s"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.3f s", d.Seconds())
}

// FormatCount formats n with thousands separators, e.g. 1234567 -> "1,234,567"
func FormatCount(n uint64) string {
	if n > math.MaxInt64 {
		return humanize.BigComma(new(big.Int).SetUint64(n))
	}
	return humanize.Comma(int64(n))
}
