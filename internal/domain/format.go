package domain

import (
	"fmt"
	"strconv"
)

// ShortAddress renders 0x1234…abcd style addresses for logs and tables.
func ShortAddress(addr string) string {
	if addr == "" {
		return "custody address unavailable"
	}
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// ShortHash renders a transaction hash as 0x1234…abcd.
func ShortHash(hash string) string {
	if len(hash) <= 10 {
		return hash
	}
	return hash[:6] + "…" + hash[len(hash)-4:]
}

// FormatPoints prints points with at most one decimal.
func FormatPoints(points float64) string {
	return strconv.FormatFloat(roundTenth(points), 'f', -1, 64)
}

// FormatMindshare prints a share in [0,1] as a percentage with one decimal.
func FormatMindshare(share float64) string {
	return fmt.Sprintf("%.1f%%", share*100)
}

func roundTenth(v float64) float64 {
	scaled := v * 10
	if scaled < 0 {
		return float64(int64(scaled-0.5)) / 10
	}
	return float64(int64(scaled+0.5)) / 10
}
