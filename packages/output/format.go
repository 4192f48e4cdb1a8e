package output

import (
	"strconv"
	"time"
)

// formatDuration renders a run length: 850ms, 12.3s, 2m or 2m 05s.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	case d < time.Minute:
		return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
	}
	d = d.Truncate(time.Second)
	m, s := int64(d/time.Minute), int64(d%time.Minute/time.Second)
	if s == 0 {
		return strconv.FormatInt(m, 10) + "m"
	}
	return strconv.FormatInt(m, 10) + "m " + pad2(s) + "s"
}

// formatLatency renders a single call's elapsed time in its natural unit.
func formatLatency(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return strconv.FormatInt(d.Microseconds(), 10) + "μs"
	case d < time.Second:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
}

// formatLatencyMs renders d in milliseconds, with more decimals for small
// values.
func formatLatencyMs(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	prec := 0
	switch {
	case ms < 1:
		prec = 2
	case ms < 10:
		prec = 1
	}
	return strconv.FormatFloat(ms, 'f', prec, 64)
}

// formatNumber groups digits by thousands: 1234567 -> 1,234,567.
func formatNumber(n int64) string {
	digits := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}
	var out []byte
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + string(out)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
