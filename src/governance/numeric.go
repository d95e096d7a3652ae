package governance

import (
	"strconv"
)

// Numeric is an arbitrary-precision integer that may not fit a machine word.
type Numeric interface {
	TryToInt64() (int64, error)
	ToDecimalString() string
}

// SafeToNumber converts n exactly when it fits and otherwise parses its
// decimal form, trading precision for never failing. Unparseable input
// yields 0 so the value stays JSON-encodable.
func SafeToNumber(n Numeric) float64 {
	if v, err := n.TryToInt64(); err == nil {
		return float64(v)
	}
	s := n.ToDecimalString()
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		logger.Warningf("amount %q is not numeric: %v", s, err)
		return 0
	}
	return f
}
