// Package fixed implements signed Q31.32 fixed-point numbers for targets
// without a floating-point unit.
//
// All arithmetic saturates at [Min, Max] instead of wrapping. Arithmetic
// adapts the type to the pid controller's numeric backend interface:
//
//	c, err := pid.New[fixed.Q](fixed.Arithmetic{}, pid.Config[fixed.Q]{
//		Kp: fixed.FromFloat(2), ...
//	})
package fixed

import (
	"math"
	"math/bits"
	"strconv"
)

// FracBits is the number of fractional bits in a Q.
const FracBits = 32

// Q is a fixed-point value with FracBits fractional bits.
type Q int64

const (
	One Q = 1 << FracBits
	Max Q = math.MaxInt64
	Min Q = math.MinInt64
)

// Epsilon is the smallest positive Q.
const Epsilon Q = 1

// FromFloat converts f, saturating values outside the representable range.
// NaN converts to zero.
func FromFloat(f float64) Q {
	if math.IsNaN(f) {
		return 0
	}
	scaled := math.Round(f * float64(One))
	if scaled >= math.MaxInt64 {
		return Max
	}
	if scaled <= math.MinInt64 {
		return Min
	}
	return Q(scaled)
}

// FromInt converts an integer, saturating outside the 32-bit integer range.
func FromInt(i int64) Q {
	if i > math.MaxInt32 {
		return Max
	}
	if i < math.MinInt32 {
		return Min
	}
	return Q(i << FracBits)
}

func (q Q) Float() float64 { return float64(q) / float64(One) }

func (q Q) String() string { return strconv.FormatFloat(q.Float(), 'f', -1, 64) }

func (q Q) Add(r Q) Q {
	s := q + r
	// overflow only when both operands share a sign the result lacks
	if (q >= 0) == (r >= 0) && (s >= 0) != (q >= 0) {
		if q >= 0 {
			return Max
		}
		return Min
	}
	return s
}

func (q Q) Sub(r Q) Q {
	if r == Min {
		if q >= 0 {
			return Max
		}
		return q.Add(Max).Add(1)
	}
	return q.Add(-r)
}

func (q Q) Neg() Q {
	if q == Min {
		return Max
	}
	return -q
}

// Mul multiplies with a 128-bit intermediate and truncates toward zero.
func (q Q) Mul(r Q) Q {
	neg := (q < 0) != (r < 0)
	hi, lo := bits.Mul64(abs(q), abs(r))
	// shift the 128-bit product right by FracBits
	if hi>>(FracBits-1) != 0 {
		return saturate(neg)
	}
	mag := hi<<(64-FracBits) | lo>>FracBits
	return signed(mag, neg)
}

// Div divides with a 128-bit intermediate and truncates toward zero.
// Division by zero saturates toward the sign of the dividend.
func (q Q) Div(r Q) Q {
	if r == 0 {
		if q == 0 {
			return 0
		}
		return saturate(q < 0)
	}
	neg := (q < 0) != (r < 0)
	n, d := abs(q), abs(r)
	hi, lo := n>>(64-FracBits), n<<FracBits
	if hi >= d {
		return saturate(neg)
	}
	quo, _ := bits.Div64(hi, lo, d)
	return signed(quo, neg)
}

func (q Q) Less(r Q) bool { return q < r }

func abs(q Q) uint64 {
	if q < 0 {
		return uint64(-(q + 1)) + 1
	}
	return uint64(q)
}

func signed(mag uint64, neg bool) Q {
	if neg {
		if mag > 1<<63 {
			return Min
		}
		return Q(-int64(mag-1) - 1)
	}
	if mag > math.MaxInt64 {
		return Max
	}
	return Q(mag)
}

func saturate(neg bool) Q {
	if neg {
		return Min
	}
	return Max
}
