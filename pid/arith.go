package pid

// Arithmetic is the set of operations the controller needs from a numeric
// type. Implementations are stateless values.
type Arithmetic[N any] interface {
	Add(a, b N) N
	Sub(a, b N) N
	Mul(a, b N) N
	Div(a, b N) N
	Neg(a N) N
	Less(a, b N) bool
	FromFloat(f float64) N
	Float(a N) float64
}

// Floating is the constraint satisfied by the native floating-point types.
type Floating interface {
	~float32 | ~float64
}

// Float is the Arithmetic backend for float32 and float64.
type Float[F Floating] struct{}

func (Float[F]) Add(a, b F) F          { return a + b }
func (Float[F]) Sub(a, b F) F          { return a - b }
func (Float[F]) Mul(a, b F) F          { return a * b }
func (Float[F]) Div(a, b F) F          { return a / b }
func (Float[F]) Neg(a F) F             { return -a }
func (Float[F]) Less(a, b F) bool      { return a < b }
func (Float[F]) FromFloat(f float64) F { return F(f) }
func (Float[F]) Float(a F) float64     { return float64(a) }

func clamp[N any](arith Arithmetic[N], v, lo, hi N) N {
	if arith.Less(hi, v) {
		return hi
	}
	if arith.Less(v, lo) {
		return lo
	}
	return v
}
