package fixed

// Arithmetic is the numeric backend for pid.Controller[Q].
type Arithmetic struct{}

func (Arithmetic) Add(a, b Q) Q          { return a.Add(b) }
func (Arithmetic) Sub(a, b Q) Q          { return a.Sub(b) }
func (Arithmetic) Mul(a, b Q) Q          { return a.Mul(b) }
func (Arithmetic) Div(a, b Q) Q          { return a.Div(b) }
func (Arithmetic) Neg(a Q) Q             { return a.Neg() }
func (Arithmetic) Less(a, b Q) bool      { return a < b }
func (Arithmetic) FromFloat(f float64) Q { return FromFloat(f) }
func (Arithmetic) Float(a Q) float64     { return a.Float() }
