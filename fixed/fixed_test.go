package fixed

import (
	"math"
	"testing"
)

func TestFromFloatRoundTrip(t *testing.T) {
	tests := []float64{0, 1, -1, 0.5, -0.25, 3.14159, 1e6, -1e6, 0.001}
	for _, f := range tests {
		got := FromFloat(f).Float()
		if math.Abs(got-f) > 1e-9 {
			t.Errorf("FromFloat(%v).Float() = %v", f, got)
		}
	}
}

func TestFromFloatSaturates(t *testing.T) {
	if FromFloat(1e30) != Max {
		t.Error("expected Max for huge positive value")
	}
	if FromFloat(-1e30) != Min {
		t.Error("expected Min for huge negative value")
	}
	if FromFloat(math.NaN()) != 0 {
		t.Error("expected zero for NaN")
	}
}

func TestFromInt(t *testing.T) {
	if FromInt(3) != 3*One {
		t.Errorf("expected %d, got %d", 3*One, FromInt(3))
	}
	if FromInt(-7).Float() != -7 {
		t.Errorf("expected -7, got %v", FromInt(-7).Float())
	}
	if FromInt(math.MaxInt64) != Max || FromInt(math.MinInt64) != Min {
		t.Error("expected saturation outside 32-bit range")
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		got  Q
		want float64
	}{
		{"add", FromFloat(1.5).Add(FromFloat(2.25)), 3.75},
		{"sub", FromFloat(1.5).Sub(FromFloat(2.25)), -0.75},
		{"mul", FromFloat(1.5).Mul(FromFloat(-2)), -3},
		{"mul fractions", FromFloat(0.5).Mul(FromFloat(0.5)), 0.25},
		{"mul negatives", FromFloat(-3).Mul(FromFloat(-4)), 12},
		{"div", FromFloat(1).Div(FromFloat(4)), 0.25},
		{"div negative", FromFloat(-9).Div(FromFloat(3)), -3},
		{"div by fraction", FromFloat(2).Div(FromFloat(0.125)), 16},
		{"neg", FromFloat(2.5).Neg(), -2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got.Float()-tt.want) > 1e-6 {
				t.Errorf("expected %v, got %v", tt.want, tt.got.Float())
			}
		})
	}
}

func TestSaturation(t *testing.T) {
	big := FromInt(math.MaxInt32)
	tests := []struct {
		name string
		got  Q
		want Q
	}{
		{"add overflow", Max.Add(One), Max},
		{"add underflow", Min.Add(-One), Min},
		{"sub overflow", One.Sub(Min), Max},
		{"sub underflow", Min.Sub(One), Min},
		{"neg min", Min.Neg(), Max},
		{"mul overflow", big.Mul(big), Max},
		{"mul underflow", big.Mul(big.Neg()), Min},
		{"div overflow", big.Div(Epsilon), Max},
		{"div by zero", One.Div(0), Max},
		{"negative div by zero", One.Neg().Div(0), Min},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, tt.got)
			}
		})
	}
	if Q(0).Div(0) != 0 {
		t.Error("expected 0/0 to be zero")
	}
}

func TestString(t *testing.T) {
	if s := FromFloat(2.5).String(); s != "2.5" {
		t.Errorf("expected 2.5, got %s", s)
	}
}
