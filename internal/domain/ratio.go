package domain

import (
	"encoding/json"
	"math"
)

// Ratio is either a finite value or Unbounded, the result of dividing a
// positive amount by zero. Callers must check IsUnbounded before using Value.
type Ratio struct {
	value     float64
	unbounded bool
}

func Finite(v float64) Ratio { return Ratio{value: v} }
func Unbounded() Ratio { return Ratio{unbounded: true} }

// Divide returns num/den, Unbounded when den is zero and num positive, and
// Finite(0) when both are zero.
func Divide(num, den float64) Ratio {
	if den == 0 {
		if num > 0 {
			return Unbounded()
		}
		return Finite(0)
	}
	return Finite(num / den)
}

func (r Ratio) IsUnbounded() bool { return r.unbounded }

// Value returns the finite value and true, or 0 and false when unbounded.
func (r Ratio) Value() (float64, bool) {
	if r.unbounded {
		return 0, false
	}
	return r.value, true
}

// Display returns the value for presentation; unbounded shows as the
// largest representable float.
func (r Ratio) Display() float64 {
	if r.unbounded {
		return math.MaxFloat64
	}
	return r.value
}

// Less orders finite values numerically and places Unbounded last.
func (r Ratio) Less(o Ratio) bool {
	switch {
	case r.unbounded:
		return false
	case o.unbounded:
		return true
	default:
		return r.value < o.value
	}
}

type ratioJSON struct {
	Value     float64 `json:"value"`
	Unbounded bool    `json:"unbounded"`
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	return json.Marshal(ratioJSON{Value: r.Display(), Unbounded: r.unbounded})
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	var raw ratioJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Unbounded {
		*r = Unbounded()
		return nil
	}
	*r = Finite(raw.Value)
	return nil
}
