package dcop

import (
	"encoding/json"
	"fmt"
	"math"
)

// Value is a domain value of a variable. Domains are finite ordered lists
// of Values; the order is significant and breaks ties throughout the engine.
type Value int

// Cost is a non-negative utility value for minimisation problems, with a
// dedicated +infinity sentinel. All arithmetic saturates at Inf.
type Cost int64

// Inf is the +infinity cost. It absorbs addition and compares greater than
// every finite cost.
const Inf Cost = math.MaxInt64

// IsInf reports whether c is the +infinity sentinel.
func (c Cost) IsInf() bool {
	return c == Inf
}

// Add returns c + o, saturating at Inf. x + Inf = Inf for any x.
func (c Cost) Add(o Cost) Cost {
	if c.IsInf() || o.IsInf() {
		return Inf
	}
	if s := c + o; s >= 0 {
		return s
	}
	// Finite overflow is treated as saturation; costs are non-negative so
	// this only happens on pathological inputs.
	return Inf
}

// SubFloor returns c - o clamped at zero. Inf - x = Inf for finite x.
// The engine never needs a negative cost: thresholds allocated downward
// are clamped at zero.
func (c Cost) SubFloor(o Cost) Cost {
	if c.IsInf() {
		return Inf
	}
	if o.IsInf() || o >= c {
		return 0
	}
	return c - o
}

// Min returns the smaller of c and o.
func (c Cost) Min(o Cost) Cost {
	if o < c {
		return o
	}
	return c
}

// Max returns the larger of c and o.
func (c Cost) Max(o Cost) Cost {
	if o > c {
		return o
	}
	return c
}

// String renders finite costs as integers and the sentinel as "inf".
func (c Cost) String() string {
	if c.IsInf() {
		return "inf"
	}
	return fmt.Sprintf("%d", int64(c))
}

// MarshalJSON encodes Inf as the string "inf" and finite costs as numbers.
// Encoding Inf as a raw int64 would not survive a JSON round-trip (JSON
// numbers are float64 on the wire), so the sentinel gets a symbolic form.
func (c Cost) MarshalJSON() ([]byte, error) {
	if c.IsInf() {
		return json.Marshal("inf")
	}
	return json.Marshal(int64(c))
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Cost) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "inf" {
			return fmt.Errorf("invalid cost string %q", s)
		}
		*c = Inf
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid cost: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("negative cost %d", n)
	}
	*c = Cost(n)
	return nil
}
