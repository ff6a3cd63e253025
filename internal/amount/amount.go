// Package amount provides the non-negative arbitrary-precision token quantity
// used throughout tokenworld.
//
// An Amount is an immutable value. The zero value is the number 0 and is
// ready to use. No operation produces a negative Amount: subtraction fails
// with ErrArithmeticUnderflow instead of wrapping.
package amount

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrArithmeticUnderflow is returned when subtracting a larger amount
	// from a smaller one. Callers are expected to order operands with Cmp
	// first, so hitting this is a programming defect.
	ErrArithmeticUnderflow = errors.New("amount: arithmetic underflow")

	// ErrNegative is returned when constructing an Amount from a negative integer.
	ErrNegative = errors.New("amount: negative value")

	// ErrSyntax is returned when parsing a string that is not a base-10 integer.
	ErrSyntax = errors.New("amount: invalid syntax")
)

// Zero is the zero amount.
var Zero = Amount{}

// Amount is a non-negative token quantity.
type Amount struct {
	v *big.Int // nil means zero; never mutated after construction
}

// FromUint64 returns the amount n.
func FromUint64(n uint64) Amount {
	if n == 0 {
		return Zero
	}
	return Amount{v: new(big.Int).SetUint64(n)}
}

// FromBig returns an amount equal to n. The argument is copied.
func FromBig(n *big.Int) (Amount, error) {
	if n == nil || n.Sign() == 0 {
		return Zero, nil
	}
	if n.Sign() < 0 {
		return Zero, fmt.Errorf("%w: %s", ErrNegative, n.String())
	}
	return Amount{v: new(big.Int).Set(n)}, nil
}

// Parse parses a canonical base-10 integer. Signs, separators, decimal
// points and exponents are rejected.
func Parse(s string) (Amount, error) {
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrSyntax)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Zero, fmt.Errorf("%w: %q", ErrSyntax, s)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Zero, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	return FromBig(n)
}

// MustParse is like Parse but panics on error. For tests and constants.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// BigInt returns a copy of the underlying integer.
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(a.int())
}

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.int().Cmp(b.int())
}

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.Cmp(b) == 0 }

// Less reports whether a < b.
func (a Amount) Less(b Amount) bool { return a.Cmp(b) < 0 }

// Greater reports whether a > b.
func (a Amount) Greater(b Amount) bool { return a.Cmp(b) > 0 }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	if b.IsZero() {
		return a
	}
	if a.IsZero() {
		return b
	}
	return Amount{v: new(big.Int).Add(a.v, b.v)}
}

// Sub returns a - b, or ErrArithmeticUnderflow if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Less(b) {
		return Zero, fmt.Errorf("%w: %s - %s", ErrArithmeticUnderflow, a, b)
	}
	d := new(big.Int).Sub(a.int(), b.int())
	if d.Sign() == 0 {
		return Zero, nil
	}
	return Amount{v: d}, nil
}

// Diff returns |a - b| together with a.Cmp(b).
func Diff(a, b Amount) (Amount, int) {
	switch c := a.Cmp(b); c {
	case 0:
		return Zero, 0
	case 1:
		d, _ := a.Sub(b)
		return d, c
	default:
		d, _ := b.Sub(a)
		return d, c
	}
}

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.int().String()
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It also serves YAML
// scalars, which yaml.v3 routes through TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a JSON string so that values beyond
// 2^53 survive JavaScript consumers.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a JSON string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return a.UnmarshalText([]byte(s))
	}
	return a.UnmarshalText(data)
}

// Value implements driver.Valuer. Amounts are stored as TEXT so that
// sqlite never truncates them to 64 bits.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: %d", ErrNegative, v)
		}
		*a = FromUint64(uint64(v))
		return nil
	case nil:
		*a = Zero
		return nil
	default:
		return fmt.Errorf("amount: cannot scan %T", src)
	}
}
