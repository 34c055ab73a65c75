package common

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const (
	// Decimals is the number of implied decimal places carried by every
	// amount handled by the engine.
	Decimals = 18
	// BpsDenominator scales basis point rates.
	BpsDenominator = 10_000
)

var (
	scale          = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))
	bpsDenominator = uint256.NewInt(BpsDenominator)
)

// Scale returns the 1e18 fixed-point base.
func Scale() *uint256.Int { return new(uint256.Int).Set(scale) }

// Zero returns a freshly allocated zero amount.
func Zero() *uint256.Int { return new(uint256.Int) }

// Units converts a whole number of tokens into its fixed-point form.
func Units(whole uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), scale)
}

// Clone copies x, mapping nil to zero.
func Clone(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(x)
}

// IsZero reports whether x is nil or zero.
func IsZero(x *uint256.Int) bool {
	return x == nil || x.IsZero()
}

// Add returns a+b or ErrArithmeticOverflow.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(Clone(a), Clone(b))
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, Clone(a).Dec(), Clone(b).Dec())
	}
	return sum, nil
}

// Sub returns a-b. A negative result is reported as ErrArithmeticOverflow;
// callers that want a floor at zero use SubFloor.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(Clone(a), Clone(b))
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrArithmeticOverflow, Clone(a).Dec(), Clone(b).Dec())
	}
	return diff, nil
}

// SubFloor returns max(0, a-b) together with the amount by which b exceeded
// a (zero when a >= b).
func SubFloor(a, b *uint256.Int) (diff, deficit *uint256.Int) {
	x, y := Clone(a), Clone(b)
	if x.Cmp(y) >= 0 {
		return new(uint256.Int).Sub(x, y), new(uint256.Int)
	}
	return new(uint256.Int), new(uint256.Int).Sub(y, x)
}

// Mul returns a*b or ErrArithmeticOverflow.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(Clone(a), Clone(b))
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrArithmeticOverflow, Clone(a).Dec(), Clone(b).Dec())
	}
	return product, nil
}

// MulDiv returns floor(a*b/d). The product is formed in a 512-bit
// intermediate so only a quotient wider than 256 bits overflows.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if IsZero(d) {
		return nil, ErrDivisionByZero
	}
	quotient, overflow := new(uint256.Int).MulDivOverflow(Clone(a), Clone(b), d)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s / %s", ErrArithmeticOverflow, Clone(a).Dec(), Clone(b).Dec(), d.Dec())
	}
	return quotient, nil
}

// ApplyBps returns floor(amount * bps / 10000).
func ApplyBps(amount *uint256.Int, bps uint64) (*uint256.Int, error) {
	return MulDiv(amount, uint256.NewInt(bps), bpsDenominator)
}

// Min returns the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if Clone(a).Cmp(Clone(b)) <= 0 {
		return Clone(a)
	}
	return Clone(b)
}

// ParseAmount converts a decimal token string such as "1049.5" into its
// fixed-point representation. More than Decimals fractional digits are
// rejected rather than rounded.
func ParseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	whole, frac, dotted := strings.Cut(trimmed, ".")
	if dotted && frac == "" {
		return nil, fmt.Errorf("%w: %q has no fractional digits", ErrInvalidAmount, value)
	}
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("%w: %q exceeds %d decimals", ErrInvalidAmount, value, Decimals)
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
		}
	}
	wholeInt, err := uint256.FromDecimal(whole)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, value, err)
	}
	scaled, err := Mul(wholeInt, scale)
	if err != nil {
		return nil, err
	}
	if frac == "" {
		return scaled, nil
	}
	padded := frac + strings.Repeat("0", Decimals-len(frac))
	fracInt, err := uint256.FromDecimal(strings.TrimLeft(padded, "0") + "0")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, value, err)
	}
	fracInt.Div(fracInt, uint256.NewInt(10))
	return Add(scaled, fracInt)
}

// FormatAmount renders a fixed-point amount as a decimal token string with
// trailing fractional zeros removed.
func FormatAmount(x *uint256.Int) string {
	value := Clone(x)
	whole, frac := new(uint256.Int), new(uint256.Int)
	whole.DivMod(value, scale, frac)
	if frac.IsZero() {
		return whole.Dec()
	}
	digits := frac.Dec()
	digits = strings.Repeat("0", Decimals-len(digits)) + digits
	return whole.Dec() + "." + strings.TrimRight(digits, "0")
}

// SaturatingAdd returns min(ceiling, a+b) without wrapping.
func SaturatingAdd(a, b, ceiling uint64) uint64 {
	if a >= ceiling || b >= ceiling-a {
		return ceiling
	}
	return a + b
}

// SaturatingSub returns max(floor, a-b) without wrapping.
func SaturatingSub(a, b, floor uint64) uint64 {
	if a <= floor || b >= a-floor {
		return floor
	}
	return a - b
}
