package keyspace

import "math/big"

// Range is an inclusive span of the key space.
type Range struct {
	Start Key
	End   Key
}

// FullRange spans from start to the end of the key space.
func FullRange(start Key) Range {
	return Range{Start: start, End: MaxKey}
}

// Valid reports whether the range is ordered (Start <= End).
func (r Range) Valid() bool {
	return Compare(r.Start, r.End) <= 0
}

// Attempts returns how many increments separate current from the range
// start. The result is exact; the span can be as wide as 2^128, beyond
// any fixed-width integer.
func (r Range) Attempts(current Key) *big.Int {
	cur := new(big.Int).SetBytes(current[:])
	return cur.Sub(cur, new(big.Int).SetBytes(r.Start[:]))
}

// Width returns the total number of keys in the range.
func (r Range) Width() *big.Int {
	w := new(big.Int).SetBytes(r.End[:])
	w.Sub(w, new(big.Int).SetBytes(r.Start[:]))
	return w.Add(w, big.NewInt(1))
}

// Progress returns the position of current within the range as a
// percentage in [0, 100]. The division is carried out on big integers
// so precision survives at either end of a 2^128-wide span; float math
// would collapse everything below ~2^104 to zero. A zero-width range is
// complete at its single key.
func (r Range) Progress(current Key) float64 {
	span := new(big.Int).SetBytes(r.End[:])
	span.Sub(span, new(big.Int).SetBytes(r.Start[:]))

	if span.Sign() == 0 {
		if Compare(current, r.Start) >= 0 {
			return 100
		}
		return 0
	}

	done := new(big.Int).SetBytes(current[:])
	done.Sub(done, new(big.Int).SetBytes(r.Start[:]))
	if done.Sign() <= 0 {
		return 0
	}
	if done.Cmp(span) >= 0 {
		return 100
	}

	// Scale to hundredths of a basis point before dividing.
	done.Mul(done, big.NewInt(1_000_000))
	done.Div(done, span)
	return float64(done.Int64()) / 10_000
}
