package cpamm

import "math/big"

// mulDivBig computes floor(a*b/c) with unbounded intermediate precision, so
// that reserve*shares style products (which routinely exceed 2^64 for
// realistic token amounts) never wrap before the division step.
func mulDivBig(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	prod := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	prod.Div(prod, new(big.Int).SetUint64(c))
	return prod.Uint64()
}

// mulBig returns a*b as a big.Int, for callers comparing cross products
// that could overflow uint64.
func mulBig(a, b uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
}
