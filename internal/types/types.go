// Package types implements the compiler's closed, small type system: a rank
// order over the arithmetic types plus the single opaque host-object type,
// grounded on the teacher's internal/types registry but reduced to the
// handful of variants spec.md §3 names.
package types

// Kind is the IR-level type a value collapses to. The C-level distinctions
// (int vs long vs short, etc.) matter only for rank comparisons during
// lowering; once a value has an IR Kind only three variants remain.
type Kind string

const (
	KindI32 Kind = "i32"
	KindF64 Kind = "f64"
	KindObj Kind = "obj"
)

// rank is the closed order bool<char<short<int<long<long long<float<double
// from spec.md §3. struct MlogObject has rank -1: compatible with any
// arithmetic type at the mlog runtime level, but never promoted to or from.
var rankOf = map[string]int{
	"bool":           0,
	"char":           1,
	"short":          2,
	"int":            3,
	"long":           4,
	"long long":      5,
	"float":          6,
	"double":         7,
	"struct MlogObject": -1,
}

// Rank returns the rank of a C type spelling, or false if it is not a known
// type of this dialect.
func Rank(cType string) (int, bool) {
	r, ok := rankOf[cType]
	return r, ok
}

// IsFloatRank reports whether a rank denotes float or double.
func IsFloatRank(rank int) bool {
	return rank >= rankOf["float"]
}

// IsIntegerRank reports whether a rank denotes one of the integer types
// (bool..long long), excluding the sentinel object rank.
func IsIntegerRank(rank int) bool {
	return rank >= 0 && rank < rankOf["float"]
}

// KindForType maps a C type spelling to the IR Kind it lowers to.
func KindForType(cType string) Kind {
	if cType == "struct MlogObject" {
		return KindObj
	}
	rank, ok := rankOf[cType]
	if ok && IsFloatRank(rank) {
		return KindF64
	}
	return KindI32
}

// HigherRank returns whichever of a, b has the higher rank (spec.md §3:
// "binary-op result type is the higher-ranked operand").
func HigherRank(a, b string) string {
	ra, aok := rankOf[a]
	rb, bok := rankOf[b]
	if !aok {
		return b
	}
	if !bok {
		return a
	}
	if ra >= rb {
		return a
	}
	return b
}
