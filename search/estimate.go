package search

import (
	"math"
	"math/bits"

	"github.com/deepnoodle-ai/shortprog/op"
)

// EstimateTotal returns the number of candidates a search of the given
// length would evaluate if nothing were pruned or skipped. The result
// saturates at math.MaxUint64.
func EstimateTotal(length int) uint64 {
	if length < 1 {
		return 0
	}
	first := uint64(len(op.First))
	if length == 1 {
		return first
	}
	interior := uint64(len(op.Interior))
	final := uint64(len(op.Final))

	// Per first symbol: one candidate per interior node at each depth,
	// plus the final alphabet below every deepest interior node.
	var perFirst, level uint64 = 0, 1
	for depth := 0; depth <= length-2; depth++ {
		perFirst = satAdd(perFirst, level)
		if depth < length-2 {
			level = satMul(level, interior)
		}
	}
	perFirst = satAdd(perFirst, satMul(level, final))
	return satMul(first, perFirst)
}

func satAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func satMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
