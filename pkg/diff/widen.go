package diff

import (
	"strconv"
	"strings"

	"github.com/pseudomuto/automigrate/pkg/schema"
)

// integerRanks orders the integer families by width. ClickHouse unsigned
// types rank with the signed type of the same width and may only widen into
// a strictly wider signed type.
var integerRanks = map[string]int{
	"smallint": 16,
	"integer":  32,
	"bigint":   64,
	"Int8":     8,
	"Int16":    16,
	"Int32":    32,
	"Int64":    64,
	"Int128":   128,
	"Int256":   256,
}

var unsignedRanks = map[string]int{
	"UInt8":   8,
	"UInt16":  16,
	"UInt32":  32,
	"UInt64":  64,
	"UInt128": 128,
	"UInt256": 256,
}

// isNarrowing reports whether changing prev into next can lose data: either
// the type change is not a widening conversion or the column becomes NOT NULL.
func isNarrowing(prev, next *schema.Column) bool {
	if prev.Nullable && !next.Nullable {
		return true
	}
	return !isWidening(prev.Type, next.Type)
}

// isWidening reports whether every value of type from is representable in
// type to.
func isWidening(from, to string) bool {
	if from == to {
		return true
	}

	fromBase, toBase := schema.TypeBase(from), schema.TypeBase(to)
	fromArgs, toArgs := schema.TypeArgs(from), schema.TypeArgs(to)

	if toBase == "Nullable" && len(toArgs) == 1 {
		if fromBase == "Nullable" && len(fromArgs) == 1 {
			return isWidening(fromArgs[0], toArgs[0])
		}
		return isWidening(from, toArgs[0])
	}

	if strings.HasSuffix(from, "[]") || strings.HasSuffix(to, "[]") {
		return false
	}

	if fr, ok := integerRanks[fromBase]; ok {
		tr, ok := integerRanks[toBase]
		return ok && tr >= fr && sameFamily(fromBase, toBase)
	}

	if fr, ok := unsignedRanks[fromBase]; ok {
		if tr, ok := unsignedRanks[toBase]; ok {
			return tr >= fr
		}
		tr, ok := integerRanks[toBase]
		return ok && tr > fr && strings.HasPrefix(toBase, "Int")
	}

	switch fromBase {
	case "real":
		return toBase == "double precision"
	case "Float32":
		return toBase == "Float64"
	case "numeric":
		return toBase == "numeric" && numericFits(fromArgs, toArgs)
	case "varchar", "char":
		if toBase == "text" {
			return true
		}
		if toBase != "varchar" {
			return false
		}
		return len(toArgs) == 0 || (len(fromArgs) == 1 && atoi(toArgs[0]) >= atoi(fromArgs[0]))
	}

	return false
}

// sameFamily keeps SQL and ClickHouse integer names from converting into each
// other.
func sameFamily(a, b string) bool {
	return strings.HasPrefix(a, "Int") == strings.HasPrefix(b, "Int")
}

// numericFits reports whether numeric(p1, s1) values fit numeric(p2, s2).
// An unconstrained target accepts anything.
func numericFits(from, to []string) bool {
	if len(to) == 0 {
		return true
	}
	if len(from) == 0 {
		return false
	}

	fp, fs := atoi(from[0]), 0
	if len(from) > 1 {
		fs = atoi(from[1])
	}

	tp, ts := atoi(to[0]), 0
	if len(to) > 1 {
		ts = atoi(to[1])
	}

	return ts >= fs && tp-ts >= fp-fs
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	return n
}
