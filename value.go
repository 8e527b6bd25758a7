package flexconf

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/alecthomas/repr"
)

// Kind tags the variant a Value holds. Closed per spec.md §3 and §9: the
// Python reference's duck-typed literals are deliberately NOT mirrored
// here with a reflect.Value wrapper (that is how the teacher, pongo2,
// represents its own Value) — spec.md §9 calls out exactly this
// re-architecture, so Value is a plain tagged union instead.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindBigInt
	KindFloat
	KindString
	KindMap
	KindSeq
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindBigInt:
		return "BigInt"
	case KindFloat:
		return "Float"
	case KindString:
		return "Str"
	case KindMap:
		return "Map"
	case KindSeq:
		return "Seq"
	default:
		return "Unknown"
	}
}

// Value is the tagged union described in spec.md §3: Null | Bool | Int |
// Float | Str | Map | Seq, with an arbitrary-precision integer variant
// folded in for literals that overflow int64 (see DESIGN.md, Open
// Question 4).
type Value struct {
	kind Kind
	b    bool
	i    int64
	big  *big.Int
	f    float64
	s    string
	m    *Map
	seq  []Value
}

func Null() Value           { return Value{kind: KindNull} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func BigInt(n *big.Int) Value {
	if n.IsInt64() {
		return Int(n.Int64())
	}
	return Value{kind: KindBigInt, big: n}
}
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Str(s string) Value    { return Value{kind: KindString, s: s} }
func SeqOf(items []Value) Value {
	return Value{kind: KindSeq, seq: items}
}
func MapOf(m *Map) Value {
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsInt() bool    { return v.kind == KindInt || v.kind == KindBigInt }
func (v Value) IsFloat() bool  { return v.kind == KindFloat }
func (v Value) IsNumber() bool { return v.IsInt() || v.IsFloat() }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsMap() bool    { return v.kind == KindMap }
func (v Value) IsSeq() bool    { return v.kind == KindSeq }

func (v Value) Bool() bool { return v.b }

// Int64 returns the value as an int64. For KindBigInt values that do not
// fit, the result is truncated per big.Int.Int64's own documented
// behavior; callers that must not lose precision should check Kind and
// use BigIntValue instead.
func (v Value) Int64() int64 {
	if v.kind == KindBigInt {
		return v.big.Int64()
	}
	return v.i
}

// BigIntValue returns an arbitrary-precision view of any integer value,
// promoting int64 values on the fly.
func (v Value) BigIntValue() *big.Int {
	if v.kind == KindBigInt {
		return v.big
	}
	return big.NewInt(v.i)
}

func (v Value) Float64() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return float64(v.i)
	case KindBigInt:
		f, _ := new(big.Float).SetInt(v.big).Float64()
		return f
	default:
		return 0
	}
}

func (v Value) Str() string { return v.s }

func (v Value) Map() *Map {
	if v.m == nil {
		return NewMap()
	}
	return v.m
}

func (v Value) Seq() []Value { return v.seq }

// String renders a Value the way a caller printing a scalar would expect;
// it is not the FlexConf wire format (the spec has no serializer — see
// spec.md §1 Non-goals).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBigInt:
		return v.big.String()
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindMap:
		return fmt.Sprintf("Map(%d entries)", v.m.Len())
	case KindSeq:
		return fmt.Sprintf("Seq(%d items)", len(v.seq))
	default:
		return ""
	}
}

// Repr is a debug-oriented representation distinct from String, built on
// alecthomas/repr the way vippsas-sqlcode and the alecthomas-participle
// hand-written scanner/parser use it for readable AST dumps in tests and
// diagnostics.
func (v Value) Repr() string {
	switch v.kind {
	case KindMap:
		return repr.String(v.m.entries, repr.Indent("  "))
	case KindSeq:
		return repr.String(v.seq, repr.Indent("  "))
	default:
		return repr.String(v.asInterfaceLeaf())
	}
}

func (v Value) asInterfaceLeaf() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindBigInt:
		return v.big
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	default:
		return v.String()
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// Equal performs a structural comparison, used by Map equality and by
// tests (duplicate keys are detected by Map.Set instead); it is not part of the
// external library surface.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindBigInt:
		return v.big.Cmp(other.big) == 0
	case KindFloat:
		return v.f == other.f || (math.IsNaN(v.f) && math.IsNaN(other.f))
	case KindString:
		return v.s == other.s
	case KindMap:
		return v.m.equal(other.m)
	case KindSeq:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
