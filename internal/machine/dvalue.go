package machine

// Location is an address into the Store. Per spec §9 open question 1, a
// Location is an abstract index bumped by one per allocated slot — not a
// byte offset, despite what the original sizeof-based scheme suggested.
type Location int64

// LocRange is a half-open range [Start, End) of consecutive Locations.
type LocRange struct {
	Start Location
	End   Location
}

// Len reports the number of locations in the range.
func (r LocRange) Len() int64 { return int64(r.End - r.Start) }

// ExceptionKind enumerates the program-level exceptions the evaluator can
// raise (§7). These are distinct from internal interpreter bugs, which
// panic rather than flow through a DException (see package cpserrors).
type ExceptionKind int

const (
	Overflow ExceptionKind = iota
	DivideByZero
	InvalidAccess
	Undefined
	IndexOutOfBounds
)

func (k ExceptionKind) String() string {
	switch k {
	case Overflow:
		return "Overflow"
	case DivideByZero:
		return "DivideByZero"
	case InvalidAccess:
		return "InvalidAccess"
	case Undefined:
		return "Undefined"
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	default:
		return "UnknownException"
	}
}

// DValue is a denotable value: the universe of things that may be bound to
// a variable, stored in a record field or array cell, or passed as an
// argument (§3).
type DValue interface {
	isDValue()
}

// DInteger is a word-sized signed integer, unboxed.
type DInteger struct{ N int64 }

// DReal is an IEEE-754 double.
type DReal struct{ N float64 }

// DString is an immutable character sequence.
type DString struct{ S string }

// DRecord is an immutable tuple plus a pointer offset. Two DRecords
// allocated separately are equal only by the "arbitrarily" latitude of
// §4.1, never unconditionally.
type DRecord struct {
	Fields []DValue
	Offset int
}

// DArray is a mutable range of consecutive store locations holding tagged
// DValues.
type DArray struct{ Range LocRange }

// DUnboxedArray is a mutable range of consecutive store locations holding
// raw integers.
type DUnboxedArray struct{ Range LocRange }

// DByteArray is a mutable range of consecutive store locations holding
// byte-valued (0..256) integers.
type DByteArray struct{ Range LocRange }

// DFunction is a callable object: a Continuation that can be applied to an
// argument list and a Store.
type DFunction struct{ Continuation Continuation }

// DException is a packaged raise token, produced in place of a normal
// result wherever the evaluator hits a program-level error condition.
type DException struct{ Kind ExceptionKind }

func (DInteger) isDValue()      {}
func (DReal) isDValue()         {}
func (DString) isDValue()       {}
func (DRecord) isDValue()       {}
func (DArray) isDValue()        {}
func (DUnboxedArray) isDValue() {}
func (DByteArray) isDValue()    {}
func (DFunction) isDValue()     {}
func (DException) isDValue()    {}

// arbitrarily models the latitude described in §4.1: a choice that is
// legal either way because no well-typed CPS program can observe which
// branch was taken. An implementation that interns strings/records would
// return true more often; this one is conservative and always returns
// lhs, i.e. it never claims two distinct allocations are equal.
func arbitrarily(lhs, _ bool) bool {
	return lhs
}

// Eq models CPS-level pointer equality (§4.1). It never returns true for
// two Function values; instead it reports that comparing functions is
// undefined. ok is false exactly when comparing two DFunctions, signaling
// to the caller that this is an interpreter-internal error rather than an
// ordinary false.
func Eq(a, b DValue) (equal bool, ok bool) {
	switch av := a.(type) {
	case DInteger:
		bv, same := b.(DInteger)
		return same && av.N == bv.N, true

	case DReal:
		bv, same := b.(DReal)
		return same && av.N == bv.N, true

	case DString:
		if _, same := b.(DString); !same {
			return false, true
		}
		// Strings are "pure values" like records: §4.1 permits, but does
		// not require, treating two distinct allocations as equal. Plain
		// Go strings carry no allocation identity to test, so this
		// implementation takes the conservative branch unconditionally.
		return arbitrarily(false, false), true

	case DRecord:
		if _, same := b.(DRecord); !same {
			return false, true
		}
		// Same rationale as DString above: conservative, never claims two
		// separately-allocated records are equal.
		return arbitrarily(false, false), true

	case DArray:
		bv, same := b.(DArray)
		return same && av.Range == bv.Range, true

	case DUnboxedArray:
		bv, same := b.(DUnboxedArray)
		return same && av.Range == bv.Range, true

	case DByteArray:
		bv, same := b.(DByteArray)
		return same && av.Range == bv.Range, true

	case DFunction:
		if _, same := b.(DFunction); same {
			return false, false
		}
		return false, true

	default:
		return false, true
	}
}

// AccessPath is a walk into a record, used only while constructing a
// Record expression to express sharing among its fields (§3).
type AccessPath interface {
	isAccessPath()
}

// PathOffset re-views the current record with its offset advanced by K.
type PathOffset struct{ K int }

// PathSelect selects field K of the current record, then continues
// resolving Rest against the selected value.
type PathSelect struct {
	K    int
	Rest AccessPath
}

func (PathOffset) isAccessPath() {}
func (PathSelect) isAccessPath() {}

// Resolve walks an AccessPath starting from v. This is function F in
// [Appel] (§4.6's Record rule).
func Resolve(v DValue, path AccessPath) DValue {
	switch p := path.(type) {
	case PathOffset:
		if p.K == 0 {
			return v
		}
		if rec, ok := v.(DRecord); ok {
			return DRecord{Fields: rec.Fields, Offset: rec.Offset + p.K}
		}
		return DException{Kind: InvalidAccess}

	case PathSelect:
		rec, ok := v.(DRecord)
		if !ok {
			return DException{Kind: InvalidAccess}
		}
		idx := rec.Offset + p.K
		if idx < 0 || idx >= len(rec.Fields) {
			return DException{Kind: InvalidAccess}
		}
		return Resolve(rec.Fields[idx], p.Rest)

	default:
		return DException{Kind: InvalidAccess}
	}
}
