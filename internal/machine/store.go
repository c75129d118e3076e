package machine

import "fmt"

// Store is the heap model of §3/§4.2: a bump-allocated address space split
// across two parallel arrays (tagged DValues and raw integers), plus the
// handler cell. Updates are functional — Update/UpdateInt/Allocate return
// a new *Store, never mutate the receiver — matching spec §4.2's "naive
// implementation may use a flat growable array with per-update clones."
type Store struct {
	nextUnused Location
	handler    Location
	tagged     []DValue
	ints       []int64
}

// NewStore returns an empty store whose handler cell is Location 0,
// holding handlerFn. Per invariant 2 (§3), the handler cell must be valid
// before the first evaluation — NewStore establishes that.
func NewStore(handlerFn Continuation) *Store {
	s := &Store{}
	s, loc := s.Allocate(1)
	s = s.Update(loc.Start, DFunction{Continuation: handlerFn})
	s.handler = loc.Start
	return s
}

// clone produces a shallow copy of the receiver's backing slices so that
// the original Store is left untouched by a subsequent in-place write.
func (s *Store) clone() *Store {
	tagged := make([]DValue, len(s.tagged))
	copy(tagged, s.tagged)
	ints := make([]int64, len(s.ints))
	copy(ints, s.ints)
	return &Store{
		nextUnused: s.nextUnused,
		handler:    s.handler,
		tagged:     tagged,
		ints:       ints,
	}
}

// Fetch returns the (non-Integer) DValue at loc. An out-of-range loc is an
// interpreter bug, not a program exception (§4.2), so it panics rather
// than returning an error.
func (s *Store) Fetch(loc Location) DValue {
	if loc < 0 || int(loc) >= len(s.tagged) {
		panic(fmt.Sprintf("machine: Store.Fetch: location %d out of range (len=%d)", loc, len(s.tagged)))
	}
	v := s.tagged[loc]
	if v == nil {
		panic(fmt.Sprintf("machine: Store.Fetch: location %d was never written as a tagged value", loc))
	}
	return v
}

// FetchInt reads the raw integer at loc and wraps it as a DInteger.
func (s *Store) FetchInt(loc Location) DValue {
	if loc < 0 || int(loc) >= len(s.ints) {
		panic(fmt.Sprintf("machine: Store.FetchInt: location %d out of range (len=%d)", loc, len(s.ints)))
	}
	return DInteger{N: s.ints[loc]}
}

// Update returns a new Store identical to s except that the value at loc
// is v. If v is a DInteger the write lands in the int cells; otherwise it
// lands in the tagged cells — the other slot at that location is left
// unspecified, per §4.2.
func (s *Store) Update(loc Location, v DValue) *Store {
	next := s.clone()
	if i, ok := v.(DInteger); ok {
		next.ints[loc] = i.N
	} else {
		next.tagged[loc] = v
	}
	return next
}

// UpdateInt returns a new Store identical to s except that the int cell at
// loc is i.
func (s *Store) UpdateInt(loc Location, i int64) *Store {
	next := s.clone()
	next.ints[loc] = i
	return next
}

// UpdateTagged returns a new Store identical to s except that the tagged
// cell at loc holds v, regardless of v's dynamic type. §4.5 specifies
// that writes targeting an Array cell (makeref, update/:= on Array) always
// go through the tagged array, unlike Update's type-routing behavior —
// this method is for those call sites.
func (s *Store) UpdateTagged(loc Location, v DValue) *Store {
	next := s.clone()
	next.tagged[loc] = v
	return next
}

// Allocate bumps the store's next-unused pointer by n and returns a new
// Store together with the freshly reserved (and zero-initialized) range.
func (s *Store) Allocate(n int64) (*Store, LocRange) {
	next := s.clone()
	start := next.nextUnused
	end := start + Location(n)
	for int(end) > len(next.tagged) {
		next.tagged = append(next.tagged, nil)
		next.ints = append(next.ints, 0)
	}
	next.nextUnused = end
	return next, LocRange{Start: start, End: end}
}

// Handler returns the location of the store's current exception handler
// cell.
func (s *Store) Handler() Location {
	return s.handler
}

// SetHandler returns a new Store whose handler cell points at loc. loc
// must hold a DFunction.
func (s *Store) SetHandler(loc Location) *Store {
	next := s.clone()
	next.handler = loc
	return next
}

// Raise invokes the store's installed exception handler with exc as its
// sole argument (§4.2, §7). An invalid handler cell is an interpreter
// bug, not a recoverable program condition.
func (s *Store) Raise(exc DValue) Answer {
	handlerVal := s.Fetch(s.handler)
	fn, ok := handlerVal.(DFunction)
	if !ok {
		panic("machine: Store.Raise: handler cell does not hold a Function")
	}
	return fn.Continuation.f([]DValue{exc}, s)
}
