package conic

// Session owns the identifier allocator and the dimension registry for one
// modeling session. Ids are monotonic and never reused, which fixes the
// global column ordering used at assembly time. Independent sessions never
// collide because the counter lives here rather than in package state.
//
// A Session is not safe for concurrent use.
type Session struct {
	nextID  int64
	varDims map[int64][2]int
}

// NewSession returns an empty modeling session.
func NewSession() *Session {
	return &Session{varDims: make(map[int64][2]int)}
}

// nextIdent allocates a fresh id strictly greater than all previously
// issued ids in this session.
func (s *Session) nextIdent() int64 {
	s.nextID++
	return s.nextID
}

// NewVariable creates a named decision variable of the given shape.
func (s *Session) NewVariable(rows, cols int, name string) *Variable {
	if rows < 1 || cols < 1 {
		panic(&ValidationError{Leaf: "variable", Reason: "dimensions must be positive"})
	}
	v := &Variable{id: s.nextIdent(), rows: rows, cols: cols, vname: name}
	s.varDims[v.id] = [2]int{rows, cols}
	return v
}

// newAuxVariable creates an anonymous variable introduced by an epigraph
// rewrite during canonicalization.
func (s *Session) newAuxVariable(rows, cols int) *Variable {
	v := &Variable{id: s.nextIdent(), rows: rows, cols: cols}
	s.varDims[v.id] = [2]int{rows, cols}
	return v
}

// NewParameter creates a parameter with a declared sign and an unset value
// slot. The sign string must be one of ZERO, POSITIVE, NEGATIVE, UNKNOWN.
func (s *Session) NewParameter(rows, cols int, name, sign string) (*Parameter, error) {
	if rows < 1 || cols < 1 {
		return nil, &ValidationError{Leaf: "parameter", Reason: "dimensions must be positive"}
	}
	sg, err := ParseSign(sign)
	if err != nil {
		return nil, err
	}
	return &Parameter{id: s.nextIdent(), rows: rows, cols: cols, pname: name, sign: sg}, nil
}

// NewCallbackParam creates a parameter whose value is produced by cb on
// every access.
func (s *Session) NewCallbackParam(cb Callback, rows, cols int, name, sign string) (*CallbackParam, error) {
	if cb == nil {
		return nil, &ValidationError{Leaf: "callback parameter", Reason: "callback must not be nil"}
	}
	if rows < 1 || cols < 1 {
		return nil, &ValidationError{Leaf: "callback parameter", Reason: "dimensions must be positive"}
	}
	sg, err := ParseSign(sign)
	if err != nil {
		return nil, err
	}
	return &CallbackParam{
		Parameter: Parameter{id: s.nextIdent(), rows: rows, cols: cols, pname: name, sign: sg},
		cb:        cb,
	}, nil
}
