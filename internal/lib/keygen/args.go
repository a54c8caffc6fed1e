package keygen

// Named is a single named argument of a call.
type Named struct {
	Name  string
	Value any
}

// Args is the full argument list of a call: ordered positional values plus
// named values. The order in which named values are supplied does not affect
// the key built from Args.
type Args struct {
	Positional []any
	Named      []Named
}

// NewArgs returns Args holding the given positional values.
func NewArgs(positional ...any) Args {
	return Args{Positional: positional}
}

// With returns a copy of a with the named argument appended.
func (a Args) With(name string, value any) Args {
	named := make([]Named, len(a.Named), len(a.Named)+1)
	copy(named, a.Named)
	return Args{
		Positional: a.Positional,
		Named:      append(named, Named{Name: name, Value: value}),
	}
}

// Get returns the value of the named argument, if present.
func (a Args) Get(name string) (any, bool) {
	for _, n := range a.Named {
		if n.Name == name {
			return n.Value, true
		}
	}
	return nil, false
}
