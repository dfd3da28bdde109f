package sql

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/syssam/vellum"
)

// Direction is the direction of a parameter.
type Direction uint8

// Parameter directions.
const (
	DirInput Direction = iota
	DirOutput
	DirInputOutput
	DirReturnValue
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirInput:
		return "input"
	case DirOutput:
		return "output"
	case DirInputOutput:
		return "input_output"
	case DirReturnValue:
		return "return_value"
	}
	return "direction(" + strconv.Itoa(int(d)) + ")"
}

// ColumnBinding defers the typing of a parameter to a catalog column. It is
// resolved when the statement is built.
type ColumnBinding struct {
	Schema string
	Table  string
	Column string
}

// String returns the dotted column name.
func (b ColumnBinding) String() string {
	if b.Schema == "" {
		return b.Table + "." + b.Column
	}
	return b.Schema + "." + b.Table + "." + b.Column
}

// Parameter describes one bind parameter of a statement. Name never carries
// a dialect prefix; see Provider.BuildParameterName and
// Provider.BuildBindVariableName.
type Parameter struct {
	Name       string
	Type       DbType
	NativeType string
	Size       int
	Precision  int
	Scale      int
	Direction  Direction
	Value      Value
	Binding    *ColumnBinding
}

// NewParameter returns an input parameter typed from its value.
func NewParameter(name string, v Value) *Parameter {
	p := &Parameter{Name: name, Type: TypeOf(v), Value: v}
	if s, ok := v.Text(); ok {
		p.Size = len(s)
	}
	return p
}

// BoundParameter returns an input parameter whose type is taken from the
// given catalog column when the statement is built.
func BoundParameter(name string, b ColumnBinding, v Value) *Parameter {
	return &Parameter{Name: name, Value: v, Binding: &b}
}

// Clone returns a deep copy of p.
func (p *Parameter) Clone() *Parameter {
	c := *p
	if p.Binding != nil {
		b := *p.Binding
		c.Binding = &b
	}
	return &c
}

// Resolved reports whether the parameter carries its final type.
func (p *Parameter) Resolved() bool {
	return p.Binding == nil || p.Type != TypeUnknown
}

// ParameterSet is an ordered set of parameters keyed case-insensitively by
// name. The zero value is ready to use.
type ParameterSet struct {
	index  map[string]int
	params []*Parameter
}

// NewParameterSet returns a set holding the given parameters. It panics on a
// duplicate name.
func NewParameterSet(ps ...*Parameter) *ParameterSet {
	s := &ParameterSet{}
	for _, p := range ps {
		if err := s.Add(p); err != nil {
			panic(err)
		}
	}
	return s
}

// Len returns the number of parameters.
func (s *ParameterSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.params)
}

// Get returns the parameter with the given name.
func (s *ParameterSet) Get(name string) (*Parameter, bool) {
	if s == nil || s.index == nil {
		return nil, false
	}
	i, ok := s.index[Fold(name)]
	if !ok {
		return nil, false
	}
	return s.params[i], true
}

// Contains reports whether a parameter with the given name exists.
func (s *ParameterSet) Contains(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Add appends p. Adding a name that already exists is an error.
func (s *ParameterSet) Add(p *Parameter) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return vellum.NewInvalidArgumentError("parameter", "parameter name must not be empty")
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := Fold(p.Name)
	if _, ok := s.index[key]; ok {
		return vellum.NewInvalidArgumentError(p.Name, "duplicate parameter")
	}
	s.index[key] = len(s.params)
	s.params = append(s.params, p)
	return nil
}

// Merge adds the parameters of o that are not in s. A parameter present in
// both sets must satisfy equal, otherwise Merge fails without modifying s.
func (s *ParameterSet) Merge(o *ParameterSet, equal func(a, b *Parameter) bool) error {
	if o.Len() == 0 {
		return nil
	}
	var added []*Parameter
	for _, p := range o.params {
		if cur, ok := s.Get(p.Name); ok {
			if !equal(cur, p) {
				return vellum.NewInvalidArgumentError(p.Name, "parameter bound twice with different values")
			}
			continue
		}
		added = append(added, p)
	}
	for _, p := range added {
		if err := s.Add(p.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// SetValue replaces the value of an existing parameter.
func (s *ParameterSet) SetValue(name string, v Value) error {
	p, ok := s.Get(name)
	if !ok {
		return vellum.NewNotFoundError("parameter", name)
	}
	p.Value = v
	return nil
}

// All returns the parameters in insertion order.
func (s *ParameterSet) All() []*Parameter {
	if s == nil {
		return nil
	}
	return append([]*Parameter(nil), s.params...)
}

// Names returns the parameter names in insertion order.
func (s *ParameterSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Clone returns a deep copy of the set.
func (s *ParameterSet) Clone() *ParameterSet {
	c := &ParameterSet{}
	if s == nil {
		return c
	}
	for _, p := range s.params {
		_ = c.Add(p.Clone())
	}
	return c
}

// SanitizeName turns s into a valid parameter name: characters that cannot
// appear in a bind token become underscores, and a name not starting with a
// letter or underscore is prefixed with "p".
func SanitizeName(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case isIdentRune(r):
			if i == 0 && !isIdentStart(r) {
				b.WriteByte('p')
			}
			b.WriteRune(r)
		default:
			if i == 0 {
				b.WriteByte('p')
			}
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "p"
	}
	return b.String()
}

// FitName truncates base so that the bind token of base+suffix fits the
// identifier limit of p. At least one character of base is kept.
func FitName(p Provider, base, suffix string) string {
	limit := p.MaxIdentifierLength() - len(p.BindPrefix()) - len(suffix)
	if limit < 1 {
		limit = 1
	}
	if len(base) > limit {
		cut := limit
		for cut > 1 && !utf8.RuneStart(base[cut]) {
			cut--
		}
		base = base[:cut]
	}
	return base + suffix
}
