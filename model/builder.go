package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Multiplicity is the lower and upper bound of a property.
type Multiplicity struct {
	Lower, Upper int
}

// Common multiplicities.
var (
	ExactlyOne = Multiplicity{1, 1}
	ZeroOrOne  = Multiplicity{0, 1}
	ZeroOrMore = Multiplicity{0, Unbounded}
	OneOrMore  = Multiplicity{1, Unbounded}
)

// String formats the multiplicity the way ParseMultiplicity reads it.
func (m Multiplicity) String() string {
	upper := "*"
	if m.Upper != Unbounded {
		upper = strconv.Itoa(m.Upper)
	}
	if m.Lower == m.Upper {
		return upper
	}
	if m.Lower == 0 && m.Upper == Unbounded {
		return "*"
	}
	return strconv.Itoa(m.Lower) + ".." + upper
}

// ParseMultiplicity parses "1", "0..1", "*", "0..*", "1..*" and "n..m".
// An empty string means exactly one.
func ParseMultiplicity(s string) (Multiplicity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ExactlyOne, nil
	}
	bound := func(v string) (int, error) {
		if v == "*" {
			return Unbounded, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid multiplicity bound %q", v)
		}
		return n, nil
	}
	lo, hi, ranged := strings.Cut(s, "..")
	if !ranged {
		n, err := bound(lo)
		if err != nil {
			return Multiplicity{}, err
		}
		if n == Unbounded {
			return ZeroOrMore, nil
		}
		return Multiplicity{n, n}, nil
	}
	lower, err := bound(lo)
	if err != nil {
		return Multiplicity{}, err
	}
	if lower == Unbounded {
		return Multiplicity{}, fmt.Errorf("invalid multiplicity %q: lower bound cannot be *", s)
	}
	upper, err := bound(hi)
	if err != nil {
		return Multiplicity{}, err
	}
	if upper != Unbounded && upper < lower {
		return Multiplicity{}, fmt.Errorf("invalid multiplicity %q: upper bound below lower bound", s)
	}
	return Multiplicity{lower, upper}, nil
}

// Multiplicity returns the bounds of the property.
func (p *Property) Multiplicity() Multiplicity {
	return Multiplicity{p.Lower, p.Upper}
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddClass appends a class. Its ID is derived from the name.
func (m *Model) AddClass(name string) *Type {
	return m.addType(&Type{ID: "type:" + name, Name: name, Kind: KindClass})
}

// AddDataType appends a data type.
func (m *Model) AddDataType(name string) *Type {
	return m.addType(NewDataType("type:"+name, name))
}

// AddEnumeration appends an enumeration. base may be nil.
func (m *Model) AddEnumeration(name string, base *Type, literals ...string) *Type {
	return m.addType(&Type{ID: "type:" + name, Name: name, Kind: KindEnumeration, Base: base, Literals: literals})
}

// AddType appends t as is.
func (m *Model) AddType(t *Type) *Type { return m.addType(t) }

func (m *Model) addType(t *Type) *Type {
	m.Types = append(m.Types, t)
	return t
}

// AddAttribute appends an owned attribute to t.
func (t *Type) AddAttribute(name string, typ *Type, mult Multiplicity) *Property {
	p := &Property{
		ID:    t.ID + "." + name,
		Name:  name,
		Type:  typ,
		Owner: t,
		Lower: mult.Lower,
		Upper: mult.Upper,
	}
	t.Attributes = append(t.Attributes, p)
	return p
}

// AddIdentity appends an identity attribute to t.
func (t *Type) AddIdentity(name string, typ *Type) *Property {
	p := t.AddAttribute(name, typ, ExactlyOne)
	p.IsID = true
	return p
}

// End describes a member end passed to AddAssociation.
type End struct {
	Name         string
	Type         *Type
	Multiplicity Multiplicity
	// Owner, when set, makes the end a navigable attribute of that type.
	Owner *Type
}

// AddAssociation appends an association with the given member ends.
// Ends with an owner are appended to the owner's attributes as well.
func (m *Model) AddAssociation(name string, ends ...End) *Association {
	id := "assoc:" + name
	if name == "" {
		id = fmt.Sprintf("assoc:%d", len(m.Associations))
	}
	a := &Association{ID: id, Name: name}
	for i, e := range ends {
		p := &Property{
			ID:          fmt.Sprintf("%s/end%d", id, i),
			Name:        e.Name,
			Type:        e.Type,
			Owner:       e.Owner,
			Association: a,
			Lower:       e.Multiplicity.Lower,
			Upper:       e.Multiplicity.Upper,
		}
		if e.Owner != nil {
			e.Owner.Attributes = append(e.Owner.Attributes, p)
		}
		a.MemberEnds = append(a.MemberEnds, p)
	}
	m.Associations = append(m.Associations, a)
	return a
}
