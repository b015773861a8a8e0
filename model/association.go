package model

// AssociationEnd is one side of a binary association, seen from the type
// the end belongs to.
type AssociationEnd struct {
	// Property is the member end.
	Property *Property
	// Type is the type the end belongs to.
	Type *Type
	// Opposite is the other member end.
	Opposite *Property
}

// Ends resolves a binary association into its two ends. It returns
// false for associations that do not have exactly two member ends.
//
// A member end declares the type on the other side of the association,
// so the type an end belongs to is the declared type of the opposite end.
// Consumers of Ends never deal with that convention.
func (a *Association) Ends() (first, second AssociationEnd, ok bool) {
	if len(a.MemberEnds) != 2 {
		return first, second, false
	}
	e1, e2 := a.MemberEnds[0], a.MemberEnds[1]
	first = AssociationEnd{Property: e1, Type: e2.Type, Opposite: e2}
	second = AssociationEnd{Property: e2, Type: e1.Type, Opposite: e1}
	return first, second, true
}

// IsBinary reports whether the association has exactly two member ends.
func (a *Association) IsBinary() bool { return len(a.MemberEnds) == 2 }
