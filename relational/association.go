package relational

import "github.com/syssam/relgen/model"

// AssociationInfo describes one directed relationship edge. It is keyed by
// ToType, the type whose table may host the matching foreign key.
type AssociationInfo struct {
	// FromType is the principal side.
	FromType *model.Type
	// FromProperty is the end navigating away from FromType.
	FromProperty *model.Property
	// ToType is the dependent side.
	ToType *model.Type
	// ToProperty is the near end. It is nil when the info was derived
	// from a plain attribute.
	ToProperty *model.Property
	// FromPropertyIsOwnedByType is true when ToType owns the near end as
	// an attribute, so no extra column has to be synthesized.
	FromPropertyIsOwnedByType bool
	// IsOneToMany is true when one ToType instance relates to a single
	// FromType instance while FromType relates to many ToType instances.
	IsOneToMany bool
}

// AssociationMap maps type IDs to the relationship edges keyed by them.
// It is built once per build and read-only afterwards.
type AssociationMap struct {
	keys   []string
	byType map[string][]*AssociationInfo
}

func newAssociationMap() *AssociationMap {
	return &AssociationMap{byType: make(map[string][]*AssociationInfo)}
}

func (m *AssociationMap) add(info *AssociationInfo) {
	id := info.ToType.ID
	if _, ok := m.byType[id]; !ok {
		m.keys = append(m.keys, id)
	}
	m.byType[id] = append(m.byType[id], info)
}

// For returns the edges keyed by t, in discovery order.
func (m *AssociationMap) For(t *model.Type) []*AssociationInfo {
	if m == nil || t == nil {
		return nil
	}
	return m.byType[t.ID]
}

// Keys returns the type IDs of the map in discovery order.
func (m *AssociationMap) Keys() []string { return m.keys }

// Len returns the number of edges in the map.
func (m *AssociationMap) Len() int {
	n := 0
	for _, infos := range m.byType {
		n += len(infos)
	}
	return n
}

// AnalyzeAssociations builds the association map of m. Binary associations
// contribute one edge per direction; relationship attributes that are not
// association ends contribute one edge each. Associations with other than
// two member ends are skipped.
func AnalyzeAssociations(m *model.Model, isRelationship func(*model.Property) bool) *AssociationMap {
	amap := newAssociationMap()
	for _, a := range m.Associations {
		first, second, ok := a.Ends()
		if !ok {
			continue
		}
		if first.Type == nil || second.Type == nil {
			continue
		}
		amap.add(fromEnds(first, second))
		amap.add(fromEnds(second, first))
	}
	for _, t := range m.AllTypes() {
		if !t.IsMemberedClassifier() {
			continue
		}
		for _, attr := range t.Attributes {
			if !isRelationship(attr) || attr.Association != nil {
				continue
			}
			amap.add(&AssociationInfo{
				FromType:     t,
				FromProperty: attr,
				ToType:       attr.Type,
				IsOneToMany:  attr.IsMultivalued(),
			})
		}
	}
	return amap
}

// fromEnds derives the edge keyed by the type near belongs to.
func fromEnds(near, far model.AssociationEnd) *AssociationInfo {
	return &AssociationInfo{
		FromType:                  far.Type,
		FromProperty:              far.Property,
		ToType:                    near.Type,
		ToProperty:                near.Property,
		FromPropertyIsOwnedByType: sameType(near.Property.Owner, near.Type),
		IsOneToMany:               !near.Property.IsMultivalued() && far.Property.IsMultivalued(),
	}
}

func sameType(a, b *model.Type) bool {
	return a != nil && b != nil && a.ID == b.ID
}
