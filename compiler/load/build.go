package load

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/syssam/relgen/model"
)

// Namespace is the UUID namespace of derived element IDs.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/syssam/relgen"))

// ElementID returns the ID of an element declared without one: a UUIDv5
// of the model name and the qualified element name.
func ElementID(modelName, qualifiedName string) string {
	return uuid.NewSHA1(Namespace, []byte(modelName+"/"+qualifiedName)).String()
}

var builtins = map[string]*model.Type{
	model.Boolean.Name: model.Boolean,
	model.Integer.Name: model.Integer,
	model.Real.Name:    model.Real,
	model.String.Name:  model.String,
	model.Object.Name:  model.Object,
}

var kinds = map[string]model.Kind{
	"":          model.KindClass,
	"class":     model.KindClass,
	"datatype":  model.KindDataType,
	"enum":      model.KindEnumeration,
	"primitive": model.KindPrimitive,
}

var aggregations = map[string]model.AggregationKind{
	"":          model.AggregationNone,
	"none":      model.AggregationNone,
	"shared":    model.AggregationShared,
	"composite": model.AggregationComposite,
}

// Model builds the model described by the document.
func (d *Document) Model() (*model.Model, error) {
	b := &builder{
		doc:   d,
		m:     model.NewModel(d.Name),
		types: make(map[string]*model.Type),
		ids:   make(map[string]string),
	}
	if err := b.declareTypes(); err != nil {
		return nil, err
	}
	for i, td := range d.Types {
		if err := b.defineType(b.m.Types[i], td); err != nil {
			return nil, err
		}
	}
	for i, ad := range d.Associations {
		if err := b.association(i, ad); err != nil {
			return nil, err
		}
	}
	return b.m, nil
}

type builder struct {
	doc   *Document
	m     *model.Model
	types map[string]*model.Type
	ids   map[string]string // element ID to qualified name
}

// id returns the declared ID or derives one, and rejects duplicates.
func (b *builder) id(declared, qualified string) (string, error) {
	id := declared
	if id == "" {
		id = ElementID(b.doc.Name, qualified)
	}
	if other, ok := b.ids[id]; ok {
		return "", NewLoadError(qualified, fmt.Sprintf("id %q is already used by %s", id, other), nil)
	}
	b.ids[id] = qualified
	return id, nil
}

func (b *builder) declareTypes() error {
	for i, td := range b.doc.Types {
		if td == nil || td.Name == "" {
			return NewLoadError("types["+strconv.Itoa(i)+"]", "type without name", nil)
		}
		if _, ok := b.types[td.Name]; ok {
			return NewLoadError(td.Name, "duplicate type name", nil)
		}
		kind, ok := kinds[td.Kind]
		if !ok {
			return NewLoadError(td.Name, fmt.Sprintf("unknown kind %q", td.Kind), nil)
		}
		id, err := b.id(td.ID, td.Name)
		if err != nil {
			return err
		}
		t := &model.Type{ID: id, Name: td.Name, Kind: kind, Literals: td.Literals}
		if kind == model.KindPrimitive {
			p, err := primitiveKind(td)
			if err != nil {
				return err
			}
			t.Primitive = p
		}
		b.types[td.Name] = t
		b.m.AddType(t)
	}
	return nil
}

func primitiveKind(td *Type) (model.PrimitiveKind, error) {
	name := td.Primitive
	if name == "" {
		if bt, ok := builtins[td.Name]; ok {
			return bt.Primitive, nil
		}
		return model.PrimitiveNone, nil
	}
	bt, ok := builtins[name]
	if !ok {
		return model.PrimitiveNone, NewLoadError(td.Name, fmt.Sprintf("unknown primitive %q", name), nil)
	}
	return bt.Primitive, nil
}

// resolve returns the type with the given name. Declared types shadow
// the built-in primitives.
func (b *builder) resolve(element, name string) (*model.Type, error) {
	if name == "" {
		return nil, NewLoadError(element, "missing type", nil)
	}
	if t, ok := b.types[name]; ok {
		return t, nil
	}
	if t, ok := builtins[name]; ok {
		return t, nil
	}
	return nil, NewLoadError(element, fmt.Sprintf("unknown type %q", name), nil)
}

func (b *builder) defineType(t *model.Type, td *Type) error {
	if td.Base != "" {
		base, err := b.resolve(t.Name, td.Base)
		if err != nil {
			return err
		}
		t.Base = base
	}
	if len(td.Attributes) > 0 && !t.IsMemberedClassifier() {
		return NewLoadError(t.Name, "primitive types cannot own attributes", nil)
	}
	for i, ad := range td.Attributes {
		if ad == nil || ad.Name == "" {
			return NewLoadError(t.Name+".attributes["+strconv.Itoa(i)+"]", "attribute without name", nil)
		}
		qualified := t.Name + "." + ad.Name
		typ, err := b.resolve(qualified, ad.Type)
		if err != nil {
			return err
		}
		mult, err := model.ParseMultiplicity(ad.Multiplicity)
		if err != nil {
			return NewLoadError(qualified, "malformed multiplicity", err)
		}
		agg, ok := aggregations[ad.Aggregation]
		if !ok {
			return NewLoadError(qualified, fmt.Sprintf("unknown aggregation %q", ad.Aggregation), nil)
		}
		id, err := b.id(ad.ID, qualified)
		if err != nil {
			return err
		}
		t.Attributes = append(t.Attributes, &model.Property{
			ID:          id,
			Name:        ad.Name,
			Type:        typ,
			Owner:       t,
			Lower:       mult.Lower,
			Upper:       mult.Upper,
			IsID:        ad.Identity,
			Aggregation: agg,
		})
	}
	return nil
}

func (b *builder) association(index int, ad *Association) error {
	if ad == nil {
		return NewLoadError("associations["+strconv.Itoa(index)+"]", "empty association", nil)
	}
	element := "association " + ad.Name
	if ad.Name == "" {
		element = "associations[" + strconv.Itoa(index) + "]"
	}
	if len(ad.Ends) < 2 {
		return NewLoadError(element, fmt.Sprintf("association has %d ends, at least 2 are required", len(ad.Ends)), nil)
	}
	id, err := b.id(ad.ID, element)
	if err != nil {
		return err
	}
	a := &model.Association{ID: id, Name: ad.Name}
	ends := make([]*model.Type, len(ad.Ends))
	for i, ed := range ad.Ends {
		if ed == nil {
			return NewLoadError(element, "empty association end", nil)
		}
		if ends[i], err = b.resolve(element, ed.Type); err != nil {
			return err
		}
	}
	for i, ed := range ad.Ends {
		qualified := element + "/" + endName(ed, i)
		mult, err := model.ParseMultiplicity(ed.Multiplicity)
		if err != nil {
			return NewLoadError(qualified, "malformed multiplicity", err)
		}
		agg, ok := aggregations[ed.Aggregation]
		if !ok {
			return NewLoadError(qualified, fmt.Sprintf("unknown aggregation %q", ed.Aggregation), nil)
		}
		id, err := b.id(ed.ID, qualified)
		if err != nil {
			return err
		}
		p := &model.Property{
			ID:          id,
			Name:        ed.Name,
			Type:        ends[i],
			Association: a,
			Lower:       mult.Lower,
			Upper:       mult.Upper,
			Aggregation: agg,
		}
		if ed.Owner != "" {
			owner, err := b.resolve(qualified, ed.Owner)
			if err != nil {
				return err
			}
			if !slices.Contains(ends, owner) {
				return NewLoadError(qualified, fmt.Sprintf("owner %q is not a type of the association", ed.Owner), nil)
			}
			if !owner.IsMemberedClassifier() {
				return NewLoadError(qualified, "primitive types cannot own association ends", nil)
			}
			p.Owner = owner
			owner.Attributes = append(owner.Attributes, p)
		}
		a.MemberEnds = append(a.MemberEnds, p)
	}
	b.m.Associations = append(b.m.Associations, a)
	return nil
}

func endName(ed *End, i int) string {
	if ed.Name != "" {
		return ed.Name
	}
	return "end" + strconv.Itoa(i)
}
