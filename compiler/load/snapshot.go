package load

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/relgen/model"
)

// SnapshotVersion is the version of the snapshot encoding.
const SnapshotVersion = 1

// snapshot is the msgpack envelope of a document.
type snapshot struct {
	Version  int       `msgpack:"version"`
	Document *Document `msgpack:"document"`
}

// FromModel returns the document describing m. Every element keeps its
// ID. Types referenced by m but not declared in it, other than the
// built-in primitives, are declared in the document.
func FromModel(m *model.Model) *Document {
	doc := &Document{Name: m.Name}
	declared := make(map[*model.Type]bool)
	for _, t := range m.Types {
		declared[t] = true
	}
	var extra []*model.Type
	ref := func(t *model.Type) string {
		if t == nil {
			return ""
		}
		if !declared[t] && builtins[t.Name] != t {
			declared[t] = true
			extra = append(extra, t)
		}
		return t.Name
	}
	for _, t := range m.Types {
		doc.Types = append(doc.Types, typeDocument(t, ref))
	}
	for _, a := range m.Associations {
		ad := &Association{ID: a.ID, Name: a.Name}
		for _, p := range a.MemberEnds {
			ed := &End{
				ID:           p.ID,
				Name:         p.Name,
				Type:         ref(p.Type),
				Multiplicity: p.Multiplicity().String(),
				Aggregation:  aggregationName(p.Aggregation),
			}
			if p.Owner != nil {
				ed.Owner = ref(p.Owner)
			}
			ad.Ends = append(ad.Ends, ed)
		}
		doc.Associations = append(doc.Associations, ad)
	}
	// Undeclared types may reference further undeclared types.
	for i := 0; i < len(extra); i++ {
		doc.Types = append(doc.Types, typeDocument(extra[i], ref))
	}
	return doc
}

func typeDocument(t *model.Type, ref func(*model.Type) string) *Type {
	td := &Type{
		ID:       t.ID,
		Name:     t.Name,
		Kind:     t.Kind.String(),
		Base:     ref(t.Base),
		Literals: t.Literals,
	}
	if t.Kind == model.KindPrimitive {
		td.Primitive = primitiveName(t.Primitive)
	}
	for _, p := range t.Attributes {
		if p.Association != nil {
			continue
		}
		td.Attributes = append(td.Attributes, &Attribute{
			ID:           p.ID,
			Name:         p.Name,
			Type:         ref(p.Type),
			Multiplicity: p.Multiplicity().String(),
			Identity:     p.IsID,
			Aggregation:  aggregationName(p.Aggregation),
		})
	}
	return td
}

func primitiveName(k model.PrimitiveKind) string {
	for name, t := range builtins {
		if t.Primitive == k {
			return name
		}
	}
	return ""
}

func aggregationName(k model.AggregationKind) string {
	switch k {
	case model.AggregationShared:
		return "shared"
	case model.AggregationComposite:
		return "composite"
	}
	return ""
}

// WriteSnapshot writes the msgpack snapshot of m to w.
func WriteSnapshot(w io.Writer, m *model.Model) error {
	return msgpack.NewEncoder(w).Encode(&snapshot{Version: SnapshotVersion, Document: FromModel(m)})
}

// ReadSnapshot reads a model written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*model.Model, error) {
	var s snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return nil, NewLoadError("", "malformed snapshot", err)
	}
	if s.Version != SnapshotVersion {
		return nil, NewLoadError("", fmt.Sprintf("unsupported snapshot version %d", s.Version), nil)
	}
	if s.Document == nil {
		return nil, NewLoadError("", "snapshot without document", nil)
	}
	return s.Document.Model()
}

// Read reads a YAML model document from r.
func Read(r io.Reader) (*model.Model, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc, err := UnmarshalDocument(buf)
	if err != nil {
		return nil, err
	}
	return doc.Model()
}

// IsSnapshot reports whether path names a snapshot file.
func IsSnapshot(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return true
	}
	return false
}

// File loads the model stored at path: a snapshot for the .msgpack and
// .mpk extensions, a YAML document otherwise.
func File(path string) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m *model.Model
	if IsSnapshot(path) {
		m, err = ReadSnapshot(f)
	} else {
		m, err = Read(f)
	}
	if err != nil {
		return nil, withPath(path, err)
	}
	return m, nil
}
