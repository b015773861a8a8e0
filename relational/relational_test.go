package relational

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen/model"
)

func TestAnalyzeAssociations(t *testing.T) {
	m, dept, emp := companyModel()
	amap := AnalyzeAssociations(m, IsRelationship)

	assert.Equal(t, 2, amap.Len())
	assert.Equal(t, []string{dept.ID, emp.ID}, amap.Keys())

	toDept := amap.For(dept)
	require.Len(t, toDept, 1)
	assert.Same(t, emp, toDept[0].FromType)
	assert.Equal(t, "department", toDept[0].FromProperty.Name)
	assert.Equal(t, "employees", toDept[0].ToProperty.Name)
	assert.True(t, toDept[0].FromPropertyIsOwnedByType)
	assert.False(t, toDept[0].IsOneToMany)

	toEmp := amap.For(emp)
	require.Len(t, toEmp, 1)
	assert.Same(t, dept, toEmp[0].FromType)
	assert.Equal(t, "employees", toEmp[0].FromProperty.Name)
	assert.False(t, toEmp[0].FromPropertyIsOwnedByType)
	assert.True(t, toEmp[0].IsOneToMany)
}

func TestAnalyzeAssociations_Attributes(t *testing.T) {
	m := model.NewModel("Library")
	book := m.AddClass("Book")
	book.AddIdentity("Id", model.Integer)
	author := m.AddClass("Author")
	author.AddIdentity("Id", model.Integer)
	book.AddAttribute("author", author, model.ExactlyOne)
	author.AddAttribute("books", book, model.ZeroOrMore)
	m.AddAssociation("Ternary",
		model.End{Name: "a", Type: book},
		model.End{Name: "b", Type: author},
		model.End{Name: "c", Type: book},
	)

	amap := AnalyzeAssociations(m, IsRelationship)
	assert.Equal(t, 2, amap.Len())

	toAuthor := amap.For(author)
	require.Len(t, toAuthor, 1)
	assert.Same(t, book, toAuthor[0].FromType)
	assert.Nil(t, toAuthor[0].ToProperty)
	assert.False(t, toAuthor[0].FromPropertyIsOwnedByType)
	assert.False(t, toAuthor[0].IsOneToMany)

	toBook := amap.For(book)
	require.Len(t, toBook, 1)
	assert.Same(t, author, toBook[0].FromType)
	assert.True(t, toBook[0].IsOneToMany)

	assert.Nil(t, (*AssociationMap)(nil).For(book))
	assert.Nil(t, amap.For(nil))
}

func TestSortTables(t *testing.T) {
	a := &Table{Name: "A"}
	b := &Table{Name: "B"}
	c := &Table{Name: "C"}
	d := &Table{Name: "D"}
	// A references C, B references A.
	a.OwnColumns = []*Column{{Name: "cId", Table: a}}
	b.OwnColumns = []*Column{{Name: "aId", Table: b}}
	c.DependentColumns = []*Column{a.OwnColumns[0]}
	a.DependentColumns = []*Column{b.OwnColumns[0]}

	sorted, err := SortTables([]*Table{a, b, c, d})
	require.NoError(t, err)
	names := make([]string, len(sorted))
	for i, tbl := range sorted {
		names[i] = tbl.Name
	}
	assert.Equal(t, []string{"C", "A", "B", "D"}, names)

	sorted, err = SortTables(nil)
	require.NoError(t, err)
	assert.Empty(t, sorted)
}

func TestSortTables_CycleMembers(t *testing.T) {
	a := &Table{Name: "A"}
	b := &Table{Name: "B"}
	c := &Table{Name: "C"}
	ab := &Column{Name: "bId", Table: a}
	ba := &Column{Name: "aId", Table: b}
	cb := &Column{Name: "bId", Table: c}
	b.DependentColumns = []*Column{ab, cb}
	a.DependentColumns = []*Column{ba}

	_, err := SortTables([]*Table{c, a, b})
	require.Error(t, err)
	var ce *CycleError
	require.True(t, errors.As(err, &ce))
	// C only hangs off the cycle.
	assert.Equal(t, []string{"A", "B"}, ce.Tables)
	assert.Equal(t, "relgen: dependency cycle between tables A, B", err.Error())
}

func TestAnsiTypeNameProvider(t *testing.T) {
	m := model.NewModel("Types")
	withID := m.AddClass("Customer")
	withID.AddIdentity("Id", model.String)
	noID := m.AddClass("Orphan")
	money := m.AddDataType("Money")
	colour := m.AddEnumeration("Colour", nil, "Red", "Green")
	code := m.AddEnumeration("Code", model.String, "A", "B")

	tests := []struct {
		typ  *model.Type
		want string
	}{
		{model.Boolean, "boolean"},
		{model.Integer, "integer"},
		{model.Real, "real"},
		{model.String, "varchar"},
		{model.Object, "blob"},
		{money, "Money"},
		{colour, "integer"},
		{code, "varchar"},
		{withID, "varchar"},
	}
	p := AnsiTypeNameProvider{}
	for _, tt := range tests {
		t.Run(tt.typ.Name, func(t *testing.T) {
			got, err := p.TypeName(tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := p.TypeName(noID)
	assert.True(t, errors.Is(err, ErrMissingIdentity))
	_, err = p.TypeName(nil)
	assert.True(t, errors.Is(err, ErrUnresolvedType))

	self := m.AddClass("Self")
	self.AddIdentity("Id", self)
	_, err = p.TypeName(self)
	assert.True(t, IsTypeError(err))
}

func TestResolveTypeName_Cycles(t *testing.T) {
	t.Run("Identity", func(t *testing.T) {
		m := model.NewModel("Cycle")
		a := m.AddClass("A")
		b := m.AddClass("B")
		a.AddIdentity("Id", b)
		b.AddIdentity("Id", a)
		c := m.AddClass("C")
		c.AddIdentity("Id", model.Integer)
		c.AddAttribute("a", a, model.ExactlyOne)

		_, err := AnsiTypeNameProvider{}.TypeName(a)
		assert.True(t, IsTypeError(err))
		assert.ErrorContains(t, err, "identity type cycle")

		builder, err := NewBuilder()
		require.NoError(t, err)
		_, err = builder.Build(m)
		require.Error(t, err)
		assert.True(t, IsTypeError(err))
	})
	t.Run("EnumerationBase", func(t *testing.T) {
		m := model.NewModel("Cycle")
		first := m.AddEnumeration("First", nil, "X")
		second := m.AddEnumeration("Second", first, "Y")
		first.Base = second

		_, err := AnsiTypeNameProvider{}.TypeName(first)
		assert.True(t, IsTypeError(err))
		assert.ErrorContains(t, err, "enumeration base type cycle")
	})
}

func TestDefaultNameProvider(t *testing.T) {
	m := model.NewModel("Names")
	c := m.AddClass("Order")
	attr := c.AddAttribute("customer", m.AddClass("Customer"), model.ExactlyOne)

	p := DefaultNameProvider{}
	assert.Equal(t, "Order", p.TableName(c))
	assert.Equal(t, "customer", p.ColumnName(attr))
	assert.Equal(t, "customerId", p.ForeignKeyColumnName(attr))
	assert.Equal(t, "@Id", p.ParameterName("Id", false))
	assert.Equal(t, "Order_Id", p.ColumnAlias("Order", "Id"))
}

func TestOptions(t *testing.T) {
	t.Run("NilValues", func(t *testing.T) {
		for name, opt := range map[string]Option{
			"NameProvider":       WithNameProvider(nil),
			"TypeNameProvider":   WithTypeNameProvider(nil),
			"ColumnSpecProvider": WithColumnSpecProvider(nil),
			"TableFactory":       WithTableFactory(nil),
			"Logger":             WithLogger(nil),
			"TableFilter":        WithTableFilter(OnlyClasses, nil),
		} {
			_, err := NewConfig(opt)
			require.Error(t, err, name)
			assert.True(t, errors.Is(err, ErrInvalidConfig), name)
			var ce *ConfigError
			require.True(t, errors.As(err, &ce), name)
			assert.Equal(t, name, ce.Option)
		}
	})
	t.Run("ApplyAll", func(t *testing.T) {
		cfg, err := NewConfig()
		require.NoError(t, err)
		err = cfg.ApplyAll(WithLogger(nil), WithNameProvider(PluralNameProvider{}), WithTableFactory(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"Logger"`)
		assert.Contains(t, err.Error(), `"TableFactory"`)
		assert.IsType(t, PluralNameProvider{}, cfg.Names)
	})
	t.Run("Defaults", func(t *testing.T) {
		b, err := NewBuilder()
		require.NoError(t, err)
		cfg := b.Config()
		assert.IsType(t, DefaultNameProvider{}, cfg.Names)
		assert.IsType(t, AnsiTypeNameProvider{}, cfg.Types)
		assert.IsType(t, DefaultColumnSpecProvider{}, cfg.Specs)
		assert.Empty(t, cfg.Filters)
	})
}

func TestErrors(t *testing.T) {
	ie := NewIdentityError("Customer", "Order", "cannot create the foreign key")
	assert.Equal(t, "relgen: type Customer has no identity attribute: cannot create the foreign key (table Order)", ie.Error())

	cause := errors.New("boom")
	te := NewTypeError("Order", "total", "", cause)
	assert.Equal(t, "relgen: unable to determine sql type of Order.total: boom", te.Error())
	assert.ErrorIs(t, te, cause)
	assert.ErrorIs(t, te, ErrUnresolvedType)

	ce := NewConfigError("Logger", nil, "logger cannot be nil")
	assert.Equal(t, `relgen: config error for "Logger": logger cannot be nil`, ce.Error())
	assert.False(t, IsCycleError(ce))
}

func TestValidate(t *testing.T) {
	t.Run("Derived", func(t *testing.T) {
		m, _, _ := companyModel()
		res := Validate(mustBuild(t, m))
		assert.False(t, res.HasErrors())
		assert.False(t, res.HasWarnings())
		assert.Equal(t, "No issues found", res.String())
	})
	t.Run("Order", func(t *testing.T) {
		m, _, _ := companyModel()
		db := mustBuild(t, m)
		db.Tables[0], db.Tables[1] = db.Tables[1], db.Tables[0]
		res := Validate(db)
		require.True(t, res.HasErrors())
		assert.Equal(t, "Employee", res.Errors[0].Table)
		assert.Equal(t, "Id_employees", res.Errors[0].Column)
	})
	t.Run("Columns", func(t *testing.T) {
		tbl := &Table{Name: "T", SourceType: &model.Type{ID: "t", Name: "T"}}
		tbl.OwnColumns = []*Column{
			{Name: "Id", IsIdentity: true, Table: tbl},
			{Name: "Other", IsIdentity: true, Table: tbl},
			{Name: "Other", Table: tbl},
			{Name: "", Table: tbl},
			{Name: strings.Repeat("x", 129), Table: tbl},
			{Name: "a]b", Table: tbl},
		}
		tbl.Keys = []*Key{{Type: PrimaryKey, Name: "PK_T", Column: "Missing"}}
		res := ValidateTable(tbl)
		messages := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			messages = append(messages, e.Message)
		}
		assert.Equal(t, []string{
			"duplicate column name",
			"empty identifier",
			"identifier longer than 128 characters",
			"identifier contains a bracket",
			"table has 2 identity columns",
			`PRIMARY KEY "PK_T" references non-existent column "Missing"`,
		}, messages)
		assert.False(t, ValidateTable(tbl, MaxIdentifierLength(200)).HasWarnings())
	})
	t.Run("Warnings", func(t *testing.T) {
		tbl := &Table{Name: "T", SourceType: &model.Type{ID: "t", Name: "T"}}
		res := Validate(&Database{Tables: []*Table{tbl, {Name: "T"}}})
		assert.True(t, res.HasWarnings())
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "T: duplicate table name", res.Errors[0].Error())
		assert.Contains(t, res.String(), "Warnings:\n  - T: table has no identity column")
		assert.False(t, Validate(&Database{Tables: []*Table{tbl}}, AllowMissingIdentity()).HasWarnings())
	})
	t.Run("ForeignKeyTarget", func(t *testing.T) {
		tbl := &Table{Name: "T"}
		tbl.OwnColumns = []*Column{{Name: "xId", Table: tbl}}
		tbl.Keys = []*Key{{Type: ForeignKey, Name: "FK_T_x", Column: "xId", PrincipalTable: "X"}}
		res := Validate(&Database{Tables: []*Table{tbl}})
		require.Len(t, res.Errors, 1)
		assert.Equal(t, `T.xId: foreign key "FK_T_x" references non-existent table "X"`, res.Errors[0].Error())
	})
}
