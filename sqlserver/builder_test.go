package sqlserver

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
)

func companyModel() (*model.Model, *model.Association) {
	m := model.NewModel("Company")
	dept := m.AddClass("Department")
	dept.AddIdentity("Id", model.Integer)
	dept.AddAttribute("Name", model.String, model.ExactlyOne)
	emp := m.AddClass("Employee")
	emp.AddIdentity("Id", model.Integer)
	emp.AddAttribute("Name", model.String, model.ZeroOrOne)
	a := m.AddAssociation("Staff",
		model.End{Name: "employees", Type: emp, Multiplicity: model.ZeroOrMore, Owner: dept},
		model.End{Name: "department", Type: dept, Multiplicity: model.ExactlyOne},
	)
	return m, a
}

func mustBuild(t *testing.T, m *model.Model, opts ...Option) *Database {
	t.Helper()
	b, err := NewBuilder(opts...)
	require.NoError(t, err)
	db, err := b.Build(m)
	require.NoError(t, err)
	return db
}

func procedureNames(db *Database) []string {
	names := make([]string, 0, len(db.Procedures))
	for _, p := range db.Procedures {
		names = append(names, p.Name)
	}
	return names
}

func TestBuild_Columns(t *testing.T) {
	m, _ := companyModel()
	db := mustBuild(t, m)

	dept, ok := db.Table("Department")
	require.True(t, ok)
	name, _ := dept.Column("Name")
	assert.Equal(t, "nvarchar", name.TypeName)
	assert.Equal(t, "max", name.Length)
	id := dept.Identity()
	assert.Equal(t, "int", id.TypeName)
	assert.Empty(t, id.Length)

	emp, _ := db.Table("Employee")
	fk, ok := emp.Column("Id_employees")
	require.True(t, ok)
	assert.Equal(t, "int", fk.TypeName)
	assert.True(t, fk.IsMany)
}

func TestBuild_Keys(t *testing.T) {
	m, a := companyModel()
	db := mustBuild(t, m)

	dept, _ := db.Table("Department")
	require.Len(t, dept.Keys, 1)
	assert.Equal(t, &relational.Key{Type: relational.PrimaryKey, Name: "PK_Department", Column: "Id"}, dept.Keys[0])

	emp, _ := db.Table("Employee")
	require.Len(t, emp.Keys, 2)
	assert.Equal(t, "PK_Employee", emp.Keys[0].Name)
	assert.Equal(t, &relational.Key{
		Type:            relational.ForeignKey,
		Name:            "FK_Department_employees",
		Column:          "Id_employees",
		PrincipalTable:  "Department",
		PrincipalColumn: "Id",
	}, emp.Keys[1])
	assert.False(t, relational.Validate(db.Database).HasErrors())

	t.Run("CascadeOnComposition", func(t *testing.T) {
		a.MemberEnds[0].Aggregation = model.AggregationComposite
		emp, _ := mustBuild(t, m).Table("Employee")
		assert.False(t, emp.Keys[1].CascadeOnDelete)
		emp, _ = mustBuild(t, m, WithCascadeOnComposition()).Table("Employee")
		assert.True(t, emp.Keys[1].CascadeOnDelete)
	})
}

func TestBuild_KeysToFilteredPrincipal(t *testing.T) {
	m := model.NewModel("Contacts")
	person := m.AddClass("Person")
	person.AddIdentity("Id", model.Integer)
	addr := m.AddClass("Address")
	addr.AddIdentity("Id", model.Integer)
	person.AddAttribute("homeAddress", addr, model.ZeroOrOne)

	db := mustBuild(t, m, WithRelationalOptions(
		relational.WithTableFilter(func(t *model.Type) bool { return t.Name != "Address" }),
	))
	p, ok := db.Table("Person")
	require.True(t, ok)
	_, ok = p.Column("homeAddressId")
	assert.True(t, ok)
	require.Len(t, p.Keys, 1)
	assert.Equal(t, relational.PrimaryKey, p.Keys[0].Type)
}

func TestBuild_IdentityTableType(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		m, _ := companyModel()
		db := mustBuild(t, m)
		require.Len(t, db.TableTypes, 1)
		tt := db.TableTypes[0]
		assert.Same(t, tt, db.IdentityTableType)
		assert.Equal(t, "IntTable", tt.Name)
		require.Len(t, tt.OwnColumns, 1)
		assert.Equal(t, "Value", tt.OwnColumns[0].Name)
		assert.Equal(t, "int", tt.OwnColumns[0].TypeName)
		assert.True(t, tt.OwnColumns[0].IsRequired)
	})
	t.Run("Override", func(t *testing.T) {
		m, _ := companyModel()
		db := mustBuild(t, m, WithIdentityType(model.String))
		require.NotNil(t, db.IdentityTableType)
		assert.Equal(t, "NvarcharTable", db.IdentityTableType.Name)
		assert.Equal(t, "max", db.IdentityTableType.OwnColumns[0].Length)
	})
	t.Run("Selected", func(t *testing.T) {
		m, _ := companyModel()
		m.AddType(model.Integer)
		db := mustBuild(t, m,
			WithTableTypes(func(t *model.Type) bool { return t.Kind == model.KindPrimitive }),
			WithRelationalOptions(relational.WithTableFilter(relational.OnlyClasses)),
		)
		require.Len(t, db.TableTypes, 1)
		assert.Same(t, db.IdentityTableType, db.TableTypes[0])
		assert.Same(t, model.Integer, db.IdentityTableType.SourceType)
	})
}

func TestBuild_TableTypes(t *testing.T) {
	m, _ := companyModel()
	m.AddDataType("Money")
	db := mustBuild(t, m,
		WithRelationalOptions(relational.WithTableFilter(relational.OnlyClasses)),
		WithTableTypes(func(t *model.Type) bool { return t.Name == "Money" }),
		WithTableTypes(func(t *model.Type) bool { return t.Name == "Department" }),
	)

	names := make([]string, 0, len(db.TableTypes))
	for _, tt := range db.TableTypes {
		names = append(names, tt.Name)
	}
	assert.Equal(t, []string{"TT_Department", "MoneyTable", "IntTable"}, names)

	complexType, ok := db.TableType("TT_Department")
	require.True(t, ok)
	assert.Len(t, complexType.OwnColumns, 2)
	money, _ := db.TableType("MoneyTable")
	assert.Equal(t, "Money", money.OwnColumns[0].TypeName)

	_, ok = db.Table("Money")
	assert.False(t, ok)
}

func TestBuild_Procedures(t *testing.T) {
	m, _ := companyModel()
	db := mustBuild(t, m, WithAllProcedures())

	assert.Equal(t, []string{
		"InsertDepartment",
		"UpdateDepartmentemployees",
		"UpdateDepartment",
		"SelectDepartmentById",
		"DeleteDepartmentById",
		"InsertEmployee",
		"UpdateEmployee",
		"SelectEmployeeById",
		"DeleteEmployeeById",
	}, procedureNames(db))

	insert, _ := db.Procedure("InsertDepartment")
	assert.Equal(t, QueryInsert, insert.QueryType)
	require.Len(t, insert.Parameters, 2)
	assert.Equal(t, "Name", insert.Parameters[0].Name)
	assert.Equal(t, Input, insert.Parameters[0].Direction)
	assert.False(t, insert.Parameters[0].IsNullable)
	assert.Equal(t, "Id", insert.Parameters[1].Name)
	assert.Equal(t, Output, insert.Parameters[1].Direction)
	assert.True(t, insert.Parameters[1].IsIdentity)
	assert.Equal(t, 1, insert.Parameters[1].Index)

	insertEmp, _ := db.Procedure("InsertEmployee")
	require.Len(t, insertEmp.Parameters, 2)
	assert.True(t, insertEmp.Parameters[0].IsNullable)

	update, _ := db.Procedure("UpdateDepartment")
	require.Len(t, update.Filters(), 1)
	assert.Equal(t, "Id", update.Filters()[0].Name)
	assert.Equal(t, Input, update.Identity().Direction)

	del, _ := db.Procedure("DeleteDepartmentById")
	require.Len(t, del.Parameters, 1)
	assert.True(t, del.Parameters[0].IsFilter)

	rel, _ := db.Procedure("UpdateDepartmentemployees")
	assert.Equal(t, QueryUpdateRelationship, rel.QueryType)
	emp, _ := db.Table("Employee")
	fk, _ := emp.Column("Id_employees")
	assert.Same(t, fk, rel.DependentColumn)
	require.Len(t, rel.Parameters, 2)
	assert.Equal(t, "Id", rel.Identity().Name)
	list := rel.TableValued()
	require.NotNil(t, list)
	assert.Equal(t, "IdTable", list.Name)
	assert.Equal(t, "IntTable", list.TypeName)
	assert.True(t, list.IsReadOnly)
	assert.True(t, list.IsMultiValued)
	assert.Same(t, db.IdentityTableType, list.TableType)
}

func TestBuild_ParameterOrder(t *testing.T) {
	m, _ := companyModel()
	db := mustBuild(t, m, WithAllProcedures())
	for _, p := range db.Procedures {
		for i := 1; i < len(p.Parameters); i++ {
			assert.LessOrEqual(t, p.Parameters[i-1].Direction, p.Parameters[i].Direction, p.Name)
		}
		for i, param := range p.Parameters {
			assert.Equal(t, i, param.Index, p.Name)
		}
	}
}

func TestSortParameters(t *testing.T) {
	params := []*Parameter{
		{Name: "a", Direction: Output},
		{Name: "b", Direction: Input},
		{Name: "c", Direction: ReturnValue},
		{Name: "d", Direction: InputOutput},
		{Name: "e", Direction: Input},
		{Name: "f", Direction: Output},
	}
	SortParameters(params)
	var got []string
	for _, p := range params {
		got = append(got, p.Name)
	}
	assert.Equal(t, []string{"b", "e", "d", "a", "f", "c"}, got)
	assert.Equal(t, 5, params[5].Index)
}

func TestBuild_ResultSet(t *testing.T) {
	m, _ := companyModel()
	db := mustBuild(t, m, WithSelectProcedures())

	sel, ok := db.Procedure("SelectDepartmentById")
	require.True(t, ok)
	require.Len(t, sel.ResultSets, 1)
	cols := sel.ResultSets[0].Columns
	require.Len(t, cols, 4)

	assert.Equal(t, &ResultSetColumn{
		Ordinal: 0, Name: "Id", SourceTable: "Department", SourceColumn: "Id",
		TypeName: "int", ModelTypeName: "integer",
	}, cols[0])
	assert.Equal(t, "Name", cols[1].Name)
	assert.Equal(t, &ResultSetColumn{
		Ordinal: 3, Name: "employees_Name", SourceTable: "employees", SourceColumn: "Name",
		ParentColumn: "Id_employees", IsJoined: true, IsNullable: true,
		TypeName: "nvarchar", ModelTypeName: "string",
	}, cols[3])
	assert.Equal(t, "employees_Id", cols[2].Name)

	selEmp, _ := db.Procedure("SelectEmployeeById")
	assert.Len(t, selEmp.ResultSets[0].Columns, 2)
}

func TestBuild_ProcedureSelectors(t *testing.T) {
	onlyEmployee := func(t *model.Type, _ *relational.Table) bool { return t.Name == "Employee" }
	onlyDepartment := func(t *model.Type, _ *relational.Table) bool { return t.Name == "Department" }

	tests := []struct {
		name string
		opts []Option
		want []string
	}{
		{"None", nil, []string{}},
		{"Selector", []Option{WithInsertProcedures(onlyEmployee)}, []string{"InsertEmployee"}},
		{"Union", []Option{WithInsertProcedures(onlyEmployee), WithInsertProcedures(onlyDepartment)},
			[]string{"InsertDepartment", "UpdateDepartmentemployees", "InsertEmployee"}},
		{"Cleared", []Option{WithDeleteProcedures(onlyEmployee), WithDeleteProcedures()},
			[]string{"DeleteDepartmentById", "DeleteEmployeeById"}},
		{"KindOrder", []Option{WithDeleteProcedures(onlyEmployee), WithSelectProcedures(onlyEmployee)},
			[]string{"DeleteEmployeeById", "SelectEmployeeById"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := companyModel()
			assert.Equal(t, tt.want, procedureNames(mustBuild(t, m, tt.opts...)))
		})
	}
}

func TestBuild_DuplicateProcedure(t *testing.T) {
	var buf bytes.Buffer
	m := model.NewModel("Shop")
	m.AddClass("Order").AddIdentity("Id", model.Integer)
	dup := m.AddType(&model.Type{ID: "legacy:Order", Name: "Order", Kind: model.KindClass})
	dup.AddIdentity("Id", model.Integer)

	db := mustBuild(t, m, WithInsertProcedures(), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	assert.Equal(t, []string{"InsertOrder"}, procedureNames(db))
	assert.Same(t, db.Tables[0], db.Procedures[0].Table)
	assert.Contains(t, buf.String(), "a procedure with the same name already exists")
}

func TestBuild_MissingIdentity(t *testing.T) {
	m, _ := companyModel()
	m.AddClass("Orphan").AddAttribute("owner", m.Types[0], model.ExactlyOne)
	broken := m.AddClass("Broken")
	m.Types[0].AddAttribute("broken", broken, model.ZeroOrOne)

	b, err := NewBuilder()
	require.NoError(t, err)
	_, err = b.Build(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, relational.ErrMissingIdentity))
}

func TestBuild_TableTypeWithoutSQLType(t *testing.T) {
	var buf bytes.Buffer
	m, _ := companyModel()
	m.AddEnumeration("Broken", m.AddClass("NoIdentity"))
	db := mustBuild(t, m,
		WithRelationalOptions(relational.WithTableFilter(func(t *model.Type) bool { return t.Name != "NoIdentity" && t.Name != "Broken" })),
		WithTableTypes(func(t *model.Type) bool { return t.Name == "Broken" }),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	require.Len(t, db.TableTypes, 1)
	assert.Equal(t, "IntTable", db.TableTypes[0].Name)
	assert.Contains(t, buf.String(), "cannot create a simple table type")
}
