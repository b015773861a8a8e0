package relational

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diffDB(tables ...*Table) *Database {
	return &Database{Name: "Company", Tables: tables}
}

func diffTableOf(name string, cols ...*Column) *Table {
	return &Table{Name: name, OwnColumns: cols}
}

func TestValidateDiff(t *testing.T) {
	id := func() *Column { return &Column{Name: "Id", TypeName: "int", IsIdentity: true, IsRequired: true} }
	current := diffDB(
		diffTableOf("Department", id(),
			&Column{Name: "Name", TypeName: "nvarchar", Length: "100"},
			&Column{Name: "Code", TypeName: "char", Length: "4", IsRequired: true},
			&Column{Name: "Budget", TypeName: "decimal"},
		),
		diffTableOf("Project", id()),
	)
	desired := diffDB(
		diffTableOf("Department", id(),
			&Column{Name: "Name", TypeName: "nvarchar", Length: "50", IsRequired: true},
			&Column{Name: "Code", TypeName: "nchar", Length: "4", IsRequired: true},
			&Column{Name: "Head", TypeName: "int", IsRequired: true},
		),
		diffTableOf("Employee", id()),
	)

	r := ValidateDiff(current, desired)
	require.True(t, r.HasErrors())
	var errs, warns []string
	for _, e := range r.Errors {
		errs = append(errs, e.Error())
	}
	for _, w := range r.Warnings {
		warns = append(warns, w.Error())
	}
	assert.Equal(t, []string{
		"Department.Budget: column will be dropped",
		"Department.Name: column changing from NULL to NOT NULL may fail if it has NULL values",
		"Project: table will be dropped",
	}, errs)
	assert.Equal(t, []string{
		"Department.Name: column length reducing from 100 to 50 may truncate data",
		"Department.Code: column type changing from char to nchar",
		"Department.Head: new NOT NULL column may fail if the table has rows",
	}, warns)

	r = ValidateDiff(current, desired, AllowDropTable(), AllowDropColumn(), AllowNullToNotNull())
	assert.False(t, r.HasErrors())
	assert.Len(t, r.Warnings, 6)
}

func TestValidateDiff_Identity(t *testing.T) {
	current := diffDB(diffTableOf("Order", &Column{Name: "Code", TypeName: "nvarchar", Length: "max", IsIdentity: true, IsRequired: true}))
	desired := diffDB(diffTableOf("Order", &Column{Name: "Code", TypeName: "nvarchar", Length: "20", IsRequired: true}))
	r := ValidateDiff(current, desired)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "Order.Code: identity changes from true to false", r.Errors[0].Error())
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0].Message, "reducing from max to 20")

	r = ValidateDiff(desired, desired)
	assert.Equal(t, "No issues found", r.String())
}

func TestShorter(t *testing.T) {
	assert.True(t, shorter("10", "20"))
	assert.True(t, shorter("10", "max"))
	assert.True(t, shorter("10", ""))
	assert.False(t, shorter("max", "10"))
	assert.False(t, shorter("20", "20"))
	assert.False(t, shorter("", ""))
}
