package gen

import (
	"strings"

	"github.com/dave/jennifer/jen"
)

// goKind is the Go representation of a SQL type.
type goKind uint8

const (
	goAny goKind = iota
	goBool
	goUint8
	goInt16
	goInt32
	goInt64
	goFloat32
	goFloat64
	goString
	goBytes
	goTime
	goUUID
)

// sqlKinds maps SQL Server and ANSI type names to Go types.
var sqlKinds = map[string]goKind{
	"bit":              goBool,
	"boolean":          goBool,
	"bool":             goBool,
	"tinyint":          goUint8,
	"smallint":         goInt16,
	"int":              goInt32,
	"integer":          goInt32,
	"bigint":           goInt64,
	"real":             goFloat32,
	"float":            goFloat64,
	"double":           goFloat64,
	"decimal":          goFloat64,
	"numeric":          goFloat64,
	"money":            goFloat64,
	"smallmoney":       goFloat64,
	"char":             goString,
	"nchar":            goString,
	"varchar":          goString,
	"nvarchar":         goString,
	"text":             goString,
	"ntext":            goString,
	"xml":              goString,
	"sysname":          goString,
	"binary":           goBytes,
	"varbinary":        goBytes,
	"image":            goBytes,
	"blob":             goBytes,
	"rowversion":       goBytes,
	"timestamp":        goBytes,
	"date":             goTime,
	"time":             goTime,
	"datetime":         goTime,
	"datetime2":        goTime,
	"smalldatetime":    goTime,
	"datetimeoffset":   goTime,
	"uniqueidentifier": goUUID,
	"uuid":             goUUID,
}

func kindOf(sqlType string) goKind {
	return sqlKinds[strings.ToLower(sqlType)]
}

// code returns the Go type.
func (k goKind) code() *jen.Statement {
	switch k {
	case goBool:
		return jen.Bool()
	case goUint8:
		return jen.Uint8()
	case goInt16:
		return jen.Int16()
	case goInt32:
		return jen.Int32()
	case goInt64:
		return jen.Int64()
	case goFloat32:
		return jen.Float32()
	case goFloat64:
		return jen.Float64()
	case goString:
		return jen.String()
	case goBytes:
		return jen.Index().Byte()
	case goTime:
		return jen.Qual("time", "Time")
	case goUUID:
		return jen.Qual("github.com/google/uuid", "UUID")
	}
	return jen.Any()
}

// nillable reports whether the zero value of the Go type represents NULL.
func (k goKind) nillable() bool {
	return k == goAny || k == goBytes
}

// goType returns the Go type of a SQL type. Nullable values are pointers
// unless the Go type is nillable itself.
func goType(sqlType string, nullable bool) *jen.Statement {
	k := kindOf(sqlType)
	if nullable && !k.nillable() {
		return jen.Op("*").Add(k.code())
	}
	return k.code()
}
