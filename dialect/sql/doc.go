// Package sql implements dialect.Driver on top of database/sql and runs
// the stored procedures of a generated database.
//
// A Call describes one EXEC statement with named, output and table-valued
// parameters:
//
//	var id int
//	call := sql.NewCall("InsertDepartment").
//	    Arg("Name", "Research").
//	    Out("Id", &id)
//	if _, err := sql.ExecCall(ctx, drv, call); err != nil {
//	    return err
//	}
//
// Session variables set with WithVar are applied before every statement;
// on SQL Server they are stored with sp_set_session_context.
//
// StatsDriver and DebugDriver wrap a Driver to count statements per
// procedure and to log them.
package sql
