// Package gen generates a SQL Server database and its Go client from a
// model.
//
// # Architecture
//
// The generation pipeline follows this flow:
//
//	Model (YAML document or msgpack snapshot)
//	        ↓
//	   model.AddIdentity (classes without identity get one)
//	        ↓
//	   sqlserver.Builder (tables, keys, table types, procedures)
//	        ↓
//	   relational.Validate, relational.ValidateDiff
//	        ↓
//	   T-SQL files, single script, atlas migrations, Go client, snapshot
//
// Each output is a Feature. FeatureObjectFiles and FeatureScript are on by
// default; the others are enabled with WithFeatures, WithPackage or
// WithMigrations. Disabled features remove the output of previous runs.
//
// # Go Client
//
// The client has an entity struct per table, with a pointer field for each
// nullable column, and a method per stored procedure:
//
//	c := client.NewClient(sql.OpenDB(dialect.SQLServer, db))
//	d := &client.Department{Name: "Research"}
//	if err := c.InsertDepartment(ctx, d); err != nil {
//	    return err
//	}
//	d, err := c.SelectDepartmentById(ctx, d.ID)
//
// # Error Handling
//
// The package uses structured error types:
//
//   - GenerationError: a phase of the pipeline failed
//   - ValidationError: the derived database, or its difference with the
//     previous snapshot, has errors
//
// Option errors are relational.ConfigError values.
package gen
