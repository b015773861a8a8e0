package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/relational"
	"github.com/syssam/relgen/sqlserver/tsql"
)

const companyYAML = `name: Company
types:
  - name: Department
    attributes:
      - {name: Name, type: string}
      - {name: Budget, type: Money, multiplicity: "0..1"}
  - name: Employee
    attributes:
      - {name: Name, type: string, multiplicity: "0..1"}
  - name: Money
    kind: datatype
associations:
  - name: Staff
    ends:
      - {name: employees, type: Employee, multiplicity: "*", owner: Department}
      - {name: department, type: Department}
`

func writeModel(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "company.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readFile(t *testing.T, elem ...string) string {
	t.Helper()
	buf, err := os.ReadFile(filepath.Join(elem...))
	require.NoError(t, err)
	return string(buf)
}

func TestGenerateCmd(t *testing.T) {
	dir := t.TempDir()
	modelPath := writeModel(t, dir, companyYAML)
	out := filepath.Join(dir, "out")

	stdout, err := execute(t, "generate", "-m", modelPath, "-o", out,
		"--client-package", "hr", "--atlas", "sqlite", "--migration-version", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "files for database Company in "+out)

	assert.Contains(t, readFile(t, out, "database.sql"), "CREATE TABLE [Department]")
	assert.FileExists(t, filepath.Join(out, gen.ObjectDir, tsql.TablesDir, "Employee.sql"))
	assert.FileExists(t, filepath.Join(out, gen.MigrationDir, "sqlite3", "1_create_Company.sql"))
	assert.Contains(t, readFile(t, out, "hr", "department.go"), "func (c *Client) InsertDepartment(")
}

func TestGenerateCmd_Config(t *testing.T) {
	dir := t.TempDir()
	modelPath := writeModel(t, dir, companyYAML)
	out := filepath.Join(dir, "out")
	config := filepath.Join(dir, "relgen.yaml")
	require.NoError(t, os.WriteFile(config, []byte(strings.Join([]string{
		"model: " + modelPath,
		"output: " + out,
		"plural: true",
		"disable: [sql/files]",
		"script:",
		"  name: company.sql",
		"  keep_if_exists: true",
	}, "\n")), 0o644))

	_, err := execute(t, "generate", "--config", config)
	require.NoError(t, err)
	script := readFile(t, out, "company.sql")
	assert.Contains(t, script, "CREATE TABLE [Departments]")
	assert.NotContains(t, script, "DROP TABLE")
	_, err = os.Stat(filepath.Join(out, gen.ObjectDir))
	assert.True(t, os.IsNotExist(err))

	t.Run("flags override the file", func(t *testing.T) {
		_, err := execute(t, "generate", "--config", config, "--database", "Staging", "--plural=false")
		require.NoError(t, err)
		script := readFile(t, out, "company.sql")
		assert.Contains(t, script, "CREATE DATABASE [Staging]")
		assert.Contains(t, script, "CREATE TABLE [Department]")
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := execute(t, "generate", "--config", filepath.Join(dir, "missing.yaml"), "-m", modelPath)
		assert.ErrorContains(t, err, "failed to read config")
	})
}

func TestGenerateCmd_Errors(t *testing.T) {
	t.Run("missing model", func(t *testing.T) {
		_, err := execute(t, "generate", "-o", t.TempDir())
		assert.ErrorContains(t, err, "missing model")
	})

	t.Run("bad dialect", func(t *testing.T) {
		dir := t.TempDir()
		_, err := execute(t, "generate", "-m", writeModel(t, dir, companyYAML), "-o", dir, "--atlas", "oracle")
		assert.True(t, relational.IsConfigError(err))
	})

	t.Run("unknown feature", func(t *testing.T) {
		dir := t.TempDir()
		_, err := execute(t, "generate", "-m", writeModel(t, dir, companyYAML), "-o", dir, "--feature", "docs")
		assert.True(t, relational.IsConfigError(err))
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: company.yaml
output: out
identity: ""
workers: 2
client: {package: store}
atlas: {dialect: postgres, format: goose, version: "3"}
features: [schema/snapshot]
`), 0o644))

	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, "company.yaml", cfg.Model)
	require.NotNil(t, cfg.Identity)
	assert.Empty(t, *cfg.Identity)

	c, err := gen.NewConfig(cfg.Options()...)
	require.NoError(t, err)
	assert.Equal(t, "out", c.Target)
	assert.Empty(t, c.Identity)
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, "store", c.Package)
	assert.Equal(t, "postgres", c.Dialect)
	assert.Equal(t, "goose", c.MigrationFormat)
	assert.Equal(t, "3", c.MigrationVersion)
	for _, f := range []gen.Feature{gen.FeatureClient, gen.FeatureMigrations, gen.FeatureSnapshot} {
		ok, err := c.FeatureEnabled(f.Name)
		require.NoError(t, err)
		assert.True(t, ok, f.Name)
	}

	empty, err := LoadConfig(filepath.Join(dir, "missing.yaml"), true)
	require.NoError(t, err)
	assert.Empty(t, empty.Options())

	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o644))
	_, err = LoadConfig(path, false)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestInspectCmd(t *testing.T) {
	modelPath := writeModel(t, t.TempDir(), companyYAML)

	out, err := execute(t, "inspect", "-m", modelPath, "-p")
	require.NoError(t, err)
	assert.Contains(t, out, "database Company")
	assert.Less(t, strings.Index(out, "table Department"), strings.Index(out, "table Employee"))
	assert.Regexp(t, `Id\s+int\s+identity, not null`, out)
	assert.Regexp(t, `Id_employees\s+int\s+references Department`, out)
	assert.Contains(t, out, "<- Employee.Id_employees")
	assert.Contains(t, out, "type IntTable")
	assert.Contains(t, out, "procedure InsertDepartment")
	assert.Contains(t, out, "@Id OUTPUT")

	_, err = execute(t, "inspect")
	assert.Error(t, err)
}

func TestSnapshotCmd(t *testing.T) {
	dir := t.TempDir()
	modelPath := writeModel(t, dir, companyYAML)
	snapshot := filepath.Join(dir, "company.msgpack")

	out, err := execute(t, "snapshot", "-m", modelPath, "-o", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote snapshot of Company")

	m, err := load.File(snapshot)
	require.NoError(t, err)
	assert.Equal(t, "Company", m.Name)
	_, ok := m.TypeByName("Employee")
	assert.True(t, ok)
}

func TestDiffCmd(t *testing.T) {
	dir := t.TempDir()
	prev := filepath.Join(dir, "prev.msgpack")
	_, err := execute(t, "snapshot", "-m", writeModel(t, dir, companyYAML), "-o", prev)
	require.NoError(t, err)

	t.Run("unchanged", func(t *testing.T) {
		out, err := execute(t, "diff", "--from", prev, "--to", filepath.Join(dir, "company.yaml"))
		require.NoError(t, err)
		assert.Contains(t, out, "No issues found")
	})

	current := writeModel(t, t.TempDir(), strings.Replace(companyYAML,
		`      - {name: Budget, type: Money, multiplicity: "0..1"}`+"\n", "", 1))

	t.Run("dropped column", func(t *testing.T) {
		out, err := execute(t, "diff", "--from", prev, "--to", current)
		require.Error(t, err)
		assert.ErrorIs(t, err, errBreakingChanges)
		assert.Contains(t, out, "Department.Budget: column will be dropped")
	})

	t.Run("allowed", func(t *testing.T) {
		out, err := execute(t, "diff", "--from", prev, "--to", current, "--allow-drop-column")
		require.NoError(t, err)
		assert.Contains(t, out, "Warnings:")
	})
}

func TestWatchModel(t *testing.T) {
	path := writeModel(t, t.TempDir(), companyYAML)
	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchModel(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil)), func() error {
			select {
			case called <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(companyYAML), 0o644)
		select {
		case <-called:
			return true
		default:
			return false
		}
	}, 5*time.Second, 250*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
