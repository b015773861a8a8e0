package gen

import (
	"os"
	"path/filepath"
)

var (
	// FeatureObjectFiles writes one T-SQL file per database object,
	// laid out like a database project.
	FeatureObjectFiles = Feature{
		Name:        "sql/files",
		Stage:       Stable,
		Default:     true,
		Description: "Writes one T-SQL file per database, table, table type and stored procedure",
		cleanup: func(c *Config) error {
			return os.RemoveAll(filepath.Join(c.Target, ObjectDir))
		},
	}

	// FeatureScript writes the whole database as a single T-SQL script.
	FeatureScript = Feature{
		Name:        "sql/script",
		Stage:       Stable,
		Default:     true,
		Description: "Writes a single T-SQL script creating the database and all of its objects",
		cleanup: func(c *Config) error {
			return remove(c.Target, c.scriptName())
		},
	}

	// FeatureClient generates a Go data-access client calling the stored
	// procedures.
	FeatureClient = Feature{
		Name:        "client",
		Stage:       Beta,
		Default:     false,
		Description: "Generates a Go client with an entity struct per table and a method per stored procedure",
		cleanup: func(c *Config) error {
			return os.RemoveAll(filepath.Join(c.Target, c.Package))
		},
	}

	// FeatureMigrations writes a versioned migration directory for the
	// configured portable dialect.
	FeatureMigrations = Feature{
		Name:        "sql/migrations",
		Stage:       Experimental,
		Default:     false,
		Description: "Writes atlas migration files creating the tables on postgres, mysql or sqlite",
		cleanup: func(c *Config) error {
			return os.RemoveAll(filepath.Join(c.Target, MigrationDir))
		},
	}

	// FeatureSnapshot stores a binary snapshot of the model next to the
	// generated files. The next run compares against it and reports
	// breaking changes.
	FeatureSnapshot = Feature{
		Name:        "schema/snapshot",
		Stage:       Experimental,
		Default:     false,
		Description: "Stores a snapshot of the model and reports breaking changes against the previous one",
		cleanup: func(c *Config) error {
			return remove(c.Target, SnapshotFile)
		},
	}

	// AllFeatures holds a list of all feature-flags.
	AllFeatures = []Feature{
		FeatureObjectFiles,
		FeatureScript,
		FeatureClient,
		FeatureMigrations,
		FeatureSnapshot,
	}
)

// FeatureStage describes the stage of the codegen feature.
type FeatureStage int

const (
	_ FeatureStage = iota

	// Experimental features are in development.
	Experimental

	// Alpha features are complete, but their output may still change.
	Alpha

	// Beta features are documented and no breaking changes are expected.
	Beta

	// Stable features are Beta features that were used for a while.
	Stable
)

// A Feature of the code generator.
type Feature struct {
	// Name of the feature.
	Name string

	// Stage of the feature.
	Stage FeatureStage

	// Default values indicates if this feature is enabled by default.
	Default bool

	// A Description of this feature.
	Description string

	// cleanup removes the output of the feature when it is disabled,
	// e.g. files written by previous runs.
	cleanup func(*Config) error
}

// FeatureByName returns the feature with the given name.
func FeatureByName(name string) (Feature, bool) {
	for _, f := range AllFeatures {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// remove file (if exists) and its dir if it's empty.
func remove(dir, file string) error {
	if err := os.Remove(filepath.Join(dir, file)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	infos, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return os.Remove(dir)
	}
	return nil
}
