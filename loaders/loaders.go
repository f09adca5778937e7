// Package loaders reads the three declarative fixtures a run needs —
// framework, databook, and program book — from YAML files on disk
// (SPEC_FULL.md §2 item 9). It exists for tests, examples, and
// cmd/atomica; it is not a spreadsheet importer and does not reintroduce
// the spreadsheet-I/O scope spec.md's Non-goals exclude.
package loaders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/atomica-sim/atomica/databook"
	"github.com/atomica-sim/atomica/framework"
	"github.com/atomica-sim/atomica/program"
)

// LoadFramework reads and unmarshals a framework YAML document.
func LoadFramework(path string) (*framework.Framework, error) {
	var fw framework.Framework
	if err := readYAML(path, &fw); err != nil {
		return nil, fmt.Errorf("loaders: framework: %w", err)
	}
	return &fw, nil
}

// LoadDatabook reads and unmarshals a databook YAML document.
func LoadDatabook(path string) (*databook.Databook, error) {
	var db databook.Databook
	if err := readYAML(path, &db); err != nil {
		return nil, fmt.Errorf("loaders: databook: %w", err)
	}
	return &db, nil
}

// LoadProgramSet reads and unmarshals a program-book YAML document. An
// empty path is not an error: a run with no programs simply has no
// program book, so callers can pass an empty path and get a nil ProgSet.
// A non-empty path to a file that does not exist is an error.
func LoadProgramSet(path string) (*program.ProgramSet, error) {
	if path == "" {
		return nil, nil
	}
	var ps program.ProgramSet
	if err := readYAML(path, &ps); err != nil {
		return nil, fmt.Errorf("loaders: program set: %w", err)
	}
	return &ps, nil
}

// LoadInstructions reads and unmarshals a run-instructions YAML document
// (SPEC_FULL.md §3: program-set activation year, scenario overrides). An
// empty path returns nil, nil rather than requiring every caller to guard
// the "no instructions" case.
func LoadInstructions(path string) (*program.Instructions, error) {
	if path == "" {
		return nil, nil
	}
	var in program.Instructions
	if err := readYAML(path, &in); err != nil {
		return nil, fmt.Errorf("loaders: instructions: %w", err)
	}
	return &in, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
