package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"docpilot/internal/gates"
)

const defaultSchemaGlob = "artifacts/*.json"

type schemaGate struct {
	schemaPath string
	glob       string
}

func checkSchemaOptions(opts map[string]any, _ string) []string {
	problems := unknownKeys(opts, "schema", "glob")
	path, err := stringOption(opts, "schema", "")
	switch {
	case err != nil:
		problems = append(problems, err.Error())
	case path == "":
		problems = append(problems, "schema is required")
	default:
		if _, statErr := os.Stat(path); statErr != nil {
			problems = append(problems, fmt.Sprintf("schema file not readable: %s", path))
		}
	}
	glob, err := stringOption(opts, "glob", defaultSchemaGlob)
	if err != nil {
		problems = append(problems, err.Error())
	} else if _, err := filepath.Match(glob, ""); err != nil {
		problems = append(problems, fmt.Sprintf("glob is invalid: %v", err))
	}
	return problems
}

func resolveSchemaOptions(opts map[string]any, baseDir string) map[string]any {
	path, err := stringOption(opts, "schema", "")
	if err != nil || path == "" || filepath.IsAbs(path) || baseDir == "" {
		return opts
	}
	opts["schema"] = filepath.Join(baseDir, path)
	return opts
}

func buildSchema(opts map[string]any) (gates.Gate, error) {
	path, err := stringOption(opts, "schema", "")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("schema is required")
	}
	glob, err := stringOption(opts, "glob", defaultSchemaGlob)
	if err != nil {
		return nil, err
	}
	return &schemaGate{schemaPath: path, glob: glob}, nil
}

func (g *schemaGate) Name() string {
	return GateSchema
}

func (g *schemaGate) Check(ctx context.Context, runDir string, _ gates.Profile) (gates.Result, error) {
	schema, err := compileSchema(g.schemaPath)
	if err != nil {
		return gates.Result{}, err
	}
	matches, err := filepath.Glob(filepath.Join(runDir, filepath.FromSlash(g.glob)))
	if err != nil {
		return gates.Result{}, err
	}
	var issues []gates.Issue
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return gates.Result{}, err
		}
		rel, err := filepath.Rel(runDir, path)
		if err != nil {
			return gates.Result{}, err
		}
		rel = filepath.ToSlash(rel)
		data, err := os.ReadFile(path)
		if err != nil {
			return gates.Result{}, err
		}
		var doc any
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&doc); err != nil {
			issues = append(issues, schemaIssue(rel, "invalid_json", fmt.Sprintf("artifact is not valid JSON: %v", err)))
			continue
		}
		if err := schema.Validate(doc); err != nil {
			var validationErr *jsonschema.ValidationError
			message := err.Error()
			if errors.As(err, &validationErr) {
				message = describeValidation(validationErr)
			}
			issues = append(issues, schemaIssue(rel, "schema_violation", message))
		}
	}
	return gates.Result{Passed: len(issues) == 0, Issues: issues}, nil
}

func compileSchema(path string) (*jsonschema.Schema, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	schemaURL := "file://" + filepath.ToSlash(abs)
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", path, err)
	}
	return schema, nil
}

// describeValidation reports the deepest cause, which names the failing field.
func describeValidation(err *jsonschema.ValidationError) string {
	leaf := err
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	location := leaf.InstanceLocation
	if location == "" {
		location = "/"
	}
	return fmt.Sprintf("%s: %s", location, leaf.Message)
}

func schemaIssue(rel, code, message string) gates.Issue {
	return gates.Issue{
		Gate:      GateSchema,
		Severity:  gates.SeverityBlocker,
		Message:   message,
		Location:  &gates.Location{Path: rel},
		Status:    gates.StatusOpen,
		ErrorCode: code,
	}
}
