// Package schema provides structural and semantic validation of a
// candidate spec against the canonical schema.
//
// Structural validation is delegated to xeipuuv/gojsonschema against the
// embedded core.schema.json. Semantic ("strict") checks are expressed in
// plain Go over the decoded manifold.Spec, since they depend on stage
// (missing SHALL once stage has reached design, tasks with no
// requirement_ids once stage has reached tasks) and JSON Schema cannot
// cheaply express that cross-field rule.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"manifold/internal/manifold"
)

//go:embed core.schema.json
var coreSchemaJSON []byte

// Validator validates candidate specs against the canonical schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles the embedded canonical schema once. A compile failure here
// indicates a packaging defect, not caller input, so it is a plain error
// rather than a manifold.Kind.
func New() (*Validator, error) {
	loader := gojsonschema.NewBytesLoader(coreSchemaJSON)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile core schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks spec against the canonical schema. In strict mode it
// additionally rejects: a requirement with an empty `shall` once
// stage >= design, and a task with zero requirement_ids once
// stage >= tasks.
//
// Returns manifold.ValidationErrors (itself an error) describing every
// failing field path, or nil if spec is valid.
func (v *Validator) Validate(spec *manifold.Spec, strict bool) error {
	raw, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal candidate spec: %w", err)
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("run schema validation: %w", err)
	}

	var errs manifold.ValidationErrors
	for _, re := range result.Errors() {
		errs = append(errs, manifold.ValidationError{
			Path:   re.Field(),
			Reason: re.Description(),
		})
	}

	if strict {
		errs = append(errs, strictViolations(spec)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// strictViolations applies the stage-dependent semantic rules.
func strictViolations(spec *manifold.Spec) manifold.ValidationErrors {
	var errs manifold.ValidationErrors

	if spec.Stage.AtLeast(manifold.StageDesign) {
		for i, r := range spec.Requirements {
			if r.Shall == "" {
				errs = append(errs, manifold.ValidationError{
					Path:   fmt.Sprintf("requirements/%d/shall", i),
					Reason: "requirement has no SHALL statement at or beyond the design stage",
				})
			}
		}
	}

	if spec.Stage.AtLeast(manifold.StageTasks) {
		for i, t := range spec.Tasks {
			if len(t.RequirementIDs) == 0 {
				errs = append(errs, manifold.ValidationError{
					Path:   fmt.Sprintf("tasks/%d/requirement_ids", i),
					Reason: "task has no requirement_ids at or beyond the tasks stage",
				})
			}
		}
	}

	return errs
}
