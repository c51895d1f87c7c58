package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// planSchema is the contract for model output. Definitions are closed, so
// unknown fields at any level are rejected.
const planSchema = `
#Plan: {
	operations: [...#Operation]
}

#Operation: {
	operation:    "create" | "update" | "delete" | "query"
	data?:        #Data | null
	taskId?:      string | null
	targetTitle?: string | null
	searchQuery?: string | null
	explanation?: string | null
}

#Data: {
	title?:       string | null
	description?: string | null
	priority?:    string | null
	category?:    string | null
	dueDate?:     string | null
	completed?:   bool | null
}

#Suggestions: {
	suggestions: [...string]
}
`

// toolName is the function the model is asked to call.
const toolName = "apply_task_operations"

// toolParameters mirrors planSchema for backends that take JSON Schema.
var toolParameters = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"operations": {
			Type:        jsonschema.Array,
			Description: "Operations to apply, in order.",
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"operation": {
						Type: jsonschema.String,
						Enum: []string{string(KindCreate), string(KindUpdate), string(KindDelete), string(KindQuery)},
					},
					"data": {
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"title":       {Type: jsonschema.String},
							"description": {Type: jsonschema.String},
							"priority":    {Type: jsonschema.String, Enum: []string{"LOW", "MEDIUM", "HIGH"}},
							"category":    {Type: jsonschema.String},
							"dueDate":     {Type: jsonschema.String, Description: "RFC 3339 timestamp or YYYY-MM-DD."},
							"completed":   {Type: jsonschema.Boolean},
						},
						AdditionalProperties: false,
					},
					"taskId":      {Type: jsonschema.String, Description: "ID of an existing task, copied from the task list."},
					"targetTitle": {Type: jsonschema.String, Description: "Title of the existing task, when no ID fits."},
					"searchQuery": {Type: jsonschema.String},
					"explanation": {Type: jsonschema.String, Description: "One short sentence saying what this operation does."},
				},
				Required:             []string{"operation"},
				AdditionalProperties: false,
			},
		},
	},
	Required:             []string{"operations"},
	AdditionalProperties: false,
}

// Schema validates raw model output against planSchema.
type Schema struct {
	mu          sync.Mutex // cue.Context is not safe for concurrent use
	ctx         *cue.Context
	plan        cue.Value
	suggestions cue.Value
}

// NewSchema compiles the plan schema.
func NewSchema() (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(planSchema)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	plan := v.LookupPath(cue.ParsePath("#Plan"))
	if err := plan.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Plan: %w", err)
	}
	suggestions := v.LookupPath(cue.ParsePath("#Suggestions"))
	if err := suggestions.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Suggestions: %w", err)
	}
	return &Schema{ctx: ctx, plan: plan, suggestions: suggestions}, nil
}

// MustSchema is NewSchema for package-level use; the schema is a constant.
func MustSchema() *Schema {
	s, err := NewSchema()
	if err != nil {
		panic(err)
	}
	return s
}

// Decode accepts raw only if it is exactly one JSON object that satisfies
// the schema. Nothing is repaired.
func (s *Schema) Decode(raw []byte) (*Plan, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty output")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("output is not a single JSON document")
	}

	if err := s.check(s.plan, "operations", raw); err != nil {
		return nil, err
	}

	var plan Plan
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if plan.Operations == nil {
		plan.Operations = []Candidate{}
	}
	return &plan, nil
}

// DecodeSuggestions accepts raw only if it is exactly one JSON object of the
// form {"suggestions": [...string]}.
func (s *Schema) DecodeSuggestions(raw []byte) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty output")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("output is not a single JSON document")
	}
	if err := s.check(s.suggestions, "suggestions", raw); err != nil {
		return nil, err
	}

	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return out.Suggestions, nil
}

// check unifies raw with def and requires field to be present, since an
// absent list would otherwise satisfy the definition.
func (s *Schema) check(def cue.Value, field string, raw []byte) error {
	expr, err := cuejson.Extract("output.json", raw)
	if err != nil {
		return fmt.Errorf("read output: %w", err)
	}

	s.mu.Lock()
	v := s.ctx.BuildExpr(expr)
	present := v.LookupPath(cue.ParsePath(field)).Exists()
	err = def.Unify(v).Validate(cue.Concrete(true))
	s.mu.Unlock()
	if err == nil && !present {
		err = fmt.Errorf("missing %s", field)
	}
	if err != nil {
		return fmt.Errorf("output does not match schema: %w", err)
	}
	return nil
}
