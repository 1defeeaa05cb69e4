package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// param describes one string argument of a tool.
type param struct {
	Name     string
	Desc     string
	Required bool
}

// paramsOneOf renders params for the model's tool declaration.
func paramsOneOf(params []param) *schema.ParamsOneOf {
	m := make(map[string]*schema.ParameterInfo, len(params))
	for _, p := range params {
		m[p.Name] = &schema.ParameterInfo{
			Type:     schema.String,
			Desc:     p.Desc,
			Required: p.Required,
		}
	}
	return schema.NewParamsOneOfByParams(m)
}

// argsSchema validates raw tool-call arguments against the JSON Schema derived
// from the same params the model was shown.
type argsSchema struct {
	schema *jsonschema.Schema
}

func newArgsSchema(toolName string, params []param) (*argsSchema, error) {
	props := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		prop := map[string]any{"type": "string", "description": p.Desc}
		if p.Required {
			prop["pattern"] = `\S`
			required = append(required, p.Name)
		}
		props[p.Name] = prop
	}
	sort.Strings(required)

	raw, err := json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", toolName, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s schema: %w", toolName, err)
	}

	url := toolName + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add %s schema resource: %w", toolName, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", toolName, err)
	}
	return &argsSchema{schema: sch}, nil
}

// decode validates arguments and unmarshals them into dst.
func (a *argsSchema) decode(arguments string, dst any) error {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	var payload any
	if err := json.Unmarshal([]byte(arguments), &payload); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := a.schema.Validate(payload); err != nil {
		return fmt.Errorf("%s", flatten(err.Error()))
	}
	if err := json.Unmarshal([]byte(arguments), dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
