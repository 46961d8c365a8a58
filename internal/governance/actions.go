package governance

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Action complexity levels. Level 1 is read-only; level 4 is destructive or
// externally visible in a way that cannot be undone.
const (
	ComplexityReadOnly    = 1
	ComplexityAnalytical  = 2
	ComplexityMutating    = 3
	ComplexityDestructive = 4
)

// defaultActionTable maps known action keywords to complexity levels.
// Classification of a free-form action_type string matches on substrings,
// highest level wins, so "delete_contact" classifies as destructive.
var defaultActionTable = map[string]int{
	"search":    ComplexityReadOnly,
	"read":      ComplexityReadOnly,
	"list":      ComplexityReadOnly,
	"get":       ComplexityReadOnly,
	"summarize": ComplexityReadOnly,
	"present_chart": ComplexityReadOnly,

	"analyze":  ComplexityAnalytical,
	"suggest":  ComplexityAnalytical,
	"draft":    ComplexityAnalytical,
	"generate": ComplexityAnalytical,
	"stream":   ComplexityAnalytical,
	"submit":   ComplexityAnalytical,

	"update":       ComplexityMutating,
	"submit_form":  ComplexityMutating,
	"send_email":   ComplexityMutating,
	"create":       ComplexityMutating,
	"post_message": ComplexityMutating,

	"delete":  ComplexityDestructive,
	"execute": ComplexityDestructive,
	"deploy":  ComplexityDestructive,
	"payment": ComplexityDestructive,
}

// actionTableSchema validates a JSON action-table config: a flat object of
// action keyword -> complexity level in [1,4].
const actionTableSchema = `{
	"type": "object",
	"minProperties": 1,
	"additionalProperties": {
		"type": "integer",
		"minimum": 1,
		"maximum": 4
	}
}`

// Classifier maps free-form action_type strings to complexity levels.
// In Strict mode an action_type matching no table entry is an error;
// otherwise it defaults to complexity 1, the lowest risk bucket, so unknown
// actions are never silently escalated.
type Classifier struct {
	table  map[string]int
	Strict bool
}

// NewClassifier returns a classifier over the built-in action table.
func NewClassifier() *Classifier {
	return &Classifier{table: defaultActionTable}
}

// LoadClassifier reads an action table from a JSON config file, validates it
// against the table schema, and returns a classifier over it. Invalid config
// fails at startup rather than misclassifying in production.
func LoadClassifier(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action table %q: %w", path, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("actions-schema.json", strings.NewReader(actionTableSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("actions-schema.json")
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse action table %q: %w", path, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid action table %q: %w", path, err)
	}
	table := make(map[string]int)
	for k, v := range doc.(map[string]any) {
		table[strings.ToLower(k)] = int(v.(float64))
	}
	return &Classifier{table: table}, nil
}

// Complexity classifies an action_type. Matching is case-insensitive and
// substring-based; when several keywords match, the highest level applies.
func (c *Classifier) Complexity(actionType string) (int, error) {
	at := strings.ToLower(strings.TrimSpace(actionType))
	level := 0
	for keyword, lvl := range c.table {
		if strings.Contains(at, keyword) && lvl > level {
			level = lvl
		}
	}
	if level == 0 {
		if c.Strict {
			return 0, fmt.Errorf("unrecognized action type %q", actionType)
		}
		return ComplexityReadOnly, nil
	}
	return level, nil
}

// ActionsUpTo returns every table keyword whose complexity is at most max,
// sorted for deterministic output.
func (c *Classifier) ActionsUpTo(max int) []string {
	var out []string
	for keyword, lvl := range c.table {
		if lvl <= max {
			out = append(out, keyword)
		}
	}
	sort.Strings(out)
	return out
}
