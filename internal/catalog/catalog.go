// Package catalog holds the task-definition catalog: the ordered task plans
// that the engine resolves a workflow type into. A built-in default workflow
// is always present; additional workflows can be loaded from a YAML file.
package catalog

import (
	"fmt"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultWorkflow is the workflow every unknown task type resolves to.
// Unknown types deliberately do not error; the fallback is load-bearing
// behavior callers depend on.
const DefaultWorkflow = "rfx_analysis"

// TaskDef describes one step of a workflow: what it is, how long its
// simulated unit of work takes, and how many tokens it is expected to burn.
type TaskDef struct {
	TaskID      string `yaml:"task_id" json:"task_id"`
	TaskType    string `yaml:"task_type" json:"task_type"`
	Description string `yaml:"description" json:"description"`
	DurationMS  int    `yaml:"duration_ms" json:"duration_ms"`
	Tokens      int    `yaml:"tokens" json:"tokens"`
}

// Catalog maps workflow types to their ordered task definitions.
// It is populated at startup and read-only afterwards.
type Catalog struct {
	workflows map[string][]TaskDef
}

// New creates a catalog seeded with the built-in workflows.
func New() *Catalog {
	return &Catalog{
		workflows: map[string][]TaskDef{
			DefaultWorkflow: rfxAnalysisTasks(),
		},
	}
}

// rfxAnalysisTasks is the built-in RFx analysis plan.
func rfxAnalysisTasks() []TaskDef {
	return []TaskDef{
		{
			TaskID:      "parse_document",
			TaskType:    "document.parse",
			Description: "Parse and structure the document",
			DurationMS:  2000,
			Tokens:      0,
		},
		{
			TaskID:      "extract_requirements",
			TaskType:    "analysis.extract",
			Description: "Extract requirements from document",
			DurationMS:  5000,
			Tokens:      4200,
		},
		{
			TaskID:      "extract_eval_criteria",
			TaskType:    "analysis.extract",
			Description: "Extract evaluation criteria",
			DurationMS:  4000,
			Tokens:      2100,
		},
		{
			TaskID:      "compliance_mapping",
			TaskType:    "analysis.mapping",
			Description: "Map requirements to compliance standards",
			DurationMS:  6000,
			Tokens:      3500,
		},
		{
			TaskID:      "generate_matrix",
			TaskType:    "document.generate",
			Description: "Generate compliance matrix",
			DurationMS:  3000,
			Tokens:      1500,
		},
	}
}

// Resolve returns the ordered task definitions for the given workflow type.
// Unknown types resolve to the default workflow, never an error. The returned
// slice is a copy; callers may not mutate catalog state through it.
func (c *Catalog) Resolve(taskType string) []TaskDef {
	defs, ok := c.workflows[taskType]
	if !ok {
		defs = c.workflows[DefaultWorkflow]
	}
	return append([]TaskDef(nil), defs...)
}

// Workflows returns the registered workflow type names, sorted for stable
// API responses.
func (c *Catalog) Workflows() []string {
	names := make([]string, 0, len(c.workflows))
	for name := range c.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add registers a workflow under the given name, replacing any existing
// definition. The task list must be non-empty with unique, fully-specified
// task ids and positive durations.
func (c *Catalog) Add(name string, defs []TaskDef) error {
	if name == "" {
		return fmt.Errorf("workflow name is empty")
	}
	if len(defs) == 0 {
		return fmt.Errorf("workflow %q has no tasks", name)
	}
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		if d.TaskID == "" {
			return fmt.Errorf("workflow %q task %d: task_id is empty", name, i)
		}
		if seen[d.TaskID] {
			return fmt.Errorf("workflow %q: duplicate task_id %q", name, d.TaskID)
		}
		seen[d.TaskID] = true
		if d.TaskType == "" {
			return fmt.Errorf("workflow %q task %q: task_type is empty", name, d.TaskID)
		}
		if d.DurationMS <= 0 {
			return fmt.Errorf("workflow %q task %q: duration_ms must be positive", name, d.TaskID)
		}
		if d.Tokens < 0 {
			return fmt.Errorf("workflow %q task %q: tokens must not be negative", name, d.TaskID)
		}
	}
	c.workflows[name] = append([]TaskDef(nil), defs...)
	return nil
}

// workflowsFile is the YAML document shape for external workflow definitions.
type workflowsFile struct {
	Workflows map[string][]TaskDef `yaml:"workflows"`
}

// LoadFile merges workflow definitions from a YAML file over the built-ins.
// File-defined workflows may override built-in ones, including the default.
func (c *Catalog) LoadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read workflows file: %w", err)
	}

	var file workflowsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse workflows file: %w", err)
	}
	if len(file.Workflows) == 0 {
		return fmt.Errorf("workflows file %s defines no workflows", path)
	}

	for name, defs := range file.Workflows {
		if err := c.Add(name, defs); err != nil {
			return fmt.Errorf("workflows file %s: %w", path, err)
		}
	}
	return nil
}
