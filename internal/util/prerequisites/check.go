// Package prerequisites checks that the command-line tools k3zner shells
// out to are installed.
package prerequisites

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrMissingTool is wrapped by the error returned when a required tool is
// not on PATH.
var ErrMissingTool = errors.New("missing required tools")

// Tool is a binary k3zner may invoke.
type Tool struct {
	Name        string
	Required    bool
	Description string
	InstallURL  string
}

// DefaultTools returns the tools needed to install add-ons.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        "kubectl",
			Required:    true,
			Description: "applies add-on manifests to the cluster",
			InstallURL:  "https://kubernetes.io/docs/tasks/tools/",
		},
	}
}

// CheckResult is the lookup result for one tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults collects the lookups of several tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// Error reports the missing required tools, or nil.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s, install: %s)", tool.Name, tool.Description, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingTool, strings.Join(missing, ", "))
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Check looks every tool up on PATH.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}
	for _, tool := range tools {
		result := CheckResult{Tool: tool}
		if path, err := lookPath(tool.Name); err == nil {
			result.Found = true
			result.Path = path
		} else {
			results.Missing = append(results.Missing, tool)
		}
		results.Results = append(results.Results, result)
	}
	return results
}

// Require fails when any required default tool is missing.
func Require() error {
	return Check(DefaultTools()).Error()
}
