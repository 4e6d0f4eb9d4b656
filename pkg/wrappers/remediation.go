package wrappers

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/vulndash/pkg/engine"
)

// RemediationWrapper implements the Tool interface for generating remediation plans
type RemediationWrapper struct {
	Engine *engine.RemediationEngine
	Store  *engine.Store
}

func (r *RemediationWrapper) Name() string {
	return "GenerateRemediation"
}

func (r *RemediationWrapper) Description() string {
	return "Generates a remediation plan (fix/validate/rollback) for a loaded vulnerability, based on the template for its rule. Without a vulnerability id, lists the available templates."
}

func (r *RemediationWrapper) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"vulnerability_id": map[string]interface{}{
				"type":        "string",
				"description": "The id of the vulnerability to fix, as shown by ShowVulnerabilities. If omitted, lists available templates.",
			},
		},
	}
}

func (r *RemediationWrapper) Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error) {
	if r.Engine == nil {
		return "Error: Remediation engine not initialized.", nil
	}

	id := stringArg(args, "vulnerability_id")
	if id == "" {
		templates := r.Engine.ListTemplates()
		if len(templates) == 0 {
			return "No remediation templates found.", nil
		}
		return fmt.Sprintf("Available Remediation Templates:\n- %s", strings.Join(templates, "\n- ")), nil
	}

	if r.Store == nil {
		return "Error: vulnerability store not initialized.", nil
	}
	v, ok := r.Store.Find(id)
	if !ok {
		return fmt.Sprintf("Error: vulnerability %s not found.", id), nil
	}

	if progress != nil {
		progress(fmt.Sprintf("Generating remediation plan for %s...", id))
	}

	plan, err := r.Engine.GeneratePlan(v)
	if err != nil {
		return fmt.Sprintf("Error generating plan: %v", err), nil
	}
	return plan, nil
}
