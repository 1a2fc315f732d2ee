package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

// placeholderPattern matches the exact placeholder grammar
// {{<step_id>.<field>}}. Braces that do not match are left verbatim so
// literal {{ in free text survives rendering.
var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_-]+)\.([A-Za-z0-9_]+)\}\}`)

// RenderTemplate substitutes prior step results into a template in a single
// pass. Every occurrence of a repeated placeholder substitutes identically.
//
// Referencing a step that is absent or not yet terminal fails with
// ErrUnresolvedReference: dependency ordering guarantees terminal results for
// everything a step may reference, so this indicates a scheduling bug rather
// than a bad template. Referencing an unknown field, or an output with no
// textual form, fails with ErrMalformedPlaceholder and is charged to the step.
func RenderTemplate(tmpl string, results map[string]*StepResult) (string, error) {
	var renderErr error

	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		if renderErr != nil {
			return match
		}

		groups := placeholderPattern.FindStringSubmatch(match)
		stepID, field := groups[1], groups[2]

		res, ok := results[stepID]
		if !ok || !res.Status.Terminal() {
			renderErr = errors.Wrapf(errors.ErrUnresolvedReference, "step %q in %s", stepID, match)
			return match
		}

		value, err := resolveField(res, field, match)
		if err != nil {
			renderErr = err
			return match
		}
		return value
	})

	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}

func resolveField(res *StepResult, field string, placeholder string) (string, error) {
	switch field {
	case "output":
		return stringifyOutput(res.Output, placeholder)
	case "status":
		return string(res.Status), nil
	case "error":
		return res.Error, nil
	default:
		return "", errors.Wrapf(errors.ErrMalformedPlaceholder, "unknown field %q in %s", field, placeholder)
	}
}

// stringifyOutput converts a capability output to text. Plain strings pass
// through; everything else takes its canonical JSON form.
func stringifyOutput(output interface{}, placeholder string) (string, error) {
	switch v := output.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}

	data, err := json.Marshal(output)
	if err != nil {
		return "", errors.Wrapf(errors.ErrMalformedPlaceholder, "output in %s has no textual form: %v", placeholder, err)
	}
	return string(data), nil
}
