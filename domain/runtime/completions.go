package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360/ponybridge/domain"
	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/evaluator"
)

// completionsFunction is the name inside the function declaration the
// console sends when it asks for property name completions.
const completionsFunction = "getCompletions"

type callArgument struct {
	Value    any    `json:"value"`
	ObjectID string `json:"objectId"`
}

type callFunctionOnParams struct {
	ObjectID            string         `json:"objectId"`
	ObjectGroup         string         `json:"objectGroup"`
	FunctionDeclaration string         `json:"functionDeclaration"`
	Arguments           []callArgument `json:"arguments"`
}

func (d *Domain) callFunctionOn(_ context.Context, params json.RawMessage) (any, error) {
	var p callFunctionOnParams
	if err := domain.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	if !strings.Contains(p.FunctionDeclaration, completionsFunction) {
		return nil, errors.Reportable("Unsupported function")
	}

	var target any
	primitiveKind := ""
	if p.ObjectID != "" {
		value, _, err := d.objects.Get(p.ObjectID)
		if err != nil {
			return nil, errors.Wrap(err, "Runtime", "callFunctionOn", "object lookup")
		}
		target = value
	} else if len(p.Arguments) > 0 {
		primitiveKind, _ = p.Arguments[0].Value.(string)
	}
	if target == nil && primitiveKind == "" {
		return d.namesResult(d.bindingNames(p.ObjectGroup)), nil
	}

	return d.Completions(target, primitiveKind), nil
}

// Completions returns the member names of target as a by-value object whose
// keys are the names. With a nil target the names offered for primitiveKind
// are returned. A failure while listing is reported as a thrown result.
func (d *Domain) Completions(target any, primitiveKind string) (result EvaluateResult) {
	defer func() {
		if r := recover(); r != nil {
			result = EvaluateResult{
				Result:    d.exposeString(fmt.Sprintf("completions failed: %v", r)),
				WasThrown: true,
			}
		}
	}()

	var names []string
	if target != nil {
		names = evaluator.Completions(target)
	} else {
		names = evaluator.PrimitiveCompletions(primitiveKind)
	}

	return d.namesResult(names)
}

func (d *Domain) namesResult(names []string) EvaluateResult {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	data, _ := json.Marshal(set)
	return EvaluateResult{Result: RemoteObject{Type: "object", Value: data}}
}
