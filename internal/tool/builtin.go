package tool

import (
	"fmt"
	"time"
)

// RegisterBuiltins adds the reference tools to a registry:
// get_current_time, echo, and calculate.
func RegisterBuiltins(registry *Registry) error {
	builtins := []Tool{
		{
			Name:        "get_current_time",
			Description: "Get the current date and time in ISO 8601 format (UTC)",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Permission: PermissionSafe,
			Invoke: func(_ map[string]any) (any, error) {
				return time.Now().UTC().Format(time.RFC3339Nano), nil
			},
		},
		{
			Name:        "echo",
			Description: "Echo a message back unchanged (useful for testing)",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "The message to echo back",
					},
				},
				"required": []any{"message"},
			},
			Permission: PermissionSafe,
			Invoke: func(args map[string]any) (any, error) {
				message, ok := args["message"].(string)
				if !ok {
					return nil, fmt.Errorf("message must be a string")
				}
				return message, nil
			},
		},
		{
			Name:        "calculate",
			Description: "Safely evaluate an arithmetic expression (supports + - * / // % ** and parentheses)",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"expression": map[string]any{
						"type":        "string",
						"description": "Arithmetic expression to evaluate, e.g. \"55 + 10\"",
					},
				},
				"required": []any{"expression"},
			},
			Permission: PermissionSafe,
			Invoke: func(args map[string]any) (any, error) {
				expression, ok := args["expression"].(string)
				if !ok {
					return nil, fmt.Errorf("expression must be a string")
				}
				return Calculate(expression)
			},
		},
	}

	for _, t := range builtins {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}
