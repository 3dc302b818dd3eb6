package tool

import "github.com/zcox/messagedb-agent/internal/llm"

// Declarations converts every registered tool into the declaration format
// the LLM adapters send to their providers.
func Declarations(registry *Registry) []llm.ToolDeclaration {
	tools := registry.List()
	if len(tools) == 0 {
		return nil
	}

	decls := make([]llm.ToolDeclaration, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		decls = append(decls, llm.ToolDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return decls
}
