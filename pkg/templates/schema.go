package templates

// documentSchema describes a flow template document. It checks the shape only;
// tree consistency is checked when the template is replayed.
var documentSchema = map[string]any{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []any{"display_name", "trigger"},
	"properties": map[string]any{
		"schema_version": map[string]any{"type": "string"},
		"display_name":   map[string]any{"type": "string", "minLength": 1},
		"trigger": map[string]any{
			"type":     "object",
			"required": []any{"type"},
			"properties": map[string]any{
				"display_name": map[string]any{"type": "string"},
				"type": map[string]any{
					"type": "string",
					"enum": []any{"EMPTY", "WEBHOOK", "SCHEDULE", "PIECE"},
				},
				"valid": map[string]any{"type": "boolean"},
				"steps": stringList(),
				"schedule": map[string]any{
					"type":     "object",
					"required": []any{"cron_expression"},
					"properties": map[string]any{
						"cron_expression": map[string]any{"type": "string"},
						"timezone":        map[string]any{"type": "string"},
					},
				},
				"webhook": map[string]any{"type": "object"},
				"piece":   pieceSchema(),
			},
		},
		"steps": map[string]any{
			"type":  "array",
			"items": stepSchema(),
		},
		"notes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id"},
				"properties": map[string]any{
					"id":      map[string]any{"type": "string", "minLength": 1},
					"content": map[string]any{"type": "string"},
					"color":   map[string]any{"type": "string"},
				},
			},
		},
	},
}

func stringList() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

func pieceSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"piece_name", "piece_version"},
		"properties": map[string]any{
			"piece_name":    map[string]any{"type": "string"},
			"piece_version": map[string]any{"type": "string"},
			"action_name":   map[string]any{"type": "string"},
			"trigger_name":  map[string]any{"type": "string"},
			"input":         map[string]any{"type": "object"},
		},
	}
}

func stepSchema() map[string]any {
	condition := map[string]any{
		"type":     "object",
		"required": []any{"operator"},
		"properties": map[string]any{
			"operator":       map[string]any{"type": "string"},
			"first_value":    map[string]any{"type": "string"},
			"second_value":   map[string]any{"type": "string"},
			"case_sensitive": map[string]any{"type": "boolean"},
		},
	}

	branch := map[string]any{
		"type":     "object",
		"required": []any{"name", "type"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"type": map[string]any{"type": "string", "enum": []any{"CONDITION", "FALLBACK"}},
			"conditions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "array", "items": condition},
			},
			"steps": stringList(),
		},
	}

	return map[string]any{
		"type":     "object",
		"required": []any{"name", "display_name", "type"},
		"properties": map[string]any{
			"name":         map[string]any{"type": "string", "pattern": "^[A-Za-z_$][A-Za-z0-9_$]*$"},
			"display_name": map[string]any{"type": "string"},
			"type": map[string]any{
				"type": "string",
				"enum": []any{"CODE", "PIECE", "LOOP_ON_ITEMS", "ROUTER"},
			},
			"valid": map[string]any{"type": "boolean"},
			"skip":  map[string]any{"type": "boolean"},
			"code": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source_code": map[string]any{"type": "object"},
					"input":       map[string]any{"type": "object"},
				},
			},
			"piece": pieceSchema(),
			"loop": map[string]any{
				"type":       "object",
				"properties": map[string]any{"items": map[string]any{"type": "string"}},
			},
			"router": map[string]any{
				"type":     "object",
				"required": []any{"branches"},
				"properties": map[string]any{
					"execution_type": map[string]any{
						"type": "string",
						"enum": []any{"EXECUTE_FIRST_MATCH", "EXECUTE_ALL_MATCH"},
					},
					"branches": map[string]any{"type": "array", "minItems": 1, "items": branch},
				},
			},
			"children": stringList(),
		},
	}
}
