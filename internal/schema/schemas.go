package schema

// builtinSchemas holds one JSON Schema (draft 2020-12 subset, the
// dialect santhosh-tekuri/jsonschema/v5 defaults to) per recognized
// component kind.
var builtinSchemas = map[string]string{
	"identity": `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"description": {"type": "string"}
		}
	}`,
	"mobility": `{
		"type": "object",
		"required": ["position"],
		"properties": {
			"position": {"$ref": "#/$defs/vec3"},
			"velocity": {"$ref": "#/$defs/vec3"},
			"maxSpeed": {"type": "number", "exclusiveMinimum": 0},
			"acceleration": {"type": "number", "exclusiveMinimum": 0}
		},
		"$defs": {
			"vec3": {
				"type": "object",
				"required": ["x", "y", "z"],
				"properties": {
					"x": {"type": "number"},
					"y": {"type": "number"},
					"z": {"type": "number"}
				}
			}
		}
	}`,
	"shape": `{
		"type": "object",
		"required": ["min", "max", "geometry"],
		"properties": {
			"min": {"$ref": "#/$defs/vec3"},
			"max": {"$ref": "#/$defs/vec3"},
			"geometry": {"enum": ["box", "sphere", "cylinder", "mesh"]}
		},
		"$defs": {
			"vec3": {
				"type": "object",
				"required": ["x", "y", "z"],
				"properties": {
					"x": {"type": "number"},
					"y": {"type": "number"},
					"z": {"type": "number"}
				}
			}
		}
	}`,
	"solidity": `{
		"type": "object",
		"required": ["solid"],
		"properties": {
			"solid": {"type": "boolean"},
			"collisionGroups": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	"visual": `{
		"type": "object",
		"properties": {
			"color": {"type": "string"},
			"texture": {"type": "string"},
			"material": {"type": "string"},
			"visible": {"type": "boolean"}
		}
	}`,
	"entrance": `{
		"type": "object",
		"required": ["targetLayer", "targetPosition", "enabled"],
		"properties": {
			"targetLayer": {"type": "string", "minLength": 1},
			"targetPosition": {
				"type": "object",
				"required": ["x", "y", "z"],
				"properties": {
					"x": {"type": "number"},
					"y": {"type": "number"},
					"z": {"type": "number"}
				}
			},
			"enabled": {"type": "boolean"}
		}
	}`,
	"portable": `{
		"type": "object",
		"required": ["canPickup", "weight"],
		"properties": {
			"canPickup": {"type": "boolean"},
			"weight": {"type": "number", "minimum": 0}
		}
	}`,
	"inventory": `{
		"type": "object",
		"properties": {
			"items": {"type": "array", "items": {"type": "string"}},
			"capacity": {"type": "number", "exclusiveMinimum": 0}
		}
	}`,
	"durability": `{
		"type": "object",
		"required": ["health", "maxHealth"],
		"properties": {
			"health": {"type": "number", "minimum": 0},
			"maxHealth": {"type": "number", "exclusiveMinimum": 0},
			"armor": {"type": "number", "minimum": 0}
		}
	}`,
	"contract_limit": `{
		"type": "object",
		"additionalProperties": {"type": "number", "exclusiveMinimum": 0}
	}`,
	"movement_rules": `{
		"type": "object",
		"required": ["stepDistance"],
		"properties": {
			"stepDistance": {"type": "number", "exclusiveMinimum": 0},
			"allowDiagonal": {"type": "boolean"},
			"diagonalNormalized": {"type": "boolean"}
		}
	}`,
	"world_conditions": `{
		"type": "object",
		"properties": {
			"gravity": {"type": "number"},
			"weather": {"enum": ["clear", "rain", "storm", "snow", "fog"]},
			"timeOfDay": {"enum": ["dawn", "day", "dusk", "night"]},
			"terrainSeed": {"type": "integer"},
			"properties": {"type": "object"}
		}
	}`,
	"world_commands": `{
		"type": "object",
		"required": ["commands"],
		"properties": {
			"commands": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	"command_access": `{
		"type": "object",
		"required": ["commands"],
		"properties": {
			"commands": {"type": "array", "items": {"type": "string"}}
		}
	}`,
}

// builtinDefaults mirrors store.DefaultCardinality; kept local so the
// schema package has no dependency on store (store depends on schema,
// not the reverse).
var builtinDefaults = map[string]int{
	"identity":       1,
	"mobility":       1,
	"shape":          1,
	"solidity":       1,
	"visual":         1,
	"entrance":       1,
	"portable":       3,
	"inventory":      1,
	"durability":     1,
	"contract_limit": 1,
	"movement_rules": 1,
	"world_conditions": 1,
	"world_commands": 1,
	"command_access": 1,
}

var builtinCrossChecks = map[string]crossFieldCheck{
	"durability": func(f map[string]any) *ValidationError {
		health, _ := f["health"].(float64)
		maxHealth, _ := f["maxHealth"].(float64)
		if health > maxHealth {
			return &ValidationError{Field: "health", Msg: "health must be <= maxHealth"}
		}
		return nil
	},
	"shape": func(f map[string]any) *ValidationError {
		min, _ := f["min"].(map[string]any)
		max, _ := f["max"].(map[string]any)
		for _, axis := range []string{"x", "y", "z"} {
			lo, _ := min[axis].(float64)
			hi, _ := max[axis].(float64)
			if lo > hi {
				return &ValidationError{Field: "max." + axis, Msg: "max must be >= min component-wise"}
			}
		}
		return nil
	},
}
