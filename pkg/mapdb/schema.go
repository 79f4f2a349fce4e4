package mapdb

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Persisted document schema versions. Loaders accept anything up to these;
// writers always emit the current version.
const (
	MapSchemaVersion    = 1
	LabelsSchemaVersion = 1
)

// The per-version JSON schemas the loaders validate against. Version 0 is
// the legacy format: no schema_version member and legacy flag spellings.
const mapSchemaV0 = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"required": ["name", "desc", "dynamicDesc", "note", "terrain", "exits"],
		"properties": {
			"name": {"type": "string"},
			"desc": {"type": "string"},
			"dynamicDesc": {"type": "string"},
			"note": {"type": "string"},
			"terrain": {"type": "string"},
			"light": {"type": "string"},
			"align": {"type": "string"},
			"portable": {"type": "string"},
			"ridable": {"type": "string"},
			"avoid": {"type": "boolean"},
			"mobFlags": {"type": "array", "items": {"type": "string"}},
			"loadFlags": {"type": "array", "items": {"type": "string"}},
			"x": {"type": "integer"},
			"y": {"type": "integer"},
			"z": {"type": "integer"},
			"exits": {
				"type": "object",
				"additionalProperties": {
					"type": "object",
					"required": ["to"],
					"properties": {
						"to": {"type": "string"},
						"door": {"type": "string"},
						"exitFlags": {"type": "array", "items": {"type": "string"}},
						"doorFlags": {"type": "array", "items": {"type": "string"}}
					}
				}
			}
		}
	}
}`

const mapSchemaV1 = `{
	"type": "object",
	"required": ["schema_version"],
	"properties": {
		"schema_version": {"type": "integer"}
	},
	"additionalProperties": {
		"type": "object",
		"required": ["name", "desc", "dynamicDesc", "note", "terrain", "exits"],
		"properties": {
			"name": {"type": "string"},
			"desc": {"type": "string"},
			"dynamicDesc": {"type": "string"},
			"note": {"type": "string"},
			"area": {"type": "string"},
			"server_id": {"type": "string"},
			"terrain": {"type": "string"},
			"light": {"type": "string"},
			"align": {"type": "string"},
			"portable": {"type": "string"},
			"ridable": {"type": "string"},
			"sundeath": {"type": "string"},
			"avoid": {"type": "boolean"},
			"mobFlags": {"type": "array", "items": {"type": "string"}},
			"loadFlags": {"type": "array", "items": {"type": "string"}},
			"coordinates": {
				"type": "array",
				"items": {"type": "integer"},
				"minItems": 3,
				"maxItems": 3
			},
			"exits": {
				"type": "object",
				"additionalProperties": {
					"type": "object",
					"required": ["to"],
					"properties": {
						"to": {"type": "string"},
						"door": {"type": "string"},
						"exitFlags": {"type": "array", "items": {"type": "string"}},
						"doorFlags": {"type": "array", "items": {"type": "string"}}
					}
				}
			}
		}
	}
}`

const labelsSchemaV0 = `{
	"type": "object",
	"propertyNames": {"pattern": "^[A-Za-z]"},
	"additionalProperties": {"type": "string", "pattern": "^[0-9]+$"}
}`

const labelsSchemaV1 = `{
	"type": "object",
	"required": ["schema_version", "labels"],
	"properties": {
		"schema_version": {"type": "integer"},
		"labels": {
			"type": "object",
			"propertyNames": {"pattern": "^[A-Za-z]"},
			"additionalProperties": {"type": "string", "pattern": "^[0-9]+$"}
		}
	},
	"additionalProperties": false
}`

var (
	mapValidators    map[int]*jsonschema.Schema
	labelsValidators map[int]*jsonschema.Schema
)

func init() {
	mapValidators = map[int]*jsonschema.Schema{
		0: mustCompile("map_v0.schema.json", mapSchemaV0),
		1: mustCompile("map_v1.schema.json", mapSchemaV1),
	}
	labelsValidators = map[int]*jsonschema.Schema{
		0: mustCompile("labels_v0.schema.json", labelsSchemaV0),
		1: mustCompile("labels_v1.schema.json", labelsSchemaV1),
	}
}

func mustCompile(name, schema string) *jsonschema.Schema {
	compiled, err := jsonschema.CompileString(name, schema)
	if err != nil {
		panic(fmt.Sprintf("mapdb: bad embedded schema %s: %v", name, err))
	}
	return compiled
}
