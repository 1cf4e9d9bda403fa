// Package schemas contains the embedded JSON Schemas used to validate
// skill metadata and answer key files.
package schemas

import _ "embed"

// SkillSchemaJSON is the JSON Schema for skill.json metadata files.
//
//go:embed skill.schema.json
var SkillSchemaJSON string

// AnswerKeySchemaJSON is the JSON Schema for tests/<doc>.json answer keys.
//
//go:embed answer_key.schema.json
var AnswerKeySchemaJSON string
