package validation

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/microsoft/skillcheck/schemas"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// skillSchema is the compiled JSON Schema for skill.json files.
var skillSchema *jsonschema.Schema

// answerKeySchema is the compiled JSON Schema for answer key files.
var answerKeySchema *jsonschema.Schema

func init() {
	skillSchema = mustCompileSchema(schemas.SkillSchemaJSON, "skill.schema.json")
	answerKeySchema = mustCompileSchema(schemas.AnswerKeySchemaJSON, "answer_key.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateSkillMetaBytes validates raw skill.json bytes against the skill
// schema. Returns one human-readable message per violation, empty when valid.
func ValidateSkillMetaBytes(data []byte) []string {
	return validateJSONBytes(skillSchema, data)
}

// ValidateAnswerKeyBytes validates raw answer key bytes against the answer
// key schema.
func ValidateAnswerKeyBytes(data []byte) []string {
	return validateJSONBytes(answerKeySchema, data)
}

func validateJSONBytes(schema *jsonschema.Schema, data []byte) []string {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return []string{fmt.Sprintf("JSON parse error: %v", err)}
	}
	return validateAgainstSchema(schema, instance)
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
