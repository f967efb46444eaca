package ai

import "github.com/santhosh-tekuri/jsonschema/v5"

// Response schemas for each structured operation. Any payload that does not
// validate is rejected with ErrMalformedResponse before field access.
var (
	suggestionSchema = jsonschema.MustCompileString("suggestions.json", `{
		"type": "object",
		"required": ["suggestions"],
		"properties": {
			"suggestions": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["rubric_id", "suggested_level_index"],
					"properties": {
						"rubric_id": {"type": "integer", "minimum": 1},
						"suggested_level_index": {"type": "integer", "minimum": 0},
						"justification": {"type": "string"},
						"improvement_suggestion": {"type": "string"}
					}
				}
			}
		}
	}`)

	rubricSchema = jsonschema.MustCompileString("rubrics.json", `{
		"type": "object",
		"required": ["rubrics"],
		"properties": {
			"rubrics": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["criteria_name", "levels"],
					"properties": {
						"criteria_name": {"type": "string", "minLength": 1},
						"levels": {
							"type": "array",
							"minItems": 1,
							"items": {
								"type": "object",
								"required": ["name", "percentage"],
								"properties": {
									"name": {"type": "string", "minLength": 1},
									"description": {"type": "string"},
									"percentage": {"type": "number", "minimum": 0, "maximum": 100}
								}
							}
						}
					}
				}
			}
		}
	}`)

	extractionSchema = jsonschema.MustCompileString("questions.json", `{
		"type": "object",
		"required": ["questions"],
		"properties": {
			"questions": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["question_number", "question_text"],
					"properties": {
						"question_number": {"type": "integer", "minimum": 1},
						"question_text": {"type": "string", "minLength": 1},
						"points_percentage": {"type": "number", "minimum": 0, "maximum": 100}
					}
				}
			}
		}
	}`)

	mappingSchema = jsonschema.MustCompileString("answers.json", `{
		"type": "object",
		"required": ["answers"],
		"properties": {
			"answers": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["question_index", "answer_text", "confidence"],
					"properties": {
						"question_index": {"type": "integer", "minimum": 0},
						"answer_text": {"type": "string"},
						"confidence": {"type": "string", "enum": ["high", "medium", "low"]}
					}
				}
			}
		}
	}`)
)
