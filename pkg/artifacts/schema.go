// Package artifacts validates pipeline artifact payloads against per-stage
// JSON Schemas before they are attached to a workflow. The transition
// engine itself never interprets these blobs.
package artifacts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Stage names an artifact slot on the workflow.
type Stage string

const (
	StageICPDocument        Stage = "icp_document"
	StageCompetitorAnalysis Stage = "competitor_analysis"
	StageSeedKeywords       Stage = "seed_keywords"
	StageTopicClusters      Stage = "topic_clusters"
	StageValidationResults  Stage = "validation_results"
)

// ErrUnknownStage indicates a stage outside the artifact vocabulary.
var ErrUnknownStage = errors.New("unknown artifact stage")

var stageSchemas = map[Stage]string{
	StageICPDocument: `{
		"type": "object",
		"required": ["persona", "pain_points"],
		"properties": {
			"persona": {"type": "string", "minLength": 1},
			"pain_points": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"industry": {"type": "string"}
		}
	}`,
	StageCompetitorAnalysis: `{
		"type": "object",
		"required": ["competitors"],
		"properties": {
			"competitors": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["domain"],
					"properties": {
						"domain": {"type": "string", "minLength": 1},
						"overlap_score": {"type": "number"}
					}
				}
			}
		}
	}`,
	StageSeedKeywords: `{
		"type": "object",
		"required": ["seeds"],
		"properties": {
			"seeds": {"type": "array", "items": {"type": "string"}, "minItems": 1}
		}
	}`,
	StageTopicClusters: `{
		"type": "object",
		"required": ["clusters"],
		"properties": {
			"clusters": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["label", "keywords"],
					"properties": {
						"label": {"type": "string", "minLength": 1},
						"keywords": {"type": "array", "items": {"type": "string"}}
					}
				}
			}
		}
	}`,
	StageValidationResults: `{
		"type": "object",
		"required": ["passed"],
		"properties": {
			"passed": {"type": "boolean"},
			"issues": {"type": "array", "items": {"type": "string"}}
		}
	}`,
}

var compiled = mustCompile()

func mustCompile() map[Stage]*gojsonschema.Schema {
	out := make(map[Stage]*gojsonschema.Schema, len(stageSchemas))

	for stage, raw := range stageSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("invalid artifact schema for stage %s: %v", stage, err))
		}

		out[stage] = schema
	}

	return out
}

// Stages returns every known artifact stage.
func Stages() []Stage {
	return []Stage{
		StageICPDocument,
		StageCompetitorAnalysis,
		StageSeedKeywords,
		StageTopicClusters,
		StageValidationResults,
	}
}

// Validate checks an artifact payload against its stage schema.
func Validate(stage Stage, payload map[string]any) error {
	schema, ok := compiled[stage]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return fmt.Errorf("failed to validate %s artifact: %w", stage, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}

		return fmt.Errorf("invalid %s artifact: %s", stage, strings.Join(details, "; "))
	}

	return nil
}
