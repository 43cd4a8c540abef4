package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Compose builds the full prompt for a workflow stage: instructions, then the
// structured output specification, then an optional JSON-serialized payload
// section. When payload is nil the section is omitted.
func Compose(stage Stage, label string, payload any) (string, error) {
	instructions, err := Instructions(stage)
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	spec, err := Spec(stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(spec)

	if payload != nil {
		payloadJSON, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", fmt.Errorf("serialize %s payload: %w", stage, err)
		}

		sb.WriteString("\n\n")
		sb.WriteString(label)
		sb.WriteString(":\n\n")
		sb.Write(payloadJSON)
	}

	return sb.String(), nil
}

// ComposeText builds the full prompt for a stage with a raw text section
// appended, used when the payload is extracted document text rather than
// structured data.
func ComposeText(stage Stage, label, text string) (string, error) {
	instructions, err := Instructions(stage)
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	spec, err := Spec(stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(spec)
	sb.WriteString("\n\n")
	sb.WriteString(label)
	sb.WriteString(":\n\n")
	sb.WriteString(text)

	return sb.String(), nil
}
