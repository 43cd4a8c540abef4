package prompts_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ledgerline/ledgerline/internal/prompts"
)

func TestParseStage(t *testing.T) {
	for _, stage := range prompts.Stages() {
		got, err := prompts.ParseStage(string(stage))
		if err != nil {
			t.Errorf("ParseStage(%s) error = %v", stage, err)
		}
		if got != stage {
			t.Errorf("ParseStage(%s) = %s", stage, got)
		}
	}

	if _, err := prompts.ParseStage("summarization"); !errors.Is(err, prompts.ErrInvalidStage) {
		t.Errorf("ParseStage() error = %v, want %v", err, prompts.ErrInvalidStage)
	}
}

func TestStageUnmarshalJSON(t *testing.T) {
	var stage prompts.Stage
	if err := json.Unmarshal([]byte(`"reconciliation"`), &stage); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if stage != prompts.StageReconcile {
		t.Errorf("stage = %s, want %s", stage, prompts.StageReconcile)
	}

	if err := json.Unmarshal([]byte(`"bogus"`), &stage); !errors.Is(err, prompts.ErrInvalidStage) {
		t.Errorf("Unmarshal() error = %v, want %v", err, prompts.ErrInvalidStage)
	}
}

func TestInstructionsAndSpecsCoverAllStages(t *testing.T) {
	for _, stage := range prompts.Stages() {
		if _, err := prompts.Instructions(stage); err != nil {
			t.Errorf("Instructions(%s) error = %v", stage, err)
		}
		if _, err := prompts.Spec(stage); err != nil {
			t.Errorf("Spec(%s) error = %v", stage, err)
		}
	}

	if _, err := prompts.Instructions(prompts.Stage("bogus")); !errors.Is(err, prompts.ErrInvalidStage) {
		t.Errorf("Instructions() error = %v, want %v", err, prompts.ErrInvalidStage)
	}
}

func TestCompose(t *testing.T) {
	payload := map[string]any{"verdict": "Yes", "delta": 0}

	prompt, err := prompts.Compose(prompts.StageReconcile, "Match results", payload)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	instructions, _ := prompts.Instructions(prompts.StageReconcile)
	spec, _ := prompts.Spec(prompts.StageReconcile)

	if !strings.HasPrefix(prompt, instructions) {
		t.Error("prompt does not open with the stage instructions")
	}
	if !strings.Contains(prompt, spec) {
		t.Error("prompt is missing the output specification")
	}
	if !strings.Contains(prompt, "Match results:") {
		t.Error("prompt is missing the payload label")
	}
	if !strings.Contains(prompt, `"verdict": "Yes"`) {
		t.Error("prompt is missing the serialized payload")
	}
}

func TestComposeWithoutPayload(t *testing.T) {
	prompt, err := prompts.Compose(prompts.StageInvoice, "", nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	spec, _ := prompts.Spec(prompts.StageInvoice)
	if !strings.HasSuffix(prompt, spec) {
		t.Error("nil payload should leave the spec as the final section")
	}
}

func TestComposeText(t *testing.T) {
	prompt, err := prompts.ComposeText(prompts.StageInvoice, "Invoice document", "Acme invoice, total $350.00")
	if err != nil {
		t.Fatalf("ComposeText() error = %v", err)
	}
	if !strings.Contains(prompt, "Invoice document:\n\nAcme invoice, total $350.00") {
		t.Error("prompt is missing the labeled text section")
	}
}
