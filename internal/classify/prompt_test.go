package classify

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"sentimark/internal/services"
)

func TestBuildIsDeterministic(t *testing.T) {
	review := "A quiet, devastating film. I left the theater speechless."
	first, err := NewBuilder().Build(review, ModeStrict)
	if err != nil {
		t.Fatalf("build prompt: %v", err)
	}
	second, err := NewBuilder().Build(review, ModeStrict)
	if err != nil {
		t.Fatalf("build prompt again: %v", err)
	}
	if first != second {
		t.Fatal("expected identical prompts for identical inputs")
	}
}

func TestBuildModesDifferOnlyInModeLine(t *testing.T) {
	builder := NewBuilder()
	strict, err := builder.Build("Solid thriller with a weak ending.", ModeStrict)
	if err != nil {
		t.Fatalf("build strict prompt: %v", err)
	}
	lenient, err := builder.Build("Solid thriller with a weak ending.", ModeLenient)
	if err != nil {
		t.Fatalf("build lenient prompt: %v", err)
	}
	strictLines := strings.Split(strict, "\n")
	lenientLines := strings.Split(lenient, "\n")
	if len(strictLines) != len(lenientLines) {
		t.Fatalf("expected same line count, got %d and %d", len(strictLines), len(lenientLines))
	}
	var diff []int
	for i := range strictLines {
		if strictLines[i] != lenientLines[i] {
			diff = append(diff, i)
		}
	}
	if len(diff) != 1 {
		t.Fatalf("expected exactly one differing line, got %d", len(diff))
	}
	if !strings.HasPrefix(strictLines[diff[0]], "Mode instruction: ") {
		t.Fatalf("differing line is not the mode instruction: %q", strictLines[diff[0]])
	}
}

func TestBuildLayout(t *testing.T) {
	prompt, err := NewBuilder().Build("  An absolute delight from start to finish.  ", ModeLenient)
	if err != nil {
		t.Fatalf("build prompt: %v", err)
	}
	if !strings.Contains(prompt, "You are a precise movie-review sentiment classifier.") {
		t.Fatal("missing instruction header")
	}
	if !strings.Contains(prompt, "\nMode instruction: LENIENT mode active:") {
		t.Fatal("missing lenient mode instruction")
	}
	for _, ex := range builtinExemplars() {
		if !strings.Contains(prompt, `Review: "`+ex.Review+`"`) {
			t.Fatalf("missing exemplar review %q", ex.Review)
		}
	}
	if !strings.Contains(prompt, `Review: "An absolute delight from start to finish."`) {
		t.Fatal("review text was not trimmed into the template")
	}
	if !strings.HasSuffix(prompt, "\nReturn the JSON now.") {
		t.Fatalf("unexpected prompt tail: %q", prompt[len(prompt)-40:])
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	builder := NewBuilder()
	if _, err := builder.Build("   ", ModeStrict); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank review, got %v", err)
	}
	if _, err := builder.Build("fine", Mode("balanced")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown mode, got %v", err)
	}
}

func TestNewBuilderAppendsExtrasAfterBuiltins(t *testing.T) {
	extra := Exemplar{
		Review:          "The final act redeems an otherwise slow movie.",
		Label:           LabelPositive,
		Confidence:      0.64,
		Explanation:     "Ending praised despite pacing issues.",
		EvidencePhrases: []string{"final act redeems"},
	}
	prompt, err := NewBuilder(extra).Build("fine", ModeStrict)
	if err != nil {
		t.Fatalf("build prompt: %v", err)
	}
	builtins := builtinExemplars()
	lastBuiltin := strings.Index(prompt, builtins[len(builtins)-1].Explanation)
	extraAt := strings.Index(prompt, extra.Review)
	if lastBuiltin < 0 || extraAt < 0 {
		t.Fatal("expected both builtin and extra exemplars in the prompt")
	}
	if extraAt < lastBuiltin {
		t.Fatal("extra exemplar rendered before the builtin set")
	}
}

func TestRenderExemplarJSON(t *testing.T) {
	for _, ex := range builtinExemplars() {
		rendered := renderExemplarJSON(ex)
		if !strings.HasPrefix(rendered, `{"label": `) {
			t.Fatalf("unexpected layout: %q", rendered)
		}
		var decoded Result
		if err := json.Unmarshal([]byte(rendered), &decoded); err != nil {
			t.Fatalf("exemplar JSON does not parse: %v", err)
		}
		if decoded.Label != ex.Label || decoded.Confidence != ex.Confidence {
			t.Fatalf("exemplar JSON round-trip mismatch: %+v vs %+v", decoded, ex)
		}
		if len(decoded.EvidencePhrases) != len(ex.EvidencePhrases) {
			t.Fatalf("evidence length mismatch for %q", ex.Review)
		}
	}
}

func TestRenderExemplarJSONEmptyEvidence(t *testing.T) {
	ex := Exemplar{Review: "r", Label: LabelNeutral, Confidence: 0.7, Explanation: "e"}
	rendered := renderExemplarJSON(ex)
	if !strings.HasSuffix(rendered, `"evidence_phrases": []}`) {
		t.Fatalf("expected empty evidence array, got %q", rendered)
	}
}
