package classify

import (
	"strconv"
	"strings"

	"sentimark/internal/services"
)

// promptInstructions is the fixed contract shared with every backend. The
// classifier was tuned against this exact wording; keep it byte-stable.
const promptInstructions = `
You are a precise movie-review sentiment classifier.

Return ONLY one compact JSON object and nothing else. No commentary, no markdown.
Schema (exact):
{
  "label": "Positive | Negative | Neutral",
  "confidence": 0.00,
  "explanation": "Short reason grounded in the text (1-2 short sentences).",
  "evidence_phrases": ["phrase1", "phrase2"]
}

Rules:
- Base judgment only on the provided review text.
- Sarcasm: if sarcasm exists but target is ambiguous -> Neutral (Strict).
- Comparisons ("better than the last one"): use relative tone; if overall favorable -> Positive.
- Third-party quotes without reviewer stance -> Neutral unless reviewer endorses/opposes.
- Mixed opinions ("great acting, boring plot"):
  - STRICT mode: If review contains both positives and negatives, output "Neutral" in label unless one side is overwhelmingly dominant.
  - LENIENT mode: If review contains both positives and negatives, choose the stronger side (Positive or Negative) as the label. Always mention the weaker side in the explanation.

Return valid JSON that follows the schema exactly. Keep "explanation" short (one or two short sentences).
`

const (
	strictModeInstruction = "STRICT mode active: For mixed reviews (both good and bad), " +
		"output must be 'Neutral' unless one side is extremely dominant."
	lenientModeInstruction = "LENIENT mode active: For mixed reviews (both good and bad), " +
		"pick the dominant sentiment (Positive or Negative) as the label. " +
		"Always mention the weaker side in the explanation."
)

// Builder assembles classification prompts. The exemplar block is rendered
// once at construction so repeated builds for the same review and mode stay
// byte-identical.
type Builder struct {
	exemplarBlock string
}

// NewBuilder returns a Builder over the built-in exemplar set followed by
// any extras, in order.
func NewBuilder(extra ...Exemplar) *Builder {
	exemplars := builtinExemplars()
	exemplars = append(exemplars, extra...)
	blocks := make([]string, 0, len(exemplars))
	for _, ex := range exemplars {
		blocks = append(blocks, renderExemplar(ex))
	}
	return &Builder{exemplarBlock: strings.Join(blocks, "\n\n")}
}

// Build renders the full prompt for one review. Only the mode instruction
// line differs between modes; the review text drops in verbatim after
// trimming.
func (b *Builder) Build(reviewText string, mode Mode) (string, error) {
	text := strings.TrimSpace(reviewText)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "classify", "build prompt", "review text is empty", nil)
	}
	var instruction string
	switch mode {
	case ModeStrict:
		instruction = strictModeInstruction
	case ModeLenient:
		instruction = lenientModeInstruction
	default:
		return "", services.Wrap(services.ErrValidation, "classify", "build prompt", "unknown mode "+strconv.Quote(string(mode)), nil)
	}
	var sb strings.Builder
	sb.Grow(len(promptInstructions) + len(b.exemplarBlock) + len(text) + 128)
	sb.WriteString(promptInstructions)
	sb.WriteString("\nMode instruction: ")
	sb.WriteString(instruction)
	sb.WriteString("\n\n")
	sb.WriteString(b.exemplarBlock)
	sb.WriteString("\n\nReview: \"")
	sb.WriteString(text)
	sb.WriteString("\"\nReturn the JSON now.")
	return sb.String(), nil
}

func renderExemplar(ex Exemplar) string {
	var b strings.Builder
	b.WriteString(`Review: "`)
	b.WriteString(ex.Review)
	b.WriteString("\"\nJSON: ")
	b.WriteString(renderExemplarJSON(ex))
	return b.String()
}

// renderExemplarJSON lays an exemplar out as one compact object with a space
// after each colon and comma, keys in schema order.
func renderExemplarJSON(ex Exemplar) string {
	var b strings.Builder
	b.WriteString(`{"label": `)
	b.WriteString(strconv.Quote(ex.Label))
	b.WriteString(`, "confidence": `)
	b.WriteString(strconv.FormatFloat(ex.Confidence, 'g', -1, 64))
	b.WriteString(`, "explanation": `)
	b.WriteString(strconv.Quote(ex.Explanation))
	b.WriteString(`, "evidence_phrases": [`)
	for i, phrase := range ex.EvidencePhrases {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(phrase))
	}
	b.WriteString("]}")
	return b.String()
}
