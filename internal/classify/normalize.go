package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"sentimark/internal/services"
)

// ParseError reports a model reply that could not be reduced to a JSON
// object. Raw keeps the unmodified reply for operator inspection.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model reply is not parseable JSON: %s (reply snippet: %s)", e.Reason, summarizeReplySnippet(e.Raw))
}

func (e *ParseError) Unwrap() error { return services.ErrParse }

// ValidationError reports parsed JSON whose fields violate the result schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s in model reply: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return services.ErrValidation }

// Normalize reduces a raw model reply to the canonical Result. Extraction
// tries the reply as-is first and only then falls back to progressively
// more aggressive repairs, so well-formed replies pass through untouched.
func Normalize(raw string) (Result, error) {
	fields, err := extractObject(raw)
	if err != nil {
		return Result{}, err
	}
	return coerceResult(fields)
}

func extractObject(raw string) (map[string]json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ParseError{Reason: "empty reply", Raw: raw}
	}
	for _, candidate := range candidatePayloads(trimmed) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &fields); err == nil {
			return fields, nil
		}
	}
	return nil, &ParseError{Reason: "no JSON object found", Raw: raw}
}

// candidatePayloads lists reductions of the reply in repair order: the text
// itself, the text with code fences stripped, the first balanced object
// span, and each of those with trailing commas removed.
func candidatePayloads(trimmed string) []string {
	base := []string{trimmed, stripCodeFence(trimmed)}
	if span, ok := balancedObjectSpan(base[1]); ok {
		base = append(base, span)
	}
	seen := make(map[string]struct{}, len(base)*2)
	out := make([]string, 0, len(base)*2)
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	for _, candidate := range base {
		add(candidate)
		add(stripTrailingCommas(candidate))
	}
	return out
}

func stripCodeFence(payload string) string {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if len(trimmed) >= 4 && strings.EqualFold(trimmed[:4], "json") {
		trimmed = strings.TrimSpace(trimmed[4:])
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// balancedObjectSpan returns the first brace-balanced object in the payload.
// Braces inside JSON strings do not count toward the balance.
func balancedObjectSpan(payload string) (string, bool) {
	start := strings.IndexByte(payload, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(payload); i++ {
		c := payload[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return payload[start : i+1], true
			}
		}
	}
	return "", false
}

// stripTrailingCommas drops commas that directly precede a closing brace or
// bracket, a common model slip that encoding/json rejects.
func stripTrailingCommas(payload string) string {
	var b strings.Builder
	b.Grow(len(payload))
	inString := false
	escaped := false
	for i := 0; i < len(payload); i++ {
		c := payload[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(payload) && isJSONSpace(payload[j]) {
				j++
			}
			if j < len(payload) && (payload[j] == '}' || payload[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func coerceResult(fields map[string]json.RawMessage) (Result, error) {
	rawLabel, ok := firstField(fields, "label", "sentiment", "prediction")
	if !ok {
		return Result{}, &ValidationError{Field: "label", Reason: "missing"}
	}
	label, err := NormalizeLabel(looseString(rawLabel))
	if err != nil {
		return Result{}, &ValidationError{Field: "label", Reason: err.Error()}
	}

	confidence := 0.0
	if rawConf, ok := firstField(fields, "confidence", "score"); ok {
		confidence = parseConfidence(rawConf)
	}
	confidence = math.Round(clampConfidence(confidence)*100) / 100

	explanation := ""
	if rawExp, ok := firstField(fields, "explanation", "rationale", "reason", "justification"); ok {
		explanation = looseString(rawExp)
	}
	explanation = shortenExplanation(explanation)

	var evidence []string
	if rawEv, ok := firstField(fields, "evidence_phrases", "evidence", "highlights"); ok {
		evidence = coerceEvidence(rawEv)
	}
	if evidence == nil {
		evidence = []string{}
	}
	if len(evidence) > 3 {
		evidence = evidence[:3]
	}

	return Result{
		Label:           label,
		Confidence:      confidence,
		Explanation:     explanation,
		EvidencePhrases: evidence,
	}, nil
}

// firstField returns the first of keys that is present with a non-null,
// non-empty value.
func firstField(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		token := strings.TrimSpace(string(value))
		if token == "" || token == "null" || token == `""` {
			continue
		}
		return value, true
	}
	return nil, false
}

// looseString decodes a JSON value as a string, falling back to the raw
// token for bare numbers and booleans.
func looseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

func parseConfidence(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return parsed
		}
	}
	return 0
}

// clampConfidence pins out-of-range values to the nearest bound instead of
// discarding them. NaN collapses to zero.
func clampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func coerceEvidence(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					out = append(out, trimmed)
				}
				continue
			}
			var n float64
			if err := json.Unmarshal(item, &n); err == nil {
				out = append(out, strconv.FormatFloat(n, 'g', -1, 64))
			}
		}
		return out
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return splitEvidenceString(s)
	}
	return nil
}

var evidenceSeparator = regexp.MustCompile(`[|;]\s*`)

func splitEvidenceString(s string) []string {
	parts := evidenceSeparator.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// shortenExplanation keeps at most two sentences and caps the result at 240
// runes, cutting at a word boundary with a trailing ellipsis.
func shortenExplanation(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	sentences := splitSentences(s)
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	short := strings.TrimSpace(strings.Join(sentences, " "))
	runes := []rune(short)
	if len(runes) > 240 {
		cut := string(runes[:240])
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		short = cut + "..."
	}
	return short
}

// splitSentences breaks text after each run of whitespace that follows a
// sentence terminator. A terminator with no whitespace after it does not end
// a sentence, so decimals and abbreviations survive.
func splitSentences(s string) []string {
	runes := []rune(s)
	var parts []string
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		parts = append(parts, string(runes[start:i+1]))
		start = j
		i = j - 1
	}
	if start < len(runes) {
		parts = append(parts, string(runes[start:]))
	}
	return parts
}

func summarizeReplySnippet(raw string) string {
	cleaned := strings.ReplaceAll(raw, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	const maxLen = 160
	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	return string(runes[:maxLen]) + "..."
}
