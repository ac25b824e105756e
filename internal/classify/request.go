package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"sentimark/internal/services"
)

// Mode selects how mixed-sentiment reviews resolve.
type Mode string

const (
	// ModeStrict resolves mixed reviews to Neutral.
	ModeStrict Mode = "strict"
	// ModeLenient resolves mixed reviews to the dominant polarity.
	ModeLenient Mode = "lenient"
)

// ParseMode maps a config or flag string to a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return ModeStrict, nil
	case "lenient":
		return ModeLenient, nil
	default:
		return "", services.Wrap(services.ErrValidation, "classify", "parse mode", "unknown mode "+strconv.Quote(value), nil)
	}
}

// Valid reports whether the mode is one of the two supported policies.
func (m Mode) Valid() bool {
	return m == ModeStrict || m == ModeLenient
}

// Request identifies one classification. Two requests are cache-equivalent
// only when review text, mode, and temperature all match.
type Request struct {
	ReviewText  string
	Mode        Mode
	Temperature float64
}

// NewRequest trims the review text and validates the inputs.
func NewRequest(reviewText string, mode Mode, temperature float64) (Request, error) {
	text := strings.TrimSpace(reviewText)
	if text == "" {
		return Request{}, services.Wrap(services.ErrValidation, "classify", "new request", "review text is empty", nil)
	}
	if !mode.Valid() {
		return Request{}, services.Wrap(services.ErrValidation, "classify", "new request", "unknown mode "+strconv.Quote(string(mode)), nil)
	}
	return Request{ReviewText: text, Mode: mode, Temperature: temperature}, nil
}

// CacheKey returns the identity string used by the result cache. The review
// text is hashed so keys stay short and filesystem safe regardless of review
// length.
func (r Request) CacheKey() string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(r.ReviewText)))
	var b strings.Builder
	b.WriteString(string(r.Mode))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(r.Temperature, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(hex.EncodeToString(sum[:]))
	return b.String()
}
