package classify

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sentimark/internal/services"
)

// Exemplar pairs a review with the reply the model should produce for it.
// The built-in set covers clear positives, clear negatives, mixed reviews
// under both resolution policies, and a purely factual review.
type Exemplar struct {
	Review          string   `yaml:"review"`
	Label           string   `yaml:"label"`
	Confidence      float64  `yaml:"confidence"`
	Explanation     string   `yaml:"explanation"`
	EvidencePhrases []string `yaml:"evidence_phrases"`
}

func builtinExemplars() []Exemplar {
	return []Exemplar{
		{
			Review:          "Loved the soundtrack and the performances, even though the story drags in the middle.",
			Label:           LabelPositive,
			Confidence:      0.86,
			Explanation:     "Praise for soundtrack and performances outweighs the pacing complaint.",
			EvidencePhrases: []string{"Loved the soundtrack", "performances", "story drags"},
		},
		{
			Review:          "Terrible pacing and wooden acting. Do not recommend.",
			Label:           LabelNegative,
			Confidence:      0.94,
			Explanation:     "Strong negative language about pacing and acting.",
			EvidencePhrases: []string{"Terrible pacing", "wooden acting", "Do not recommend"},
		},
		{
			Review:          "Great acting, but the story was boring.",
			Label:           LabelNeutral,
			Confidence:      0.70,
			Explanation:     "The review praises the acting but criticizes the story, making the sentiment balanced.",
			EvidencePhrases: []string{"Great acting", "story was boring"},
		},
		{
			Review:          "Great acting, but the story was boring.",
			Label:           LabelPositive,
			Confidence:      0.75,
			Explanation:     "The review is mostly positive about the acting, but notes the story as a drawback.",
			EvidencePhrases: []string{"Great acting", "story was boring"},
		},
		{
			Review:          "The cinematography was stunning, though the pacing was a bit slow.",
			Label:           LabelPositive,
			Confidence:      0.75,
			Explanation:     "The review is mostly positive about cinematography, but mentions slow pacing as a drawback.",
			EvidencePhrases: []string{"cinematography was stunning", "pacing was a bit slow"},
		},
		{
			Review:          "The plot was messy and confusing, though the soundtrack was nice.",
			Label:           LabelNegative,
			Confidence:      0.78,
			Explanation:     "The review is mostly negative about the plot, but notes the soundtrack positively.",
			EvidencePhrases: []string{"plot was messy and confusing", "soundtrack was nice"},
		},
		{
			Review:          "The movie releases next week and stars two actors.",
			Label:           LabelNeutral,
			Confidence:      0.70,
			Explanation:     "Factual description without a clear opinion.",
			EvidencePhrases: []string{},
		},
	}
}

// LoadExemplarsFile reads extra exemplars from a YAML file. Entries keep
// file order and are appended after the built-in set by NewBuilder.
func LoadExemplarsFile(path string) ([]Exemplar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "classify", "load exemplars", "read "+path, err)
	}
	var exemplars []Exemplar
	if err := yaml.Unmarshal(data, &exemplars); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "classify", "load exemplars", "parse "+path, err)
	}
	for i := range exemplars {
		if err := normalizeExemplar(&exemplars[i]); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "classify", "load exemplars", fmt.Sprintf("entry %d in %s", i+1, path), err)
		}
	}
	return exemplars, nil
}

func normalizeExemplar(ex *Exemplar) error {
	ex.Review = strings.TrimSpace(ex.Review)
	if ex.Review == "" {
		return errors.New("review text is empty")
	}
	label, err := NormalizeLabel(ex.Label)
	if err != nil {
		return err
	}
	ex.Label = label
	if ex.Confidence < 0 || ex.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", ex.Confidence)
	}
	ex.Explanation = strings.TrimSpace(ex.Explanation)
	return nil
}
