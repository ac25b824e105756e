package dataset

import (
	"fmt"
	"math/rand"

	"sentimark/internal/classify"
	"sentimark/internal/services"
	"sentimark/internal/textutil"
)

// SampleOptions controls balanced sampling from a labeled dataset.
type SampleOptions struct {
	// PerLabel is the number of rows drawn for each label present.
	PerLabel int
	// Seed makes the draw reproducible.
	Seed int64
	// MaxSimilarity rejects candidates whose TF cosine similarity against an
	// already accepted row reaches this value. Values outside (0, 1) disable
	// the filter.
	MaxSimilarity float64
}

// sampleLabelOrder fixes bucket processing so identical inputs and seed
// produce identical samples.
var sampleLabelOrder = []string{classify.LabelPositive, classify.LabelNegative, classify.LabelNeutral}

// Sample draws a label-balanced subset: PerLabel rows for every canonical
// label present in rows, shuffled together. Rows without a canonical
// sentiment never enter a bucket. A label that cannot fill its quota after
// near-duplicate filtering fails the draw.
func Sample(rows []Row, opts SampleOptions) ([]Row, error) {
	if opts.PerLabel <= 0 {
		return nil, services.Wrap(services.ErrValidation, "dataset", "sample", "per-label quota must be positive", nil)
	}
	buckets := make(map[string][]Row, len(sampleLabelOrder))
	for _, row := range rows {
		switch row.Sentiment {
		case classify.LabelPositive, classify.LabelNegative, classify.LabelNeutral:
			buckets[row.Sentiment] = append(buckets[row.Sentiment], row)
		}
	}
	if len(buckets) == 0 {
		return nil, services.Wrap(services.ErrValidation, "dataset", "sample", "no rows carry a usable sentiment label", nil)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	filter := opts.MaxSimilarity > 0 && opts.MaxSimilarity < 1

	var (
		sample   []Row
		accepted []*textutil.Fingerprint
	)
	for _, label := range sampleLabelOrder {
		candidates := buckets[label]
		if len(candidates) == 0 {
			continue
		}
		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		taken := 0
		for _, candidate := range candidates {
			if taken == opts.PerLabel {
				break
			}
			if filter {
				fp := textutil.NewFingerprint(candidate.ReviewText)
				if tooSimilar(fp, accepted, opts.MaxSimilarity) {
					continue
				}
				accepted = append(accepted, fp)
			}
			sample = append(sample, candidate)
			taken++
		}
		if taken < opts.PerLabel {
			return nil, services.Wrap(services.ErrValidation, "dataset", "sample",
				fmt.Sprintf("label %s has %d usable rows, need %d", label, taken, opts.PerLabel), nil)
		}
	}

	rng.Shuffle(len(sample), func(i, j int) {
		sample[i], sample[j] = sample[j], sample[i]
	})
	return sample, nil
}

func tooSimilar(fp *textutil.Fingerprint, accepted []*textutil.Fingerprint, limit float64) bool {
	if fp == nil {
		return false
	}
	for _, other := range accepted {
		if textutil.CosineSimilarity(fp, other) >= limit {
			return true
		}
	}
	return false
}
