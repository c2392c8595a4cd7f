// Package matcher maps free-text job titles to canonical benchmark job codes.
package matcher

import (
	"context"
	"sort"

	"github.com/agext/levenshtein"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/compass-hr/pricing-engine/internal/model"
)

// Config holds the matcher tunables.
type Config struct {
	TopK            int     `yaml:"top_k" mapstructure:"top_k"`
	SimilarityFloor float64 `yaml:"similarity_floor" mapstructure:"similarity_floor"`
	HighFloor       float64 `yaml:"high_floor" mapstructure:"high_floor"`
	MediumFloor     float64 `yaml:"medium_floor" mapstructure:"medium_floor"`
}

// Catalog supplies the canonical jobs eligible for matching.
type Catalog interface {
	ListCanonicalJobs(ctx context.Context, jobFamily, careerLevel string) ([]model.CanonicalJob, error)
}

// Query is one matching request.
type Query struct {
	Title       string
	Description string
	JobFamily   string
	CareerLevel string
}

// Matcher ranks canonical jobs by similarity to a free-text title.
type Matcher struct {
	catalog Catalog
	cfg     Config
}

// New creates a Matcher over the given catalog.
func New(catalog Catalog, cfg Config) *Matcher {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.SimilarityFloor <= 0 {
		cfg.SimilarityFloor = 0.30
	}
	if cfg.HighFloor <= 0 {
		cfg.HighFloor = 0.75
	}
	if cfg.MediumFloor <= 0 {
		cfg.MediumFloor = 0.45
	}
	return &Matcher{catalog: catalog, cfg: cfg}
}

// Match returns up to TopK canonical jobs above the similarity floor, best
// first. An empty slice means no canonical title cleared the floor; callers
// must treat that as "no match", not an error.
func (m *Matcher) Match(ctx context.Context, q Query) ([]model.MatchedJob, error) {
	candidates, err := m.catalog.ListCanonicalJobs(ctx, q.JobFamily, q.CareerLevel)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: list canonical jobs")
	}

	queryNorm := Normalize(q.Title)
	queryRaw := fold(q.Title)
	queryTokens := Tokens(q.Title)
	descTokens := Tokens(q.Description)

	// Keep the best score per canonical code across sources.
	best := make(map[string]model.MatchedJob)
	rawExact := make(map[string]bool)
	for _, c := range candidates {
		score := m.score(queryNorm, queryTokens, descTokens, c.Title)
		if score < m.cfg.SimilarityFloor {
			continue
		}
		if prev, ok := best[c.Code]; ok && prev.Similarity >= score {
			continue
		}
		best[c.Code] = model.MatchedJob{
			CanonicalCode:    c.Code,
			CanonicalTitle:   c.Title,
			Similarity:       score,
			ConfidenceBucket: model.BucketFor(score, m.cfg.HighFloor, m.cfg.MediumFloor),
		}
		rawExact[c.Code] = queryRaw != "" && fold(c.Title) == queryRaw
	}

	matches := make([]model.MatchedJob, 0, len(best))
	for _, mj := range best {
		matches = append(matches, mj)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		// Abbreviation expansion can make distinct titles score identically;
		// the one spelled the way the user spelled it wins the tie.
		if ei, ej := rawExact[matches[i].CanonicalCode], rawExact[matches[j].CanonicalCode]; ei != ej {
			return ei
		}
		return matches[i].CanonicalCode < matches[j].CanonicalCode
	})
	if len(matches) > m.cfg.TopK {
		matches = matches[:m.cfg.TopK]
	}

	zap.L().Debug("matcher: ranked candidates",
		zap.String("title", q.Title),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

// score blends token overlap with edit-distance similarity on the normalized
// strings. Token overlap dominates: titles are short bags of words and word
// order rarely matters ("Engineer, Software Senior").
func (m *Matcher) score(queryNorm string, queryTokens, descTokens map[string]struct{}, canonicalTitle string) float64 {
	canonNorm := Normalize(canonicalTitle)
	if canonNorm == "" || queryNorm == "" {
		return 0
	}
	if canonNorm == queryNorm {
		return 1.0
	}

	canonTokens := Tokens(canonicalTitle)
	overlap := jaccard(queryTokens, canonTokens)
	edit := levenshtein.Similarity(queryNorm, canonNorm, nil)

	score := 0.65*overlap + 0.35*edit

	// A description mentioning the canonical title's words is a weak
	// positive signal, capped so it can never carry a match on its own.
	if len(descTokens) > 0 {
		if boost := jaccard(descTokens, canonTokens); boost > 0 {
			score += 0.05 * boost
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
