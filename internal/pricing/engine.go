// Package pricing composes the matcher, source providers, weighter,
// aggregator, and cache into the end-to-end pricing pipeline.
package pricing

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/compass-hr/pricing-engine/internal/aggregate"
	"github.com/compass-hr/pricing-engine/internal/cache"
	"github.com/compass-hr/pricing-engine/internal/confidence"
	"github.com/compass-hr/pricing-engine/internal/location"
	"github.com/compass-hr/pricing-engine/internal/matcher"
	"github.com/compass-hr/pricing-engine/internal/model"
	"github.com/compass-hr/pricing-engine/internal/source"
	"github.com/compass-hr/pricing-engine/internal/weight"
)

// Config holds the engine-level settings echoed into every response.
type Config struct {
	Currency          string `yaml:"currency" mapstructure:"currency"`
	Period            string `yaml:"period" mapstructure:"period"`
	FanoutConcurrency int    `yaml:"fanout_concurrency" mapstructure:"fanout_concurrency"`
}

// Request is the inbound contract consumed from the routing layer.
type Request struct {
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description,omitempty"`
	Location       string `json:"location,omitempty"`
	JobFamily      string `json:"job_family,omitempty"`
	CareerLevel    string `json:"career_level,omitempty"`
	Requester      string `json:"requester,omitempty"`
}

// Engine is the pricing orchestrator. All persistence happens inside the
// cache's single write path; the engine itself holds no mutable state.
type Engine struct {
	matcher  *matcher.Matcher
	registry *source.Registry
	weighter *weight.Weighter
	adjuster *location.Adjuster
	scorer   *confidence.Scorer
	cache    *cache.Cache
	cfg      Config
}

// New wires the pipeline components into an Engine.
func New(m *matcher.Matcher, reg *source.Registry, w *weight.Weighter, adj *location.Adjuster, sc *confidence.Scorer, c *cache.Cache, cfg Config) *Engine {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Period == "" {
		cfg.Period = "annual"
	}
	if cfg.FanoutConcurrency <= 0 {
		cfg.FanoutConcurrency = 8
	}
	return &Engine{matcher: m, registry: reg, weighter: w, adjuster: adj, scorer: sc, cache: c, cfg: cfg}
}

// Price runs the full pipeline for one inbound request: normalize, consult
// the cache, and on a miss compute, persist a new version, and respond.
func (e *Engine) Price(ctx context.Context, req Request) (*model.Response, error) {
	mreq := model.PricingRequest{
		JobTitle:          strings.TrimSpace(req.JobTitle),
		JobDescription:    req.JobDescription,
		Location:          strings.TrimSpace(req.Location),
		JobFamily:         req.JobFamily,
		CareerLevel:       req.CareerLevel,
		RequesterIdentity: strings.TrimSpace(req.Requester),
	}
	if mreq.Location == "" {
		mreq.Location = e.adjuster.Reference()
	}
	if mreq.RequesterIdentity == "" {
		mreq.RequesterIdentity = "anonymous"
	}
	if err := mreq.Validate(); err != nil {
		return nil, NewValidationError(err)
	}
	mreq.Hash = mreq.ComputeHash()

	outcome, err := e.cache.GetOrCompute(ctx, &mreq, func(ctx context.Context) (*cache.Computed, error) {
		return e.compute(ctx, &mreq)
	})
	if err != nil {
		return nil, err
	}

	return e.buildResponse(outcome), nil
}

// quotePair is one (matched job, source quote) unit entering the weighting.
type quotePair struct {
	match model.MatchedJob
	quote *source.Quote
}

func (e *Engine) compute(ctx context.Context, req *model.PricingRequest) (*cache.Computed, error) {
	matches, err := e.matcher.Match(ctx, matcher.Query{
		Title:       req.JobTitle,
		Description: req.JobDescription,
		JobFamily:   req.JobFamily,
		CareerLevel: req.CareerLevel,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pricing: match job title")
	}
	if len(matches) == 0 {
		return nil, NewNoMatchError(req.JobTitle)
	}

	pairs, err := e.collectQuotes(ctx, matches)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, NewNoDataError(matches)
	}

	inputs := make([]weight.Input, len(pairs))
	for i, p := range pairs {
		inputs[i] = weight.Input{
			Ref:          i,
			SourceName:   p.quote.SourceName,
			SampleSize:   p.quote.SampleSize,
			RecencyDays:  p.quote.RecencyDays,
			MatchQuality: p.match.Similarity * p.quote.Quality,
		}
	}
	weighted, err := e.weighter.Normalize(inputs)
	if err != nil {
		if errors.Is(err, weight.ErrNoUsableSources) {
			return nil, NewNoDataError(matches)
		}
		return nil, eris.Wrap(err, "pricing: normalize weights")
	}

	contribs := make([]aggregate.Contribution, len(weighted))
	for i, w := range weighted {
		contribs[i] = aggregate.Contribution{
			SourceName:  w.SourceName,
			Weight:      w.Weight,
			Percentiles: pairs[w.Ref].quote.Percentiles,
		}
	}
	agg, err := aggregate.Combine(contribs)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: aggregate percentiles")
	}

	adjusted, adjRecord, err := e.adjuster.Adjust(ctx, agg.Percentiles, req.Location)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: adjust for location")
	}
	idx := adjRecord.CostOfLivingIdx
	scenarios := make(map[string]float64, len(agg.Scenarios))
	for name, v := range agg.Scenarios {
		scenarios[name] = v * idx
	}

	rollup, totalSamples, minFreshness := rollupContributions(pairs, weighted)
	score, level, factors := e.scorer.Score(matches, len(rollup), totalSamples)

	result := &model.PricingResult{
		Percentiles:       adjusted,
		TargetSalary:      adjusted.P50,
		RecommendedMin:    adjusted.P25,
		RecommendedMax:    adjusted.P75,
		ConfidenceScore:   score,
		ConfidenceLevel:   level,
		ConfidenceFactors: factors,
		Adjustment:        adjRecord,
		Contributions:     rollup,
		Scenarios:         scenarios,
		MatchedJobs:       matches,
	}

	zap.L().Info("pricing computed",
		zap.String("job_title", req.JobTitle),
		zap.String("location", req.Location),
		zap.Int("matched_jobs", len(matches)),
		zap.Int("sources", len(rollup)),
		zap.Float64("target_salary", result.TargetSalary),
		zap.Float64("confidence", score),
	)

	return &cache.Computed{Result: result, MinSourceFreshnessDays: minFreshness}, nil
}

// collectQuotes fans out across matched jobs and registered providers. A
// provider failure excludes that source and degrades confidence; it never
// fails the request while at least one source still answers.
func (e *Engine) collectQuotes(ctx context.Context, matches []model.MatchedJob) ([]quotePair, error) {
	providers := e.registry.List()

	var mu sync.Mutex
	var pairs []quotePair

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.FanoutConcurrency)
	for _, p := range providers {
		for _, m := range matches {
			g.Go(func() error {
				// Providers serve reference-location distributions; the
				// cost-of-living adjustment happens once, downstream.
				quote, err := p.GetPercentiles(gctx, m.CanonicalCode, e.adjuster.Reference())
				if err != nil {
					if source.IsNoData(err) {
						return nil
					}
					var unavail *source.UnavailableError
					if errors.As(err, &unavail) {
						return nil // excluded, confidence degrades via fewer sources
					}
					return err
				}
				mu.Lock()
				pairs = append(pairs, quotePair{match: m, quote: quote})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pricing: collect source quotes")
	}

	// Deterministic order regardless of goroutine scheduling.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].quote.SourceName != pairs[j].quote.SourceName {
			return pairs[i].quote.SourceName < pairs[j].quote.SourceName
		}
		return pairs[i].match.CanonicalCode < pairs[j].match.CanonicalCode
	})
	return pairs, nil
}

// rollupContributions folds per-(job, source) weights into one contribution
// row per source, preserving the sum-to-one invariant.
func rollupContributions(pairs []quotePair, weighted []weight.Weighted) ([]model.SourceContribution, int, int) {
	bySource := make(map[string]*model.SourceContribution)
	var order []string
	totalSamples := 0
	minFreshness := 0

	for _, w := range weighted {
		q := pairs[w.Ref].quote
		c, ok := bySource[q.SourceName]
		if !ok {
			c = &model.SourceContribution{
				SourceName:   q.SourceName,
				QualityScore: q.Quality,
				RecencyDays:  q.RecencyDays,
				SurveyLabel:  q.SurveyLabel,
			}
			bySource[q.SourceName] = c
			order = append(order, q.SourceName)
		}
		c.SampleSize += q.SampleSize
		totalSamples += q.SampleSize
		c.Weight += w.Weight
		c.JobsMatched++
		if q.RecencyDays < c.RecencyDays {
			c.RecencyDays = q.RecencyDays
		}
		if q.FreshnessDays > 0 && (minFreshness == 0 || q.FreshnessDays < minFreshness) {
			minFreshness = q.FreshnessDays
		}
	}

	sort.Strings(order)
	out := make([]model.SourceContribution, 0, len(order))
	for _, name := range order {
		out = append(out, *bySource[name])
	}
	return out, totalSamples, minFreshness
}
