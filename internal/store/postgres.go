package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/compass-hr/pricing-engine/internal/db"
	"github.com/compass-hr/pricing-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool creates a store over an existing pool. Used by tests
// with pgxmock; Close does not close the shared pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool exposes the underlying pool for the seeder's bulk-load path.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pricing_requests (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	request_hash       TEXT NOT NULL UNIQUE,
	job_title          TEXT NOT NULL,
	job_description    TEXT NOT NULL DEFAULT '',
	location_text      TEXT NOT NULL,
	job_family         TEXT NOT NULL DEFAULT '',
	career_level       TEXT NOT NULL DEFAULT '',
	requester_identity TEXT NOT NULL,
	first_requested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_requested_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	request_count      INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS pricing_results (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	request_id            TEXT NOT NULL REFERENCES pricing_requests(id) ON DELETE CASCADE,
	version               INTEGER NOT NULL,
	is_latest             BOOLEAN NOT NULL DEFAULT false,
	p10                   DOUBLE PRECISION NOT NULL,
	p25                   DOUBLE PRECISION NOT NULL,
	p50                   DOUBLE PRECISION NOT NULL,
	p75                   DOUBLE PRECISION NOT NULL,
	p90                   DOUBLE PRECISION NOT NULL,
	target_salary         DOUBLE PRECISION NOT NULL,
	recommended_min       DOUBLE PRECISION NOT NULL,
	recommended_max       DOUBLE PRECISION NOT NULL,
	confidence_score      DOUBLE PRECISION NOT NULL,
	confidence_level      TEXT NOT NULL,
	confidence_factors    JSONB NOT NULL,
	location_adjustment   JSONB NOT NULL,
	matched_jobs          JSONB NOT NULL,
	alternative_scenarios JSONB,
	calculated_at         TIMESTAMPTZ NOT NULL,
	expires_at            TIMESTAMPTZ NOT NULL,
	cache_hit             BOOLEAN NOT NULL DEFAULT false,
	UNIQUE (request_id, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_results_one_latest
	ON pricing_results(request_id) WHERE is_latest;
CREATE INDEX IF NOT EXISTS idx_results_request ON pricing_results(request_id);
CREATE INDEX IF NOT EXISTS idx_results_expires ON pricing_results(expires_at);

CREATE TABLE IF NOT EXISTS source_contributions (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	result_id      TEXT NOT NULL REFERENCES pricing_results(id) ON DELETE CASCADE,
	source_name    TEXT NOT NULL,
	weight_applied DOUBLE PRECISION NOT NULL,
	sample_size    INTEGER NOT NULL,
	quality_score  DOUBLE PRECISION NOT NULL,
	recency_days   INTEGER NOT NULL,
	survey_label   TEXT NOT NULL DEFAULT '',
	jobs_matched   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_contributions_result ON source_contributions(result_id);

CREATE TABLE IF NOT EXISTS benchmark_jobs (
	source_name  TEXT NOT NULL,
	code         TEXT NOT NULL,
	title        TEXT NOT NULL,
	job_family   TEXT NOT NULL DEFAULT '',
	career_level TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source_name, code)
);

CREATE TABLE IF NOT EXISTS benchmark_salaries (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_name    TEXT NOT NULL,
	canonical_code TEXT NOT NULL,
	location       TEXT NOT NULL,
	p10            DOUBLE PRECISION NOT NULL,
	p25            DOUBLE PRECISION NOT NULL,
	p50            DOUBLE PRECISION NOT NULL,
	p75            DOUBLE PRECISION NOT NULL,
	p90            DOUBLE PRECISION NOT NULL,
	sample_size    INTEGER NOT NULL,
	data_as_of     TIMESTAMPTZ NOT NULL,
	quality_score  DOUBLE PRECISION NOT NULL,
	freshness_days INTEGER NOT NULL DEFAULT 0,
	survey_label   TEXT NOT NULL DEFAULT '',
	UNIQUE (source_name, canonical_code, location)
);

CREATE INDEX IF NOT EXISTS idx_benchmarks_lookup
	ON benchmark_salaries(source_name, canonical_code, location);

CREATE TABLE IF NOT EXISTS location_indices (
	location  TEXT PRIMARY KEY,
	col_index DOUBLE PRECISION NOT NULL
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetOrCreateRequest(ctx context.Context, req *model.PricingRequest) (*model.PricingRequest, bool, error) {
	existing, err := s.GetRequestByHash(ctx, req.Hash)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	out := *req
	out.ID = uuid.New().String()
	now := time.Now().UTC()
	out.FirstRequestedAt = now
	out.LastRequestedAt = now
	out.RequestCount = 1

	_, err = s.pool.Exec(ctx,
		`INSERT INTO pricing_requests
			(id, request_hash, job_title, job_description, location_text, job_family, career_level, requester_identity, first_requested_at, last_requested_at, request_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)`,
		out.ID, out.Hash, out.JobTitle, out.JobDescription, out.Location,
		out.JobFamily, out.CareerLevel, out.RequesterIdentity, now, now,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			existing, gerr := s.GetRequestByHash(ctx, req.Hash)
			if gerr != nil {
				return nil, false, gerr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, eris.Wrap(err, "postgres: insert request")
	}
	return &out, true, nil
}

func (s *PostgresStore) GetRequestByHash(ctx context.Context, hash string) (*model.PricingRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, request_hash, job_title, job_description, location_text, job_family, career_level, requester_identity, first_requested_at, last_requested_at, request_count
		FROM pricing_requests WHERE request_hash = $1`, hash)

	var r model.PricingRequest
	err := row.Scan(&r.ID, &r.Hash, &r.JobTitle, &r.JobDescription, &r.Location,
		&r.JobFamily, &r.CareerLevel, &r.RequesterIdentity,
		&r.FirstRequestedAt, &r.LastRequestedAt, &r.RequestCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get request by hash")
	}
	return &r, nil
}

func (s *PostgresStore) TouchRequest(ctx context.Context, requestID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pricing_requests SET last_requested_at = $1, request_count = request_count + 1 WHERE id = $2`,
		at.UTC(), requestID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: touch request %s", requestID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("request not found: %s", requestID)
	}
	return nil
}

func (s *PostgresStore) ListRequests(ctx context.Context, filter RequestFilter) ([]model.PricingRequest, error) {
	query := `SELECT id, request_hash, job_title, job_description, location_text, job_family, career_level, requester_identity, first_requested_at, last_requested_at, request_count
		FROM pricing_requests`
	var args []any
	if filter.Requester != "" {
		args = append(args, filter.Requester)
		query += ` WHERE requester_identity = $1`
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query += ` ORDER BY last_requested_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list requests")
	}
	defer rows.Close()

	var out []model.PricingRequest
	for rows.Next() {
		var r model.PricingRequest
		if err := rows.Scan(&r.ID, &r.Hash, &r.JobTitle, &r.JobDescription, &r.Location,
			&r.JobFamily, &r.CareerLevel, &r.RequesterIdentity,
			&r.FirstRequestedAt, &r.LastRequestedAt, &r.RequestCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan request")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list requests")
}

const pgResultColumns = `id, request_id, version, is_latest, p10, p25, p50, p75, p90,
	target_salary, recommended_min, recommended_max,
	confidence_score, confidence_level, confidence_factors, location_adjustment,
	matched_jobs, alternative_scenarios, calculated_at, expires_at, cache_hit`

func (s *PostgresStore) GetLatestResult(ctx context.Context, requestID string) (*model.PricingResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgResultColumns+` FROM pricing_results WHERE request_id = $1 AND is_latest`,
		requestID,
	)
	result, err := scanPgResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get latest result")
	}
	if err := s.loadContributions(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) InsertResultVersion(ctx context.Context, result *model.PricingResult, retainVersions int) (*model.PricingResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin insert result")
	}
	defer tx.Rollback(ctx)

	var maxVersion int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM pricing_results WHERE request_id = $1`,
		result.RequestID,
	).Scan(&maxVersion)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: max version")
	}

	out := *result
	out.ID = uuid.New().String()
	out.Version = maxVersion + 1
	out.IsLatest = true
	if err := out.CheckInvariants(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE pricing_results SET is_latest = false WHERE request_id = $1 AND is_latest`,
		out.RequestID,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: demote previous latest")
	}

	factorsJSON, adjJSON, matchesJSON, scenariosJSON, err := marshalResultJSON(&out)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO pricing_results (`+pgResultColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		out.ID, out.RequestID, out.Version, true,
		out.Percentiles.P10, out.Percentiles.P25, out.Percentiles.P50, out.Percentiles.P75, out.Percentiles.P90,
		out.TargetSalary, out.RecommendedMin, out.RecommendedMax,
		out.ConfidenceScore, string(out.ConfidenceLevel), factorsJSON, adjJSON,
		matchesJSON, scenariosJSON, out.CalculatedAt.UTC(), out.ExpiresAt.UTC(), false,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrVersionConflict
		}
		return nil, eris.Wrap(err, "postgres: insert result")
	}

	for i := range out.Contributions {
		c := &out.Contributions[i]
		c.ID = uuid.New().String()
		c.ResultID = out.ID
		if _, err := tx.Exec(ctx,
			`INSERT INTO source_contributions
				(id, result_id, source_name, weight_applied, sample_size, quality_score, recency_days, survey_label, jobs_matched)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, c.ResultID, c.SourceName, c.Weight, c.SampleSize, c.QualityScore, c.RecencyDays, c.SurveyLabel, c.JobsMatched,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: insert contribution")
		}
	}

	if retainVersions > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM pricing_results WHERE request_id = $1 AND id NOT IN (
				SELECT id FROM pricing_results WHERE request_id = $2
				ORDER BY version DESC LIMIT $3
			)`,
			out.RequestID, out.RequestID, retainVersions,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: purge old versions")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrVersionConflict
		}
		return nil, eris.Wrap(err, "postgres: commit insert result")
	}
	return &out, nil
}

func (s *PostgresStore) ListResultVersions(ctx context.Context, requestID string) ([]model.PricingResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgResultColumns+` FROM pricing_results WHERE request_id = $1 ORDER BY version DESC`,
		requestID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list versions")
	}
	defer rows.Close()

	var out []model.PricingResult
	for rows.Next() {
		result, err := scanPgResult(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		out = append(out, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list versions")
	}
	for i := range out {
		if err := s.loadContributions(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) ListLatestResults(ctx context.Context, limit int) ([]LatestResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT q.id, q.request_hash, q.job_title, q.job_description, q.location_text, q.job_family, q.career_level, q.requester_identity, q.first_requested_at, q.last_requested_at, q.request_count,
			r.id, r.request_id, r.version, r.is_latest, r.p10, r.p25, r.p50, r.p75, r.p90,
			r.target_salary, r.recommended_min, r.recommended_max,
			r.confidence_score, r.confidence_level, r.confidence_factors, r.location_adjustment,
			r.matched_jobs, r.alternative_scenarios, r.calculated_at, r.expires_at, r.cache_hit
		FROM pricing_results r
		JOIN pricing_requests q ON q.id = r.request_id
		WHERE r.is_latest
		ORDER BY r.calculated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list latest results")
	}
	defer rows.Close()

	var out []LatestResult
	for rows.Next() {
		var lr LatestResult
		var factorsJSON, adjJSON, matchesJSON []byte
		var scenariosJSON []byte
		var level string
		q := &lr.Request
		r := &lr.Result
		if err := rows.Scan(
			&q.ID, &q.Hash, &q.JobTitle, &q.JobDescription, &q.Location, &q.JobFamily, &q.CareerLevel, &q.RequesterIdentity, &q.FirstRequestedAt, &q.LastRequestedAt, &q.RequestCount,
			&r.ID, &r.RequestID, &r.Version, &r.IsLatest,
			&r.Percentiles.P10, &r.Percentiles.P25, &r.Percentiles.P50, &r.Percentiles.P75, &r.Percentiles.P90,
			&r.TargetSalary, &r.RecommendedMin, &r.RecommendedMax,
			&r.ConfidenceScore, &level, &factorsJSON, &adjJSON,
			&matchesJSON, &scenariosJSON, &r.CalculatedAt, &r.ExpiresAt, &r.CacheHit,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan latest result")
		}
		r.ConfidenceLevel = model.ConfidenceLevel(level)
		if err := unmarshalResultJSON(r, string(factorsJSON), string(adjJSON), string(matchesJSON), string(scenariosJSON)); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list latest results")
	}
	for i := range out {
		if err := s.loadContributions(ctx, &out[i].Result); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) DeleteExpiredResults(ctx context.Context, keepLatest bool) (int, error) {
	query := `DELETE FROM pricing_results WHERE expires_at <= now()`
	if keepLatest {
		query += ` AND NOT is_latest`
	}
	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired results")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListCanonicalJobs(ctx context.Context, jobFamily, careerLevel string) ([]model.CanonicalJob, error) {
	query := `SELECT source_name, code, title, job_family, career_level FROM benchmark_jobs`
	var conds []string
	var args []any
	if jobFamily != "" {
		args = append(args, jobFamily)
		conds = append(conds, `job_family = $`+itoa(len(args)))
	}
	if careerLevel != "" {
		args = append(args, careerLevel)
		conds = append(conds, `career_level = $`+itoa(len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY source_name, code`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list canonical jobs")
	}
	defer rows.Close()

	var out []model.CanonicalJob
	for rows.Next() {
		var j model.CanonicalJob
		if err := rows.Scan(&j.SourceName, &j.Code, &j.Title, &j.JobFamily, &j.CareerLevel); err != nil {
			return nil, eris.Wrap(err, "postgres: scan canonical job")
		}
		out = append(out, j)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list canonical jobs")
}

func (s *PostgresStore) GetBenchmark(ctx context.Context, sourceName, canonicalCode, location string) (*model.BenchmarkSalary, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source_name, canonical_code, location, p10, p25, p50, p75, p90, sample_size, data_as_of, quality_score, freshness_days, survey_label
		FROM benchmark_salaries
		WHERE source_name = $1 AND canonical_code = $2 AND location = $3`,
		sourceName, canonicalCode, location,
	)
	var b model.BenchmarkSalary
	err := row.Scan(&b.ID, &b.SourceName, &b.CanonicalCode, &b.Location,
		&b.Percentiles.P10, &b.Percentiles.P25, &b.Percentiles.P50, &b.Percentiles.P75, &b.Percentiles.P90,
		&b.SampleSize, &b.DataAsOf, &b.QualityScore, &b.FreshnessDays, &b.SurveyLabel)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get benchmark")
	}
	return &b, nil
}

func (s *PostgresStore) CostOfLivingIndex(ctx context.Context, location string) (float64, bool, error) {
	var idx float64
	err := s.pool.QueryRow(ctx,
		`SELECT col_index FROM location_indices WHERE lower(location) = lower($1)`, location,
	).Scan(&idx)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrap(err, "postgres: cost of living index")
	}
	return idx, true, nil
}

func (s *PostgresStore) SeedCanonicalJobs(ctx context.Context, jobs []model.CanonicalJob) error {
	rows := make([][]any, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []any{j.SourceName, j.Code, j.Title, j.JobFamily, j.CareerLevel})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "benchmark_jobs",
		Columns:      []string{"source_name", "code", "title", "job_family", "career_level"},
		ConflictKeys: []string{"source_name", "code"},
	}, rows)
	return eris.Wrap(err, "postgres: seed canonical jobs")
}

func (s *PostgresStore) SeedBenchmarks(ctx context.Context, benchmarks []model.BenchmarkSalary) error {
	rows := make([][]any, 0, len(benchmarks))
	for _, b := range benchmarks {
		id := b.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{
			id, b.SourceName, b.CanonicalCode, b.Location,
			b.Percentiles.P10, b.Percentiles.P25, b.Percentiles.P50, b.Percentiles.P75, b.Percentiles.P90,
			b.SampleSize, b.DataAsOf.UTC(), b.QualityScore, b.FreshnessDays, b.SurveyLabel,
		})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "benchmark_salaries",
		Columns: []string{
			"id", "source_name", "canonical_code", "location",
			"p10", "p25", "p50", "p75", "p90",
			"sample_size", "data_as_of", "quality_score", "freshness_days", "survey_label",
		},
		ConflictKeys: []string{"source_name", "canonical_code", "location"},
		UpdateCols: []string{
			"p10", "p25", "p50", "p75", "p90",
			"sample_size", "data_as_of", "quality_score", "freshness_days", "survey_label",
		},
	}, rows)
	return eris.Wrap(err, "postgres: seed benchmarks")
}

func (s *PostgresStore) SeedLocationIndices(ctx context.Context, indices []model.LocationIndex) error {
	rows := make([][]any, 0, len(indices))
	for _, li := range indices {
		rows = append(rows, []any{li.Location, li.Index})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "location_indices",
		Columns:      []string{"location", "col_index"},
		ConflictKeys: []string{"location"},
	}, rows)
	return eris.Wrap(err, "postgres: seed location indices")
}

func (s *PostgresStore) loadContributions(ctx context.Context, result *model.PricingResult) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, result_id, source_name, weight_applied, sample_size, quality_score, recency_days, survey_label, jobs_matched
		FROM source_contributions WHERE result_id = $1 ORDER BY weight_applied DESC`,
		result.ID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: load contributions")
	}
	defer rows.Close()

	result.Contributions = nil
	for rows.Next() {
		var c model.SourceContribution
		if err := rows.Scan(&c.ID, &c.ResultID, &c.SourceName, &c.Weight, &c.SampleSize, &c.QualityScore, &c.RecencyDays, &c.SurveyLabel, &c.JobsMatched); err != nil {
			return eris.Wrap(err, "postgres: scan contribution")
		}
		result.Contributions = append(result.Contributions, c)
	}
	return eris.Wrap(rows.Err(), "postgres: load contributions")
}

func scanPgResult(row pgx.Row) (*model.PricingResult, error) {
	var r model.PricingResult
	var level string
	var factorsJSON, adjJSON, matchesJSON, scenariosJSON []byte

	err := row.Scan(&r.ID, &r.RequestID, &r.Version, &r.IsLatest,
		&r.Percentiles.P10, &r.Percentiles.P25, &r.Percentiles.P50, &r.Percentiles.P75, &r.Percentiles.P90,
		&r.TargetSalary, &r.RecommendedMin, &r.RecommendedMax,
		&r.ConfidenceScore, &level, &factorsJSON, &adjJSON,
		&matchesJSON, &scenariosJSON, &r.CalculatedAt, &r.ExpiresAt, &r.CacheHit)
	if err != nil {
		return nil, err
	}
	r.ConfidenceLevel = model.ConfidenceLevel(level)
	if err := unmarshalResultJSON(&r, string(factorsJSON), string(adjJSON), string(matchesJSON), string(scenariosJSON)); err != nil {
		return nil, err
	}
	return &r, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
