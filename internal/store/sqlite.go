package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/compass-hr/pricing-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and tests; production deployments run Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pricing_requests (
	id                 TEXT PRIMARY KEY,
	request_hash       TEXT NOT NULL UNIQUE,
	job_title          TEXT NOT NULL,
	job_description    TEXT NOT NULL DEFAULT '',
	location_text      TEXT NOT NULL,
	job_family         TEXT NOT NULL DEFAULT '',
	career_level       TEXT NOT NULL DEFAULT '',
	requester_identity TEXT NOT NULL,
	first_requested_at DATETIME NOT NULL,
	last_requested_at  DATETIME NOT NULL,
	request_count      INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS pricing_results (
	id                    TEXT PRIMARY KEY,
	request_id            TEXT NOT NULL REFERENCES pricing_requests(id) ON DELETE CASCADE,
	version               INTEGER NOT NULL,
	is_latest             INTEGER NOT NULL DEFAULT 0,
	p10                   REAL NOT NULL,
	p25                   REAL NOT NULL,
	p50                   REAL NOT NULL,
	p75                   REAL NOT NULL,
	p90                   REAL NOT NULL,
	target_salary         REAL NOT NULL,
	recommended_min       REAL NOT NULL,
	recommended_max       REAL NOT NULL,
	confidence_score      REAL NOT NULL,
	confidence_level      TEXT NOT NULL,
	confidence_factors    TEXT NOT NULL,
	location_adjustment   TEXT NOT NULL,
	matched_jobs          TEXT NOT NULL,
	alternative_scenarios TEXT,
	calculated_at         DATETIME NOT NULL,
	expires_at            DATETIME NOT NULL,
	cache_hit             INTEGER NOT NULL DEFAULT 0,
	UNIQUE (request_id, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_results_one_latest
	ON pricing_results(request_id) WHERE is_latest = 1;
CREATE INDEX IF NOT EXISTS idx_results_request ON pricing_results(request_id);
CREATE INDEX IF NOT EXISTS idx_results_expires ON pricing_results(expires_at);

CREATE TABLE IF NOT EXISTS source_contributions (
	id             TEXT PRIMARY KEY,
	result_id      TEXT NOT NULL REFERENCES pricing_results(id) ON DELETE CASCADE,
	source_name    TEXT NOT NULL,
	weight_applied REAL NOT NULL,
	sample_size    INTEGER NOT NULL,
	quality_score  REAL NOT NULL,
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
	id             TEXT PRIMARY KEY,
	source_name    TEXT NOT NULL,
	canonical_code TEXT NOT NULL,
	location       TEXT NOT NULL,
	p10            REAL NOT NULL,
	p25            REAL NOT NULL,
	p50            REAL NOT NULL,
	p75            REAL NOT NULL,
	p90            REAL NOT NULL,
	sample_size    INTEGER NOT NULL,
	data_as_of     DATETIME NOT NULL,
	quality_score  REAL NOT NULL,
	freshness_days INTEGER NOT NULL DEFAULT 0,
	survey_label   TEXT NOT NULL DEFAULT '',
	UNIQUE (source_name, canonical_code, location)
);

CREATE INDEX IF NOT EXISTS idx_benchmarks_lookup
	ON benchmark_salaries(source_name, canonical_code, location);

CREATE TABLE IF NOT EXISTS location_indices (
	location  TEXT PRIMARY KEY,
	col_index REAL NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetOrCreateRequest(ctx context.Context, req *model.PricingRequest) (*model.PricingRequest, bool, error) {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pricing_requests
			(id, request_hash, job_title, job_description, location_text, job_family, career_level, requester_identity, first_requested_at, last_requested_at, request_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		out.ID, out.Hash, out.JobTitle, out.JobDescription, out.Location,
		out.JobFamily, out.CareerLevel, out.RequesterIdentity, now, now,
	)
	if err != nil {
		// Another writer may have inserted the same hash concurrently.
		if isSQLiteUniqueViolation(err) {
			existing, gerr := s.GetRequestByHash(ctx, req.Hash)
			if gerr != nil {
				return nil, false, gerr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, eris.Wrap(err, "sqlite: insert request")
	}
	return &out, true, nil
}

func (s *SQLiteStore) GetRequestByHash(ctx context.Context, hash string) (*model.PricingRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, request_hash, job_title, job_description, location_text, job_family, career_level, requester_identity, first_requested_at, last_requested_at, request_count
		FROM pricing_requests WHERE request_hash = ?`, hash)

	var r model.PricingRequest
	err := row.Scan(&r.ID, &r.Hash, &r.JobTitle, &r.JobDescription, &r.Location,
		&r.JobFamily, &r.CareerLevel, &r.RequesterIdentity,
		&r.FirstRequestedAt, &r.LastRequestedAt, &r.RequestCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get request by hash")
	}
	return &r, nil
}

func (s *SQLiteStore) TouchRequest(ctx context.Context, requestID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pricing_requests SET last_requested_at = ?, request_count = request_count + 1 WHERE id = ?`,
		at.UTC(), requestID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch request %s", requestID)
	}
	return checkRowsAffected(res, "request", requestID)
}

func (s *SQLiteStore) ListRequests(ctx context.Context, filter RequestFilter) ([]model.PricingRequest, error) {
	query := `SELECT id, request_hash, job_title, job_description, location_text, job_family, career_level, requester_identity, first_requested_at, last_requested_at, request_count
		FROM pricing_requests`
	var args []any
	if filter.Requester != "" {
		query += ` WHERE requester_identity = ?`
		args = append(args, filter.Requester)
	}
	query += ` ORDER BY last_requested_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list requests")
	}
	defer rows.Close()

	var out []model.PricingRequest
	for rows.Next() {
		var r model.PricingRequest
		if err := rows.Scan(&r.ID, &r.Hash, &r.JobTitle, &r.JobDescription, &r.Location,
			&r.JobFamily, &r.CareerLevel, &r.RequesterIdentity,
			&r.FirstRequestedAt, &r.LastRequestedAt, &r.RequestCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan request")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list requests")
}

const sqliteResultColumns = `id, request_id, version, is_latest, p10, p25, p50, p75, p90,
	target_salary, recommended_min, recommended_max,
	confidence_score, confidence_level, confidence_factors, location_adjustment,
	matched_jobs, alternative_scenarios, calculated_at, expires_at, cache_hit`

func (s *SQLiteStore) GetLatestResult(ctx context.Context, requestID string) (*model.PricingResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteResultColumns+` FROM pricing_results WHERE request_id = ? AND is_latest = 1`,
		requestID,
	)
	result, err := scanSQLiteResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get latest result")
	}
	if err := s.loadContributions(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) InsertResultVersion(ctx context.Context, result *model.PricingResult, retainVersions int) (*model.PricingResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert result")
	}
	defer tx.Rollback()

	var maxVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM pricing_results WHERE request_id = ?`,
		result.RequestID,
	).Scan(&maxVersion)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: max version")
	}

	out := *result
	out.ID = uuid.New().String()
	out.Version = maxVersion + 1
	out.IsLatest = true
	if err := out.CheckInvariants(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE pricing_results SET is_latest = 0 WHERE request_id = ? AND is_latest = 1`,
		out.RequestID,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: demote previous latest")
	}

	factorsJSON, adjJSON, matchesJSON, scenariosJSON, err := marshalResultJSON(&out)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO pricing_results (`+sqliteResultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.RequestID, out.Version, 1,
		out.Percentiles.P10, out.Percentiles.P25, out.Percentiles.P50, out.Percentiles.P75, out.Percentiles.P90,
		out.TargetSalary, out.RecommendedMin, out.RecommendedMax,
		out.ConfidenceScore, string(out.ConfidenceLevel), factorsJSON, adjJSON,
		matchesJSON, scenariosJSON, out.CalculatedAt.UTC(), out.ExpiresAt.UTC(), 0,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrVersionConflict
		}
		return nil, eris.Wrap(err, "sqlite: insert result")
	}

	for i := range out.Contributions {
		c := &out.Contributions[i]
		c.ID = uuid.New().String()
		c.ResultID = out.ID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO source_contributions
				(id, result_id, source_name, weight_applied, sample_size, quality_score, recency_days, survey_label, jobs_matched)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.ResultID, c.SourceName, c.Weight, c.SampleSize, c.QualityScore, c.RecencyDays, c.SurveyLabel, c.JobsMatched,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: insert contribution")
		}
	}

	if retainVersions > 0 {
		// Keep the newest retainVersions rows; contributions cascade.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM pricing_results WHERE request_id = ? AND id IN (
				SELECT id FROM pricing_results WHERE request_id = ?
				ORDER BY version DESC LIMIT -1 OFFSET ?
			)`,
			out.RequestID, out.RequestID, retainVersions,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: purge old versions")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit insert result")
	}
	return &out, nil
}

func (s *SQLiteStore) ListResultVersions(ctx context.Context, requestID string) ([]model.PricingResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteResultColumns+` FROM pricing_results WHERE request_id = ? ORDER BY version DESC`,
		requestID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list versions")
	}
	defer rows.Close()

	var out []model.PricingResult
	for rows.Next() {
		result, err := scanSQLiteResult(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		out = append(out, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list versions")
	}
	for i := range out {
		if err := s.loadContributions(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) ListLatestResults(ctx context.Context, limit int) ([]LatestResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.request_hash, q.job_title, q.job_description, q.location_text, q.job_family, q.career_level, q.requester_identity, q.first_requested_at, q.last_requested_at, q.request_count,
			r.id, r.request_id, r.version, r.is_latest, r.p10, r.p25, r.p50, r.p75, r.p90,
			r.target_salary, r.recommended_min, r.recommended_max,
			r.confidence_score, r.confidence_level, r.confidence_factors, r.location_adjustment,
			r.matched_jobs, r.alternative_scenarios, r.calculated_at, r.expires_at, r.cache_hit
		FROM pricing_results r
		JOIN pricing_requests q ON q.id = r.request_id
		WHERE r.is_latest = 1
		ORDER BY r.calculated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list latest results")
	}
	defer rows.Close()

	var out []LatestResult
	for rows.Next() {
		var lr LatestResult
		var isLatest, cacheHit int
		var factorsJSON, adjJSON, matchesJSON string
		var scenariosJSON sql.NullString
		var level string
		q := &lr.Request
		r := &lr.Result
		if err := rows.Scan(
			&q.ID, &q.Hash, &q.JobTitle, &q.JobDescription, &q.Location, &q.JobFamily, &q.CareerLevel, &q.RequesterIdentity, &q.FirstRequestedAt, &q.LastRequestedAt, &q.RequestCount,
			&r.ID, &r.RequestID, &r.Version, &isLatest,
			&r.Percentiles.P10, &r.Percentiles.P25, &r.Percentiles.P50, &r.Percentiles.P75, &r.Percentiles.P90,
			&r.TargetSalary, &r.RecommendedMin, &r.RecommendedMax,
			&r.ConfidenceScore, &level, &factorsJSON, &adjJSON,
			&matchesJSON, &scenariosJSON, &r.CalculatedAt, &r.ExpiresAt, &cacheHit,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan latest result")
		}
		r.IsLatest = isLatest != 0
		r.CacheHit = cacheHit != 0
		r.ConfidenceLevel = model.ConfidenceLevel(level)
		if err := unmarshalResultJSON(r, factorsJSON, adjJSON, matchesJSON, scenariosJSON.String); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list latest results")
	}
	for i := range out {
		if err := s.loadContributions(ctx, &out[i].Result); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) DeleteExpiredResults(ctx context.Context, keepLatest bool) (int, error) {
	query := `DELETE FROM pricing_results WHERE expires_at <= ?`
	if keepLatest {
		query += ` AND is_latest = 0`
	}
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired results")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) ListCanonicalJobs(ctx context.Context, jobFamily, careerLevel string) ([]model.CanonicalJob, error) {
	query := `SELECT source_name, code, title, job_family, career_level FROM benchmark_jobs`
	var conds []string
	var args []any
	if jobFamily != "" {
		conds = append(conds, `job_family = ?`)
		args = append(args, jobFamily)
	}
	if careerLevel != "" {
		conds = append(conds, `career_level = ?`)
		args = append(args, careerLevel)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY source_name, code`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list canonical jobs")
	}
	defer rows.Close()

	var out []model.CanonicalJob
	for rows.Next() {
		var j model.CanonicalJob
		if err := rows.Scan(&j.SourceName, &j.Code, &j.Title, &j.JobFamily, &j.CareerLevel); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan canonical job")
		}
		out = append(out, j)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list canonical jobs")
}

func (s *SQLiteStore) GetBenchmark(ctx context.Context, sourceName, canonicalCode, location string) (*model.BenchmarkSalary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_name, canonical_code, location, p10, p25, p50, p75, p90, sample_size, data_as_of, quality_score, freshness_days, survey_label
		FROM benchmark_salaries
		WHERE source_name = ? AND canonical_code = ? AND location = ?`,
		sourceName, canonicalCode, location,
	)
	var b model.BenchmarkSalary
	err := row.Scan(&b.ID, &b.SourceName, &b.CanonicalCode, &b.Location,
		&b.Percentiles.P10, &b.Percentiles.P25, &b.Percentiles.P50, &b.Percentiles.P75, &b.Percentiles.P90,
		&b.SampleSize, &b.DataAsOf, &b.QualityScore, &b.FreshnessDays, &b.SurveyLabel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get benchmark")
	}
	return &b, nil
}

func (s *SQLiteStore) CostOfLivingIndex(ctx context.Context, location string) (float64, bool, error) {
	var idx float64
	err := s.db.QueryRowContext(ctx,
		`SELECT col_index FROM location_indices WHERE location = ? COLLATE NOCASE`, location,
	).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: cost of living index")
	}
	return idx, true, nil
}

func (s *SQLiteStore) SeedCanonicalJobs(ctx context.Context, jobs []model.CanonicalJob) error {
	for _, j := range jobs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO benchmark_jobs (source_name, code, title, job_family, career_level)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (source_name, code) DO UPDATE SET title = excluded.title, job_family = excluded.job_family, career_level = excluded.career_level`,
			j.SourceName, j.Code, j.Title, j.JobFamily, j.CareerLevel,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed canonical job %s/%s", j.SourceName, j.Code)
		}
	}
	return nil
}

func (s *SQLiteStore) SeedBenchmarks(ctx context.Context, rows []model.BenchmarkSalary) error {
	for _, b := range rows {
		id := b.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO benchmark_salaries
				(id, source_name, canonical_code, location, p10, p25, p50, p75, p90, sample_size, data_as_of, quality_score, freshness_days, survey_label)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (source_name, canonical_code, location) DO UPDATE SET
				p10 = excluded.p10, p25 = excluded.p25, p50 = excluded.p50, p75 = excluded.p75, p90 = excluded.p90,
				sample_size = excluded.sample_size, data_as_of = excluded.data_as_of,
				quality_score = excluded.quality_score, freshness_days = excluded.freshness_days, survey_label = excluded.survey_label`,
			id, b.SourceName, b.CanonicalCode, b.Location,
			b.Percentiles.P10, b.Percentiles.P25, b.Percentiles.P50, b.Percentiles.P75, b.Percentiles.P90,
			b.SampleSize, b.DataAsOf.UTC(), b.QualityScore, b.FreshnessDays, b.SurveyLabel,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed benchmark %s/%s", b.SourceName, b.CanonicalCode)
		}
	}
	return nil
}

func (s *SQLiteStore) SeedLocationIndices(ctx context.Context, indices []model.LocationIndex) error {
	for _, li := range indices {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO location_indices (location, col_index) VALUES (?, ?)
			ON CONFLICT (location) DO UPDATE SET col_index = excluded.col_index`,
			li.Location, li.Index,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed location index %s", li.Location)
		}
	}
	return nil
}

func (s *SQLiteStore) loadContributions(ctx context.Context, result *model.PricingResult) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, result_id, source_name, weight_applied, sample_size, quality_score, recency_days, survey_label, jobs_matched
		FROM source_contributions WHERE result_id = ? ORDER BY weight_applied DESC`,
		result.ID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: load contributions")
	}
	defer rows.Close()

	result.Contributions = nil
	for rows.Next() {
		var c model.SourceContribution
		if err := rows.Scan(&c.ID, &c.ResultID, &c.SourceName, &c.Weight, &c.SampleSize, &c.QualityScore, &c.RecencyDays, &c.SurveyLabel, &c.JobsMatched); err != nil {
			return eris.Wrap(err, "sqlite: scan contribution")
		}
		result.Contributions = append(result.Contributions, c)
	}
	return eris.Wrap(rows.Err(), "sqlite: load contributions")
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteResult(row rowScanner) (*model.PricingResult, error) {
	var r model.PricingResult
	var isLatest, cacheHit int
	var level string
	var factorsJSON, adjJSON, matchesJSON string
	var scenariosJSON sql.NullString

	err := row.Scan(&r.ID, &r.RequestID, &r.Version, &isLatest,
		&r.Percentiles.P10, &r.Percentiles.P25, &r.Percentiles.P50, &r.Percentiles.P75, &r.Percentiles.P90,
		&r.TargetSalary, &r.RecommendedMin, &r.RecommendedMax,
		&r.ConfidenceScore, &level, &factorsJSON, &adjJSON,
		&matchesJSON, &scenariosJSON, &r.CalculatedAt, &r.ExpiresAt, &cacheHit)
	if err != nil {
		return nil, err
	}
	r.IsLatest = isLatest != 0
	r.CacheHit = cacheHit != 0
	r.ConfidenceLevel = model.ConfidenceLevel(level)
	if err := unmarshalResultJSON(&r, factorsJSON, adjJSON, matchesJSON, scenariosJSON.String); err != nil {
		return nil, err
	}
	return &r, nil
}

func marshalResultJSON(r *model.PricingResult) (factors, adjustment, matches, scenarios string, err error) {
	fb, err := json.Marshal(r.ConfidenceFactors)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "store: marshal confidence factors")
	}
	ab, err := json.Marshal(r.Adjustment)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "store: marshal adjustment")
	}
	mb, err := json.Marshal(r.MatchedJobs)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "store: marshal matched jobs")
	}
	sb, err := json.Marshal(r.Scenarios)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "store: marshal scenarios")
	}
	return string(fb), string(ab), string(mb), string(sb), nil
}

func unmarshalResultJSON(r *model.PricingResult, factors, adjustment, matches, scenarios string) error {
	if factors != "" {
		if err := json.Unmarshal([]byte(factors), &r.ConfidenceFactors); err != nil {
			return eris.Wrap(err, "store: unmarshal confidence factors")
		}
	}
	if adjustment != "" {
		if err := json.Unmarshal([]byte(adjustment), &r.Adjustment); err != nil {
			return eris.Wrap(err, "store: unmarshal adjustment")
		}
	}
	if matches != "" {
		if err := json.Unmarshal([]byte(matches), &r.MatchedJobs); err != nil {
			return eris.Wrap(err, "store: unmarshal matched jobs")
		}
	}
	if scenarios != "" && scenarios != "null" {
		if err := json.Unmarshal([]byte(scenarios), &r.Scenarios); err != nil {
			return eris.Wrap(err, "store: unmarshal scenarios")
		}
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
