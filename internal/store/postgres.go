package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sources (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	type              TEXT NOT NULL,
	url               TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	active            BOOLEAN NOT NULL DEFAULT true,
	keywords          JSONB,
	parser_config     JSONB,
	total_leads_found INTEGER NOT NULL DEFAULT 0,
	qualified_count   INTEGER NOT NULL DEFAULT 0,
	last_search_at    TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(name, type)
);

CREATE TABLE IF NOT EXISTS leads (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	company_name         TEXT NOT NULL DEFAULT '',
	email                TEXT NOT NULL DEFAULT '',
	phone                TEXT NOT NULL DEFAULT '',
	telegram             TEXT NOT NULL DEFAULT '',
	website              TEXT NOT NULL DEFAULT '',
	business_description TEXT NOT NULL DEFAULT '',
	industry             TEXT NOT NULL DEFAULT '',
	original_request     TEXT NOT NULL DEFAULT '',
	needs_description    TEXT NOT NULL DEFAULT '',
	budget_mentioned     TEXT NOT NULL DEFAULT '',
	urgency              TEXT NOT NULL DEFAULT '',
	source_id            TEXT REFERENCES sources(id),
	source_url           TEXT NOT NULL,
	found_at             TIMESTAMPTZ NOT NULL,
	qualification_score  DOUBLE PRECISION,
	budget_score         DOUBLE PRECISION,
	urgency_score        DOUBLE PRECISION,
	fit_score            DOUBLE PRECISION,
	status               TEXT NOT NULL DEFAULT 'new',
	priority             INTEGER NOT NULL DEFAULT 0,
	ai_analysis          JSONB,
	qualification_notes  TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_source_url ON leads(source_url);
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_email ON leads(email) WHERE email != '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_telegram ON leads(telegram) WHERE telegram != '';
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(qualification_score);

CREATE TABLE IF NOT EXISTS website_analyses (
	lead_id     TEXT PRIMARY KEY REFERENCES leads(id),
	analysis    JSONB NOT NULL,
	analyzed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) findLeadBy(ctx context.Context, column, value string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE `+column+` = $1`, value)
	return scanPgLead(row)
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var sourceID *string
	var aiAnalysis []byte
	var qs, bs, us, fs *float64
	var status string

	err := row.Scan(
		&l.ID, &l.Name, &l.CompanyName, &l.Email, &l.Phone, &l.Telegram, &l.Website,
		&l.BusinessDescription, &l.Industry, &l.OriginalRequest, &l.NeedsDescription,
		&l.BudgetMentioned, &l.Urgency, &sourceID, &l.SourceURL, &l.FoundAt,
		&qs, &bs, &us, &fs,
		&status, &l.Priority, &aiAnalysis, &l.QualificationNotes, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: scan lead")
	}

	if sourceID != nil {
		l.SourceID = *sourceID
	}
	l.Status = model.LeadStatus(status)
	if len(aiAnalysis) > 0 {
		l.AIAnalysis = json.RawMessage(aiAnalysis)
	}
	l.QualificationScore = qs
	l.BudgetScore = bs
	l.UrgencyScore = us
	l.FitScore = fs
	return &l, nil
}

func (s *PostgresStore) FindLeadByURL(ctx context.Context, sourceURL string) (*model.Lead, error) {
	return s.findLeadBy(ctx, "source_url", sourceURL)
}

func (s *PostgresStore) FindLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	return s.findLeadBy(ctx, "email", email)
}

func (s *PostgresStore) FindLeadByTelegram(ctx context.Context, handle string) (*model.Lead, error) {
	return s.findLeadBy(ctx, "telegram", handle)
}

func (s *PostgresStore) InsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	inserted := *lead
	if inserted.ID == "" {
		inserted.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	inserted.CreatedAt = now
	inserted.UpdatedAt = now
	if inserted.Status == "" {
		inserted.Status = model.LeadStatusNew
	}
	if inserted.FoundAt.IsZero() {
		inserted.FoundAt = now
	}

	var aiAnalysis []byte
	if len(inserted.AIAnalysis) > 0 {
		aiAnalysis = inserted.AIAnalysis
	}
	var sourceID *string
	if inserted.SourceID != "" {
		sourceID = &inserted.SourceID
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO leads (id, name, company_name, email, phone, telegram, website,
			business_description, industry, original_request, needs_description,
			budget_mentioned, urgency, source_id, source_url, found_at,
			qualification_score, budget_score, urgency_score, fit_score,
			status, priority, ai_analysis, qualification_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		inserted.ID, inserted.Name, inserted.CompanyName, inserted.Email, inserted.Phone,
		inserted.Telegram, inserted.Website, inserted.BusinessDescription, inserted.Industry,
		inserted.OriginalRequest, inserted.NeedsDescription, inserted.BudgetMentioned,
		inserted.Urgency, sourceID, inserted.SourceURL, inserted.FoundAt,
		inserted.QualificationScore, inserted.BudgetScore, inserted.UrgencyScore,
		inserted.FitScore, string(inserted.Status), inserted.Priority, aiAnalysis,
		inserted.QualificationNotes, inserted.CreatedAt, inserted.UpdatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return &inserted, nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, id string, upd model.LeadUpdate) error {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if upd.Industry != nil {
		add("industry", *upd.Industry)
	}
	if upd.Urgency != nil {
		add("urgency", *upd.Urgency)
	}
	if upd.QualificationScore != nil {
		add("qualification_score", *upd.QualificationScore)
	}
	if upd.BudgetScore != nil {
		add("budget_score", *upd.BudgetScore)
	}
	if upd.UrgencyScore != nil {
		add("urgency_score", *upd.UrgencyScore)
	}
	if upd.FitScore != nil {
		add("fit_score", *upd.FitScore)
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if upd.Priority != nil {
		add("priority", *upd.Priority)
	}
	if upd.AIAnalysis != nil {
		add("ai_analysis", []byte(upd.AIAnalysis))
	}
	if upd.QualificationNotes != nil {
		add("qualification_notes", *upd.QualificationNotes)
	}

	args = append(args, id)
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET `+strings.Join(sets, ", ")+` WHERE id = $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	return s.findLeadBy(ctx, "id", id)
}

func (s *PostgresStore) ListLeadsByStatus(ctx context.Context, status model.LeadStatus, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE status = $1 ORDER BY found_at LIMIT $2`,
		string(status), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()
	return collectPgLeads(rows)
}

func (s *PostgresStore) ListHotLeads(ctx context.Context, minScore float64, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE status = $1 AND qualification_score >= $2
		 ORDER BY qualification_score DESC, priority DESC LIMIT $3`,
		string(model.LeadStatusQualified), minScore, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list hot leads")
	}
	defer rows.Close()
	return collectPgLeads(rows)
}

func collectPgLeads(rows pgx.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

const sourceColumns = `id, name, type, url, description, active, keywords, parser_config,
	total_leads_found, qualified_count, last_search_at, created_at`

func scanPgSource(row pgx.Row) (*model.Source, error) {
	var src model.Source
	var typ string
	var keywords, parserConfig []byte
	var lastSearch *time.Time

	err := row.Scan(&src.ID, &src.Name, &typ, &src.URL, &src.Description, &src.Active,
		&keywords, &parserConfig, &src.TotalLeadsFound, &src.QualifiedCount,
		&lastSearch, &src.CreatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: scan source")
	}

	src.Type = model.SourceType(typ)
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &src.Keywords); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal keywords")
		}
	}
	if len(parserConfig) > 0 {
		if err := json.Unmarshal(parserConfig, &src.ParserConfig); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal parser config")
		}
	}
	src.LastSearchAt = lastSearch
	return &src, nil
}

func (s *PostgresStore) FindSource(ctx context.Context, name string, typ model.SourceType) (*model.Source, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE name = $1 AND type = $2`,
		name, string(typ))
	return scanPgSource(row)
}

func (s *PostgresStore) InsertSource(ctx context.Context, src *model.Source) (*model.Source, error) {
	inserted := *src
	if inserted.ID == "" {
		inserted.ID = uuid.New().String()
	}
	inserted.CreatedAt = time.Now().UTC()

	var keywords, parserConfig []byte
	var err error
	if len(inserted.Keywords) > 0 {
		if keywords, err = json.Marshal(inserted.Keywords); err != nil {
			return nil, eris.Wrap(err, "postgres: marshal keywords")
		}
	}
	if len(inserted.ParserConfig) > 0 {
		if parserConfig, err = json.Marshal(inserted.ParserConfig); err != nil {
			return nil, eris.Wrap(err, "postgres: marshal parser config")
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sources (id, name, type, url, description, active, keywords,
			parser_config, total_leads_found, qualified_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9)`,
		inserted.ID, inserted.Name, string(inserted.Type), inserted.URL,
		inserted.Description, inserted.Active, keywords, parserConfig, inserted.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert source")
	}
	return &inserted, nil
}

func (s *PostgresStore) ListActiveSources(ctx context.Context, types []model.SourceType) ([]model.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE active`
	var args []any
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query += ` AND type = ANY($1)`
		args = append(args, names)
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sources")
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		src, err := scanPgSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, eris.Wrap(rows.Err(), "postgres: iterate sources")
}

func (s *PostgresStore) UpdateSourceStats(ctx context.Context, id string, foundDelta, qualifiedDelta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sources SET total_leads_found = total_leads_found + $1,
			qualified_count = qualified_count + $2 WHERE id = $3`,
		foundDelta, qualifiedDelta, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update source stats %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "source %s", id)
	}
	return nil
}

func (s *PostgresStore) TouchSourceSearch(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sources SET last_search_at = now() WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: touch source %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "source %s", id)
	}
	return nil
}

func (s *PostgresStore) GetWebsiteAnalysis(ctx context.Context, leadID string) (*model.WebsiteAnalysis, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT analysis FROM website_analyses WHERE lead_id = $1`, leadID).Scan(&payload)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: get website analysis")
	}
	var wa model.WebsiteAnalysis
	if err := json.Unmarshal(payload, &wa); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal website analysis")
	}
	return &wa, nil
}

func (s *PostgresStore) UpsertWebsiteAnalysis(ctx context.Context, wa *model.WebsiteAnalysis) error {
	b, err := json.Marshal(wa)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal website analysis")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO website_analyses (lead_id, analysis, analyzed_at) VALUES ($1, $2, $3)
		ON CONFLICT (lead_id) DO UPDATE SET analysis = EXCLUDED.analysis,
			analyzed_at = EXCLUDED.analyzed_at`,
		wa.LeadID, b, wa.AnalyzedAt)
	return eris.Wrap(err, "postgres: upsert website analysis")
}
