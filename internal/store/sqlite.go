package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode with a busy timeout so concurrent source tasks tolerate each other.
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sources (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	type              TEXT NOT NULL,
	url               TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	active            INTEGER NOT NULL DEFAULT 1,
	keywords          TEXT,
	parser_config     TEXT,
	total_leads_found INTEGER NOT NULL DEFAULT 0,
	qualified_count   INTEGER NOT NULL DEFAULT 0,
	last_search_at    DATETIME,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
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
	found_at             DATETIME NOT NULL,
	qualification_score  REAL,
	budget_score         REAL,
	urgency_score        REAL,
	fit_score            REAL,
	status               TEXT NOT NULL DEFAULT 'new',
	priority             INTEGER NOT NULL DEFAULT 0,
	ai_analysis          TEXT,
	qualification_notes  TEXT NOT NULL DEFAULT '',
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

-- Hard invariant: at most one lead per distinct source URL, ever.
-- Email/telegram uniqueness applies only when the field is known.
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_source_url ON leads(source_url);
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_email ON leads(email) WHERE email != '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_telegram ON leads(telegram) WHERE telegram != '';
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(qualification_score);

CREATE TABLE IF NOT EXISTS website_analyses (
	lead_id     TEXT PRIMARY KEY REFERENCES leads(id),
	analysis    TEXT NOT NULL,
	analyzed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const leadColumns = `id, name, company_name, email, phone, telegram, website,
	business_description, industry, original_request, needs_description,
	budget_mentioned, urgency, source_id, source_url, found_at,
	qualification_score, budget_score, urgency_score, fit_score,
	status, priority, ai_analysis, qualification_notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*model.Lead, error) {
	var l model.Lead
	var sourceID, aiAnalysis sql.NullString
	var qs, bs, us, fs sql.NullFloat64
	var status string

	err := row.Scan(
		&l.ID, &l.Name, &l.CompanyName, &l.Email, &l.Phone, &l.Telegram, &l.Website,
		&l.BusinessDescription, &l.Industry, &l.OriginalRequest, &l.NeedsDescription,
		&l.BudgetMentioned, &l.Urgency, &sourceID, &l.SourceURL, &l.FoundAt,
		&qs, &bs, &us, &fs,
		&status, &l.Priority, &aiAnalysis, &l.QualificationNotes, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	l.SourceID = sourceID.String
	l.Status = model.LeadStatus(status)
	if aiAnalysis.Valid && aiAnalysis.String != "" {
		l.AIAnalysis = json.RawMessage(aiAnalysis.String)
	}
	l.QualificationScore = nullFloat(qs)
	l.BudgetScore = nullFloat(bs)
	l.UrgencyScore = nullFloat(us)
	l.FitScore = nullFloat(fs)
	return &l, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) findLeadBy(ctx context.Context, column, value string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE `+column+` = ?`, value)
	return scanLead(row)
}

func (s *SQLiteStore) FindLeadByURL(ctx context.Context, sourceURL string) (*model.Lead, error) {
	return s.findLeadBy(ctx, "source_url", sourceURL)
}

func (s *SQLiteStore) FindLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	return s.findLeadBy(ctx, "email", email)
}

func (s *SQLiteStore) FindLeadByTelegram(ctx context.Context, handle string) (*model.Lead, error) {
	return s.findLeadBy(ctx, "telegram", handle)
}

func (s *SQLiteStore) InsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
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

	var aiAnalysis any
	if len(inserted.AIAnalysis) > 0 {
		aiAnalysis = string(inserted.AIAnalysis)
	}
	var sourceID any
	if inserted.SourceID != "" {
		sourceID = inserted.SourceID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (id, name, company_name, email, phone, telegram, website,
			business_description, industry, original_request, needs_description,
			budget_mentioned, urgency, source_id, source_url, found_at,
			qualification_score, budget_score, urgency_score, fit_score,
			status, priority, ai_analysis, qualification_notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inserted.ID, inserted.Name, inserted.CompanyName, inserted.Email, inserted.Phone,
		inserted.Telegram, inserted.Website, inserted.BusinessDescription, inserted.Industry,
		inserted.OriginalRequest, inserted.NeedsDescription, inserted.BudgetMentioned,
		inserted.Urgency, sourceID, inserted.SourceURL, inserted.FoundAt,
		inserted.QualificationScore, inserted.BudgetScore, inserted.UrgencyScore,
		inserted.FitScore, string(inserted.Status), inserted.Priority, aiAnalysis,
		inserted.QualificationNotes, inserted.CreatedAt, inserted.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return &inserted, nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, id string, upd model.LeadUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
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
		add("ai_analysis", string(upd.AIAnalysis))
	}
	if upd.QualificationNotes != nil {
		add("qualification_notes", *upd.QualificationNotes)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	return s.findLeadBy(ctx, "id", id)
}

func (s *SQLiteStore) ListLeadsByStatus(ctx context.Context, status model.LeadStatus, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE status = ? ORDER BY found_at LIMIT ?`,
		string(status), limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck
	return collectLeads(rows)
}

func (s *SQLiteStore) ListHotLeads(ctx context.Context, minScore float64, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE status = ? AND qualification_score >= ?
		 ORDER BY qualification_score DESC, priority DESC LIMIT ?`,
		string(model.LeadStatusQualified), minScore, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list hot leads")
	}
	defer rows.Close() //nolint:errcheck
	return collectLeads(rows)
}

func collectLeads(rows *sql.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) FindSource(ctx context.Context, name string, typ model.SourceType) (*model.Source, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, url, description, active, keywords, parser_config,
			total_leads_found, qualified_count, last_search_at, created_at
		FROM sources WHERE name = ? AND type = ?`, name, string(typ))
	return scanSource(row)
}

func scanSource(row rowScanner) (*model.Source, error) {
	var src model.Source
	var typ string
	var keywords, parserConfig sql.NullString
	var lastSearch sql.NullTime

	err := row.Scan(&src.ID, &src.Name, &typ, &src.URL, &src.Description, &src.Active,
		&keywords, &parserConfig, &src.TotalLeadsFound, &src.QualifiedCount,
		&lastSearch, &src.CreatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: scan source")
	}

	src.Type = model.SourceType(typ)
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &src.Keywords); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal keywords")
		}
	}
	if parserConfig.Valid && parserConfig.String != "" {
		if err := json.Unmarshal([]byte(parserConfig.String), &src.ParserConfig); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal parser config")
		}
	}
	if lastSearch.Valid {
		t := lastSearch.Time
		src.LastSearchAt = &t
	}
	return &src, nil
}

func (s *SQLiteStore) InsertSource(ctx context.Context, src *model.Source) (*model.Source, error) {
	inserted := *src
	if inserted.ID == "" {
		inserted.ID = uuid.New().String()
	}
	inserted.CreatedAt = time.Now().UTC()

	var keywords, parserConfig any
	if len(inserted.Keywords) > 0 {
		b, err := json.Marshal(inserted.Keywords)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal keywords")
		}
		keywords = string(b)
	}
	if len(inserted.ParserConfig) > 0 {
		b, err := json.Marshal(inserted.ParserConfig)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal parser config")
		}
		parserConfig = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, type, url, description, active, keywords,
			parser_config, total_leads_found, qualified_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		inserted.ID, inserted.Name, string(inserted.Type), inserted.URL,
		inserted.Description, inserted.Active, keywords, parserConfig, inserted.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert source")
	}
	return &inserted, nil
}

func (s *SQLiteStore) ListActiveSources(ctx context.Context, types []model.SourceType) ([]model.Source, error) {
	query := `SELECT id, name, type, url, description, active, keywords, parser_config,
		total_leads_found, qualified_count, last_search_at, created_at
		FROM sources WHERE active = 1`
	var args []any
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += ` AND type IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sources")
	}
	defer rows.Close() //nolint:errcheck

	var sources []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, eris.Wrap(rows.Err(), "sqlite: iterate sources")
}

func (s *SQLiteStore) UpdateSourceStats(ctx context.Context, id string, foundDelta, qualifiedDelta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET total_leads_found = total_leads_found + ?,
			qualified_count = qualified_count + ? WHERE id = ?`,
		foundDelta, qualifiedDelta, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update source stats %s", id)
	}
	return checkAffected(res, id)
}

func (s *SQLiteStore) TouchSourceSearch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_search_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch source %s", id)
	}
	return checkAffected(res, id)
}

func checkAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "source %s", id)
	}
	return nil
}

func (s *SQLiteStore) GetWebsiteAnalysis(ctx context.Context, leadID string) (*model.WebsiteAnalysis, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT analysis FROM website_analyses WHERE lead_id = ?`, leadID).Scan(&payload)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: get website analysis")
	}
	var wa model.WebsiteAnalysis
	if err := json.Unmarshal([]byte(payload), &wa); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal website analysis")
	}
	return &wa, nil
}

func (s *SQLiteStore) UpsertWebsiteAnalysis(ctx context.Context, wa *model.WebsiteAnalysis) error {
	b, err := json.Marshal(wa)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal website analysis")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO website_analyses (lead_id, analysis, analyzed_at) VALUES (?, ?, ?)
		ON CONFLICT(lead_id) DO UPDATE SET analysis = excluded.analysis,
			analyzed_at = excluded.analyzed_at`,
		wa.LeadID, string(b), wa.AnalyzedAt)
	return eris.Wrap(err, "sqlite: upsert website analysis")
}
