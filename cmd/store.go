package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// dbtx is satisfied by *pgxpool.Pool and by pgxmock pools
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
}

var _ dbtx = (*pgxpool.Pool)(nil)

type relationalStore struct {
	db      dbtx
	timeout time.Duration
	logger  zerolog.Logger
}

type sourceRow struct {
	SrcCode      string
	BaseCode     string
	SrcType      string
	Title        string
	Author       string
	PubYear      string
	Publisher    string
	BibAbbrev    string
	Language     string
	ISSN         string
	StartYear    string
	EndYear      string
	EmbargoYears string
}

type mostDownloadedFilter struct {
	column       string // one of the view's period count columns
	documentType string
	author       string
	title        string
	journalName  string
}

type mostDownloadedRow struct {
	DocumentID     string
	AuthorMast     string
	HdgAuthor      string
	HdgTitle       string
	SrcTitleSeries string
	PubYear        string
	Vol            string
	Issue          string
	PgRg           string
	JrnlCode       string
	LastWeek       int
	LastMonth      int
	Last6Months    int
	Last12Months   int
	LastCalYear    int
}

type sessionEndpoint struct {
	SessionID     string
	EndpointID    int
	Params        string
	DocumentID    string
	StatusCode    int
	StatusMessage string
}

// period count columns of vw_stat_most_viewed
var mostDownloadedColumns = []string{"lastweek", "lastmonth", "last6months", "last12months", "lastcalyear"}

func newRelationalStore(db dbtx, timeout time.Duration, logger zerolog.Logger) *relationalStore {
	return &relationalStore{db: db, timeout: timeout, logger: logger}
}

func openStore(ctx context.Context, cfg serviceConfigDatabase, logger zerolog.Logger) (*relationalStore, *pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	timeout := timeoutWithMinimum(cfg.Timeout, 1)
	poolConfig.ConnConfig.ConnectTimeout = timeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// an unreachable database is reported by the status endpoints rather than being fatal
	if err := pool.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("[DB] initial ping failed")
	} else {
		logger.Info().Str("host", poolConfig.ConnConfig.Host).Int32("max_conns", poolConfig.MaxConns).Msg("[DB] connection pool established")
	}

	return newRelationalStore(pool, timeout, logger), pool, nil
}

func (r *relationalStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *relationalStore) fail(op string, err error) error {
	getServiceMetrics().dbErrors.WithLabelValues(op).Inc()
	r.logger.Error().Err(err).Str("operation", op).Msg("[DB] query failed")

	return fmt.Errorf("%s: %w", op, err)
}

func (r *relationalStore) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.db.Ping(ctx)
}

const sourcesQuery = `SELECT src_code, COALESCE(base_code, ''), src_type, COALESCE(title, ''), COALESCE(author, ''),
	COALESCE(pub_year, ''), COALESCE(publisher, ''), COALESCE(bib_abbrev, ''), COALESCE(language, ''),
	COALESCE(issn, ''), COALESCE(start_year, ''), COALESCE(end_year, ''), COALESCE(embargo_yrs, ''),
	count(*) OVER() AS total
	FROM api_sourceinfodb
	WHERE ($1 = '' OR src_type = $1) AND ($2 = '' OR upper(src_code) = upper($2))
	ORDER BY title, src_code
	LIMIT NULLIF($3, 0) OFFSET $4`

// GetSources returns one page of source metadata and the total number of matching sources.
// empty type or code values match everything; a zero limit returns all rows.
func (r *relationalStore) GetSources(ctx context.Context, srcType, srcCode string, limit, offset int) (int, []sourceRow, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, sourcesQuery, srcType, srcCode, limit, offset)
	if err != nil {
		return 0, nil, r.fail("get sources", err)
	}
	defer rows.Close()

	var sources []sourceRow
	total := 0

	for rows.Next() {
		var s sourceRow

		if err := rows.Scan(&s.SrcCode, &s.BaseCode, &s.SrcType, &s.Title, &s.Author,
			&s.PubYear, &s.Publisher, &s.BibAbbrev, &s.Language,
			&s.ISSN, &s.StartYear, &s.EndYear, &s.EmbargoYears, &total); err != nil {
			return 0, nil, r.fail("get sources", err)
		}

		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return 0, nil, r.fail("get sources", err)
	}

	return total, sources, nil
}

func (r *relationalStore) GetAllSources(ctx context.Context) ([]sourceRow, error) {
	_, sources, err := r.GetSources(ctx, "", "", 0, 0)
	return sources, err
}

// GetMostDownloaded returns one page of the document view statistics, sorted by the filter's period column
func (r *relationalStore) GetMostDownloaded(ctx context.Context, filter mostDownloadedFilter, limit, offset int) (int, []mostDownloadedRow, error) {
	column := filter.column
	if sliceContainsString(mostDownloadedColumns, column, false) == false {
		return 0, nil, fmt.Errorf("%w: unknown view period column %q", errInvalidParameter, column)
	}

	var conditions []string
	var args []interface{}

	addCondition := func(expr, val string) {
		if val != "" {
			args = append(args, val)
			conditions = append(conditions, fmt.Sprintf(expr, len(args)))
		}
	}

	addCondition("source_type = $%d", filter.documentType)
	addCondition("hdgauthor ILIKE '%%' || $%d || '%%'", filter.author)
	addCondition("hdgtitle ILIKE '%%' || $%d || '%%'", filter.title)
	addCondition("srctitleseries ILIKE '%%' || $%d || '%%'", filter.journalName)

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)

	query := fmt.Sprintf(`SELECT documentid, COALESCE(authormast, ''), COALESCE(hdgauthor, ''), COALESCE(hdgtitle, ''),
	COALESCE(srctitleseries, ''), COALESCE(pubyear, ''), COALESCE(vol, ''), COALESCE(issue, ''), COALESCE(pgrg, ''),
	COALESCE(jrnlcode, ''), lastweek, lastmonth, last6months, last12months, lastcalyear,
	count(*) OVER() AS total
	FROM vw_stat_most_viewed
	%s
	ORDER BY %s DESC, documentid
	LIMIT NULLIF($%d, 0) OFFSET $%d`, where, column, len(args)-1, len(args))

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return 0, nil, r.fail("get most downloaded", err)
	}
	defer rows.Close()

	var results []mostDownloadedRow
	total := 0

	for rows.Next() {
		var d mostDownloadedRow

		if err := rows.Scan(&d.DocumentID, &d.AuthorMast, &d.HdgAuthor, &d.HdgTitle,
			&d.SrcTitleSeries, &d.PubYear, &d.Vol, &d.Issue, &d.PgRg,
			&d.JrnlCode, &d.LastWeek, &d.LastMonth, &d.Last6Months, &d.Last12Months, &d.LastCalYear,
			&total); err != nil {
			return 0, nil, r.fail("get most downloaded", err)
		}

		results = append(results, d)
	}

	if err := rows.Err(); err != nil {
		return 0, nil, r.fail("get most downloaded", err)
	}

	return total, results, nil
}

const saveSessionQuery = `INSERT INTO api_sessions
	(session_id, user_id, username, user_ip, connected_via, access_token, authenticated, keep_active, session_start, session_expires_time)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (session_id) DO UPDATE SET
	user_id = EXCLUDED.user_id, username = EXCLUDED.username, access_token = EXCLUDED.access_token,
	authenticated = EXCLUDED.authenticated, keep_active = EXCLUDED.keep_active,
	session_expires_time = EXCLUDED.session_expires_time`

func (r *relationalStore) SaveSession(ctx context.Context, s *sessionInfo) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Exec(ctx, saveSessionQuery,
		s.SessionID, s.UserID, s.Username, s.UserIP, s.ConnectedVia, s.AccessToken,
		s.Authenticated, s.KeepActive, s.SessionStart, s.SessionExpires); err != nil {
		return r.fail("save session", err)
	}

	return nil
}

const getSessionQuery = `SELECT session_id, user_id, username, COALESCE(user_ip, ''), COALESCE(connected_via, ''),
	COALESCE(access_token, ''), authenticated, keep_active, session_start, session_expires_time
	FROM api_sessions WHERE session_id = $1 AND session_end IS NULL`

// GetSession returns errNotFound for unknown or ended sessions
func (r *relationalStore) GetSession(ctx context.Context, sessionID string) (*sessionInfo, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var s sessionInfo

	err := r.db.QueryRow(ctx, getSessionQuery, sessionID).Scan(&s.SessionID, &s.UserID, &s.Username, &s.UserIP,
		&s.ConnectedVia, &s.AccessToken, &s.Authenticated, &s.KeepActive, &s.SessionStart, &s.SessionExpires)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNotFound
	}

	if err != nil {
		return nil, r.fail("get session", err)
	}

	return &s, nil
}

func (r *relationalStore) EndSession(ctx context.Context, sessionID string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Exec(ctx, `UPDATE api_sessions SET session_end = $2 WHERE session_id = $1`, sessionID, at); err != nil {
		return r.fail("end session", err)
	}

	return nil
}

func (r *relationalStore) RecordSessionEndpoint(ctx context.Context, e sessionEndpoint) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Exec(ctx, `INSERT INTO api_session_endpoints
	(session_id, api_endpoint_id, params, document_id, return_status_code, status_message)
	VALUES ($1, $2, $3, $4, $5, $6)`,
		e.SessionID, e.EndpointID, e.Params, e.DocumentID, e.StatusCode, e.StatusMessage); err != nil {
		return r.fail("record session endpoint", err)
	}

	return nil
}
