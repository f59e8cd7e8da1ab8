package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"QuestionScanner/internal/config"
	"QuestionScanner/internal/domain"
	"QuestionScanner/internal/ports"
)

const defaultStatementTimeout = 5 * time.Second

var questionColumns = []string{
	"q.question_id", "q.source_id", "q.title", "q.q_description",
	"q.question_link", "q.votes", "q.answers", "q.views",
}

// SQLRepository persists questions, tags and their links in Postgres or SQLite.
type SQLRepository struct {
	db               *sql.DB
	driver           string
	builder          sq.StatementBuilderType
	statementTimeout time.Duration
}

var (
	_ ports.QuestionRepository = (*SQLRepository)(nil)
	_ ports.QuestionReader     = (*SQLRepository)(nil)
)

// Stats summarises the size of the store.
type Stats struct {
	Questions int
	Tags      int
	Edges     int
}

// Open connects to the configured database and, unless disabled, applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*SQLRepository, error) {
	dsn := cfg.DSN
	if cfg.Driver == config.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}

	switch {
	case cfg.Driver == config.DriverSQLite:
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sql connection: %w", err)
	}

	repo, err := NewSQLRepository(db, cfg.Driver, cfg.StatementTimeout.Duration)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if !cfg.SkipMigrations {
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return repo, nil
}

// NewSQLRepository wires an already opened sql.DB.
func NewSQLRepository(db *sql.DB, driver string, statementTimeout time.Duration) (*SQLRepository, error) {
	if db == nil {
		return nil, errors.New("sql repository requires a database handle")
	}

	var placeholders sq.PlaceholderFormat
	switch driver {
	case config.DriverPostgres:
		placeholders = sq.Dollar
	case config.DriverSQLite:
		placeholders = sq.Question
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	if statementTimeout <= 0 {
		statementTimeout = defaultStatementTimeout
	}

	return &SQLRepository{
		db:               db,
		driver:           driver,
		builder:          sq.StatementBuilder.PlaceholderFormat(placeholders),
		statementTimeout: statementTimeout,
	}, nil
}

// Close closes the underlying DB connection.
func (r *SQLRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CreateQuestionOrSkip inserts the question keyed on its source id. An already
// known source id is left untouched and reported with created=false.
func (r *SQLRepository) CreateQuestionOrSkip(ctx context.Context, q domain.CandidateQuestion) (domain.QuestionID, bool, error) {
	query, args, err := r.builder.Insert("question").
		Columns("source_id", "title", "q_description", "question_link", "votes", "answers", "views").
		Values(q.SourceID, q.Title, q.Description, q.Link, q.Votes, q.Answers, q.Views).
		Suffix("ON CONFLICT (source_id) DO NOTHING RETURNING question_id").
		ToSql()
	if err != nil {
		return 0, false, persistenceErr("build insert question", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var id int64
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, persistenceErr(fmt.Sprintf("insert question %d", q.SourceID), err)
	}
	return domain.QuestionID(id), true, nil
}

// GetOrCreateTag returns the id of the tag titled title, creating it when absent.
// Titles are stored normalized, so " Rust " and "rust" name the same tag.
// The upsert is a single statement, so concurrent callers always converge on one row.
func (r *SQLRepository) GetOrCreateTag(ctx context.Context, title string) (domain.TagID, error) {
	title = domain.NormalizeTag(title)
	if title == "" {
		return 0, persistenceErr("get or create tag", errors.New("empty tag title"))
	}

	query, args, err := r.builder.Insert("tag").
		Columns("tag_title").
		Values(title).
		Suffix("ON CONFLICT (tag_title) DO UPDATE SET tag_title = excluded.tag_title RETURNING tag_id").
		ToSql()
	if err != nil {
		return 0, persistenceErr("build upsert tag", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, persistenceErr(fmt.Sprintf("upsert tag %q", title), err)
	}
	return domain.TagID(id), nil
}

// CreateEdge links a question to a tag; an existing link is reported with false.
func (r *SQLRepository) CreateEdge(ctx context.Context, questionID domain.QuestionID, tagID domain.TagID) (bool, error) {
	query, args, err := r.builder.Insert("tag_question").
		Columns("tag_id", "question_id").
		Values(int64(tagID), int64(questionID)).
		Suffix("ON CONFLICT (tag_id, question_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, persistenceErr("build insert edge", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, persistenceErr(fmt.Sprintf("insert edge %d-%d", questionID, tagID), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, persistenceErr("edge rows affected", err)
	}
	return affected > 0, nil
}

// ListTags returns tags ordered by title; limit 0 means all.
func (r *SQLRepository) ListTags(ctx context.Context, limit uint64) ([]domain.Tag, error) {
	builder := r.builder.Select("tag_id", "tag_title").From("tag").OrderBy("tag_title")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, persistenceErr("build list tags", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr("list tags", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, persistenceErr("scan tag", err)
		}
		tags = append(tags, domain.Tag{ID: domain.TagID(id), Title: title})
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate tags", err)
	}
	return tags, nil
}

// ListQuestions returns questions ordered by votes; limit 0 means all.
func (r *SQLRepository) ListQuestions(ctx context.Context, limit uint64) ([]domain.Question, error) {
	builder := r.builder.Select(questionColumns...).From("question q").OrderBy("q.votes DESC", "q.question_id")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, persistenceErr("build list questions", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr("list questions", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, persistenceErr("scan question", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate questions", err)
	}
	return questions, nil
}

// QuestionsByTag returns the questions linked to tagID together with the tag.
func (r *SQLRepository) QuestionsByTag(ctx context.Context, tagID domain.TagID) ([]domain.TaggedQuestion, error) {
	columns := append(append([]string(nil), questionColumns...), "t.tag_id", "t.tag_title")
	query, args, err := r.builder.Select(columns...).
		From("tag_question qt").
		Join("tag t ON t.tag_id = qt.tag_id").
		Join("question q ON q.question_id = qt.question_id").
		Where(sq.Eq{"qt.tag_id": int64(tagID)}).
		OrderBy("q.votes DESC", "q.question_id").
		ToSql()
	if err != nil {
		return nil, persistenceErr("build questions by tag", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr(fmt.Sprintf("questions by tag %d", tagID), err)
	}
	defer rows.Close()

	var result []domain.TaggedQuestion
	for rows.Next() {
		var (
			item  domain.TaggedQuestion
			qid   int64
			tid   int64
			title string
		)
		if err := rows.Scan(&qid, &item.Question.SourceID, &item.Question.Title, &item.Question.Description,
			&item.Question.Link, &item.Question.Votes, &item.Question.Answers, &item.Question.Views,
			&tid, &title); err != nil {
			return nil, persistenceErr("scan tagged question", err)
		}
		item.Question.ID = domain.QuestionID(qid)
		item.Tag = domain.Tag{ID: domain.TagID(tid), Title: title}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate tagged questions", err)
	}
	return result, nil
}

// RenameTag changes a tag title. It fails with ErrNotFound for an unknown id
// and ErrConflict when another tag already carries the title.
func (r *SQLRepository) RenameTag(ctx context.Context, tagID domain.TagID, title string) error {
	title = domain.NormalizeTag(title)
	if title == "" {
		return persistenceErr("rename tag", errors.New("empty tag title"))
	}

	query, args, err := r.builder.Update("tag").
		Set("tag_title", title).
		Where(sq.Eq{"tag_id": int64(tagID)}).
		ToSql()
	if err != nil {
		return persistenceErr("build rename tag", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return persistenceErr(fmt.Sprintf("rename tag %d", tagID), fmt.Errorf("%w: tag %q already exists", domain.ErrConflict, title))
		}
		return persistenceErr(fmt.Sprintf("rename tag %d", tagID), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistenceErr("rename rows affected", err)
	}
	if affected == 0 {
		return persistenceErr(fmt.Sprintf("rename tag %d", tagID), domain.ErrNotFound)
	}
	return nil
}

// Stats counts questions, tags and edges.
func (r *SQLRepository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	targets := []struct {
		table string
		dst   *int
	}{
		{"question", &stats.Questions},
		{"tag", &stats.Tags},
		{"tag_question", &stats.Edges},
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	for _, t := range targets {
		query, args, err := r.builder.Select("COUNT(*)").From(t.table).ToSql()
		if err != nil {
			return Stats{}, persistenceErr("build count", err)
		}
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(t.dst); err != nil {
			return Stats{}, persistenceErr("count "+t.table, err)
		}
	}
	return stats, nil
}

func (r *SQLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.statementTimeout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (domain.Question, error) {
	var (
		q  domain.Question
		id int64
	)
	if err := row.Scan(&id, &q.SourceID, &q.Title, &q.Description, &q.Link, &q.Votes, &q.Answers, &q.Views); err != nil {
		return domain.Question{}, err
	}
	q.ID = domain.QuestionID(id)
	return q, nil
}

func persistenceErr(op string, err error) error {
	return domain.NewError(domain.KindPersistence, op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
