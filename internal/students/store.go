// internal/students/store.go
package students

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/recommendation"
)

// Student is a saved score record.
type Student struct {
	ID      string                     `json:"estudiante_id"`
	Scores  recommendation.ScoreRecord `json:"puntuaciones"`
	SavedAt time.Time                  `json:"timestamp_guardado"`
}

// Summary is the list view of a saved student.
type Summary struct {
	ID      string    `json:"id"`
	SavedAt time.Time `json:"timestamp_guardado"`
}

// Store persists student score records. Implementations return
// *apperrors.StandardError values so callers can map them to BPMN or HTTP.
type Store interface {
	Save(ctx context.Context, s *Student) error
	Get(ctx context.Context, id string) (*Student, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Schema creates the score table. Run it through PostgresClient.Migrate.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS student_scores (
		student_id               TEXT PRIMARY KEY,
		punt_ingles              DOUBLE PRECISION NOT NULL,
		punt_matematicas         DOUBLE PRECISION NOT NULL,
		punt_sociales_ciudadanas DOUBLE PRECISION NOT NULL,
		punt_c_naturales         DOUBLE PRECISION NOT NULL,
		punt_lectura_critica     DOUBLE PRECISION NOT NULL,
		saved_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_student_scores_saved_at ON student_scores (saved_at)`,
}

const (
	upsertStudentSQL = `
		INSERT INTO student_scores (student_id, punt_ingles, punt_matematicas,
		       punt_sociales_ciudadanas, punt_c_naturales, punt_lectura_critica, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id) DO UPDATE SET
		       punt_ingles = EXCLUDED.punt_ingles,
		       punt_matematicas = EXCLUDED.punt_matematicas,
		       punt_sociales_ciudadanas = EXCLUDED.punt_sociales_ciudadanas,
		       punt_c_naturales = EXCLUDED.punt_c_naturales,
		       punt_lectura_critica = EXCLUDED.punt_lectura_critica,
		       saved_at = EXCLUDED.saved_at`

	selectStudentSQL = `
		SELECT punt_ingles, punt_matematicas, punt_sociales_ciudadanas,
		       punt_c_naturales, punt_lectura_critica, saved_at
		FROM student_scores
		WHERE student_id = $1`

	listStudentsSQL = `SELECT student_id, saved_at FROM student_scores ORDER BY saved_at, student_id`

	deleteStudentSQL = `DELETE FROM student_scores WHERE student_id = $1`

	countStudentsSQL = `SELECT COUNT(*) FROM student_scores`
)

// PostgresStore is the lib/pq backed Store.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Save upserts the record. A record missing any area is rejected before
// touching the database. SavedAt is set when zero.
func (p *PostgresStore) Save(ctx context.Context, s *Student) error {
	if missing := s.Scores.Missing(); len(missing) > 0 {
		return apperrors.NewMissingAreaError(missing)
	}
	if s.SavedAt.IsZero() {
		s.SavedAt = p.now()
	}

	_, err := p.db.ExecContext(ctx, upsertStudentSQL,
		s.ID,
		s.Scores[recommendation.AreaIngles],
		s.Scores[recommendation.AreaMatematicas],
		s.Scores[recommendation.AreaSocialesCiudadanas],
		s.Scores[recommendation.AreaCienciasNaturales],
		s.Scores[recommendation.AreaLecturaCritica],
		s.SavedAt,
	)
	if err != nil {
		return queryError(ctx, "save", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Student, error) {
	var ingles, mate, sociales, naturales, lectura float64
	var savedAt time.Time

	err := p.db.QueryRowContext(ctx, selectStudentSQL, id).Scan(
		&ingles, &mate, &sociales, &naturales, &lectura, &savedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewStudentNotFoundError(id)
	}
	if err != nil {
		return nil, queryError(ctx, "get", err)
	}

	return &Student{
		ID: id,
		Scores: recommendation.ScoreRecord{
			recommendation.AreaIngles:             ingles,
			recommendation.AreaMatematicas:        mate,
			recommendation.AreaSocialesCiudadanas: sociales,
			recommendation.AreaCienciasNaturales:  naturales,
			recommendation.AreaLecturaCritica:     lectura,
		},
		SavedAt: savedAt,
	}, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := p.db.QueryContext(ctx, listStudentsSQL)
	if err != nil {
		return nil, queryError(ctx, "list", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.SavedAt); err != nil {
			return nil, queryError(ctx, "list", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, "list", err)
	}
	return out, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, deleteStudentSQL, id)
	if err != nil {
		return queryError(ctx, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return queryError(ctx, "delete", err)
	}
	if n == 0 {
		return apperrors.NewStudentNotFoundError(id)
	}
	return nil
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, countStudentsSQL).Scan(&n); err != nil {
		return 0, queryError(ctx, "count", err)
	}
	return n, nil
}

func queryError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewQueryTimeoutError(op)
	}
	return apperrors.NewQueryExecutionFailedError(op, err)
}
