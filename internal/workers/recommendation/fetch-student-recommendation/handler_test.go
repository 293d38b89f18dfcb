// internal/workers/recommendation/fetch-student-recommendation/handler_test.go
package fetchstudentrecommendation

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/recommendation"
	"icfes-recommender/internal/students"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var savedAt = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func scoreRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"punt_ingles", "punt_matematicas", "punt_sociales_ciudadanas",
		"punt_c_naturales", "punt_lectura_critica", "saved_at",
	}).AddRow(70.0, 95.0, 60.0, 90.0, 65.0, savedAt)
}

type stubRecommender struct {
	err error
}

func (s *stubRecommender) Recommend(context.Context, string) (*students.StudentRecommendation, bool, error) {
	return nil, false, s.err
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.StandardError {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.True(t, stderrors.As(err, &stdErr), "expected StandardError, got %T", err)
	assert.Equal(t, code, stdErr.Code)
	return stdErr
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_FromStore(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT (.+) FROM student_scores WHERE student_id").
		WithArgs("EST001").
		WillReturnRows(scoreRows())

	svc := students.NewService(students.NewPostgresStore(db), nil, nil, nil, logger.NewTestLogger(t))
	h := NewHandler(createTestConfig(), svc, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{StudentID: " EST001 "})
	require.NoError(t, err)

	assert.Equal(t, "EST001", output.StudentID)
	assert.False(t, output.Cached)
	assert.Equal(t, recommendation.CategorySTEM, output.PrimaryCategory)
	assert.Equal(t, 95.0, output.Scores["punt_matematicas"])
	require.Len(t, output.TopAreas, 2)
	assert.Equal(t, recommendation.AreaMatematicas, output.TopAreas[0].Area)
	assert.Equal(t, recommendation.AreaCienciasNaturales, output.TopAreas[1].Area)
	require.Len(t, output.Recommendations, 2)
	assert.Equal(t, "Ingeniería (Sistemas, Civil, Mecánica)", output.Recommendations[0].Program)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_StudentNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT (.+) FROM student_scores").
		WithArgs("EST404").
		WillReturnError(sql.ErrNoRows)

	svc := students.NewService(students.NewPostgresStore(db), nil, nil, nil, logger.NewNoOpLogger())
	h := NewHandler(createTestConfig(), svc, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{StudentID: "EST404"})
	stdErr := requireCode(t, err, apperrors.ErrCodeStudentNotFound)

	bpmnErr := apperrors.ConvertToBPMNError(stdErr)
	assert.Equal(t, 0, bpmnErr.Retries, "unknown students are thrown, not retried")
}

func TestHandler_Execute_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    apperrors.ErrorCode
		wantRetries int
	}{
		{
			name:        "query failure is retried",
			err:         apperrors.NewQueryExecutionFailedError("get student", stderrors.New("connection reset")),
			wantCode:    apperrors.ErrCodeQueryExecutionFailed,
			wantRetries: 3,
		},
		{
			name:        "timeout is retried",
			err:         apperrors.NewQueryTimeoutError("get student"),
			wantCode:    apperrors.ErrCodeQueryTimeout,
			wantRetries: 2,
		},
		{
			name:        "stored record with a missing area is thrown",
			err:         apperrors.NewMissingAreaError([]recommendation.Area{recommendation.AreaIngles}),
			wantCode:    apperrors.ErrCodeMissingArea,
			wantRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), &stubRecommender{err: tt.err}, logger.NewTestLogger(t))

			_, err := h.Execute(context.Background(), &Input{StudentID: "EST001"})
			stdErr := requireCode(t, err, tt.wantCode)
			assert.Equal(t, tt.wantRetries, apperrors.ConvertToBPMNError(stdErr).Retries)
		})
	}
}

func TestHandler_Execute_MissingStudentID(t *testing.T) {
	h := NewHandler(createTestConfig(), &stubRecommender{}, logger.NewNoOpLogger())

	for _, id := range []string{"", "   "} {
		_, err := h.Execute(context.Background(), &Input{StudentID: id})
		requireCode(t, err, apperrors.ErrCodeInvalidRequest)
	}
}
