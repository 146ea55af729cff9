package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/alfredjeanlab/qna/internal/model"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var questionRowColumns = []string{"id", "text", "created_at", "answer", "answered_at"}

func TestNullStringPtr(t *testing.T) {
	if nullStringPtr(nil).Valid {
		t.Error("nullStringPtr(nil) should be invalid")
	}
	empty := ""
	if ns := nullStringPtr(&empty); !ns.Valid || ns.String != "" {
		t.Errorf("nullStringPtr(&\"\") = %v, want valid empty", ns)
	}
	s := "hello"
	if ns := nullStringPtr(&s); !ns.Valid || ns.String != "hello" {
		t.Errorf("nullStringPtr(&\"hello\") = %v", ns)
	}
}

func TestQueryCreateQuestion(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO questions").
		WithArgs("q-abc", "What time?").
		WillReturnRows(sqlmock.NewRows(questionRowColumns).AddRow("q-abc", "What time?", now, nil, nil))

	q, err := queryCreateQuestion(context.Background(), db, "q-abc", "What time?")
	if err != nil {
		t.Fatalf("queryCreateQuestion: %v", err)
	}
	if q.ID != "q-abc" || q.Text != "What time?" || !q.CreatedAt.Equal(now) {
		t.Fatalf("unexpected question: %+v", q)
	}
	if q.Answer != nil || q.AnsweredAt != nil {
		t.Fatalf("new question should be unanswered: %+v", q)
	}
}

func TestQueryGetQuestion_Answered(t *testing.T) {
	db, mock := newMockDB(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	answered := created.Add(time.Hour)

	mock.ExpectQuery("SELECT .+ FROM questions WHERE id = \\$1").WithArgs("q-abc").
		WillReturnRows(sqlmock.NewRows(questionRowColumns).AddRow("q-abc", "What time?", created, "3pm", answered))

	q, err := queryGetQuestion(context.Background(), db, "q-abc")
	if err != nil {
		t.Fatalf("queryGetQuestion: %v", err)
	}
	if q.AnswerText() != "3pm" || q.AnsweredAt == nil || !q.AnsweredAt.Equal(answered) {
		t.Fatalf("unexpected answer fields: %+v", q)
	}
}

func TestGetQuestion_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery("SELECT .+ FROM questions WHERE id = \\$1").WithArgs("nonexistent").
		WillReturnError(sql.ErrNoRows)

	if _, err := s.GetQuestion(context.Background(), "nonexistent"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected model.ErrNotFound, got %v", err)
	}
}

func TestQueryListQuestions(t *testing.T) {
	db, mock := newMockDB(t)
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	mock.ExpectQuery("SELECT .+ FROM questions ORDER BY created_at DESC, id DESC").
		WillReturnRows(sqlmock.NewRows(questionRowColumns).
			AddRow("q-2", "second", t2, nil, nil).
			AddRow("q-1", "first", t1, "yes", t2))

	qs, err := queryListQuestions(context.Background(), db)
	if err != nil {
		t.Fatalf("queryListQuestions: %v", err)
	}
	if len(qs) != 2 || qs[0].ID != "q-2" || qs[1].ID != "q-1" {
		t.Fatalf("unexpected rows: %+v", qs)
	}
	if qs[0].IsAnswered() || !qs[1].IsAnswered() {
		t.Fatalf("answered flags wrong: %+v", qs)
	}
}

func TestQueryListQuestions_Error(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM questions").WillReturnError(errors.New("connection reset"))

	if _, err := queryListQuestions(context.Background(), db); err == nil {
		t.Fatal("expected error")
	}
}

func TestQuerySetAnswer(t *testing.T) {
	db, mock := newMockDB(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	answered := created.Add(time.Hour)
	answer := "3pm"

	mock.ExpectQuery("UPDATE questions").WithArgs("q-abc", "3pm").
		WillReturnRows(sqlmock.NewRows(questionRowColumns).AddRow("q-abc", "What time?", created, "3pm", answered))

	q, err := querySetAnswer(context.Background(), db, "q-abc", &answer)
	if err != nil {
		t.Fatalf("querySetAnswer: %v", err)
	}
	if q.AnswerText() != "3pm" || q.AnsweredAt == nil {
		t.Fatalf("unexpected question: %+v", q)
	}
}

func TestQuerySetAnswer_Clear(t *testing.T) {
	db, mock := newMockDB(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE questions").WithArgs("q-abc", nil).
		WillReturnRows(sqlmock.NewRows(questionRowColumns).AddRow("q-abc", "What time?", created, nil, nil))

	q, err := querySetAnswer(context.Background(), db, "q-abc", nil)
	if err != nil {
		t.Fatalf("querySetAnswer: %v", err)
	}
	if q.Answer != nil || q.AnsweredAt != nil {
		t.Fatalf("expected retracted answer: %+v", q)
	}
}

func TestSetAnswer_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}
	answer := "x"

	mock.ExpectQuery("UPDATE questions").WithArgs("nonexistent", "x").WillReturnError(sql.ErrNoRows)

	if _, err := s.SetAnswer(context.Background(), "nonexistent", &answer); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected model.ErrNotFound, got %v", err)
	}
}

func TestCreateQuestion_EmptyTextSkipsDatabase(t *testing.T) {
	db, _ := newMockDB(t)
	s := &PostgresStore{db: db}

	if _, err := s.CreateQuestion(context.Background(), "   "); !errors.Is(err, model.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestCreateQuestion_TrimsText(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO questions").
		WithArgs(sqlmock.AnyArg(), "hi").
		WillReturnRows(sqlmock.NewRows(questionRowColumns).AddRow("q-xyz", "hi", now, nil, nil))

	q, err := s.CreateQuestion(context.Background(), "  hi \n")
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	if q.Text != "hi" {
		t.Fatalf("Text = %q", q.Text)
	}
}

func TestWaitForDB_RetriesUntilReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := waitForDB(ctx, db); err != nil {
		t.Fatalf("waitForDB: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestWaitForDB_GivesUpWithContext(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	for i := 0; i < 10; i++ {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := waitForDB(ctx, db); err == nil {
		t.Fatal("expected error once the context expires")
	}
}
