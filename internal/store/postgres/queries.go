package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/qna/internal/model"
)

// questionColumns is the column list used for SELECT and RETURNING on the
// questions table.
const questionColumns = `id, text, created_at, answer, answered_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateQuestion(ctx context.Context, db executor, id, text string) (*model.Question, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO questions (id, text, created_at)
		VALUES ($1, $2, now())
		RETURNING `+questionColumns,
		id, text,
	)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

func queryGetQuestion(ctx context.Context, db executor, id string) (*model.Question, error) {
	row := db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	return scanQuestion(row)
}

func queryListQuestions(ctx context.Context, db executor) ([]*model.Question, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	qs, err := scanQuestions(rows)
	if err != nil {
		return nil, fmt.Errorf("scan questions: %w", err)
	}
	return qs, nil
}

// querySetAnswer writes answer and answered_at together so the pair can
// never disagree. A NULL answer retracts both.
func querySetAnswer(ctx context.Context, db executor, id string, answer *string) (*model.Question, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE questions
		SET answer = $2,
			answered_at = CASE WHEN $2::text IS NULL THEN NULL ELSE now() END
		WHERE id = $1
		RETURNING `+questionColumns,
		id, nullStringPtr(answer),
	)
	return scanQuestion(row)
}
