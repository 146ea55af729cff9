package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/qna/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanQuestion scans a single row into a model.Question.
// The row must contain columns in the order defined by questionColumns.
func scanQuestion(row scannable) (*model.Question, error) {
	var (
		q          model.Question
		answer     sql.NullString
		answeredAt sql.NullTime
	)
	if err := row.Scan(&q.ID, &q.Text, &q.CreatedAt, &answer, &answeredAt); err != nil {
		return nil, err
	}
	q.CreatedAt = q.CreatedAt.UTC()
	if answer.Valid {
		a := answer.String
		q.Answer = &a
	}
	if answeredAt.Valid {
		t := answeredAt.Time.UTC()
		q.AnsweredAt = &t
	}
	return &q, nil
}

func scanQuestions(rows *sql.Rows) ([]*model.Question, error) {
	var qs []*model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return qs, nil
}

// nullStringPtr converts a *string to sql.NullString; nil is null.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
