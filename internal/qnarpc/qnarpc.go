// Package qnarpc defines the wire contract of the qna.v1.QnAService gRPC
// service. Messages are protobuf well-known types (Struct, StringValue,
// Empty), so server and client share these conversions instead of
// generated stubs.
package qnarpc

import (
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/qna/internal/model"
)

const (
	ServiceName = "qna.v1.QnAService"

	MethodSubmit     = "/" + ServiceName + "/Submit"
	MethodSaveAnswer = "/" + ServiceName + "/SaveAnswer"
	MethodWhoami     = "/" + ServiceName + "/Whoami"
	MethodWatch      = "/" + ServiceName + "/Watch"
)

// WatchStreamDesc describes the server-streaming Watch RPC.
var WatchStreamDesc = grpc.StreamDesc{StreamName: "Watch", ServerStreams: true}

// Whoami is the response of the Whoami RPC.
type Whoami struct {
	UID       string
	Anonymous bool
	IsAdmin   bool
}

func questionMap(q *model.Question) map[string]any {
	m := map[string]any{
		"id":          q.ID,
		"text":        q.Text,
		"created_at":  formatTime(q.CreatedAt),
		"answer":      nil,
		"answered_at": nil,
	}
	if q.Answer != nil {
		m["answer"] = *q.Answer
	}
	if q.AnsweredAt != nil {
		m["answered_at"] = formatTime(*q.AnsweredAt)
	}
	return m
}

// QuestionToStruct encodes q as a Struct message.
func QuestionToStruct(q *model.Question) (*structpb.Struct, error) {
	return structpb.NewStruct(questionMap(q))
}

// QuestionFromStruct decodes a Struct produced by QuestionToStruct.
func QuestionFromStruct(s *structpb.Struct) (*model.Question, error) {
	f := s.GetFields()
	q := &model.Question{
		ID:   f["id"].GetStringValue(),
		Text: f["text"].GetStringValue(),
	}
	if q.ID == "" {
		return nil, fmt.Errorf("question: missing id")
	}
	created, err := parseTime(f["created_at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("question %s created_at: %w", q.ID, err)
	}
	q.CreatedAt = created

	if v, ok := f["answer"].GetKind().(*structpb.Value_StringValue); ok {
		a := v.StringValue
		q.Answer = &a
	}
	if raw := f["answered_at"].GetStringValue(); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("question %s answered_at: %w", q.ID, err)
		}
		q.AnsweredAt = &t
	}
	return q, nil
}

// SnapshotToStruct encodes a complete snapshot.
func SnapshotToStruct(snap model.Snapshot) (*structpb.Struct, error) {
	qs := make([]any, 0, len(snap.Questions))
	for _, q := range snap.Questions {
		qs = append(qs, questionMap(q))
	}
	return structpb.NewStruct(map[string]any{
		"seq":       float64(snap.Seq),
		"at":        formatTime(snap.At),
		"questions": qs,
	})
}

// SnapshotFromStruct decodes a Struct produced by SnapshotToStruct.
func SnapshotFromStruct(s *structpb.Struct) (model.Snapshot, error) {
	f := s.GetFields()
	snap := model.Snapshot{Seq: uint64(f["seq"].GetNumberValue())}
	if raw := f["at"].GetStringValue(); raw != "" {
		at, err := parseTime(raw)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("snapshot at: %w", err)
		}
		snap.At = at
	}
	values := f["questions"].GetListValue().GetValues()
	snap.Questions = make([]*model.Question, 0, len(values))
	for _, v := range values {
		q, err := QuestionFromStruct(v.GetStructValue())
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Questions = append(snap.Questions, q)
	}
	return snap, nil
}

// SaveAnswerRequest builds the SaveAnswer request. A nil answer retracts.
func SaveAnswerRequest(id string, answer *string) (*structpb.Struct, error) {
	m := map[string]any{"id": id, "answer": nil}
	if answer != nil {
		m["answer"] = *answer
	}
	return structpb.NewStruct(m)
}

// ParseSaveAnswerRequest returns the question ID and raw answer; a null
// answer comes back as "".
func ParseSaveAnswerRequest(s *structpb.Struct) (id, answer string) {
	f := s.GetFields()
	return f["id"].GetStringValue(), f["answer"].GetStringValue()
}

// WhoamiToStruct encodes w.
func WhoamiToStruct(w Whoami) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"uid":       w.UID,
		"anonymous": w.Anonymous,
		"is_admin":  w.IsAdmin,
	})
}

// WhoamiFromStruct decodes a Struct produced by WhoamiToStruct.
func WhoamiFromStruct(s *structpb.Struct) Whoami {
	f := s.GetFields()
	return Whoami{
		UID:       f["uid"].GetStringValue(),
		Anonymous: f["anonymous"].GetBoolValue(),
		IsAdmin:   f["is_admin"].GetBoolValue(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
