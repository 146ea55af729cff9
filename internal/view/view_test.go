package view

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/model"
)

// stubState is an EditorState backed by maps.
type stubState struct {
	drafts map[string]string
	status map[string]SaveState
}

func (s stubState) Draft(id string) (string, bool) {
	d, ok := s.drafts[id]
	return d, ok
}

func (s stubState) Status(id string) SaveState { return s.status[id] }

var (
	admin  = model.NewViewerSession(&model.Identity{UID: "u-admin"}, "u-admin")
	viewer = model.NewViewerSession(&model.Identity{UID: "u-viewer"}, "u-admin")
	en     = i18n.For(i18n.English)
)

func strPtr(s string) *string { return &s }

func sampleQuestions() []*model.Question {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return []*model.Question{
		{ID: "q-2", Text: "Where?", CreatedAt: at.Add(time.Minute)},
		{ID: "q-1", Text: "What time?", CreatedAt: at, Answer: strPtr("3pm"), AnsweredAt: &at},
	}
}

func TestRender_Viewer(t *testing.T) {
	tree := Render(sampleQuestions(), viewer, en, nil)
	if tree.Title != en.Title || tree.Form.SubmitLabel != en.Submit {
		t.Fatalf("labels not applied: %+v", tree)
	}
	if len(tree.Items) != 2 || tree.Items[0].ID != "q-2" {
		t.Fatalf("items must keep input order: %+v", tree.Items)
	}
	for _, item := range tree.Items {
		if item.Editor != nil {
			t.Fatalf("viewer sees editor on %s", item.ID)
		}
	}
	if tree.Items[0].Answer != nil || tree.Items[0].Placeholder != en.NoAnswer {
		t.Errorf("unanswered item: %+v", tree.Items[0])
	}
	if tree.Items[1].Answer == nil || *tree.Items[1].Answer != "3pm" {
		t.Errorf("answered item: %+v", tree.Items[1])
	}
}

func TestRender_AdminEditor(t *testing.T) {
	state := stubState{
		drafts: map[string]string{"q-2": "typing"},
		status: map[string]SaveState{"q-1": SaveSaving, "q-2": SaveFailed},
	}
	tree := Render(sampleQuestions(), admin, en, state)

	unanswered, answered := tree.Items[0].Editor, tree.Items[1].Editor
	if unanswered == nil || answered == nil {
		t.Fatal("admin must see an editor on every item")
	}
	if unanswered.Value != "typing" {
		t.Errorf("draft should win over answer, got %q", unanswered.Value)
	}
	if unanswered.Status != en.SaveFailed || unanswered.SaveDisabled {
		t.Errorf("failed editor: %+v", unanswered)
	}
	if answered.Value != "3pm" {
		t.Errorf("editor should be pre-populated with the answer, got %q", answered.Value)
	}
	if answered.Status != en.Saving || !answered.SaveDisabled {
		t.Errorf("saving editor: %+v", answered)
	}
}

func TestRender_LangAndAdminHeading(t *testing.T) {
	ko := i18n.For(i18n.Korean)
	tests := []struct {
		labels  i18n.Labels
		lang    i18n.Lang
		heading string
	}{
		{en, i18n.English, "Answer (Admin)"},
		{ko, i18n.Korean, "답변 (관리자)"},
	}
	for _, tt := range tests {
		tree := Render(sampleQuestions(), admin, tt.labels, nil)
		if tree.Lang != tt.lang {
			t.Errorf("Lang = %q, want %q", tree.Lang, tt.lang)
		}
		if e := tree.Items[0].Editor; e == nil || e.Heading != tt.heading {
			t.Fatalf("editor heading: %+v", e)
		}
		var buf bytes.Buffer
		if err := WriteHTML(&buf, tree); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{`lang="` + string(tt.lang) + `"`, tt.heading, `for="qna-answer-q-1"`, `id="qna-answer-q-1"`} {
			if !strings.Contains(out, want) {
				t.Errorf("%s html missing %q:\n%s", tt.lang, want, out)
			}
		}
	}
	if h := Render(sampleQuestions(), viewer, en, nil); strings.Contains(fmt.Sprint(h.Items), "Answer (Admin)") {
		t.Error("viewer must not get the admin heading")
	}
}

func TestRender_AdminWithoutState(t *testing.T) {
	tree := Render(sampleQuestions(), admin, en, nil)
	e := tree.Items[1].Editor
	if e == nil || e.Value != "3pm" || e.Status != "" || e.SaveDisabled {
		t.Fatalf("unexpected idle editor %+v", e)
	}
}

func TestRender_Idempotent(t *testing.T) {
	qs := sampleQuestions()
	state := stubState{status: map[string]SaveState{"q-1": SaveSaved}}
	for _, session := range []model.ViewerSession{admin, viewer} {
		a := Render(qs, session, en, state)
		b := Render(qs, session, en, state)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("Render not idempotent for admin=%v", session.IsAdmin)
		}
		var ha, hb bytes.Buffer
		if err := WriteHTML(&ha, a); err != nil {
			t.Fatal(err)
		}
		if err := WriteHTML(&hb, b); err != nil {
			t.Fatal(err)
		}
		if ha.String() != hb.String() {
			t.Fatal("WriteHTML not deterministic")
		}
	}
}

func TestRender_DoesNotAliasAnswers(t *testing.T) {
	qs := sampleQuestions()
	tree := Render(qs, viewer, en, nil)
	*qs[1].Answer = "changed"
	if *tree.Items[1].Answer != "3pm" {
		t.Fatal("tree shares answer pointer with snapshot")
	}
}

// findAll returns every element for which match is true.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func hasAttr(key string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, a := range n.Attr {
			if a.Key == key {
				return true
			}
		}
		return false
	}
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return attrVal(n, "class") == class }
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func renderAndParse(t *testing.T, tree *Tree) *html.Node {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteHTML(&buf, tree); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	doc, err := html.Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestWriteHTML_NonAdminHasNoEditor(t *testing.T) {
	doc := renderAndParse(t, Render(sampleQuestions(), viewer, en, nil))
	for _, key := range []string{"data-answer-input", "data-save-answer", "data-save-status"} {
		if got := findAll(doc, hasAttr(key)); len(got) != 0 {
			t.Errorf("viewer page contains %d %s elements", len(got), key)
		}
	}
	if got := findAll(doc, hasClass("qna-item")); len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
}

func TestWriteHTML_EscapingRoundTrips(t *testing.T) {
	hostile := `<script>alert("x")</script> & 'quotes' > done`
	id := `q-"><img src=x onerror=alert(1)>`
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	qs := []*model.Question{{ID: id, Text: hostile, CreatedAt: at, Answer: strPtr(hostile), AnsweredAt: &at}}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, Render(qs, admin, en, nil)); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>") || strings.Contains(out, "<img") {
		t.Fatalf("markup was not escaped:\n%s", out)
	}

	doc, err := html.Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := findAll(doc, func(n *html.Node) bool { return n.Data == "script" || n.Data == "img" }); len(got) != 0 {
		t.Fatalf("injected %d elements", len(got))
	}
	q := findAll(doc, hasClass("qna-question"))
	if len(q) != 1 || textOf(q[0]) != hostile {
		t.Fatalf("question text did not round-trip: %v", q)
	}
	a := findAll(doc, hasClass("qna-answer-text"))
	if len(a) != 1 || textOf(a[0]) != hostile {
		t.Fatalf("answer text did not round-trip")
	}
	inputs := findAll(doc, hasAttr("data-answer-input"))
	if len(inputs) != 1 || attrVal(inputs[0], "data-answer-input") != id || textOf(inputs[0]) != hostile {
		t.Fatalf("editor attribute or value did not round-trip")
	}
	items := findAll(doc, hasClass("qna-item"))
	if len(items) != 1 || attrVal(items[0], "data-question-id") != id {
		t.Fatalf("question id attribute did not round-trip")
	}
}

func TestWriteHTML_SavingDisablesControl(t *testing.T) {
	state := stubState{status: map[string]SaveState{"q-1": SaveSaving}}
	doc := renderAndParse(t, Render(sampleQuestions(), admin, en, state))
	for _, btn := range findAll(doc, hasAttr("data-save-answer")) {
		disabled := hasAttr("disabled")(btn)
		if want := attrVal(btn, "data-save-answer") == "q-1"; disabled != want {
			t.Errorf("button %s disabled=%v, want %v", attrVal(btn, "data-save-answer"), disabled, want)
		}
	}
	for _, st := range findAll(doc, hasAttr("data-save-status")) {
		if attrVal(st, "data-save-status") == "q-1" && textOf(st) != en.Saving {
			t.Errorf("status text = %q, want %q", textOf(st), en.Saving)
		}
	}
}

func TestWriteHTML_Banner(t *testing.T) {
	tree := Render(nil, viewer, en, nil)
	doc := renderAndParse(t, tree)
	banner := findAll(doc, hasAttr("data-qna-banner"))
	if len(banner) != 1 || !hasAttr("hidden")(banner[0]) {
		t.Fatal("connected board should hide the banner")
	}

	tree.Disconnected = en.Disconnected
	doc = renderAndParse(t, tree)
	banner = findAll(doc, hasAttr("data-qna-banner"))
	if len(banner) != 1 || hasAttr("hidden")(banner[0]) || textOf(banner[0]) != en.Disconnected {
		t.Fatal("disconnected banner not shown")
	}
}

func TestWriteListHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteListHTML(&buf, Render(sampleQuestions(), viewer, en, nil)); err != nil {
		t.Fatalf("WriteListHTML: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<ul") || strings.Contains(out, "<form") {
		t.Fatalf("expected bare list fragment, got %s", out)
	}
}

func TestAnswerPath(t *testing.T) {
	if got := AnswerPath("q-abc"); got != "/questions/q-abc/answer" {
		t.Errorf("AnswerPath = %q", got)
	}
	if got := AnswerPath("a/b"); got != "/questions/a%2Fb/answer" {
		t.Errorf("AnswerPath should escape, got %q", got)
	}
}

func TestWriteText(t *testing.T) {
	state := stubState{status: map[string]SaveState{"q-1": SaveSaved}}
	var buf bytes.Buffer
	if err := WriteText(&buf, Render(sampleQuestions(), admin, en, state)); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Where?", "What time?", "3pm", en.NoAnswer, en.Saved, "q-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Where?") > strings.Index(out, "What time?") {
		t.Error("text output must keep newest-first order")
	}
}

func TestWriteText_StripsControlSequences(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	qs := []*model.Question{{
		ID:         "q-1",
		Text:       "hi\x1b]0;owned\x07\x1b[2J there",
		CreatedAt:  at,
		Answer:     strPtr("ok\x1b[31m red\x00\x9b"),
		AnsweredAt: &at,
	}}
	var buf bytes.Buffer
	if err := WriteText(&buf, Render(qs, viewer, en, nil)); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, bad := range []string{"\x07", "]0;owned", "[2J", "[31m", "\x00", "\u009b"} {
		if strings.Contains(out, bad) {
			t.Errorf("text output carries %q:\n%q", bad, out)
		}
	}
	for _, want := range []string{"hi there", "ok red"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%q", want, out)
		}
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"two\nlines\tand tab", "two\nlines\tand tab"},
		{"\x1b[1mbold\x1b[0m", "bold"},
		{"bell\x07", "bell"},
		{"osc\x1b]8;;http://x\x1b\\link", "osclink"},
		{"c1\u0085x", "c1x"},
		{"한글 ok", "한글 ok"},
	}
	for _, tt := range tests {
		if got := PlainText(tt.in); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveStateString(t *testing.T) {
	for s, want := range map[SaveState]string{SaveIdle: "idle", SaveSaving: "saving", SaveSaved: "saved", SaveFailed: "failed"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
