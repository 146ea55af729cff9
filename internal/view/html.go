package view

import (
	"io"
	"net/url"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Form targets. The server mounts handlers for both.
const SubmitPath = "/questions"

// AnswerPath is the form target for saving the answer of question id.
func AnswerPath(id string) string {
	return "/questions/" + url.PathEscape(id) + "/answer"
}

// WriteHTML writes the whole board as an HTML fragment. Every text and
// attribute value goes through html.Render, so user content is escaped.
func WriteHTML(w io.Writer, t *Tree) error {
	return html.Render(w, boardNode(t))
}

// WriteListHTML writes only the question list, for swapping into a page
// that already has the form.
func WriteListHTML(w io.Writer, t *Tree) error {
	return html.Render(w, listNode(t))
}

func boardNode(t *Tree) *html.Node {
	root := element(atom.Div, attr("class", "qna"), attr("data-qna-root", ""))
	if t.Lang != "" {
		root.Attr = append(root.Attr, attr("lang", string(t.Lang)))
	}
	appendChildren(root, textElement(atom.H2, t.Title, attr("class", "qna-title")))

	banner := element(atom.P, attr("class", "qna-banner"), attr("role", "status"), attr("data-qna-banner", ""))
	if t.Disconnected == "" {
		banner.Attr = append(banner.Attr, attr("hidden", ""))
	} else {
		appendChildren(banner, textNode(t.Disconnected))
	}
	appendChildren(root, banner, formNode(t.Form))
	appendChildren(root, textElement(atom.H3, t.Latest, attr("class", "qna-latest")))
	appendChildren(root, listNode(t))
	return root
}

func formNode(f Form) *html.Node {
	form := element(atom.Form,
		attr("class", "qna-form"),
		attr("method", "post"),
		attr("action", SubmitPath),
		attr("data-qna-form", ""),
	)
	input := element(atom.Textarea,
		attr("name", "text"),
		attr("rows", "3"),
		attr("placeholder", f.Placeholder),
	)
	if f.Input != "" {
		appendChildren(input, textNode(f.Input))
	}
	appendChildren(form,
		input,
		textElement(atom.Button, f.SubmitLabel, attr("type", "submit")),
		textElement(atom.Span, f.Status, attr("class", "qna-form-status"), attr("data-submit-status", "")),
	)
	return form
}

func listNode(t *Tree) *html.Node {
	list := element(atom.Ul, attr("class", "qna-list"), attr("data-qna-list", ""))
	for _, item := range t.Items {
		appendChildren(list, itemNode(item))
	}
	return list
}

func itemNode(item Item) *html.Node {
	li := element(atom.Li, attr("class", "qna-item"), attr("data-question-id", item.ID))
	appendChildren(li, textElement(atom.P, item.Text, attr("class", "qna-question")))

	if item.Answer != nil {
		block := element(atom.Div, attr("class", "qna-answer"))
		appendChildren(block,
			textElement(atom.Strong, item.AnswerLabel),
			textElement(atom.P, *item.Answer, attr("class", "qna-answer-text")),
		)
		appendChildren(li, block)
	} else {
		appendChildren(li, textElement(atom.P, item.Placeholder, attr("class", "qna-no-answer")))
	}

	if item.Editor != nil {
		appendChildren(li, editorNode(item.ID, item.Editor))
	}
	return li
}

func editorNode(id string, e *Editor) *html.Node {
	form := element(atom.Form,
		attr("class", "qna-editor"),
		attr("method", "post"),
		attr("action", AnswerPath(id)),
	)
	input := element(atom.Textarea,
		attr("name", "answer"),
		attr("rows", "2"),
		attr("placeholder", e.Placeholder),
		attr("data-answer-input", id),
	)
	if e.Value != "" {
		appendChildren(input, textNode(e.Value))
	}
	save := textElement(atom.Button, e.SaveLabel, attr("type", "submit"), attr("data-save-answer", id))
	if e.SaveDisabled {
		save.Attr = append(save.Attr, attr("disabled", ""))
	}
	status := textElement(atom.Span, e.Status,
		attr("class", "qna-save-status"),
		attr("data-save-status", id),
		attr("data-state", e.State.String()),
	)
	heading := textElement(atom.Label, e.Heading, attr("class", "qna-editor-heading"), attr("for", "qna-answer-"+id))
	input.Attr = append(input.Attr, attr("id", "qna-answer-"+id))
	appendChildren(form, heading, input, save, status)
	return form
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

// textElement is an element whose only child is s; empty s gives an empty
// element.
func textElement(a atom.Atom, s string, attrs ...html.Attribute) *html.Node {
	n := element(a, attrs...)
	if s != "" {
		appendChildren(n, textNode(s))
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func appendChildren(parent *html.Node, children ...*html.Node) {
	for _, c := range children {
		parent.AppendChild(c)
	}
}
