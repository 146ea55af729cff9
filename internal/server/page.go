package server

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"

	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/view"
	"github.com/alfredjeanlab/qna/internal/widget"
)

// pageTmpl is the shell around the server-rendered board. The script swaps
// each streamed list fragment in whole, holding it back while the admin is
// typing in the list so a draft is not lost mid-edit. Both forms post with
// fetch; the answer editor keeps its drafts and save status per question ID
// across swaps, and a finished status clears after a delay unless a newer
// save of the same question has started.
var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
{{.Board}}
<script>
(function () {
  var labels = {{.Labels}};
  var clearAfter = {{.ClearAfterMs}};
  var root = document.querySelector("[data-qna-root]");
  var banner = root.querySelector("[data-qna-banner]");
  var pending = null;
  var drafts = {};
  var saves = {};

  function has(obj, key) { return Object.prototype.hasOwnProperty.call(obj, key); }

  function paintEditors() {
    var live = {};
    root.querySelectorAll("[data-answer-input]").forEach(function (input) {
      var id = input.getAttribute("data-answer-input");
      live[id] = true;
      if (has(drafts, id)) input.value = drafts[id];
    });
    root.querySelectorAll("[data-save-answer]").forEach(function (btn) {
      var id = btn.getAttribute("data-save-answer");
      btn.disabled = has(saves, id) && saves[id].state === "saving";
    });
    root.querySelectorAll("[data-save-status]").forEach(function (el) {
      var id = el.getAttribute("data-save-status");
      var state = has(saves, id) ? saves[id].state : "idle";
      el.setAttribute("data-state", state);
      el.textContent = has(labels, state) ? labels[state] : "";
    });
    Object.keys(drafts).forEach(function (id) { if (!live[id]) delete drafts[id]; });
    Object.keys(saves).forEach(function (id) { if (!live[id]) delete saves[id]; });
  }

  function swap(fragment) {
    var list = root.querySelector("[data-qna-list]");
    if (list.contains(document.activeElement)) {
      pending = fragment;
      return;
    }
    pending = null;
    list.outerHTML = fragment;
    paintEditors();
  }
  root.addEventListener("focusout", function () {
    setTimeout(function () {
      if (pending !== null) swap(pending);
    }, 0);
  });

  function send(method, url, body) {
    return fetch(url, {
      method: method,
      credentials: "same-origin",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify(body)
    }).then(function (res) {
      if (!res.ok) throw new Error("HTTP " + res.status);
      return res;
    });
  }

  var form = root.querySelector("[data-qna-form]");
  var formStatus = form.querySelector("[data-submit-status]");
  var formGen = 0;
  form.addEventListener("submit", function (e) {
    e.preventDefault();
    var input = form.elements.text;
    var raw = input.value;
    var text = raw.trim();
    if (text === "") return;
    send("POST", "/v1/questions", { text: text }).then(function () {
      if (input.value === raw) input.value = "";
    }, function () {
      var gen = ++formGen;
      formStatus.textContent = labels.submitFailed;
      setTimeout(function () {
        if (formGen === gen) formStatus.textContent = "";
      }, clearAfter);
    });
  });

  root.addEventListener("input", function (e) {
    var id = e.target.getAttribute && e.target.getAttribute("data-answer-input");
    if (id !== null && id !== undefined) drafts[id] = e.target.value;
  });

  root.addEventListener("submit", function (e) {
    var btn = e.target.querySelector("[data-save-answer]");
    if (!btn) return;
    e.preventDefault();
    var id = btn.getAttribute("data-save-answer");
    var save = has(saves, id) ? saves[id] : (saves[id] = { state: "idle", gen: 0 });
    if (save.state === "saving") return;
    var raw = e.target.querySelector("[data-answer-input]").value;
    var gen = ++save.gen;
    save.state = "saving";
    paintEditors();
    send("PUT", "/v1/questions/" + encodeURIComponent(id) + "/answer", { answer: raw }).then(function () {
      return "saved";
    }, function () {
      return "failed";
    }).then(function (state) {
      if (!has(saves, id) || saves[id].gen !== gen) return;
      saves[id].state = state;
      if (state === "saved" && has(drafts, id) && drafts[id].trim() === raw.trim()) delete drafts[id];
      paintEditors();
      setTimeout(function () {
        if (has(saves, id) && saves[id].gen === gen && saves[id].state === state) {
          saves[id].state = "idle";
          paintEditors();
        }
      }, clearAfter);
    });
  });

  var es = new EventSource({{.StreamURL}});
  es.addEventListener("snapshot", function (e) { swap(e.data); });
  es.onopen = function () {
    banner.hidden = true;
    banner.textContent = "";
  };
  es.onerror = function () {
    banner.textContent = {{.Disconnected}};
    banner.hidden = false;
  };
})();
</script>
</body>
</html>
`))

type pageData struct {
	Lang         string
	Title        string
	Board        template.HTML
	StreamURL    string
	Disconnected string
	// Labels maps save states, plus "submitFailed", to display strings.
	Labels       map[string]string
	ClearAfterMs int64
}

// scriptLabels keys the status strings the page script shows by the
// data-state values the view emits.
func scriptLabels(l i18n.Labels) map[string]string {
	return map[string]string{
		view.SaveSaving.String(): l.Saving,
		view.SaveSaved.String():  l.Saved,
		view.SaveFailed.String(): l.SaveFailed,
		"submitFailed":           l.SubmitFailed,
	}
}

// handlePage handles GET /: the board rendered for the caller. A viewer
// without a valid token gets a fresh anonymous identity in a cookie. If the
// identity provider fails, the board still renders as for a non-admin.
func (s *QnAServer) handlePage(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id == nil {
		issued, token, err := s.issuer.SignInAnonymously(r.Context())
		if err != nil {
			s.logger.Warn("anonymous sign-in failed, rendering as viewer",
				"error", &model.IdentityError{Op: "sign-in", Err: err})
		} else {
			id = issued
			http.SetCookie(w, s.tokenCookie(r, token))
		}
	}

	lang := s.requestLang(r)
	labels := i18n.For(lang)
	tree := view.Render(s.snapshot().Questions, s.session(id), labels, nil)

	var board bytes.Buffer
	if err := view.WriteHTML(&board, tree); err != nil {
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	stream := url.Values{"format": {"html"}, "lang": {string(lang)}}
	data := pageData{
		Lang:         string(lang),
		Title:        labels.Title,
		Board:        template.HTML(board.String()),
		StreamURL:    "/v1/questions/stream?" + stream.Encode(),
		Disconnected: labels.Disconnected,
		Labels:       scriptLabels(labels),
		ClearAfterMs: widget.DefaultStatusClearDelay.Milliseconds(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Warn("page render failed", "error", err)
	}
}

func (s *QnAServer) tokenCookie(r *http.Request, token string) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.issuer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}
