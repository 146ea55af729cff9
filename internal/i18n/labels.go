// Package i18n holds the fixed display strings of the Q&A board for each
// supported UI language.
package i18n

// Lang is a UI language tag.
type Lang string

const (
	Korean  Lang = "ko"
	English Lang = "en"

	// Default is used for any missing or unrecognised tag.
	Default = Korean
)

// ParseLang maps a raw attribute value to a supported language. Only an
// exact "en" selects English; everything else falls back to Korean.
func ParseLang(raw string) Lang {
	if raw == string(English) {
		return English
	}
	return Default
}

// Labels is the complete set of strings the board displays.
type Labels struct {
	// Lang is the language these labels are written in.
	Lang                   Lang
	Title                  string
	Placeholder            string
	Submit                 string
	Latest                 string
	Answer                 string
	NoAnswer               string
	AdminAnswerHeading     string
	AdminAnswerPlaceholder string
	SaveAnswer             string
	Saving                 string
	Saved                  string
	SaveFailed             string
	SubmitFailed           string
	Disconnected           string
}

var table = map[Lang]Labels{
	Korean: {
		Lang:                   Korean,
		Title:                  "Q&A",
		Placeholder:            "질문을 적어주세요",
		Submit:                 "제출",
		Latest:                 "최신 질문",
		Answer:                 "답변",
		NoAnswer:               "아직 답변이 없습니다.",
		AdminAnswerHeading:     "답변 (관리자)",
		AdminAnswerPlaceholder: "답변을 입력하세요",
		SaveAnswer:             "답변 저장",
		Saving:                 "저장 중...",
		Saved:                  "저장됨",
		SaveFailed:             "저장 실패",
		SubmitFailed:           "제출 실패",
		Disconnected:           "연결이 끊겼습니다. 다시 연결하는 중...",
	},
	English: {
		Lang:                   English,
		Title:                  "Q&A",
		Placeholder:            "Ask a question",
		Submit:                 "Submit",
		Latest:                 "Latest",
		Answer:                 "Answer",
		NoAnswer:               "No answer yet.",
		AdminAnswerHeading:     "Answer (Admin)",
		AdminAnswerPlaceholder: "Write an answer",
		SaveAnswer:             "Save answer",
		Saving:                 "Saving...",
		Saved:                  "Saved",
		SaveFailed:             "Save failed",
		SubmitFailed:           "Submit failed",
		Disconnected:           "Disconnected. Reconnecting...",
	},
}

// For returns the labels for lang, falling back to the default language.
func For(lang Lang) Labels {
	if l, ok := table[lang]; ok {
		return l
	}
	return table[Default]
}
