// Package content validates the static site's book collections: markdown
// chapters under koBook/ and enBook/ whose TOML front matter carries the
// chapter's title and position.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Collection names, which are also the directory names under the content root.
const (
	KoBook = "koBook"
	EnBook = "enBook"
)

// Collections lists every book collection.
var Collections = []string{KoBook, EnBook}

const fence = "+++"

// ErrNoFrontMatter is returned for a file that does not open with a +++ fence.
var ErrNoFrontMatter = errors.New("missing +++ front matter")

// Book is the front matter of one chapter.
type Book struct {
	Title       string     `toml:"title"`
	Order       float64    `toml:"order"`
	Description string     `toml:"description,omitempty"`
	Date        *time.Time `toml:"date,omitempty"`
	Updated     *time.Time `toml:"updated,omitempty"`
	Draft       bool       `toml:"draft,omitempty"`
}

// Parsed is the result of reading one chapter file.
type Parsed struct {
	Book Book
	Body []byte
	// Missing lists required keys absent from the front matter.
	Missing []string
	// Unknown lists keys that are not part of the schema. They are ignored.
	Unknown []string
}

// Parse splits src into front matter and body and decodes the front matter.
func Parse(src []byte) (*Parsed, error) {
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))

	first, rest, _ := bytes.Cut(src, []byte("\n"))
	if strings.TrimSpace(string(first)) != fence {
		return nil, ErrNoFrontMatter
	}

	var meta, body []byte
	found := false
	for {
		line, next, more := bytes.Cut(rest, []byte("\n"))
		if strings.TrimSpace(string(line)) == fence {
			body = next
			found = true
			break
		}
		meta = append(meta, line...)
		meta = append(meta, '\n')
		if !more {
			break
		}
		rest = next
	}
	if !found {
		return nil, fmt.Errorf("unterminated %s front matter", fence)
	}

	p := &Parsed{Body: body}
	md, err := toml.Decode(string(meta), &p.Book)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	for _, key := range []string{"title", "order"} {
		if !md.IsDefined(key) {
			p.Missing = append(p.Missing, key)
		}
	}
	for _, key := range md.Undecoded() {
		p.Unknown = append(p.Unknown, key.String())
	}
	return p, nil
}

// Render writes b as a front matter block followed by body.
func Render(b Book, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	if err := toml.NewEncoder(&buf).Encode(b); err != nil {
		return nil, err
	}
	buf.WriteString(fence + "\n")
	buf.Write(body)
	return buf.Bytes(), nil
}
