// Package compose holds the post composition and edit forms.
//
// A Draft carries the fields shared by every post type plus exactly one
// Content variant. Switching type swaps the variant, so type specific
// fields never leak from one type into another.
package compose

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

// QuoteSeparator joins quote text and author in the stored content.
const QuoteSeparator = "\n— "

// MaxLicenseLen bounds the license field, in characters.
const MaxLicenseLen = 255

// Content is the type specific part of a draft. The set of variants is
// closed: Text, Photo, Video, Audio, Quote and Link.
type Content interface {
	Type() models.PostType
	isContent()
}

type Text struct {
	Body string
}

// Media is shared by the photo, video and audio variants.
type Media struct {
	Caption string
	Files   []File
}

type Photo struct{ Media }
type Video struct{ Media }
type Audio struct{ Media }

type Quote struct {
	Text   string
	Author string
}

type Link struct {
	URL         string
	Description string
}

func (Text) Type() models.PostType  { return models.TypeText }
func (Photo) Type() models.PostType { return models.TypePhoto }
func (Video) Type() models.PostType { return models.TypeVideo }
func (Audio) Type() models.PostType { return models.TypeAudio }
func (Quote) Type() models.PostType { return models.TypeQuote }
func (Link) Type() models.PostType  { return models.TypeLink }

func (Text) isContent()  {}
func (Photo) isContent() {}
func (Video) isContent() {}
func (Audio) isContent() {}
func (Quote) isContent() {}
func (Link) isContent()  {}

// NewContent returns the empty variant for t. Unknown types get Text.
func NewContent(t models.PostType) Content {
	switch t {
	case models.TypePhoto:
		return Photo{}
	case models.TypeVideo:
		return Video{}
	case models.TypeAudio:
		return Audio{}
	case models.TypeQuote:
		return Quote{}
	case models.TypeLink:
		return Link{}
	default:
		return Text{}
	}
}

// File is one local file queued for upload.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileFromPath opens path lazily at upload time.
func FileFromPath(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FileFromBytes serves b from memory.
func FileFromBytes(name string, b []byte) File {
	return File{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(b)), nil },
	}
}

// Draft is the in-progress state of a post form.
type Draft struct {
	Title         string
	Content       Content
	Tags          string // raw, comma separated
	CategoryID    int64
	Attribution   string
	License       string
	CaptchaAnswer string
}

// NewDraft returns an empty draft of type t.
func NewDraft(t models.PostType) Draft {
	return Draft{Content: NewContent(t)}
}

// Type returns the draft's post type.
func (d Draft) Type() models.PostType {
	if d.Content == nil {
		return models.TypeText
	}
	return d.Content.Type()
}

// SetType switches the draft to t, clearing the type specific fields and
// keeping the common ones. Selecting the current type is a no-op.
func (d *Draft) SetType(t models.PostType) {
	if d.Content != nil && d.Content.Type() == t {
		return
	}
	d.Content = NewContent(t)
}

// Files returns the queued files of a media draft.
func (d Draft) Files() []File {
	switch c := d.Content.(type) {
	case Photo:
		return c.Files
	case Video:
		return c.Files
	case Audio:
		return c.Files
	default:
		return nil
	}
}

// ParseTags splits a comma separated list, trimming blanks and dropping
// empty entries.
func ParseTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinQuote encodes a quote and optional author into one content string.
func JoinQuote(text, author string) string {
	text, author = strings.TrimSpace(text), strings.TrimSpace(author)
	if author == "" {
		return text
	}
	return text + QuoteSeparator + author
}

// SplitQuote reverses JoinQuote. The last separator wins so quote text may
// itself contain the separator.
func SplitQuote(content string) (text, author string) {
	i := strings.LastIndex(content, QuoteSeparator)
	if i < 0 {
		return content, ""
	}
	return content[:i], content[i+len(QuoteSeparator):]
}
