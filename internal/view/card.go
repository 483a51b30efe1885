// Package view renders posts for the terminal and as HTML.
package view

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/compose"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

// ReadMoreLen is where collapsed text bodies are cut, in characters.
const ReadMoreLen = 300

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

var extKinds = map[string]MediaKind{
	".jpg": KindImage, ".jpeg": KindImage, ".png": KindImage, ".gif": KindImage, ".webp": KindImage, ".svg": KindImage,
	".mp4": KindVideo, ".webm": KindVideo, ".mov": KindVideo, ".ogv": KindVideo, ".mkv": KindVideo,
	".mp3": KindAudio, ".wav": KindAudio, ".ogg": KindAudio, ".m4a": KindAudio, ".flac": KindAudio, ".aac": KindAudio,
}

// KindOf guesses the media kind of u from its extension. Unknown
// extensions fall back to the post type.
func KindOf(u string, t models.PostType) MediaKind {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	}
	if k, ok := extKinds[strings.ToLower(path.Ext(p))]; ok {
		return k
	}
	switch t {
	case models.TypeVideo:
		return KindVideo
	case models.TypeAudio:
		return KindAudio
	}
	return KindImage
}

// ReadMore cuts s to n characters and reports whether it did.
func ReadMore(s string, n int) (string, bool) {
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]) + "...", true
}

// Domain returns the host of a link without a leading "www.".
func Domain(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

type CardOptions struct {
	// Expanded shows the whole body instead of the read-more cut.
	Expanded bool
	// Viewer is the decoded session subject; it only decides which
	// controls are offered.
	Viewer   int64
	LoggedIn bool
}

// Card writes one post to w, laid out according to its type.
func Card(w io.Writer, p models.Post, opts CardOptions) error {
	var b bytes.Buffer

	header := fmt.Sprintf("#%d [%s]", p.ID, p.Type)
	if p.Title != "" {
		header += " " + p.Title
	}
	fmt.Fprintln(&b, header)

	byline := "Posted"
	if p.Username != "" {
		byline += " by " + p.Username
	}
	if !p.CreatedAt.IsZero() {
		byline += " on " + p.CreatedAt.Format("Jan 2, 2006")
	}
	if p.Category != nil && p.Category.Name != "" {
		byline += " in " + p.Category.Name
	}
	fmt.Fprintln(&b, byline)

	switch p.Type {
	case models.TypeQuote:
		text, author := compose.SplitQuote(p.Content)
		fmt.Fprintf(&b, "  “%s”\n", text)
		if author != "" {
			fmt.Fprintf(&b, "      — %s\n", author)
		}
	case models.TypeLink:
		fmt.Fprintf(&b, "  -> %s (%s)\n", p.LinkURL, Domain(p.LinkURL))
		writeBody(&b, p.Content, opts.Expanded)
	case models.TypePhoto, models.TypeVideo, models.TypeAudio:
		for _, u := range p.Media() {
			fmt.Fprintf(&b, "  [%s] %s\n", KindOf(u, p.Type), u)
		}
		writeBody(&b, p.Content, opts.Expanded)
	default:
		writeBody(&b, p.Content, opts.Expanded)
	}

	if p.Attribution != "" || p.License != "" {
		var parts []string
		if p.Attribution != "" {
			parts = append(parts, "Source: "+p.Attribution)
		}
		if p.License != "" {
			parts = append(parts, "License: "+p.License)
		}
		fmt.Fprintln(&b, strings.Join(parts, " | "))
	}
	if len(p.Tags) > 0 {
		tags := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			tags[i] = "#" + t
		}
		fmt.Fprintln(&b, "Tags: "+strings.Join(tags, " "))
	}

	heart := "♡"
	if p.LikedByUser {
		heart = "♥"
	}
	fmt.Fprintf(&b, "%s %d  views %d", heart, p.LikeCount, p.ViewCount)
	if acts := Actions(p, opts.Viewer, opts.LoggedIn); len(acts) > 0 {
		fmt.Fprintf(&b, "  [%s]", strings.Join(acts, "] ["))
	}
	fmt.Fprintln(&b)

	_, err := w.Write(b.Bytes())
	return err
}

func writeBody(b *bytes.Buffer, body string, expanded bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	cut := false
	if !expanded {
		body, cut = ReadMore(body, ReadMoreLen)
	}
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintln(b, "  "+line)
	}
	if cut {
		fmt.Fprintln(b, "  (read more)")
	}
}

// Actions returns the controls the viewer is offered on p. Edit and delete
// exist only for the post's author; the server enforces this again.
func Actions(p models.Post, viewer int64, loggedIn bool) []string {
	if !loggedIn || viewer == 0 || p.UserID != viewer {
		return nil
	}
	return []string{"edit", "delete"}
}

// HTML renders the post body as HTML. Quote and link posts are rendered
// from their decoded parts.
func HTML(p models.Post) (string, error) {
	src := p.Content
	switch p.Type {
	case models.TypeQuote:
		text, author := compose.SplitQuote(p.Content)
		src = "> " + strings.ReplaceAll(text, "\n", "\n> ")
		if author != "" {
			src += "\n>\n> — " + author
		}
	case models.TypeLink:
		src = fmt.Sprintf("[%s](%s)\n\n%s", linkText(p), p.LinkURL, p.Content)
	}
	var out strings.Builder
	if err := md.Convert([]byte(src), &out); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out.String(), nil
}

func linkText(p models.Post) string {
	if p.Title != "" {
		return p.Title
	}
	return Domain(p.LinkURL)
}
