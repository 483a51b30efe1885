package compose

import (
	"fmt"
	"strings"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
)

// BuildPayload assembles the request body for d. mediaURLs are the uploaded
// files of a media draft and are ignored for other types.
func BuildPayload(d Draft, mediaURLs []string) (api.PostPayload, error) {
	p := api.PostPayload{
		Type:        d.Type(),
		Title:       strings.TrimSpace(d.Title),
		Tags:        strings.Join(ParseTags(d.Tags), ", "),
		CategoryID:  d.CategoryID,
		Attribution: strings.TrimSpace(d.Attribution),
		License:     strings.TrimSpace(d.License),
	}

	switch c := d.Content.(type) {
	case Text:
		p.Content = strings.TrimSpace(c.Body)
	case Photo:
		setMedia(&p, c.Media, mediaURLs)
	case Video:
		setMedia(&p, c.Media, mediaURLs)
	case Audio:
		setMedia(&p, c.Media, mediaURLs)
	case Quote:
		p.Content = JoinQuote(c.Text, c.Author)
	case Link:
		p.LinkURL = strings.TrimSpace(c.URL)
		p.Content = strings.TrimSpace(c.Description)
	default:
		return api.PostPayload{}, fmt.Errorf("unsupported post content %T", d.Content)
	}
	return p, nil
}

func setMedia(p *api.PostPayload, m Media, urls []string) {
	p.Content = strings.TrimSpace(m.Caption)
	if len(urls) > 0 {
		p.MediaURLs = urls
		// older servers read a single image_url
		p.ImageURL = urls[0]
	}
}
