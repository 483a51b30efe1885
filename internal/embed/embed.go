// Package embed resolves a pasted URL into embeddable markup through an
// oEmbed style service such as noembed.com.
package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
)

var logg = logger.New()

const DefaultEndpoint = "https://noembed.com/embed"

// Banner texts.
const (
	MsgEmptyURL    = "Please enter a URL."
	MsgFetch       = "Error fetching embed. Please try again later."
	MsgUnsupported = "Unsupported or invalid URL"
)

var (
	ErrEmptyURL = errors.New("empty embed url")
	// ErrFetch is returned when the service cannot be reached or answers
	// with something that is not an embed reply.
	ErrFetch = errors.New("fetch embed")
)

// UnsupportedError is the service's own refusal of a URL.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string { return e.Reason }

type Resolver struct {
	endpoint   string
	httpClient *http.Client
}

func NewResolver(endpoint string, timeout time.Duration) *Resolver {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Resolver{endpoint: endpoint, httpClient: &http.Client{Timeout: timeout}}
}

type reply struct {
	HTML  string `json:"html"`
	Error string `json:"error"`
}

// Resolve returns the embed HTML for target. There is no retry.
func (r *Resolver) Resolve(ctx context.Context, target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", ErrEmptyURL
	}

	u := r.endpoint + "?url=" + url.QueryEscape(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		logg.Error("embed", "Embed fetch failed", err)
		return "", fmt.Errorf("%w (%v)", ErrFetch, err)
	}
	defer resp.Body.Close()

	var rep reply
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		logg.Error("embed", "Embed reply not JSON", err)
		return "", fmt.Errorf("%w (%v)", ErrFetch, err)
	}
	if rep.HTML != "" {
		return rep.HTML, nil
	}
	reason := rep.Error
	if reason == "" {
		reason = MsgUnsupported
	}
	return "", &UnsupportedError{Reason: reason}
}

// Message renders an error of Resolve as banner text.
func Message(err error) string {
	var uerr *UnsupportedError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyURL):
		return MsgEmptyURL
	case errors.As(err, &uerr):
		return uerr.Reason
	case errors.Is(err, ErrFetch):
		return MsgFetch
	default:
		return err.Error()
	}
}

// Splice appends html to content separated by one blank line.
func Splice(content, html string) string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return html
	}
	return content + "\n\n" + html
}
