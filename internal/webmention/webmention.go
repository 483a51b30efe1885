// Package webmention lists the webmentions a post received.
package webmention

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

type List struct {
	svc    api.Service
	postID int64

	mu       sync.Mutex
	mentions []models.Webmention
	loaded   bool
	errMsg   string
}

func New(svc api.Service, postID int64) *List {
	return &List{svc: svc, postID: postID}
}

// Load fetches the mentions. A server error reads
// "Failed to fetch webmentions: <status> <text>".
func (l *List) Load(ctx context.Context) error {
	list, err := l.svc.ListWebmentions(ctx, l.postID)
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.errMsg = describe(err)
		return err
	}
	l.mentions = list
	l.loaded = true
	l.errMsg = ""
	return nil
}

func describe(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Failed to fetch webmentions: %d %s", apiErr.Status, http.StatusText(apiErr.Status))
	}
	return api.Message(err)
}

func (l *List) Mentions() []models.Webmention {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Webmention(nil), l.mentions...)
}

// Empty reports a successful load that found nothing.
func (l *List) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded && len(l.mentions) == 0
}

func (l *List) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errMsg
}

// Author returns the display name of m, falling back to its source URL.
func Author(m models.Webmention) string {
	if m.AuthorName != "" {
		return m.AuthorName
	}
	return m.SourceURL
}
