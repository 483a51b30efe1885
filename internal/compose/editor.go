package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

var ErrNotLoaded = errors.New("post not loaded yet")

// Editor is the edit form of an existing post. Type and media are fixed by
// the loaded post.
type Editor struct {
	svc  api.Service
	id   int64
	opts Options

	mu         sync.Mutex
	post       *models.Post
	draft      Draft
	categories []models.Category
	submitting bool
	success    string
	errMsg     string
}

func NewEditor(svc api.Service, id int64, opts Options) *Editor {
	return &Editor{svc: svc, id: id, opts: opts}
}

// Load fetches the post and the category list concurrently and fills the
// form from the post.
func (e *Editor) Load(ctx context.Context) error {
	var (
		post *models.Post
		cats []models.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := e.svc.GetPost(gctx, e.id)
		if err != nil {
			return fmt.Errorf("load post: %w", err)
		}
		post = p
		return nil
	})
	g.Go(func() error {
		c, err := e.svc.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		cats = c
		return nil
	})
	if err := g.Wait(); err != nil {
		e.mu.Lock()
		e.errMsg = api.Message(err)
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.post = post
	e.categories = cats
	e.draft = DraftFromPost(*post)
	return nil
}

// DraftFromPost reverses the encoding BuildPayload applies.
func DraftFromPost(p models.Post) Draft {
	d := Draft{
		Title:       p.Title,
		Tags:        strings.Join(p.Tags, ", "),
		Attribution: p.Attribution,
		License:     p.License,
	}
	if p.Category != nil {
		d.CategoryID = p.Category.ID
	}
	switch p.Type {
	case models.TypePhoto:
		d.Content = Photo{Media{Caption: p.Content}}
	case models.TypeVideo:
		d.Content = Video{Media{Caption: p.Content}}
	case models.TypeAudio:
		d.Content = Audio{Media{Caption: p.Content}}
	case models.TypeQuote:
		text, author := SplitQuote(p.Content)
		d.Content = Quote{Text: text, Author: author}
	case models.TypeLink:
		d.Content = Link{URL: p.LinkURL, Description: p.Content}
	default:
		d.Content = Text{Body: p.Content}
	}
	return d
}

func (e *Editor) Post() *models.Post {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.post == nil {
		return nil
	}
	p := *e.post
	return &p
}

func (e *Editor) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

func (e *Editor) Categories() []models.Category {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Category(nil), e.categories...)
}

// SetDraft replaces the editable fields. The type must stay the loaded one
// and queued files are dropped since media cannot change.
func (e *Editor) SetDraft(d Draft) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.post == nil {
		return ErrNotLoaded
	}
	if e.submitting {
		return ErrBusy
	}
	if d.Type() != e.post.Type {
		return ErrTypeImmutable
	}
	e.draft = d
	return nil
}

func (e *Editor) Success() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.success
}

func (e *Editor) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errMsg
}

// Submit validates and sends the update. Media is never part of the
// request.
func (e *Editor) Submit(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.post == nil {
		e.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if e.submitting {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.submitting = true
	e.success, e.errMsg = "", ""
	d := e.draft
	e.mu.Unlock()

	res, err := e.submit(ctx, d)

	e.mu.Lock()
	e.submitting = false
	if err != nil {
		e.errMsg = bannerText(err)
	} else {
		e.success = res.Message
	}
	e.mu.Unlock()
	return res, err
}

func (e *Editor) submit(ctx context.Context, d Draft) (*Result, error) {
	if err := Validate(d, false); err != nil {
		return nil, err
	}
	payload, err := BuildPayload(d, nil)
	if err != nil {
		return nil, err
	}
	if err := e.svc.UpdatePost(ctx, e.id, payload); err != nil {
		logg.Error("compose", "Update post failed", err)
		return nil, err
	}
	logg.Info("compose", "Post updated")
	return &Result{
		PostID:  e.id,
		Next:    NextPost,
		After:   e.opts.RedirectDelay,
		Message: "Post updated successfully!",
	}, nil
}
