package compose

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

var testCategories = []models.Category{
	{ID: 1, Name: "General", Slug: "general"},
	{ID: 2, Name: "Uncategorized", Slug: "uncategorized"},
}

func newTestForm(t *testing.T, svc *api.MockService, captcha bool) *Form {
	t.Helper()
	if svc.ListCategoriesFn == nil {
		svc.ListCategoriesFn = func(ctx context.Context) ([]models.Category, error) { return testCategories, nil }
	}
	f := NewForm(svc, Options{Captcha: captcha, RedirectDelay: 1500 * time.Millisecond, UploadConcurrency: 2})
	require.NoError(t, f.Init(context.Background()))
	return f
}

// --- Draft helpers ---

func TestSetType_ClearsTypeSpecificFields(t *testing.T) {
	d := NewDraft(models.TypeLink)
	d.Title = "kept"
	d.Tags = "a"
	d.Content = Link{URL: "https://go.dev", Description: "desc"}

	d.SetType(models.TypeQuote)
	assert.Equal(t, models.TypeQuote, d.Type())
	assert.Equal(t, Quote{}, d.Content)
	assert.Equal(t, "kept", d.Title)
	assert.Equal(t, "a", d.Tags)

	d.Content = Quote{Text: "x"}
	d.SetType(models.TypeQuote)
	assert.Equal(t, Quote{Text: "x"}, d.Content, "same type keeps fields")
}

func TestQuoteRoundTrip(t *testing.T) {
	joined := JoinQuote("Carpe diem", "Horace")
	assert.Equal(t, "Carpe diem\n— Horace", joined)

	text, author := SplitQuote(joined)
	assert.Equal(t, "Carpe diem", text)
	assert.Equal(t, "Horace", author)

	assert.Equal(t, "alone", JoinQuote("alone", "  "))
	text, author = SplitQuote("alone")
	assert.Equal(t, "alone", text)
	assert.Empty(t, author)
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseTags("a, b"))
	assert.Equal(t, []string{"go", "web dev"}, ParseTags(" go ,, web dev ,"))
	assert.Nil(t, ParseTags("  "))
}

// --- Validation ---

func TestValidate_RequiredFieldsPerType(t *testing.T) {
	for _, pt := range models.PostTypes {
		d := NewDraft(pt)
		d.CategoryID = 1
		err := Validate(d, false)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "type %s", pt)

		switch pt {
		case models.TypeQuote:
			assert.False(t, verr.Has("title"), "quote needs no title")
			assert.True(t, verr.Has("quote"))
		case models.TypeLink:
			assert.True(t, verr.Has("title"))
			assert.True(t, verr.Has("url"))
		default:
			assert.True(t, verr.Has("title"), "type %s", pt)
			assert.Len(t, verr.Fields, 1)
		}
	}
}

func TestValidate_AcceptsCompleteDrafts(t *testing.T) {
	drafts := []Draft{
		{Title: "t", CategoryID: 1, Content: Text{Body: "b"}},
		{Title: "t", CategoryID: 1, Content: Photo{}},
		{CategoryID: 1, Content: Quote{Text: "q"}},
		{Title: "t", CategoryID: 1, Content: Link{URL: "https://go.dev"}},
	}
	for _, d := range drafts {
		assert.NoError(t, Validate(d, false), "type %s", d.Type())
	}
}

func TestValidate_CommonRules(t *testing.T) {
	d := Draft{Title: "t", Content: Link{URL: "not a url"}, License: strings.Repeat("é", 256)}
	var verr *ValidationError
	require.True(t, errors.As(Validate(d, true), &verr))
	assert.True(t, verr.Has("category"))
	assert.True(t, verr.Has("license"))
	assert.True(t, verr.Has("captcha"))
	assert.True(t, verr.Has("url"))

	d = Draft{Title: "t", CategoryID: 1, Content: Text{}, License: strings.Repeat("é", 255), CaptchaAnswer: "4"}
	assert.NoError(t, Validate(d, true))
}

// --- Payload ---

func TestBuildPayload_PerType(t *testing.T) {
	p, err := BuildPayload(Draft{Title: " Hello ", Tags: "a, b", CategoryID: 2, Content: Text{Body: "World"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, api.PostPayload{Type: models.TypeText, Title: "Hello", Content: "World", Tags: "a, b", CategoryID: 2}, p)

	p, err = BuildPayload(Draft{Content: Quote{Text: "Carpe diem", Author: "Horace"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Carpe diem\n— Horace", p.Content)
	assert.Empty(t, p.LinkURL)

	p, err = BuildPayload(Draft{Title: "L", Content: Link{URL: "https://go.dev", Description: "site"}}, []string{"/ignored"})
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev", p.LinkURL)
	assert.Equal(t, "site", p.Content)
	assert.Nil(t, p.MediaURLs)

	p, err = BuildPayload(Draft{Title: "P", Content: Photo{Media{Caption: "cap"}}}, []string{"/u/1.png", "/u/2.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/u/1.png", "/u/2.png"}, p.MediaURLs)
	assert.Equal(t, "/u/1.png", p.ImageURL)
	assert.Equal(t, "cap", p.Content)

	_, err = BuildPayload(Draft{}, nil)
	assert.Error(t, err)
}

// --- Submission protocol ---

func TestForm_InitPreselectsDefaultCategoryAndCaptcha(t *testing.T) {
	f := newTestForm(t, &api.MockService{}, true)
	assert.Equal(t, int64(2), f.Draft().CategoryID)
	require.NotNil(t, f.Challenge())
	assert.Equal(t, "captcha", f.Challenge().Token)
}

func TestForm_ValidationFailureSendsNothing(t *testing.T) {
	svc := &api.MockService{}
	f := newTestForm(t, svc, true)
	before := len(svc.Calls())

	_, err := f.Submit(context.Background())
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, svc.Calls(), before)
	assert.Contains(t, f.Err(), "Title is required.")
}

func TestForm_CaptchaPrecedesCreate(t *testing.T) {
	svc := &api.MockService{
		VerifyCaptchaFn: func(ctx context.Context, token, answer string) error {
			assert.Equal(t, "captcha", token)
			assert.Equal(t, "2", answer)
			return nil
		},
	}
	f := newTestForm(t, svc, true)
	d := f.Draft()
	d.Title = "Hello"
	d.Content = Text{Body: "World"}
	d.CaptchaAnswer = "2"
	require.NoError(t, f.SetDraft(d))

	res, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NextHome, res.Next)
	assert.Equal(t, 1500*time.Millisecond, res.After)
	assert.Equal(t, "Post created successfully!", f.Success())

	assert.Equal(t,
		[]string{"ListCategories", "NewCaptcha", "VerifyCaptcha", "CreatePost", "NewCaptcha"},
		svc.Calls())

	cleared := f.Draft()
	assert.Empty(t, cleared.Title)
	assert.Equal(t, Text{}, cleared.Content)
	assert.Empty(t, cleared.CaptchaAnswer)
	assert.Equal(t, int64(2), cleared.CategoryID)
}

func TestForm_FailedCaptchaSuppressesCreate(t *testing.T) {
	var issued int32
	svc := &api.MockService{
		NewCaptchaFn: func(ctx context.Context) (*models.CaptchaChallenge, error) {
			n := atomic.AddInt32(&issued, 1)
			return &models.CaptchaChallenge{Token: "c" + string(rune('0'+n)), Question: "?"}, nil
		},
		VerifyCaptchaFn: func(ctx context.Context, token, answer string) error {
			return &api.Error{Status: 400, Message: "Invalid captcha"}
		},
	}
	f := newTestForm(t, svc, true)
	d := f.Draft()
	d.Title = "t"
	d.CaptchaAnswer = "99"
	require.NoError(t, f.SetDraft(d))

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrCaptchaFailed)
	assert.Contains(t, err.Error(), "Invalid captcha")
	assert.Zero(t, svc.Count("CreatePost"))
	assert.Zero(t, svc.Count("Upload"))
	assert.Equal(t, "c2", f.Challenge().Token, "a new challenge replaces the failed one")
	assert.Empty(t, f.Draft().CaptchaAnswer)
	assert.Equal(t, "t", f.Draft().Title, "other fields survive a failed captcha")
}

func TestForm_UploadsInParallelThenCreates(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
	)
	svc := &api.MockService{
		UploadFn: func(ctx context.Context, name string, r io.Reader) (string, error) {
			mu.Lock()
			inFlight++
			if inFlight > maxSeen {
				maxSeen = inFlight
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			b, _ := io.ReadAll(r)
			return "/uploads/" + name + "-" + string(b), nil
		},
	}
	var got api.PostPayload
	svc.CreatePostFn = func(ctx context.Context, p api.PostPayload) (*api.Created, error) {
		got = p
		return &api.Created{PostID: 9}, nil
	}
	f := newTestForm(t, svc, false)
	d := f.Draft()
	d.Title = "Gallery"
	d.Content = Photo{Media{Files: []File{
		FileFromBytes("a.png", []byte("1")),
		FileFromBytes("b.png", []byte("2")),
		FileFromBytes("c.png", []byte("3")),
	}}}
	require.NoError(t, f.SetDraft(d))

	res, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.PostID)
	assert.Equal(t, []string{"/uploads/a.png-1", "/uploads/b.png-2", "/uploads/c.png-3"}, got.MediaURLs)
	assert.Equal(t, 2, maxSeen, "uploads run in parallel up to the limit")

	calls := svc.Calls()
	assert.Equal(t, "CreatePost", calls[len(calls)-1])
}

func TestForm_UploadFailureNamesFileAndAborts(t *testing.T) {
	svc := &api.MockService{
		UploadFn: func(ctx context.Context, name string, r io.Reader) (string, error) {
			if name == "bad.mp3" {
				return "", &api.Error{Status: 413, Message: "File too large"}
			}
			return "/uploads/" + name, nil
		},
	}
	f := newTestForm(t, svc, false)
	d := f.Draft()
	d.Title = "Songs"
	d.Content = Audio{Media{Files: []File{FileFromBytes("ok.mp3", nil), FileFromBytes("bad.mp3", nil)}}}
	require.NoError(t, f.SetDraft(d))

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.mp3")
	assert.Zero(t, svc.Count("CreatePost"))
}

func TestForm_UnauthorizedCreate(t *testing.T) {
	svc := &api.MockService{
		CreatePostFn: func(ctx context.Context, p api.PostPayload) (*api.Created, error) {
			return nil, api.ErrUnauthorized
		},
	}
	f := newTestForm(t, svc, false)
	d := f.Draft()
	d.Title = "t"
	require.NoError(t, f.SetDraft(d))

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, api.MsgSessionExpired, f.Err())
	assert.Equal(t, "t", f.Draft().Title, "failed submission keeps the draft")
}

func TestForm_SubmitWhileBusy(t *testing.T) {
	release := make(chan struct{})
	svc := &api.MockService{
		CreatePostFn: func(ctx context.Context, p api.PostPayload) (*api.Created, error) {
			<-release
			return &api.Created{PostID: 1}, nil
		},
	}
	f := newTestForm(t, svc, false)
	d := f.Draft()
	d.Title = "t"
	require.NoError(t, f.SetDraft(d))

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, f.Submitting, time.Second, time.Millisecond)

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, f.SetDraft(Draft{}), ErrBusy)

	close(release)
	assert.NoError(t, <-done)
}

func TestForm_InsertEmbed(t *testing.T) {
	f := NewForm(&api.MockService{}, Options{})
	require.NoError(t, f.SetDraft(Draft{Content: Text{Body: "intro"}}))
	assert.True(t, f.InsertEmbed("<iframe></iframe>"))
	assert.Equal(t, Text{Body: "intro\n\n<iframe></iframe>"}, f.Draft().Content)

	f.SetType(models.TypeQuote)
	assert.False(t, f.InsertEmbed("<iframe></iframe>"))
}

// --- Editor ---

func TestEditor_LoadsQuoteAndSplitsIt(t *testing.T) {
	svc := &api.MockService{
		GetPostFn: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{
				ID: id, Type: models.TypeQuote, Content: "Carpe diem\n— Horace",
				Tags: []string{"latin", "life"}, Category: &models.Category{ID: 2},
			}, nil
		},
		ListCategoriesFn: func(ctx context.Context) ([]models.Category, error) { return testCategories, nil },
	}
	e := NewEditor(svc, 5, Options{RedirectDelay: time.Second})
	require.NoError(t, e.Load(context.Background()))

	d := e.Draft()
	assert.Equal(t, Quote{Text: "Carpe diem", Author: "Horace"}, d.Content)
	assert.Equal(t, "latin, life", d.Tags)
	assert.Equal(t, int64(2), d.CategoryID)
	assert.Len(t, e.Categories(), 2)
}

func TestEditor_TypeIsImmutable(t *testing.T) {
	e := NewEditor(&api.MockService{}, 1, Options{})
	assert.ErrorIs(t, e.SetDraft(Draft{Content: Text{}}), ErrNotLoaded)
	require.NoError(t, e.Load(context.Background()))

	err := e.SetDraft(Draft{Title: "t", Content: Link{URL: "https://x.y"}})
	assert.ErrorIs(t, err, ErrTypeImmutable)
}

func TestEditor_SubmitSendsUpdateWithoutMedia(t *testing.T) {
	var got api.PostPayload
	svc := &api.MockService{
		GetPostFn: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{ID: id, Type: models.TypePhoto, Title: "old", MediaURLs: []string{"/u/a.png"}, Category: &models.Category{ID: 1}}, nil
		},
		UpdatePostFn: func(ctx context.Context, id int64, p api.PostPayload) error {
			assert.Equal(t, int64(3), id)
			got = p
			return nil
		},
	}
	e := NewEditor(svc, 3, Options{RedirectDelay: time.Second})
	require.NoError(t, e.Load(context.Background()))
	d := e.Draft()
	d.Title = "new"
	require.NoError(t, e.SetDraft(d))

	res, err := e.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NextPost, res.Next)
	assert.Equal(t, int64(3), res.PostID)
	assert.Equal(t, "new", got.Title)
	assert.Nil(t, got.MediaURLs)
	assert.Empty(t, got.ImageURL)
	assert.Zero(t, svc.Count("VerifyCaptcha"))
}

func TestEditor_SurfacesServerMessage(t *testing.T) {
	svc := &api.MockService{
		GetPostFn: func(ctx context.Context, id int64) (*models.Post, error) {
			return &models.Post{ID: id, Type: models.TypeText, Title: "x", Category: &models.Category{ID: 1}}, nil
		},
		UpdatePostFn: func(ctx context.Context, id int64, p api.PostPayload) error {
			return &api.Error{Status: 403, Message: "Forbidden"}
		},
	}
	e := NewEditor(svc, 1, Options{})
	require.NoError(t, e.Load(context.Background()))

	_, err := e.Submit(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "Forbidden", e.Err())
}

func TestEditor_LoadFailure(t *testing.T) {
	svc := &api.MockService{
		GetPostFn: func(ctx context.Context, id int64) (*models.Post, error) {
			return nil, &api.Error{Status: 404, Message: "Post not found"}
		},
	}
	e := NewEditor(svc, 1, Options{})
	assert.Error(t, e.Load(context.Background()))
	assert.Equal(t, "Post not found", e.Err())
	assert.Nil(t, e.Post())
}
