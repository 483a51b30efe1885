package compose

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/embed"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

var logg = logger.New()

var (
	// ErrBusy is returned while a submission is already running.
	ErrBusy = errors.New("a submission is already in progress")
	// ErrCaptchaFailed wraps a rejected or unverifiable CAPTCHA answer. A
	// fresh challenge has been fetched by the time it is returned.
	ErrCaptchaFailed = errors.New("captcha verification failed")
	// ErrTypeImmutable is returned when an edit tries to change the type.
	ErrTypeImmutable = errors.New("post type cannot be changed after creation")
)

// Pages a finished submission leads to.
const (
	NextHome = "home"
	NextPost = "post"
)

// Result tells the shell where to go after a successful submission. After
// is the pause that keeps the success message visible.
type Result struct {
	PostID  int64
	Next    string
	After   time.Duration
	Message string
}

type Options struct {
	Captcha           bool
	RedirectDelay     time.Duration
	UploadConcurrency int
}

// Form is the new-post form.
type Form struct {
	svc      api.Service
	uploader *Uploader
	opts     Options

	mu         sync.Mutex
	draft      Draft
	categories []models.Category
	challenge  *models.CaptchaChallenge
	submitting bool
	success    string
	errMsg     string
}

func NewForm(svc api.Service, opts Options) *Form {
	return &Form{
		svc:      svc,
		uploader: NewUploader(svc, opts.UploadConcurrency),
		opts:     opts,
		draft:    NewDraft(models.TypeText),
	}
}

// Init loads the categories, pre-selecting the default one, and the first
// challenge when CAPTCHA is enabled.
func (f *Form) Init(ctx context.Context) error {
	cats, err := f.svc.ListCategories(ctx)
	if err != nil {
		f.setError(err)
		return fmt.Errorf("load categories: %w", err)
	}
	f.mu.Lock()
	f.categories = cats
	if f.draft.CategoryID == 0 {
		f.draft.CategoryID = defaultCategory(cats)
	}
	f.mu.Unlock()

	if f.opts.Captcha {
		if err := f.refreshCaptcha(ctx); err != nil {
			f.setError(err)
			return fmt.Errorf("load captcha: %w", err)
		}
	}
	return nil
}

func defaultCategory(cats []models.Category) int64 {
	for _, c := range cats {
		if c.Slug == models.DefaultCategorySlug {
			return c.ID
		}
	}
	return 0
}

func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// SetDraft replaces the form state. It is refused during a submission.
func (f *Form) SetDraft(d Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return ErrBusy
	}
	f.draft = d
	return nil
}

// SetType switches the post type, clearing the type specific fields.
func (f *Form) SetType(t models.PostType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.SetType(t)
}

// InsertEmbed appends html to the draft body, separated by a blank line.
// Types without a free text body ignore it and report false.
func (f *Form) InsertEmbed(html string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch c := f.draft.Content.(type) {
	case Text:
		c.Body = embed.Splice(c.Body, html)
		f.draft.Content = c
	case Photo:
		c.Caption = embed.Splice(c.Caption, html)
		f.draft.Content = c
	case Video:
		c.Caption = embed.Splice(c.Caption, html)
		f.draft.Content = c
	case Audio:
		c.Caption = embed.Splice(c.Caption, html)
		f.draft.Content = c
	case Link:
		c.Description = embed.Splice(c.Description, html)
		f.draft.Content = c
	default:
		return false
	}
	return true
}

func (f *Form) Categories() []models.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Category(nil), f.categories...)
}

// Challenge returns the current CAPTCHA, nil when none is in effect.
func (f *Form) Challenge() *models.CaptchaChallenge {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challenge == nil {
		return nil
	}
	c := *f.challenge
	return &c
}

func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Success and Err are the banners of the last submission.
func (f *Form) Success() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.success
}

func (f *Form) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

func (f *Form) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errMsg = bannerText(err)
}

func bannerText(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return api.Message(err)
}

func (f *Form) refreshCaptcha(ctx context.Context) error {
	ch, err := f.svc.NewCaptcha(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.CaptchaAnswer = ""
	if err != nil {
		f.challenge = nil
		return err
	}
	f.challenge = ch
	return nil
}

// Submit runs the submission protocol: validate, verify the CAPTCHA,
// upload media in parallel, then create the post. Each step runs only
// after the previous one succeeded.
func (f *Form) Submit(ctx context.Context) (*Result, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.submitting = true
	f.success, f.errMsg = "", ""
	d := f.draft
	challenge := f.challenge
	f.mu.Unlock()

	res, err := f.submit(ctx, d, challenge)

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		f.errMsg = bannerText(err)
	} else {
		f.success = res.Message
	}
	f.mu.Unlock()
	return res, err
}

func (f *Form) submit(ctx context.Context, d Draft, challenge *models.CaptchaChallenge) (*Result, error) {
	if err := Validate(d, f.opts.Captcha); err != nil {
		return nil, err
	}

	if f.opts.Captcha {
		if err := f.verify(ctx, d, challenge); err != nil {
			return nil, err
		}
	}

	var urls []string
	if files := d.Files(); len(files) > 0 {
		var err error
		if urls, err = f.uploader.UploadAll(ctx, files); err != nil {
			return nil, err
		}
	}

	payload, err := BuildPayload(d, urls)
	if err != nil {
		return nil, err
	}
	created, err := f.svc.CreatePost(ctx, payload)
	if err != nil {
		logg.Error("compose", "Create post failed", err)
		return nil, err
	}
	logg.Info("compose", "Post created with type "+string(payload.Type))

	f.mu.Lock()
	next := NewDraft(d.Type())
	next.CategoryID = defaultCategory(f.categories)
	f.draft = next
	f.mu.Unlock()

	if f.opts.Captcha {
		// the used challenge is spent either way
		if err := f.refreshCaptcha(ctx); err != nil {
			logg.Error("compose", "Could not fetch a new captcha", err)
		}
	}

	return &Result{
		PostID:  created.PostID,
		Next:    NextHome,
		After:   f.opts.RedirectDelay,
		Message: "Post created successfully!",
	}, nil
}

func (f *Form) verify(ctx context.Context, d Draft, challenge *models.CaptchaChallenge) error {
	if challenge == nil {
		if err := f.refreshCaptcha(ctx); err != nil {
			return fmt.Errorf("%w: %s", ErrCaptchaFailed, api.Message(err))
		}
		return fmt.Errorf("%w: please answer the new challenge", ErrCaptchaFailed)
	}
	err := f.svc.VerifyCaptcha(ctx, challenge.Token, d.CaptchaAnswer)
	if err == nil {
		return nil
	}
	logg.Info("compose", "Captcha rejected, issuing a new one")
	if rerr := f.refreshCaptcha(ctx); rerr != nil {
		logg.Error("compose", "Could not fetch a new captcha", rerr)
	}
	return fmt.Errorf("%w: %s", ErrCaptchaFailed, api.Message(err))
}
