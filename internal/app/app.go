// Package app is the terminal shell. It holds the session and the current
// page and renders exactly one page at a time; every page fetches what it
// needs and reports its own failures as an inline banner.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/embed"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/session"
)

var logg = logger.New()

const (
	PageHome     = "home"
	PageTag      = "tag"
	PageCategory = "category"
	PagePost     = "post"
	PageCreate   = "create"
	PageEdit     = "edit"
	PageLogin    = "login"
	PageRegister = "register"
)

// Page is a route plus its parameters.
type Page struct {
	Name   string
	PostID int64
	Tag    string
	Slug   string
	Query  string
	// Pages is how many feed pages to show; the terminal has no scroll
	// position so each extra page stands for reaching the last item.
	Pages int
	// Expanded shows full bodies instead of the read-more cut.
	Expanded bool
	HTML     bool
}

func (p Page) String() string {
	switch p.Name {
	case PagePost, PageEdit:
		return p.Name + "/" + strconv.FormatInt(p.PostID, 10)
	case PageTag:
		return p.Name + "/" + p.Tag
	case PageCategory:
		return p.Name + "/" + p.Slug
	}
	return p.Name
}

type Options struct {
	SearchDebounce    time.Duration
	RedirectDelay     time.Duration
	UploadConcurrency int
	Captcha           bool
}

type Shell struct {
	Session *session.Context
	API     api.Service
	Embed   *embed.Resolver
	Out     io.Writer
	In      *bufio.Reader
	Opts    Options

	current Page
	// sleep waits out the redirect delay; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(sess *session.Context, svc api.Service, res *embed.Resolver, out io.Writer, in io.Reader, opts Options) *Shell {
	return &Shell{
		Session: sess,
		API:     svc,
		Embed:   res,
		Out:     out,
		In:      bufio.NewReader(in),
		Opts:    opts,
		current: Page{Name: PageHome},
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Current returns the page last navigated to.
func (s *Shell) Current() Page {
	return s.current
}

// Navigate makes p the current page and renders it.
func (s *Shell) Navigate(ctx context.Context, p Page) error {
	s.current = p
	logg.Debug("app", "Navigate to "+p.String())
	switch p.Name {
	case PageHome, "":
		return s.renderHome(ctx, p)
	case PageTag:
		return s.renderTag(ctx, p)
	case PageCategory:
		return s.renderCategory(ctx, p)
	case PagePost:
		return s.renderPost(ctx, p)
	default:
		return fmt.Errorf("page %q is reached through its command", p.Name)
	}
}

// NavigateAfter keeps the current output visible for d, then navigates.
func (s *Shell) NavigateAfter(ctx context.Context, d time.Duration, p Page) error {
	if err := s.sleep(ctx, d); err != nil {
		return err
	}
	return s.Navigate(ctx, p)
}

func (s *Shell) banner(err error) {
	fmt.Fprintf(s.Out, "Error: %s\n", api.Message(err))
}

func (s *Shell) bannerText(msg string) {
	fmt.Fprintf(s.Out, "Error: %s\n", msg)
}

func (s *Shell) success(msg string) {
	fmt.Fprintln(s.Out, msg)
}

// prompt writes q and reads one line of input.
func (s *Shell) prompt(q string) (string, error) {
	fmt.Fprint(s.Out, q)
	line, err := s.In.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question; anything but yes is a no.
func (s *Shell) confirm(q string) bool {
	ans, err := s.prompt(q + " [y/N] ")
	if err != nil {
		return false
	}
	ans = strings.ToLower(ans)
	return ans == "y" || ans == "yes"
}

func (s *Shell) viewer() (int64, bool) {
	if s.Session == nil {
		return 0, false
	}
	id, ok := s.Session.UserID()
	return id, ok && s.Session.LoggedIn()
}

func (s *Shell) token() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.Token()
}
