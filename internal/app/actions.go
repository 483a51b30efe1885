package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/comments"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/compose"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/embed"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/like"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/view"
)

// Banner texts of the actions.
const (
	MsgLoginRequired  = "Please log in first."
	MsgNotAuthor      = "Only the author can change this post."
	MsgUnknownCat     = "Unknown category."
	MsgBadCredentials = "Invalid username or password."
	MsgTypeImmutable  = "The post type cannot be changed."
)

var (
	ErrLoginRequired  = errors.New("login required")
	ErrNotAuthor      = errors.New("not the author of this post")
	ErrUnknownCat     = errors.New("unknown category")
	ErrBadCredentials = errors.New("invalid username or password")
)

// CreateRequest is a new post as gathered from the command line.
type CreateRequest struct {
	Draft compose.Draft
	// Category is a slug or name; empty keeps the pre-selected default.
	Category string
	// CaptchaAnswer is asked for interactively when empty.
	CaptchaAnswer string
	// EmbedURL is resolved and spliced into the body before submission.
	EmbedURL string
}

// Create runs the new-post page and, on success, returns to the feed after
// the redirect delay.
func (s *Shell) Create(ctx context.Context, req CreateRequest) error {
	s.current = Page{Name: PageCreate}
	if !s.Session.LoggedIn() {
		s.bannerText(MsgLoginRequired)
		return ErrLoginRequired
	}

	form := compose.NewForm(s.API, compose.Options{
		Captcha:           s.Opts.Captcha,
		RedirectDelay:     s.Opts.RedirectDelay,
		UploadConcurrency: s.Opts.UploadConcurrency,
	})
	if err := form.Init(ctx); err != nil {
		s.bannerText(form.Err())
		return err
	}

	d := req.Draft
	if req.Category != "" {
		id, ok := findCategory(form.Categories(), req.Category)
		if !ok {
			s.bannerText(MsgUnknownCat)
			return ErrUnknownCat
		}
		d.CategoryID = id
	} else if d.CategoryID == 0 {
		d.CategoryID = form.Draft().CategoryID
	}
	if err := form.SetDraft(d); err != nil {
		return err
	}

	if req.EmbedURL != "" {
		html, err := s.Embed.Resolve(ctx, req.EmbedURL)
		if err != nil {
			s.bannerText(embed.Message(err))
			return err
		}
		if !form.InsertEmbed(html) {
			fmt.Fprintln(s.Out, "Embeds are not available for quote posts.")
		}
	}

	if ch := form.Challenge(); ch != nil {
		ans := req.CaptchaAnswer
		if ans == "" {
			var err error
			if ans, err = s.prompt("CAPTCHA: " + ch.Question + " "); err != nil {
				return err
			}
		}
		d = form.Draft()
		d.CaptchaAnswer = ans
		if err := form.SetDraft(d); err != nil {
			return err
		}
	}

	res, err := form.Submit(ctx)
	if err != nil {
		s.bannerText(form.Err())
		if errors.Is(err, compose.ErrCaptchaFailed) {
			if ch := form.Challenge(); ch != nil {
				fmt.Fprintf(s.Out, "New CAPTCHA: %s\n", ch.Question)
			}
		}
		return err
	}
	s.success(res.Message)
	return s.NavigateAfter(ctx, res.After, Page{Name: PageHome})
}

func findCategory(cats []models.Category, key string) (int64, bool) {
	key = strings.TrimSpace(key)
	for _, c := range cats {
		if strings.EqualFold(c.Slug, key) || strings.EqualFold(c.Name, key) {
			return c.ID, true
		}
	}
	return 0, false
}

// Edit loads post id into the edit form, applies change and submits. On
// success it shows the post after the redirect delay.
func (s *Shell) Edit(ctx context.Context, id int64, category string, change func(*compose.Draft)) error {
	s.current = Page{Name: PageEdit, PostID: id}
	if !s.Session.LoggedIn() {
		s.bannerText(MsgLoginRequired)
		return ErrLoginRequired
	}

	ed := compose.NewEditor(s.API, id, compose.Options{RedirectDelay: s.Opts.RedirectDelay})
	if err := ed.Load(ctx); err != nil {
		s.bannerText(ed.Err())
		return err
	}
	if viewer, ok := s.viewer(); ok && ed.Post().UserID != viewer {
		s.bannerText(MsgNotAuthor)
		return ErrNotAuthor
	}

	d := ed.Draft()
	if change != nil {
		change(&d)
	}
	if category != "" {
		cid, ok := findCategory(ed.Categories(), category)
		if !ok {
			s.bannerText(MsgUnknownCat)
			return ErrUnknownCat
		}
		d.CategoryID = cid
	}
	if err := ed.SetDraft(d); err != nil {
		if errors.Is(err, compose.ErrTypeImmutable) {
			s.bannerText(MsgTypeImmutable)
		} else {
			s.banner(err)
		}
		return err
	}

	res, err := ed.Submit(ctx)
	if err != nil {
		s.bannerText(ed.Err())
		return err
	}
	s.success(res.Message)
	return s.NavigateAfter(ctx, res.After, Page{Name: PagePost, PostID: res.PostID})
}

// Delete removes a post after confirmation. Only the author is offered
// the action.
func (s *Shell) Delete(ctx context.Context, id int64) error {
	post, err := s.API.GetPost(ctx, id)
	if err != nil {
		s.banner(err)
		return err
	}
	if !s.canDelete(*post) {
		s.bannerText(MsgNotAuthor)
		return ErrNotAuthor
	}
	if !s.confirm("Are you sure you want to delete this post?") {
		fmt.Fprintln(s.Out, "Cancelled.")
		return nil
	}
	if err := s.API.DeletePost(ctx, id); err != nil {
		s.banner(err)
		return err
	}
	s.success("Post deleted.")
	return nil
}

func (s *Shell) canDelete(post models.Post) bool {
	viewer, ok := s.viewer()
	return offers(view.Actions(post, viewer, ok), "delete")
}

func offers(actions []string, name string) bool {
	for _, a := range actions {
		if a == name {
			return true
		}
	}
	return false
}

// Like toggles the viewer's like on post id.
func (s *Shell) Like(ctx context.Context, id int64) error {
	post, err := s.API.GetPost(ctx, id)
	if err != nil {
		s.banner(err)
		return err
	}
	btn := like.New(s.API, *post, s.token)
	st, err := btn.Toggle(ctx)
	if err != nil {
		s.bannerText(st.Err)
		return err
	}
	if st.Liked {
		fmt.Fprintf(s.Out, "♥ Liked (%d)\n", st.Count)
	} else {
		fmt.Fprintf(s.Out, "♡ Unliked (%d)\n", st.Count)
	}
	return nil
}

// Comment posts body on post id.
func (s *Shell) Comment(ctx context.Context, id int64, body string) error {
	sec := comments.New(s.API, id, s.token)
	c, err := sec.Post(ctx, body)
	if err != nil {
		s.bannerText(sec.Err())
		return err
	}
	s.success("Comment posted.")
	s.comment(*c)
	return nil
}

// Login exchanges credentials for a token and stores it in the session.
// An empty password is asked for.
func (s *Shell) Login(ctx context.Context, username, password string) error {
	s.current = Page{Name: PageLogin}
	if password == "" {
		var err error
		if password, err = s.prompt("Password: "); err != nil {
			return err
		}
	}
	tok, err := s.API.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		if err = loginError(err); errors.Is(err, ErrBadCredentials) {
			s.bannerText(MsgBadCredentials)
		} else {
			s.banner(err)
		}
		return err
	}
	if err := s.Session.Login(tok); err != nil {
		s.banner(err)
		return err
	}
	logg.Info("app", "Logged in")
	s.Whoami()
	return nil
}

func loginError(err error) error {
	var apiErr *api.Error
	if errors.Is(err, api.ErrUnauthorized) || (errors.As(err, &apiErr) && apiErr.Status == 401) {
		return ErrBadCredentials
	}
	return err
}

// Register creates an account. It does not log in.
func (s *Shell) Register(ctx context.Context, username, email, password string) error {
	s.current = Page{Name: PageRegister}
	if password == "" {
		var err error
		if password, err = s.prompt("Password: "); err != nil {
			return err
		}
	}
	msg, err := s.API.Register(ctx, strings.TrimSpace(username), strings.TrimSpace(email), password)
	if err != nil {
		s.banner(err)
		return err
	}
	s.success(msg)
	fmt.Fprintln(s.Out, "You can now log in.")
	return nil
}

func (s *Shell) Logout() error {
	if err := s.Session.Logout(); err != nil {
		s.banner(err)
		return err
	}
	s.success("Logged out.")
	return nil
}

func (s *Shell) Whoami() {
	if !s.Session.LoggedIn() {
		fmt.Fprintln(s.Out, "Not logged in.")
		return
	}
	if id, ok := s.Session.UserID(); ok {
		fmt.Fprintf(s.Out, "Logged in as user #%d.\n", id)
		return
	}
	fmt.Fprintln(s.Out, "Logged in.")
}

// Theme prints the theme, toggling it first when asked.
func (s *Shell) Theme(toggle bool) error {
	t := s.Session.Theme()
	if toggle {
		var err error
		if t, err = s.Session.ToggleTheme(); err != nil {
			s.banner(err)
			return err
		}
	}
	fmt.Fprintf(s.Out, "Theme: %s\n", t)
	return nil
}

// ResolveEmbed prints the embed markup for target.
func (s *Shell) ResolveEmbed(ctx context.Context, target string) error {
	html, err := s.Embed.Resolve(ctx, target)
	if err != nil {
		s.bannerText(embed.Message(err))
		return err
	}
	fmt.Fprintln(s.Out, html)
	return nil
}
