package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/comments"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/feed"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/view"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/webmention"
)

func (s *Shell) renderHome(ctx context.Context, p Page) error {
	f := feed.New(s.API, feed.Options{Debounce: s.Opts.SearchDebounce, Query: p.Query})
	defer f.Close()

	f.Start()
	f.Wait()
	for i := 1; i < p.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap := f.Snapshot()
		if !f.Visible(len(snap.Posts) - 1) {
			break
		}
		f.Wait()
	}

	snap := f.Snapshot()
	return s.feedView(snap, p.Expanded, fmt.Sprintf("More with --pages %d.", snap.Page+1))
}

// feedView prints a feed snapshot. more is the hint shown while pages
// remain.
func (s *Shell) feedView(snap feed.Snapshot, expanded bool, more string) error {
	if snap.Err != "" {
		s.bannerText(snap.Err)
		return errors.New(snap.Err)
	}
	s.cards(snap.Posts, expanded)
	s.feedStatus(snap, more)
	return nil
}

func (s *Shell) feedStatus(snap feed.Snapshot, more string) {
	switch snap.Status {
	case feed.StatusEmpty:
		fmt.Fprintln(s.Out, "No posts yet.")
	case feed.StatusNoResults:
		fmt.Fprintf(s.Out, "No posts found for %q.\n", snap.Query)
	case feed.StatusEnd:
		fmt.Fprintln(s.Out, "End of results.")
	case feed.StatusReady:
		fmt.Fprintf(s.Out, "Showing %d of %d posts. %s\n", len(snap.Posts), snap.Total, more)
	}
}

func (s *Shell) renderTag(ctx context.Context, p Page) error {
	posts, err := feed.ByTag(ctx, s.API, p.Tag)
	if err != nil {
		s.banner(err)
		return err
	}
	fmt.Fprintf(s.Out, "Posts tagged #%s\n\n", p.Tag)
	return s.listing(posts, p.Expanded, "No posts with this tag.")
}

func (s *Shell) renderCategory(ctx context.Context, p Page) error {
	posts, err := feed.ByCategory(ctx, s.API, p.Slug)
	if err != nil {
		s.banner(err)
		return err
	}
	fmt.Fprintf(s.Out, "Category: %s\n\n", p.Slug)
	return s.listing(posts, p.Expanded, "No posts in this category.")
}

func (s *Shell) listing(posts []models.Post, expanded bool, empty string) error {
	if len(posts) == 0 {
		fmt.Fprintln(s.Out, empty)
		return nil
	}
	s.cards(posts, expanded)
	return nil
}

func (s *Shell) cards(posts []models.Post, expanded bool) {
	viewer, ok := s.viewer()
	for _, p := range posts {
		if err := view.Card(s.Out, p, view.CardOptions{Expanded: expanded, Viewer: viewer, LoggedIn: ok}); err != nil {
			logg.Error("app", "Render card failed", err)
			return
		}
		fmt.Fprintln(s.Out)
	}
}

// renderPost shows one post with its comments and webmentions. The
// comment and webmention sections fail on their own without taking the
// page down.
func (s *Shell) renderPost(ctx context.Context, p Page) error {
	post, err := s.API.GetPost(ctx, p.PostID)
	if err != nil {
		s.banner(err)
		return err
	}

	viewer, ok := s.viewer()
	if err := view.Card(s.Out, *post, view.CardOptions{Expanded: true, Viewer: viewer, LoggedIn: ok}); err != nil {
		return err
	}
	if p.HTML {
		html, err := view.HTML(*post)
		if err != nil {
			s.banner(err)
		} else {
			fmt.Fprintln(s.Out, strings.TrimSpace(html))
		}
	}

	sec := comments.New(s.API, post.ID, s.token)
	fmt.Fprintln(s.Out)
	if err := sec.Load(ctx); err != nil {
		fmt.Fprintln(s.Out, "Comments")
		s.bannerText(sec.Err())
	} else {
		list := sec.Comments()
		fmt.Fprintf(s.Out, "Comments (%d)\n", len(list))
		for _, c := range list {
			s.comment(c)
		}
		if len(list) == 0 {
			fmt.Fprintln(s.Out, "  No comments yet.")
		}
	}

	wm := webmention.New(s.API, post.ID)
	fmt.Fprintln(s.Out)
	fmt.Fprintln(s.Out, "Webmentions")
	if err := wm.Load(ctx); err != nil {
		s.bannerText(wm.Err())
		return nil
	}
	if wm.Empty() {
		fmt.Fprintln(s.Out, "  No webmentions yet.")
	}
	for _, m := range wm.Mentions() {
		line := fmt.Sprintf("  [%s] %s", m.MentionType, webmention.Author(m))
		if m.Content != "" {
			line += ": " + m.Content
		}
		fmt.Fprintln(s.Out, line)
	}
	return nil
}

func (s *Shell) comment(c models.Comment) {
	who := c.Username
	if who == "" {
		who = "anonymous"
	}
	when := ""
	if !c.CreatedAt.IsZero() {
		when = " (" + c.CreatedAt.Format("Jan 2, 2006 15:04") + ")"
	}
	fmt.Fprintf(s.Out, "  %s%s: %s\n", who, when, c.Content)
}
