package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/feed"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

const (
	browseHelp = "Commands: search <tag>, more, delete <id>, open <id>, quit"
	browseMore = "Type more to load the next page."

	msgNotListed = "Post is not in the list."
	msgBadID     = "Invalid post id."
)

// Browse keeps one home feed open and reads commands from In until quit
// or end of input. Searches are debounced by the feed; each command waits
// for the feed to settle before printing.
func (s *Shell) Browse(ctx context.Context, p Page) error {
	p.Name = PageHome
	s.current = p
	logg.Debug("app", "Browse "+p.String())

	changed := make(chan struct{}, 1)
	f := feed.New(s.API, feed.Options{
		Debounce: s.Opts.SearchDebounce,
		Query:    p.Query,
		OnChange: func(feed.Snapshot) {
			select {
			case changed <- struct{}{}:
			default:
			}
		},
	})
	defer f.Close()

	f.Start()
	f.Wait()
	_ = s.feedView(f.Snapshot(), p.Expanded, browseMore)
	fmt.Fprintln(s.Out, browseHelp)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := s.prompt("> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(cmd) {
		case "":
		case "quit", "exit", "q":
			return nil
		case "help":
			fmt.Fprintln(s.Out, browseHelp)
		case "search":
			f.Search(arg)
			if err := settle(ctx, f, changed, arg); err != nil {
				return err
			}
			_ = s.feedView(f.Snapshot(), p.Expanded, browseMore)
		case "more":
			s.browseMore(f, p.Expanded)
		case "delete":
			if id, ok := s.browseID(arg); ok {
				s.browseDelete(ctx, f, id)
			}
		case "open":
			if id, ok := s.browseID(arg); ok {
				_ = s.Navigate(ctx, Page{Name: PagePost, PostID: id, Expanded: true})
				s.current = p
			}
		default:
			fmt.Fprintf(s.Out, "Unknown command %q.\n%s\n", cmd, browseHelp)
		}
	}
}

// settle blocks until the feed shows query q with no fetch running.
func settle(ctx context.Context, f *feed.Feed, changed <-chan struct{}, q string) error {
	for {
		f.Wait()
		if snap := f.Snapshot(); snap.Query == q && !snap.Loading {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (s *Shell) browseMore(f *feed.Feed, expanded bool) {
	before := f.Snapshot()
	if !f.Visible(len(before.Posts) - 1) {
		fmt.Fprintln(s.Out, "No more posts.")
		return
	}
	f.Wait()
	after := f.Snapshot()
	if after.Err != "" {
		s.bannerText(after.Err)
		return
	}
	if len(after.Posts) > len(before.Posts) {
		s.cards(after.Posts[len(before.Posts):], expanded)
	}
	s.feedStatus(after, browseMore)
}

func (s *Shell) browseDelete(ctx context.Context, f *feed.Feed, id int64) {
	denied := false
	err := f.Delete(ctx, id, func(post models.Post) bool {
		if !s.canDelete(post) {
			denied = true
			return false
		}
		return s.confirm("Are you sure you want to delete this post?")
	})
	switch {
	case denied:
		s.bannerText(MsgNotAuthor)
	case errors.Is(err, feed.ErrNotFound):
		s.bannerText(msgNotListed)
	case errors.Is(err, feed.ErrNotConfirmed):
		fmt.Fprintln(s.Out, "Cancelled.")
	case err != nil:
		s.banner(err)
	default:
		s.success("Post deleted.")
		s.feedStatus(f.Snapshot(), browseMore)
	}
}

func (s *Shell) browseID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		s.bannerText(msgBadID)
		return 0, false
	}
	return id, true
}
