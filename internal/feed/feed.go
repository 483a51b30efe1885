// Package feed is the paginated, tag filtered post list.
//
// Pages are requested lazily: the next page is fetched only when the last
// item becomes visible, the previous page reported more data and no other
// fetch is in flight. A new search supersedes everything in flight; each
// fetch carries a generation number and results from an older generation
// are dropped.
package feed

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

var logg = logger.New()

const DefaultDebounce = 300 * time.Millisecond

var (
	ErrNotFound     = errors.New("post is not in the list")
	ErrNotConfirmed = errors.New("deletion not confirmed")
	ErrClosed       = errors.New("feed closed")
)

type Status int

const (
	StatusLoading Status = iota
	StatusReady
	// StatusEmpty means there are no posts at all.
	StatusEmpty
	// StatusNoResults means the current filter matched nothing.
	StatusNoResults
	// StatusEnd means every page has been loaded.
	StatusEnd
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusEmpty:
		return "empty"
	case StatusNoResults:
		return "no-results"
	case StatusEnd:
		return "end"
	}
	return "unknown"
}

type Snapshot struct {
	Posts   []models.Post
	Query   string
	Page    int
	HasMore bool
	Total   int
	Loading bool
	Err     string
	Status  Status
}

type Options struct {
	Debounce time.Duration
	// Query is applied to the first fetch without waiting for the debounce.
	Query string
	// OnChange receives a snapshot after every state change. It is called
	// without the feed's lock held.
	OnChange func(Snapshot)
}

type Feed struct {
	svc  api.Service
	opts Options

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	posts    []models.Post
	query    string
	page     int
	hasMore  bool
	total    int
	loading  bool
	loaded   bool
	errMsg   string
	gen      uint64
	cancel   context.CancelFunc
	debounce *time.Timer
	closed   bool
}

func New(svc api.Service, opts Options) *Feed {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Feed{svc: svc, opts: opts, ctx: ctx, stop: stop, query: strings.TrimSpace(opts.Query)}
}

// Start fetches the first page for the current query.
func (f *Feed) Start() {
	f.reload()
}

// Wait blocks until no fetch is running.
func (f *Feed) Wait() {
	f.wg.Wait()
}

// Search sets a new query. The refetch from page 1 happens after the
// debounce delay; each call restarts the delay.
func (f *Feed) Search(q string) {
	q = strings.TrimSpace(q)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if f.debounce != nil {
		f.debounce.Stop()
	}
	f.debounce = time.AfterFunc(f.opts.Debounce, func() {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return
		}
		f.query = q
		f.mu.Unlock()
		f.reload()
	})
}

// Visible reports that the item at index is on screen. Reaching the last
// item triggers LoadMore.
func (f *Feed) Visible(index int) bool {
	f.mu.Lock()
	last := len(f.posts) - 1
	f.mu.Unlock()
	if index < last {
		return false
	}
	return f.LoadMore()
}

// LoadMore requests the next page and reports whether it did. Nothing is
// requested while a fetch is in flight or when the last page said there is
// no more data.
func (f *Feed) LoadMore() bool {
	f.mu.Lock()
	if f.closed || f.loading || !f.loaded || !f.hasMore {
		f.mu.Unlock()
		return false
	}
	f.fetchLocked(f.page+1, false)
	f.mu.Unlock()
	f.notify()
	return true
}

func (f *Feed) reload() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	f.fetchLocked(1, true)
	f.mu.Unlock()
	f.notify()
}

// fetchLocked starts the fetch of page in the background. f.mu must be held.
func (f *Feed) fetchLocked(page int, reset bool) {
	ctx, cancel := context.WithCancel(f.ctx)
	f.cancel = cancel
	f.loading = true
	f.errMsg = ""
	gen, q := f.gen, f.query

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer cancel()
		res, err := f.svc.ListPosts(ctx, api.ListQuery{Page: page, Tag: q})
		f.apply(gen, page, reset, q, res, err)
	}()
}

func (f *Feed) apply(gen uint64, page int, reset bool, q string, res *models.PostPage, err error) {
	f.mu.Lock()
	if f.closed || gen != f.gen {
		f.mu.Unlock()
		logg.Debug("feed", "Dropped stale page "+strconv.Itoa(page))
		return
	}
	f.loading = false
	f.cancel = nil
	if err != nil {
		f.errMsg = api.Message(err)
		f.mu.Unlock()
		logg.Error("feed", "Fetch posts failed", err)
		f.notify()
		return
	}

	posts := make([]models.Post, 0, len(res.Posts))
	for _, p := range res.Posts {
		if p.HasTagSubstring(q) {
			posts = append(posts, p)
		}
	}
	if reset {
		f.posts = posts
	} else {
		f.posts = append(f.posts, posts...)
	}
	f.page = page
	f.hasMore = res.HasMore
	f.total = res.TotalPosts
	f.loaded = true
	f.mu.Unlock()
	f.notify()
}

// Delete removes the post with id after confirm approves it. Nothing is
// sent without confirmation. On failure the list is left as it was.
func (f *Feed) Delete(ctx context.Context, id int64, confirm func(models.Post) bool) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	var target *models.Post
	for i := range f.posts {
		if f.posts[i].ID == id {
			p := f.posts[i]
			target = &p
			break
		}
	}
	f.mu.Unlock()
	if target == nil {
		return ErrNotFound
	}
	if confirm == nil || !confirm(*target) {
		return ErrNotConfirmed
	}

	if err := f.svc.DeletePost(ctx, id); err != nil {
		f.mu.Lock()
		if !f.closed {
			f.errMsg = api.Message(err)
		}
		f.mu.Unlock()
		logg.Error("feed", "Delete post failed", err)
		f.notify()
		return err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	for i := range f.posts {
		if f.posts[i].ID == id {
			f.posts = append(f.posts[:i:i], f.posts[i+1:]...)
			break
		}
	}
	if f.total > 0 {
		f.total--
	}
	f.mu.Unlock()
	logg.Info("feed", "Post deleted")
	f.notify()
	return nil
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() Snapshot {
	s := Snapshot{
		Posts:   append([]models.Post(nil), f.posts...),
		Query:   f.query,
		Page:    f.page,
		HasMore: f.hasMore,
		Total:   f.total,
		Loading: f.loading,
		Err:     f.errMsg,
	}
	switch {
	case !f.loaded:
		s.Status = StatusLoading
	case len(f.posts) == 0 && f.query != "":
		s.Status = StatusNoResults
	case len(f.posts) == 0:
		s.Status = StatusEmpty
	case !f.hasMore:
		s.Status = StatusEnd
	default:
		s.Status = StatusReady
	}
	return s
}

func (f *Feed) notify() {
	if f.opts.OnChange == nil {
		return
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	s := f.snapshotLocked()
	f.mu.Unlock()
	f.opts.OnChange(s)
}

// Close cancels the pending search and any fetch in flight. The feed does
// not change after Close.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	if f.debounce != nil {
		f.debounce.Stop()
	}
	f.mu.Unlock()
	f.stop()
}

// ByTag lists the posts carrying tag.
func ByTag(ctx context.Context, svc api.Service, tag string) ([]models.Post, error) {
	posts, err := svc.PostsByTag(ctx, strings.TrimSpace(tag))
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ByCategory lists the posts filed under the category slug.
func ByCategory(ctx context.Context, svc api.Service, slug string) ([]models.Post, error) {
	posts, err := svc.PostsByCategory(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	return posts, nil
}
