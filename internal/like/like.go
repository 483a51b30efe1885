// Package like is the optimistic like button of a post.
package like

import (
	"context"
	"errors"
	"sync"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

var logg = logger.New()

// MsgLoginRequired is shown when a logged out user clicks the button.
const MsgLoginRequired = "Please log in to like posts."

var (
	ErrLoginRequired = errors.New("login required to like posts")
	// ErrBusy is returned while a toggle is outstanding; the button is
	// disabled until it resolves.
	ErrBusy = errors.New("like request already in progress")
)

type State struct {
	Liked   bool
	Count   int
	Pending bool
	Err     string
}

type Button struct {
	svc    api.Service
	postID int64
	token  func() string

	mu      sync.Mutex
	liked   bool
	count   int
	pending bool
	errMsg  string
}

// New returns the button for a post as the feed or detail page reported it.
// token yields the current session token; an empty token means logged out.
func New(svc api.Service, p models.Post, token func() string) *Button {
	return &Button{
		svc:    svc,
		postID: p.ID,
		token:  token,
		liked:  p.LikedByUser,
		count:  p.LikeCount,
	}
}

func (b *Button) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{Liked: b.liked, Count: b.count, Pending: b.pending, Err: b.errMsg}
}

// Toggle flips the like locally, then replaces the local state with the
// server's answer. On failure the state before the click is restored.
func (b *Button) Toggle(ctx context.Context) (State, error) {
	if b.token == nil || b.token() == "" {
		b.mu.Lock()
		b.errMsg = MsgLoginRequired
		b.mu.Unlock()
		return b.State(), ErrLoginRequired
	}

	b.mu.Lock()
	if b.pending {
		b.mu.Unlock()
		return b.State(), ErrBusy
	}
	prevLiked, prevCount := b.liked, b.count
	b.pending = true
	b.errMsg = ""
	b.liked = !prevLiked
	if b.liked {
		b.count = prevCount + 1
	} else {
		b.count = prevCount - 1
	}
	b.mu.Unlock()

	res, err := b.svc.ToggleLike(ctx, b.postID)

	b.mu.Lock()
	b.pending = false
	if err != nil {
		b.liked, b.count = prevLiked, prevCount
		b.errMsg = api.Message(err)
		b.mu.Unlock()
		logg.Error("like", "Toggle like failed", err)
		return b.State(), err
	}
	b.liked, b.count = res.Liked, res.LikeCount
	b.mu.Unlock()
	return b.State(), nil
}
