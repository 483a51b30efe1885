// Package comments lists and appends the comments of one post. Comments
// cannot be edited or deleted.
package comments

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

var logg = logger.New()

// Banner texts of the section.
const (
	postFallback     = "Could not post comment."
	MsgLoginRequired = "Please log in to comment."
	MsgEmptyComment  = "Comment content is required"
)

var (
	ErrLoginRequired = errors.New("login required to comment")
	ErrEmptyComment  = errors.New("comment content is required")
	ErrBusy          = errors.New("a comment is already being posted")
)

type Section struct {
	svc    api.Service
	postID int64
	token  func() string

	mu       sync.Mutex
	comments []models.Comment
	posting  bool
	errMsg   string
}

func New(svc api.Service, postID int64, token func() string) *Section {
	return &Section{svc: svc, postID: postID, token: token}
}

// Load fetches the comment list. Viewing needs no session.
func (s *Section) Load(ctx context.Context) error {
	list, err := s.svc.ListComments(ctx, s.postID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = api.Message(err)
		logg.Error("comments", "Fetch comments failed", err)
		return err
	}
	s.comments = list
	s.errMsg = ""
	return nil
}

// Post sends body and appends the comment the server returns. The list is
// not fetched again.
func (s *Section) Post(ctx context.Context, body string) (*models.Comment, error) {
	if s.token == nil || s.token() == "" {
		return nil, s.fail(ErrLoginRequired, MsgLoginRequired)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, s.fail(ErrEmptyComment, MsgEmptyComment)
	}

	s.mu.Lock()
	if s.posting {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.posting = true
	s.errMsg = ""
	s.mu.Unlock()

	c, err := s.svc.AddComment(ctx, s.postID, body)

	s.mu.Lock()
	s.posting = false
	s.mu.Unlock()
	if err != nil {
		logg.Error("comments", "Post comment failed", err)
		return nil, s.fail(err, message(err))
	}

	s.mu.Lock()
	s.comments = append(s.comments, *c)
	s.mu.Unlock()
	return c, nil
}

func message(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message == "" {
		return postFallback
	}
	return api.Message(err)
}

func (s *Section) fail(err error, msg string) error {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	return err
}

func (s *Section) Comments() []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comment(nil), s.comments...)
}

func (s *Section) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}
