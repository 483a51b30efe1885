package api

import (
	"context"
	"io"
	"sync"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

// MockService implements Service for tests. Each endpoint delegates to its
// Fn field when set and otherwise returns an empty success. Every call is
// recorded by method name in Calls, in order.
type MockService struct {
	mu    sync.Mutex
	calls []string

	ListPostsFn       func(ctx context.Context, q ListQuery) (*models.PostPage, error)
	PostsByTagFn      func(ctx context.Context, tag string) ([]models.Post, error)
	PostsByCategoryFn func(ctx context.Context, slug string) ([]models.Post, error)
	GetPostFn         func(ctx context.Context, id int64) (*models.Post, error)
	CreatePostFn      func(ctx context.Context, p PostPayload) (*Created, error)
	UpdatePostFn      func(ctx context.Context, id int64, p PostPayload) error
	DeletePostFn      func(ctx context.Context, id int64) error
	ToggleLikeFn      func(ctx context.Context, postID int64) (*models.LikeState, error)
	ListCommentsFn    func(ctx context.Context, postID int64) ([]models.Comment, error)
	AddCommentFn      func(ctx context.Context, postID int64, content string) (*models.Comment, error)
	ListWebmentionsFn func(ctx context.Context, postID int64) ([]models.Webmention, error)
	ListCategoriesFn  func(ctx context.Context) ([]models.Category, error)
	UploadFn          func(ctx context.Context, name string, r io.Reader) (string, error)
	NewCaptchaFn      func(ctx context.Context) (*models.CaptchaChallenge, error)
	VerifyCaptchaFn   func(ctx context.Context, token, answer string) error
	LoginFn           func(ctx context.Context, username, password string) (string, error)
	RegisterFn        func(ctx context.Context, username, email, password string) (string, error)
}

var _ Service = (*MockService)(nil)

func (m *MockService) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

// Calls returns a copy of the recorded call log.
func (m *MockService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Count returns how many times name was called.
func (m *MockService) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockService) ListPosts(ctx context.Context, q ListQuery) (*models.PostPage, error) {
	m.record("ListPosts")
	if m.ListPostsFn != nil {
		return m.ListPostsFn(ctx, q)
	}
	return &models.PostPage{Page: q.Page}, nil
}

func (m *MockService) PostsByTag(ctx context.Context, tag string) ([]models.Post, error) {
	m.record("PostsByTag")
	if m.PostsByTagFn != nil {
		return m.PostsByTagFn(ctx, tag)
	}
	return nil, nil
}

func (m *MockService) PostsByCategory(ctx context.Context, slug string) ([]models.Post, error) {
	m.record("PostsByCategory")
	if m.PostsByCategoryFn != nil {
		return m.PostsByCategoryFn(ctx, slug)
	}
	return nil, nil
}

func (m *MockService) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	m.record("GetPost")
	if m.GetPostFn != nil {
		return m.GetPostFn(ctx, id)
	}
	return &models.Post{ID: id, Type: models.TypeText}, nil
}

func (m *MockService) CreatePost(ctx context.Context, p PostPayload) (*Created, error) {
	m.record("CreatePost")
	if m.CreatePostFn != nil {
		return m.CreatePostFn(ctx, p)
	}
	return &Created{PostID: 1, Message: "Post created successfully"}, nil
}

func (m *MockService) UpdatePost(ctx context.Context, id int64, p PostPayload) error {
	m.record("UpdatePost")
	if m.UpdatePostFn != nil {
		return m.UpdatePostFn(ctx, id, p)
	}
	return nil
}

func (m *MockService) DeletePost(ctx context.Context, id int64) error {
	m.record("DeletePost")
	if m.DeletePostFn != nil {
		return m.DeletePostFn(ctx, id)
	}
	return nil
}

func (m *MockService) ToggleLike(ctx context.Context, postID int64) (*models.LikeState, error) {
	m.record("ToggleLike")
	if m.ToggleLikeFn != nil {
		return m.ToggleLikeFn(ctx, postID)
	}
	return &models.LikeState{}, nil
}

func (m *MockService) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	m.record("ListComments")
	if m.ListCommentsFn != nil {
		return m.ListCommentsFn(ctx, postID)
	}
	return nil, nil
}

func (m *MockService) AddComment(ctx context.Context, postID int64, content string) (*models.Comment, error) {
	m.record("AddComment")
	if m.AddCommentFn != nil {
		return m.AddCommentFn(ctx, postID, content)
	}
	return &models.Comment{PostID: postID, Content: content}, nil
}

func (m *MockService) ListWebmentions(ctx context.Context, postID int64) ([]models.Webmention, error) {
	m.record("ListWebmentions")
	if m.ListWebmentionsFn != nil {
		return m.ListWebmentionsFn(ctx, postID)
	}
	return nil, nil
}

func (m *MockService) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.record("ListCategories")
	if m.ListCategoriesFn != nil {
		return m.ListCategoriesFn(ctx)
	}
	return nil, nil
}

func (m *MockService) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	m.record("Upload")
	if m.UploadFn != nil {
		return m.UploadFn(ctx, name, r)
	}
	return "/uploads/" + name, nil
}

func (m *MockService) NewCaptcha(ctx context.Context) (*models.CaptchaChallenge, error) {
	m.record("NewCaptcha")
	if m.NewCaptchaFn != nil {
		return m.NewCaptchaFn(ctx)
	}
	return &models.CaptchaChallenge{Token: "captcha", Question: "1 + 1 = ?"}, nil
}

func (m *MockService) VerifyCaptcha(ctx context.Context, token, answer string) error {
	m.record("VerifyCaptcha")
	if m.VerifyCaptchaFn != nil {
		return m.VerifyCaptchaFn(ctx, token, answer)
	}
	return nil
}

func (m *MockService) Login(ctx context.Context, username, password string) (string, error) {
	m.record("Login")
	if m.LoginFn != nil {
		return m.LoginFn(ctx, username, password)
	}
	return "", nil
}

func (m *MockService) Register(ctx context.Context, username, email, password string) (string, error) {
	m.record("Register")
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, username, email, password)
	}
	return "User registered successfully", nil
}
