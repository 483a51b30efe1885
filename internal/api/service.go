// Package api is the typed client of the blog REST API. Views depend on the
// Service interface so they can be exercised against MockService.
package api

import (
	"context"
	"io"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

// ListQuery selects one page of the feed. Page 0 omits the parameter and
// an empty Tag disables filtering.
type ListQuery struct {
	Page int
	Tag  string
}

// PostPayload is the body of create and update requests. Tags travel as
// the raw comma separated string; the server normalises them.
type PostPayload struct {
	Type        models.PostType `json:"type"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Tags        string          `json:"tags"`
	CategoryID  int64           `json:"category_id,omitempty"`
	Attribution string          `json:"attribution,omitempty"`
	License     string          `json:"license,omitempty"`
	LinkURL     string          `json:"link_url,omitempty"`
	MediaURLs   []string        `json:"media_urls,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// Created is the reply to a successful create.
type Created struct {
	PostID  int64  `json:"post_id"`
	Message string `json:"message"`
}

// Service has one method per endpoint.
type Service interface {
	ListPosts(ctx context.Context, q ListQuery) (*models.PostPage, error)
	PostsByTag(ctx context.Context, tag string) ([]models.Post, error)
	PostsByCategory(ctx context.Context, slug string) ([]models.Post, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	CreatePost(ctx context.Context, p PostPayload) (*Created, error)
	UpdatePost(ctx context.Context, id int64, p PostPayload) error
	DeletePost(ctx context.Context, id int64) error

	ToggleLike(ctx context.Context, postID int64) (*models.LikeState, error)
	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)
	AddComment(ctx context.Context, postID int64, content string) (*models.Comment, error)
	ListWebmentions(ctx context.Context, postID int64) ([]models.Webmention, error)
	ListCategories(ctx context.Context) ([]models.Category, error)

	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	NewCaptcha(ctx context.Context) (*models.CaptchaChallenge, error)
	VerifyCaptcha(ctx context.Context, token, answer string) error

	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, email, password string) (string, error)
}
