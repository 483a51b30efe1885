package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

var logg = logger.New()

// TokenSource returns the current bearer token, empty when logged out. It
// is read on every request so login and logout take effect immediately.
type TokenSource func() string

// Client talks to the blog API over HTTP.
type Client struct {
	base       string
	httpClient *http.Client
	token      TokenSource
}

// NewClient creates a client for base. A zero timeout means requests only
// end when the server answers or ctx is done.
func NewClient(base string, timeout time.Duration, token TokenSource) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
		token:      token,
	}
}

var _ Service = (*Client)(nil)

func (c *Client) ListPosts(ctx context.Context, q ListQuery) (*models.PostPage, error) {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	path := "/posts"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var page models.PostPage
	if err := c.get(ctx, path, &page, "Failed to retrieve posts."); err != nil {
		return nil, err
	}
	page.Page = q.Page
	return &page, nil
}

func (c *Client) PostsByTag(ctx context.Context, tag string) ([]models.Post, error) {
	var posts []models.Post
	err := c.get(ctx, "/posts/tag/"+url.PathEscape(tag), &posts, "Failed to retrieve posts.")
	return posts, err
}

func (c *Client) PostsByCategory(ctx context.Context, slug string) ([]models.Post, error) {
	var posts []models.Post
	err := c.get(ctx, "/posts/category/"+url.PathEscape(slug), &posts, "Failed to retrieve posts.")
	return posts, err
}

func (c *Client) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	if err := c.get(ctx, "/posts/"+models.PostIDString(id), &p, "Failed to fetch post"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePost(ctx context.Context, p PostPayload) (*Created, error) {
	var created Created
	if err := c.do(ctx, http.MethodPost, "/posts", p, &created, "Failed to create post"); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdatePost(ctx context.Context, id int64, p PostPayload) error {
	return c.do(ctx, http.MethodPut, "/posts/"+models.PostIDString(id), p, nil, "Failed to update post.")
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+models.PostIDString(id), nil, nil, "Failed to delete post.")
}

func (c *Client) ToggleLike(ctx context.Context, postID int64) (*models.LikeState, error) {
	var st models.LikeState
	path := "/posts/" + models.PostIDString(postID) + "/like"
	if err := c.do(ctx, http.MethodPost, path, nil, &st, "Failed to update like."); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	var out []models.Comment
	err := c.get(ctx, "/posts/"+models.PostIDString(postID)+"/comments", &out, "Could not load comments.")
	return out, err
}

func (c *Client) AddComment(ctx context.Context, postID int64, content string) (*models.Comment, error) {
	var cm models.Comment
	path := "/posts/" + models.PostIDString(postID) + "/comments"
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, path, body, &cm, "Could not post comment."); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *Client) ListWebmentions(ctx context.Context, postID int64) ([]models.Webmention, error) {
	var out []models.Webmention
	err := c.get(ctx, "/posts/"+models.PostIDString(postID)+"/webmentions", &out, "Failed to fetch webmentions")
	return out, err
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := c.get(ctx, "/categories", &out, "Failed to load categories.")
	return out, err
}

// Upload sends r as the multipart field "file" and returns the stored URL.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	var out struct {
		FileURL string `json:"file_url"`
	}
	err = c.send(ctx, http.MethodPost, "/upload", &buf, mw.FormDataContentType(), &out, "Failed to upload "+name)
	if err != nil {
		return "", err
	}
	return out.FileURL, nil
}

func (c *Client) NewCaptcha(ctx context.Context) (*models.CaptchaChallenge, error) {
	var ch models.CaptchaChallenge
	if err := c.get(ctx, "/captcha/new", &ch, "Failed to load captcha."); err != nil {
		return nil, err
	}
	return &ch, nil
}

// VerifyCaptcha succeeds only when the server reports success. A rejected
// answer comes back as *Error carrying the server's reason.
func (c *Client) VerifyCaptcha(ctx context.Context, token, answer string) error {
	body := map[string]string{"captcha_token": token, "answer": answer}
	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/captcha/verify", body, &out, "Invalid captcha"); err != nil {
		return err
	}
	if !out.Success {
		msg := firstNonEmpty(out.Error, out.Message, "Invalid captcha")
		return &Error{Status: http.StatusOK, Message: msg}
	}
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", body, &out, "Invalid credentials"); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (string, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/register", body, &out, "Registration failed"); err != nil {
		return "", err
	}
	return out.Message, nil
}

// --- transport ---

func (c *Client) get(ctx context.Context, path string, result any, fallback string) error {
	return c.do(ctx, http.MethodGet, path, nil, result, fallback)
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any, fallback string) error {
	var (
		rd          io.Reader
		contentType string
	)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, rd, contentType, result, fallback)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, result any, fallback string) error {
	op := method + " " + path
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logg.Debug("api", op+" failed: "+err.Error())
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	logg.Debug("api", op+" -> "+strconv.Itoa(resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: serverMessage(respBody, fallback)}
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			logg.Error("api", op+" returned an undecodable body", err)
			return &DecodeError{Op: op, Err: err}
		}
	}
	return nil
}

// serverMessage extracts {"message": ...} or {"error": ...} from an error
// body, falling back when neither is present.
func serverMessage(body []byte, fallback string) string {
	var v struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(body, &v); err == nil {
		if m := firstNonEmpty(v.Message, v.Error, v.Msg); m != "" {
			return m
		}
	}
	return fallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
