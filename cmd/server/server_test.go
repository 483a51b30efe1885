package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/compose"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/like"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

//
// --- Helpers ---
//

var testSecret = []byte("test-secret")

// newTestServer starts a server whose CAPTCHA is always "1 + 1 = ?".
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(testSecret)
	s.captchaTerm = func() int { return 1 }
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

// sendJSONRequest sends body as JSON and fails unless the expected status
// comes back.
func sendJSONRequest(t *testing.T, method, url string, body any, token string, expectedStatus int) *http.Response {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal failed: %v", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != expectedStatus {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("%s %s: expected status %d, got %d, body: %s", method, url, expectedStatus, resp.StatusCode, string(b))
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// signup registers a user and returns a token for them.
func signup(t *testing.T, url, name string) string {
	t.Helper()
	sendJSONRequest(t, http.MethodPost, url+"/register", map[string]string{
		"username": name, "email": name + "@example.com", "password": "pw-" + name,
	}, "", http.StatusCreated).Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, sendJSONRequest(t, http.MethodPost, url+"/login", map[string]string{
		"username": name, "password": "pw-" + name,
	}, "", http.StatusOK), &out)
	if out.AccessToken == "" {
		t.Fatalf("empty access token for %s", name)
	}
	return out.AccessToken
}

func createPost(t *testing.T, url, token string, body map[string]any) int64 {
	t.Helper()
	var out struct {
		PostID int64 `json:"post_id"`
	}
	decode(t, sendJSONRequest(t, http.MethodPost, url+"/posts", body, token, http.StatusCreated), &out)
	return out.PostID
}

//
// --- Auth ---
//

func TestRegisterAndLogin(t *testing.T) {
	_, ts := newTestServer(t)

	var msg map[string]string
	decode(t, sendJSONRequest(t, http.MethodPost, ts.URL+"/register", map[string]string{
		"username": "ann", "email": "ann@example.com", "password": "secret",
	}, "", http.StatusCreated), &msg)
	if msg["message"] != "User registered successfully" {
		t.Fatalf("unexpected message %q", msg["message"])
	}

	sendJSONRequest(t, http.MethodPost, ts.URL+"/register", map[string]string{
		"username": "ann", "email": "other@example.com", "password": "x",
	}, "", http.StatusConflict).Body.Close()
	sendJSONRequest(t, http.MethodPost, ts.URL+"/register", map[string]string{
		"username": "bob",
	}, "", http.StatusBadRequest).Body.Close()

	decode(t, sendJSONRequest(t, http.MethodPost, ts.URL+"/login", map[string]string{
		"username": "ann", "password": "wrong",
	}, "", http.StatusUnauthorized), &msg)
	if msg["message"] != "Invalid credentials" {
		t.Fatalf("unexpected message %q", msg["message"])
	}
	sendJSONRequest(t, http.MethodPost, ts.URL+"/login", map[string]string{}, "", http.StatusBadRequest).Body.Close()

	if tok := signup(t, ts.URL, "cat"); tok == "" {
		t.Fatal("expected token")
	}
}

func TestWritesRequireToken(t *testing.T) {
	_, ts := newTestServer(t)

	sendJSONRequest(t, http.MethodPost, ts.URL+"/posts", map[string]any{"title": "x"}, "", http.StatusUnauthorized).Body.Close()
	sendJSONRequest(t, http.MethodPost, ts.URL+"/posts/1/like", nil, "garbage", http.StatusUnauthorized).Body.Close()
	sendJSONRequest(t, http.MethodDelete, ts.URL+"/posts/1", nil, "", http.StatusUnauthorized).Body.Close()
}

//
// --- Posts ---
//

func TestCreatePost_Validation(t *testing.T) {
	_, ts := newTestServer(t)
	tok := signup(t, ts.URL, "ann")

	cases := []struct {
		name string
		body map[string]any
		want string
	}{
		{"no title", map[string]any{"type": "text", "content": "x"}, "Title is required"},
		{"empty quote", map[string]any{"type": "quote"}, "Quote text is required"},
		{"link without url", map[string]any{"type": "link", "title": "x"}, "URL is required for link posts"},
		{"unknown type", map[string]any{"type": "poem", "title": "x"}, "Invalid post type"},
		{"bad category", map[string]any{"title": "x", "category_id": 99}, "Invalid category"},
	}
	for _, tc := range cases {
		var msg map[string]string
		decode(t, sendJSONRequest(t, http.MethodPost, ts.URL+"/posts", tc.body, tok, http.StatusBadRequest), &msg)
		if msg["message"] != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, msg["message"])
		}
	}
}

func TestCreateAndGetPost(t *testing.T) {
	_, ts := newTestServer(t)
	tok := signup(t, ts.URL, "ann")

	id := createPost(t, ts.URL, tok, map[string]any{
		"type": "photo", "title": "Sunset", "content": "caption",
		"tags": "Travel, sky ,travel,", "category_id": 4,
		"media_urls": []string{"/uploads/a.png", "/uploads/b.png"},
	})

	var p models.Post
	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/posts/"+strconv.FormatInt(id, 10), nil, "", http.StatusOK), &p)

	if p.Username != "ann" || p.Type != models.TypePhoto {
		t.Fatalf("unexpected post %+v", p)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "travel" || p.Tags[1] != "sky" {
		t.Fatalf("expected normalized tags, got %v", p.Tags)
	}
	if p.Category == nil || p.Category.Slug != "travel" {
		t.Fatalf("expected travel category, got %+v", p.Category)
	}
	if p.ImageURL != "/uploads/a.png" || len(p.MediaURLs) != 2 {
		t.Fatalf("unexpected media %q %v", p.ImageURL, p.MediaURLs)
	}

	sendJSONRequest(t, http.MethodGet, ts.URL+"/posts/999", nil, "", http.StatusNotFound).Body.Close()
}

func TestCreatePost_DefaultsToUncategorized(t *testing.T) {
	_, ts := newTestServer(t)
	tok := signup(t, ts.URL, "ann")
	id := createPost(t, ts.URL, tok, map[string]any{"type": "quote", "content": "Carpe diem\n— Horace"})

	var p models.Post
	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/posts/"+strconv.FormatInt(id, 10), nil, "", http.StatusOK), &p)
	if p.Category == nil || p.Category.Slug != models.DefaultCategorySlug {
		t.Fatalf("expected default category, got %+v", p.Category)
	}
}

func TestListPosts_PaginatesNewestFirst(t *testing.T) {
	_, ts := newTestServer(t)
	tok := signup(t, ts.URL, "ann")
	for i := 1; i <= 12; i++ {
		createPost(t, ts.URL, tok, map[string]any{"title": "post " + strconv.Itoa(i), "tags": "n" + strconv.Itoa(i)})
	}

	var page models.PostPage
	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/posts?page=1", nil, "", http.StatusOK), &page)
	if len(page.Posts) != 10 || !page.HasMore || page.TotalPosts != 12 {
		t.Fatalf("unexpected first page: %d posts, has_more=%v total=%d", len(page.Posts), page.HasMore, page.TotalPosts)
	}
	if page.Posts[0].Title != "post 12" {
		t.Fatalf("expected newest first, got %q", page.Posts[0].Title)
	}

	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/posts?page=2", nil, "", http.StatusOK), &page)
	if len(page.Posts) != 2 || page.HasMore {
		t.Fatalf("unexpected second page: %d posts, has_more=%v", len(page.Posts), page.HasMore)
	}

	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/posts?page=1&tag=N1", nil, "", http.StatusOK), &page)
	if page.TotalPosts != 4 { // n1, n10, n11, n12
		t.Fatalf("expected 4 tag matches, got %d", page.TotalPosts)
	}

	var bare []models.Post
	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/posts", nil, "", http.StatusOK), &bare)
	if len(bare) != 12 {
		t.Fatalf("expected bare list of 12, got %d", len(bare))
	}

	sendJSONRequest(t, http.MethodGet, ts.URL+"/posts?page=0", nil, "", http.StatusBadRequest).Body.Close()
}

func TestPostsByTagAndCategory(t *testing.T) {
	_, ts := newTestServer(t)
	tok := signup(t, ts.URL, "ann")
	createPost(t, ts.URL, tok, map[string]any{"title": "a", "tags": "go", "category_id": 3})
	createPost(t, ts.URL, tok, map[string]any{"title": "b", "tags": "golang"})

	var posts []models.Post
	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/posts/tag/Go", nil, "", http.StatusOK), &posts)
	if len(posts) != 1 || posts[0].Title != "a" {
		t.Fatalf("expected exact tag match, got %+v", posts)
	}

	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/posts/category/technology", nil, "", http.StatusOK), &posts)
	if len(posts) != 1 || posts[0].Title != "a" {
		t.Fatalf("expected one technology post, got %+v", posts)
	}
	sendJSONRequest(t, http.MethodGet, ts.URL+"/posts/category/nope", nil, "", http.StatusNotFound).Body.Close()
}

func TestUpdateAndDelete_OnlyAuthor(t *testing.T) {
	_, ts := newTestServer(t)
	ann := signup(t, ts.URL, "ann")
	bob := signup(t, ts.URL, "bob")
	id := createPost(t, ts.URL, ann, map[string]any{"type": "text", "title": "Draft"})
	url := ts.URL + "/posts/" + strconv.FormatInt(id, 10)

	var msg map[string]string
	decode(t, sendJSONRequest(t, http.MethodPut, url, map[string]any{"title": "Hijack"}, bob, http.StatusForbidden), &msg)
	if msg["message"] != "Forbidden" {
		t.Fatalf("unexpected message %q", msg["message"])
	}
	sendJSONRequest(t, http.MethodDelete, url, nil, bob, http.StatusForbidden).Body.Close()

	decode(t, sendJSONRequest(t, http.MethodPut, url, map[string]any{"type": "link", "title": "Final", "tags": "A,b"}, ann, http.StatusOK), &msg)
	if msg["message"] != "Post updated successfully" {
		t.Fatalf("unexpected message %q", msg["message"])
	}
	var p models.Post
	decode(t, sendJSONRequest(t, http.MethodGet, url, nil, "", http.StatusOK), &p)
	if p.Title != "Final" || p.Type != models.TypeText || len(p.Tags) != 2 {
		t.Fatalf("unexpected post after update %+v", p)
	}

	decode(t, sendJSONRequest(t, http.MethodDelete, url, nil, ann, http.StatusOK), &msg)
	if msg["message"] != "Post deleted successfully" {
		t.Fatalf("unexpected message %q", msg["message"])
	}
	sendJSONRequest(t, http.MethodGet, url, nil, "", http.StatusNotFound).Body.Close()
	sendJSONRequest(t, http.MethodPut, url, map[string]any{"title": "x"}, ann, http.StatusNotFound).Body.Close()
}

func TestViewsCountOncePerOtherUser(t *testing.T) {
	_, ts := newTestServer(t)
	ann := signup(t, ts.URL, "ann")
	bob := signup(t, ts.URL, "bob")
	id := createPost(t, ts.URL, ann, map[string]any{"title": "x"})
	url := ts.URL + "/posts/" + strconv.FormatInt(id, 10)

	sendJSONRequest(t, http.MethodGet, url, nil, ann, http.StatusOK).Body.Close()
	sendJSONRequest(t, http.MethodGet, url, nil, "", http.StatusOK).Body.Close()
	sendJSONRequest(t, http.MethodGet, url, nil, bob, http.StatusOK).Body.Close()

	var p models.Post
	decode(t, sendJSONRequest(t, http.MethodGet, url, nil, bob, http.StatusOK), &p)
	if p.ViewCount != 1 {
		t.Fatalf("expected 1 view, got %d", p.ViewCount)
	}
}

//
// --- Likes, comments, webmentions ---
//

func TestToggleLike(t *testing.T) {
	_, ts := newTestServer(t)
	ann := signup(t, ts.URL, "ann")
	bob := signup(t, ts.URL, "bob")
	id := createPost(t, ts.URL, ann, map[string]any{"title": "x"})
	url := ts.URL + "/posts/" + strconv.FormatInt(id, 10)

	var st models.LikeState
	decode(t, sendJSONRequest(t, http.MethodPost, url+"/like", nil, bob, http.StatusOK), &st)
	if !st.Liked || st.LikeCount != 1 {
		t.Fatalf("expected liked with 1, got %+v", st)
	}

	var p models.Post
	decode(t, sendJSONRequest(t, http.MethodGet, url, nil, bob, http.StatusOK), &p)
	if !p.LikedByUser || p.LikeCount != 1 {
		t.Fatalf("expected liked_by_user, got %+v", p)
	}
	decode(t, sendJSONRequest(t, http.MethodGet, url, nil, ann, http.StatusOK), &p)
	if p.LikedByUser {
		t.Fatal("author did not like the post")
	}

	decode(t, sendJSONRequest(t, http.MethodPost, url+"/like", nil, bob, http.StatusOK), &st)
	if st.Liked || st.LikeCount != 0 {
		t.Fatalf("expected unliked with 0, got %+v", st)
	}
	sendJSONRequest(t, http.MethodPost, ts.URL+"/posts/999/like", nil, bob, http.StatusNotFound).Body.Close()
}

func TestComments(t *testing.T) {
	_, ts := newTestServer(t)
	ann := signup(t, ts.URL, "ann")
	id := createPost(t, ts.URL, ann, map[string]any{"title": "x"})
	url := ts.URL + "/posts/" + strconv.FormatInt(id, 10) + "/comments"

	var msg map[string]string
	decode(t, sendJSONRequest(t, http.MethodPost, url, map[string]string{"content": "  "}, ann, http.StatusBadRequest), &msg)
	if msg["message"] != "Comment content is required" {
		t.Fatalf("unexpected message %q", msg["message"])
	}

	var c models.Comment
	decode(t, sendJSONRequest(t, http.MethodPost, url, map[string]string{"content": "first"}, ann, http.StatusCreated), &c)
	if c.Username != "ann" || c.PostID != id || c.Content != "first" {
		t.Fatalf("unexpected comment %+v", c)
	}
	sendJSONRequest(t, http.MethodPost, url, map[string]string{"content": "second"}, ann, http.StatusCreated).Body.Close()

	var list []models.Comment
	decode(t, sendJSONRequest(t, http.MethodGet, url, nil, "", http.StatusOK), &list)
	if len(list) != 2 || list[0].Content != "first" || list[1].Content != "second" {
		t.Fatalf("expected ascending comments, got %+v", list)
	}
}

func TestWebmentions(t *testing.T) {
	s, ts := newTestServer(t)
	ann := signup(t, ts.URL, "ann")
	id := createPost(t, ts.URL, ann, map[string]any{"title": "x"})

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.AddWebmention(id, models.Webmention{SourceURL: "https://a.example", MentionType: "reply", PublishedAt: models.At(old)}); err != nil {
		t.Fatalf("add webmention: %v", err)
	}
	if err := s.AddWebmention(id, models.Webmention{SourceURL: "https://b.example", MentionType: "like", PublishedAt: models.At(old.Add(time.Hour))}); err != nil {
		t.Fatalf("add webmention: %v", err)
	}
	if err := s.AddWebmention(999, models.Webmention{}); err == nil {
		t.Fatal("expected error for unknown post")
	}

	var list []models.Webmention
	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/posts/"+strconv.FormatInt(id, 10)+"/webmentions", nil, "", http.StatusOK), &list)
	if len(list) != 2 || list[0].SourceURL != "https://b.example" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

//
// --- Captcha & uploads ---
//

func TestCaptcha_SingleUse(t *testing.T) {
	_, ts := newTestServer(t)

	var ch struct {
		Question string `json:"question"`
		Token    string `json:"captcha_token"`
	}
	decode(t, sendJSONRequest(t, http.MethodGet, ts.URL+"/captcha/new", nil, "", http.StatusOK), &ch)
	if ch.Question != "1 + 1 = ?" || ch.Token == "" {
		t.Fatalf("unexpected challenge %+v", ch)
	}

	var ok map[string]any
	decode(t, sendJSONRequest(t, http.MethodPost, ts.URL+"/captcha/verify",
		map[string]string{"captcha_token": ch.Token, "answer": " 2 "}, "", http.StatusOK), &ok)
	if ok["success"] != true {
		t.Fatalf("expected success, got %v", ok)
	}
	decode(t, sendJSONRequest(t, http.MethodPost, ts.URL+"/captcha/verify",
		map[string]string{"captcha_token": ch.Token, "answer": "2"}, "", http.StatusBadRequest), &ok)
	if ok["success"] != false || ok["message"] != "Invalid captcha" {
		t.Fatalf("expected reuse to fail, got %v", ok)
	}
}

func TestUploadAndServe(t *testing.T) {
	_, ts := newTestServer(t)
	tok := signup(t, ts.URL, "ann")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "note.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte("hello upload"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out map[string]string
	decode(t, resp, &out)

	got := sendJSONRequest(t, http.MethodGet, ts.URL+out["file_url"], nil, "", http.StatusOK)
	b, _ := io.ReadAll(got.Body)
	got.Body.Close()
	if string(b) != "hello upload" {
		t.Fatalf("unexpected content %q", b)
	}
	sendJSONRequest(t, http.MethodGet, ts.URL+"/uploads/missing", nil, "", http.StatusNotFound).Body.Close()
}

//
// --- End to end through the client ---
//

func loginClient(t *testing.T, url, name string) *api.Client {
	t.Helper()
	anon := api.NewClient(url, 5*time.Second, nil)
	ctx := context.Background()
	if _, err := anon.Register(ctx, name, name+"@example.com", "pw"); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	tok, err := anon.Login(ctx, name, "pw")
	if err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	return api.NewClient(url, 5*time.Second, func() string { return tok })
}

func TestEndToEnd_PhotoPostWithCaptcha(t *testing.T) {
	_, ts := newTestServer(t)
	c := loginClient(t, ts.URL, "ann")
	ctx := context.Background()

	f := compose.NewForm(c, compose.Options{Captcha: true, UploadConcurrency: 2})
	if err := f.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	d := compose.NewDraft(models.TypePhoto)
	d.Title = "Sunset"
	d.Tags = "Sky, sea"
	d.CategoryID = f.Draft().CategoryID
	d.CaptchaAnswer = "2"
	d.Content = compose.Photo{Media: compose.Media{
		Caption: "golden hour",
		Files: []compose.File{
			compose.FileFromBytes("a.png", []byte("png-a")),
			compose.FileFromBytes("b.png", []byte("png-b")),
		},
	}}
	if err := f.SetDraft(d); err != nil {
		t.Fatalf("set draft: %v", err)
	}

	res, err := f.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	p, err := c.GetPost(ctx, res.PostID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if len(p.MediaURLs) != 2 || p.Content != "golden hour" || p.Tags[0] != "sky" {
		t.Fatalf("unexpected created post %+v", p)
	}
}

func TestEndToEnd_WrongCaptchaCreatesNothing(t *testing.T) {
	_, ts := newTestServer(t)
	c := loginClient(t, ts.URL, "ann")
	ctx := context.Background()

	f := compose.NewForm(c, compose.Options{Captcha: true})
	if err := f.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	d := f.Draft()
	d.Title = "Hello"
	d.Content = compose.Text{Body: "World"}
	d.CaptchaAnswer = "3"
	f.SetDraft(d)

	if _, err := f.Submit(ctx); err == nil {
		t.Fatal("expected captcha failure")
	}
	page, err := c.ListPosts(ctx, api.ListQuery{Page: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalPosts != 0 {
		t.Fatalf("expected no posts, got %d", page.TotalPosts)
	}
}

func TestEndToEnd_EditQuoteAndLike(t *testing.T) {
	_, ts := newTestServer(t)
	ann := loginClient(t, ts.URL, "ann")
	bob := loginClient(t, ts.URL, "bob")
	ctx := context.Background()

	created, err := ann.CreatePost(ctx, api.PostPayload{Type: models.TypeQuote, Content: compose.JoinQuote("Carpe diem", "Horace")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	e := compose.NewEditor(ann, created.PostID, compose.Options{})
	if err := e.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	d := e.Draft()
	q, ok := d.Content.(compose.Quote)
	if !ok || q.Text != "Carpe diem" || q.Author != "Horace" {
		t.Fatalf("unexpected quote %+v", d.Content)
	}
	q.Author = "Quintus Horatius"
	d.Content = q
	if err := e.SetDraft(d); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	if _, err := e.Submit(ctx); err != nil {
		t.Fatalf("update: %v", err)
	}

	p, err := bob.GetPost(ctx, created.PostID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, author := compose.SplitQuote(p.Content); author != "Quintus Horatius" {
		t.Fatalf("expected updated author, got %q", author)
	}

	b := like.New(bob, *p, func() string { return "token" })
	st, err := b.Toggle(ctx)
	if err != nil || !st.Liked || st.Count != 1 {
		t.Fatalf("expected liked 1, got %+v %v", st, err)
	}
	st, err = b.Toggle(ctx)
	if err != nil || st.Liked || st.Count != 0 {
		t.Fatalf("expected unliked 0, got %+v %v", st, err)
	}

	if err := bob.DeletePost(ctx, created.PostID); api.Message(err) != "Forbidden" {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}
