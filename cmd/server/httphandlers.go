package server

import (
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/middleware"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

const maxUploadBytes = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logg.Error("server", "Failed to encode response", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func randomTerm() int { return rand.IntN(9) + 1 }

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// normalizeTags splits on commas, trims, lower-cases and drops blanks and
// duplicates.
func normalizeTags(raw string) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

// view returns a copy of p as seen by viewer. s.mu must be held.
func (s *Server) view(p *models.Post, viewer int64) models.Post {
	out := *p
	out.Tags = append([]string{}, p.Tags...)
	out.MediaURLs = append([]string(nil), p.MediaURLs...)
	if u, ok := s.users[p.UserID]; ok {
		out.Username = u.Username
	}
	out.LikeCount = len(s.likes[p.ID])
	out.LikedByUser = viewer != 0 && s.likes[p.ID][viewer]
	out.ViewCount = len(s.views[p.ID])
	if p.Category != nil {
		c := *p.Category
		out.Category = &c
	}
	return out
}

// newestFirst lists every post matching keep, newest first. s.mu must be
// held.
func (s *Server) newestFirst(viewer int64, keep func(*models.Post) bool) []models.Post {
	out := []models.Post{}
	for i := len(s.order) - 1; i >= 0; i-- {
		p, ok := s.posts[s.order[i]]
		if !ok || !keep(p) {
			continue
		}
		out = append(out, s.view(p, viewer))
	}
	return out
}

func viewerID(r *http.Request) int64 {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

// --- posts ---

// listPostsHandler serves GET /posts. Without a page parameter the whole
// list is returned bare; with one the reply is paginated.
func (s *Server) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag := strings.ToLower(strings.TrimSpace(q.Get("tag")))

	s.mu.RLock()
	posts := s.newestFirst(viewerID(r), func(p *models.Post) bool {
		return p.HasTagSubstring(tag)
	})
	s.mu.RUnlock()

	pageStr := q.Get("page")
	if pageStr == "" {
		writeJSON(w, http.StatusOK, posts)
		return
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		writeMessage(w, http.StatusBadRequest, "Invalid page")
		return
	}

	total := len(posts)
	start := (page - 1) * s.pageSize
	if start > total {
		start = total
	}
	end := start + s.pageSize
	if end > total {
		end = total
	}
	writeJSON(w, http.StatusOK, models.PostPage{
		Posts:      posts[start:end],
		HasMore:    end < total,
		TotalPosts: total,
		Page:       page,
	})
}

func (s *Server) postsByTagHandler(w http.ResponseWriter, r *http.Request) {
	tag := strings.ToLower(strings.TrimSpace(mux.Vars(r)["tag"]))
	s.mu.RLock()
	posts := s.newestFirst(viewerID(r), func(p *models.Post) bool {
		for _, t := range p.Tags {
			if t == tag {
				return true
			}
		}
		return false
	})
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) postsByCategoryHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	s.mu.RLock()
	defer s.mu.RUnlock()
	cat, ok := s.categoryBySlug(slug)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Category not found")
		return
	}
	posts := s.newestFirst(viewerID(r), func(p *models.Post) bool {
		return p.Category != nil && p.Category.ID == cat.ID
	})
	writeJSON(w, http.StatusOK, posts)
}

// postRequest mirrors the client's create and update body.
type postRequest struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Tags        string   `json:"tags"`
	CategoryID  int64    `json:"category_id"`
	Attribution string   `json:"attribution"`
	License     string   `json:"license"`
	LinkURL     string   `json:"link_url"`
	MediaURLs   []string `json:"media_urls"`
	ImageURL    string   `json:"image_url"`
}

// check validates body for a post of type t and resolves its category.
// s.mu must be held.
func (s *Server) check(t models.PostType, body postRequest) (*models.Category, string) {
	switch {
	case t != models.TypeQuote && strings.TrimSpace(body.Title) == "":
		return nil, "Title is required"
	case t == models.TypeQuote && strings.TrimSpace(body.Content) == "":
		return nil, "Quote text is required"
	case t == models.TypeLink && strings.TrimSpace(body.LinkURL) == "":
		return nil, "URL is required for link posts"
	case utf8.RuneCountInString(body.License) > 255:
		return nil, "License must be at most 255 characters"
	}
	if body.CategoryID == 0 {
		c, _ := s.categoryBySlug(models.DefaultCategorySlug)
		return c, ""
	}
	for i := range s.categories {
		if s.categories[i].ID == body.CategoryID {
			c := s.categories[i]
			return &c, ""
		}
	}
	return nil, "Invalid category"
}

func (s *Server) categoryBySlug(slug string) (*models.Category, bool) {
	for i := range s.categories {
		if strings.EqualFold(s.categories[i].Slug, slug) {
			c := s.categories[i]
			return &c, true
		}
	}
	return nil, false
}

func (s *Server) createPostHandler(w http.ResponseWriter, r *http.Request) {
	var body postRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/posts", "Invalid request body", err)
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	userID := viewerID(r)
	if body.Type == "" {
		body.Type = string(models.TypeText)
	}
	t, ok := models.ParsePostType(body.Type)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid post type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		writeMessage(w, http.StatusUnauthorized, "Unknown user")
		return
	}
	cat, msg := s.check(t, body)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	s.nextID++
	p := &models.Post{
		ID:          s.nextID,
		UserID:      userID,
		Type:        t,
		Title:       strings.TrimSpace(body.Title),
		Content:     body.Content,
		LinkURL:     strings.TrimSpace(body.LinkURL),
		Category:    cat,
		Tags:        normalizeTags(body.Tags),
		Attribution: body.Attribution,
		License:     body.License,
		CreatedAt:   models.At(s.now().UTC()),
	}
	if t.IsMedia() {
		p.MediaURLs = body.MediaURLs
		p.ImageURL = body.ImageURL
		if p.ImageURL == "" && len(p.MediaURLs) > 0 {
			p.ImageURL = p.MediaURLs[0]
		}
	}
	s.posts[p.ID] = p
	s.order = append(s.order, p.ID)

	logg.Info("http/posts", "Post created by user_id="+strconv.FormatInt(userID, 10))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Post created successfully",
		"post_id": p.ID,
	})
}

// getPostHandler counts one view per signed-in viewer other than the
// author.
func (s *Server) getPostHandler(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	viewer := viewerID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	if viewer != 0 && viewer != p.UserID {
		if s.views[id] == nil {
			s.views[id] = make(map[int64]bool)
		}
		s.views[id][viewer] = true
	}
	writeJSON(w, http.StatusOK, s.view(p, viewer))
}

// owned returns the post when it exists and belongs to the requester,
// writing the 404 or 403 reply otherwise. s.mu must be held.
func (s *Server) owned(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	p, ok := s.posts[pathID(r)]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return nil, false
	}
	if p.UserID != viewerID(r) {
		writeMessage(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	return p, true
}

// updatePostHandler changes the editable fields. Type and media stay as
// created.
func (s *Server) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	var body postRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owned(w, r)
	if !ok {
		return
	}
	cat, msg := s.check(p.Type, body)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	p.Title = strings.TrimSpace(body.Title)
	p.Content = body.Content
	p.Tags = normalizeTags(body.Tags)
	p.Category = cat
	p.Attribution = body.Attribution
	p.License = body.License
	if p.Type == models.TypeLink {
		p.LinkURL = strings.TrimSpace(body.LinkURL)
	}
	writeMessage(w, http.StatusOK, "Post updated successfully")
}

func (s *Server) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owned(w, r)
	if !ok {
		return
	}
	delete(s.posts, p.ID)
	delete(s.likes, p.ID)
	delete(s.views, p.ID)
	delete(s.comments, p.ID)
	delete(s.webmentions, p.ID)
	for i, id := range s.order {
		if id == p.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	writeMessage(w, http.StatusOK, "Post deleted successfully")
}

func (s *Server) toggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	userID := viewerID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	if s.likes[id] == nil {
		s.likes[id] = make(map[int64]bool)
	}
	liked := !s.likes[id][userID]
	if liked {
		s.likes[id][userID] = true
	} else {
		delete(s.likes[id], userID)
	}
	writeJSON(w, http.StatusOK, models.LikeState{Liked: liked, LikeCount: len(s.likes[id])})
}

// --- comments & webmentions ---

func (s *Server) listCommentsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := append([]models.Comment{}, s.comments[pathID(r)]...)
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Content) == "" {
		writeMessage(w, http.StatusBadRequest, "Comment content is required")
		return
	}
	defer r.Body.Close()

	id := pathID(r)
	userID := viewerID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	s.nextID++
	c := models.Comment{
		ID:        s.nextID,
		PostID:    id,
		UserID:    userID,
		Content:   body.Content,
		CreatedAt: models.At(s.now().UTC()),
	}
	if u, ok := s.users[userID]; ok {
		c.Username = u.Username
	}
	s.comments[id] = append(s.comments[id], c)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listWebmentionsHandler(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.posts[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	list := append([]models.Webmention{}, s.webmentions[id]...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].PublishedAt.After(list[j].PublishedAt.Time) })
	writeJSON(w, http.StatusOK, list)
}

// AddWebmention records a mention received for postID.
func (s *Server) AddWebmention(postID int64, m models.Webmention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return errors.New("post not found")
	}
	s.nextID++
	m.ID = s.nextID
	if m.PublishedAt.IsZero() {
		m.PublishedAt = models.At(s.now().UTC())
	}
	s.webmentions[postID] = append(s.webmentions[postID], m)
	return nil
}

func (s *Server) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.categories)
}

// --- uploads ---

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	key := uuid.NewString() + "-" + filepath.Base(header.Filename)

	s.mu.Lock()
	s.uploads[key] = upload{Name: header.Filename, Data: data}
	s.mu.Unlock()

	logg.Info("http/upload", "Stored upload of "+strconv.Itoa(len(data))+" bytes")
	writeJSON(w, http.StatusCreated, map[string]string{"file_url": "/uploads/" + key})
}

func (s *Server) serveUploadHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	up, ok := s.uploads[mux.Vars(r)["key"]]
	s.mu.RUnlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(up.Data))
	w.Write(up.Data)
}

// --- captcha ---

func (s *Server) newCaptchaHandler(w http.ResponseWriter, r *http.Request) {
	a, b := s.captchaTerm(), s.captchaTerm()
	token := uuid.NewString()

	s.mu.Lock()
	s.captchas[token] = strconv.Itoa(a + b)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"question":      strconv.Itoa(a) + " + " + strconv.Itoa(b) + " = ?",
		"captcha_token": token,
	})
}

// verifyCaptchaHandler consumes the challenge whatever the answer.
func (s *Server) verifyCaptchaHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token  string `json:"captcha_token"`
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid captcha"})
		return
	}
	defer r.Body.Close()

	s.mu.Lock()
	want, ok := s.captchas[body.Token]
	delete(s.captchas, body.Token)
	s.mu.Unlock()

	if ok && strings.TrimSpace(body.Answer) == want {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid captcha"})
}

// --- auth ---

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	defer r.Body.Close()
	body.Username = strings.TrimSpace(body.Username)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Username == "" || body.Email == "" || body.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		logg.Error("http/register", "Failed to hash password", err)
		writeMessage(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, nameTaken := s.byName[body.Username]
	_, emailTaken := s.byEmail[body.Email]
	if nameTaken || emailTaken {
		writeMessage(w, http.StatusConflict, "Username or email already exists")
		return
	}
	s.nextID++
	u := &user{ID: s.nextID, Username: body.Username, Email: body.Email, PasswordHash: hash}
	s.users[u.ID] = u
	s.byName[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID

	logg.Info("http/register", "User registered with user_id="+strconv.FormatInt(u.ID, 10))
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Missing username or password")
		return
	}
	defer r.Body.Close()

	s.mu.RLock()
	var u *user
	if id, ok := s.byName[strings.TrimSpace(body.Username)]; ok {
		u = s.users[id]
	}
	s.mu.RUnlock()

	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(body.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token, err := middleware.NewToken(s.secret, u.ID, s.tokenTTL)
	if err != nil {
		logg.Error("http/login", "Failed to sign token", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}
