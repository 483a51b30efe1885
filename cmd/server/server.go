package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/middleware"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

var logg = logger.New()

// DefaultPageSize is the number of posts per page of GET /posts.
const DefaultPageSize = 10

type user struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
}

type upload struct {
	Name string
	Data []byte
}

// Server is an in-memory implementation of the blog API for development
// and end-to-end tests. Nothing survives a restart.
type Server struct {
	secret   []byte
	tokenTTL time.Duration
	pageSize int
	now      func() time.Time
	// captchaTerm returns an operand of a new challenge.
	captchaTerm func() int

	mu          sync.RWMutex
	nextID      int64
	users       map[int64]*user
	byName      map[string]int64
	byEmail     map[string]int64
	posts       map[int64]*models.Post
	order       []int64
	likes       map[int64]map[int64]bool
	views       map[int64]map[int64]bool
	comments    map[int64][]models.Comment
	webmentions map[int64][]models.Webmention
	categories  []models.Category
	captchas    map[string]string
	uploads     map[string]upload
}

// New returns a server with the default categories seeded.
func New(secret []byte) *Server {
	return &Server{
		secret:      secret,
		tokenTTL:    24 * time.Hour,
		pageSize:    DefaultPageSize,
		now:         time.Now,
		captchaTerm: randomTerm,
		users:       make(map[int64]*user),
		byName:      make(map[string]int64),
		byEmail:     make(map[string]int64),
		posts:       make(map[int64]*models.Post),
		likes:       make(map[int64]map[int64]bool),
		views:       make(map[int64]map[int64]bool),
		comments:    make(map[int64][]models.Comment),
		webmentions: make(map[int64][]models.Webmention),
		categories: []models.Category{
			{ID: 1, Name: "Uncategorized", Slug: models.DefaultCategorySlug},
			{ID: 2, Name: "General", Slug: "general"},
			{ID: 3, Name: "Technology", Slug: "technology"},
			{ID: 4, Name: "Travel", Slug: "travel"},
		},
		captchas: make(map[string]string),
		uploads:  make(map[string]upload),
	}
}

// Routes wires every endpoint. Reads are public and see the viewer when a
// token is present; writes require a token.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)
	auth := middleware.JWTAuth(s.secret)
	optional := middleware.OptionalJWT(s.secret)

	r.Handle("/posts", optional(http.HandlerFunc(s.listPostsHandler))).Methods(http.MethodGet)
	r.Handle("/posts", auth(http.HandlerFunc(s.createPostHandler))).Methods(http.MethodPost)
	r.Handle("/posts/tag/{tag}", optional(http.HandlerFunc(s.postsByTagHandler))).Methods(http.MethodGet)
	r.Handle("/posts/category/{slug}", optional(http.HandlerFunc(s.postsByCategoryHandler))).Methods(http.MethodGet)
	r.Handle("/posts/{id:[0-9]+}", optional(http.HandlerFunc(s.getPostHandler))).Methods(http.MethodGet)
	r.Handle("/posts/{id:[0-9]+}", auth(http.HandlerFunc(s.updatePostHandler))).Methods(http.MethodPut)
	r.Handle("/posts/{id:[0-9]+}", auth(http.HandlerFunc(s.deletePostHandler))).Methods(http.MethodDelete)
	r.Handle("/posts/{id:[0-9]+}/like", auth(http.HandlerFunc(s.toggleLikeHandler))).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id:[0-9]+}/comments", s.listCommentsHandler).Methods(http.MethodGet)
	r.Handle("/posts/{id:[0-9]+}/comments", auth(http.HandlerFunc(s.addCommentHandler))).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id:[0-9]+}/webmentions", s.listWebmentionsHandler).Methods(http.MethodGet)

	r.HandleFunc("/categories", s.listCategoriesHandler).Methods(http.MethodGet)
	r.Handle("/upload", auth(http.HandlerFunc(s.uploadHandler))).Methods(http.MethodPost)
	r.HandleFunc("/uploads/{key}", s.serveUploadHandler).Methods(http.MethodGet)

	r.HandleFunc("/captcha/new", s.newCaptchaHandler).Methods(http.MethodGet)
	r.HandleFunc("/captcha/verify", s.verifyCaptchaHandler).Methods(http.MethodPost)
	r.HandleFunc("/register", s.registerHandler).Methods(http.MethodPost)
	r.HandleFunc("/login", s.loginHandler).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msg := r.Method + " " + r.URL.Path
		if id := r.Header.Get("X-Request-Id"); id != "" {
			msg += " request_id=" + id
		}
		logg.Debug("server", msg)
		next.ServeHTTP(w, r)
	})
}

// Run serves s on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, s *Server, addr string) {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logg.Info("server", "Starting HTTP server on "+addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}
