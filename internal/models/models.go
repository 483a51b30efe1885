package models

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// PostType selects which fields of a Post carry its primary payload.
type PostType string

const (
	TypeText  PostType = "text"
	TypePhoto PostType = "photo"
	TypeVideo PostType = "video"
	TypeAudio PostType = "audio"
	TypeQuote PostType = "quote"
	TypeLink  PostType = "link"
)

// PostTypes lists every type in the order the composer offers them.
var PostTypes = []PostType{TypeText, TypePhoto, TypeVideo, TypeAudio, TypeQuote, TypeLink}

func (t PostType) Valid() bool {
	for _, p := range PostTypes {
		if p == t {
			return true
		}
	}
	return false
}

// IsMedia reports whether posts of this type carry uploaded files.
func (t PostType) IsMedia() bool {
	return t == TypePhoto || t == TypeVideo || t == TypeAudio
}

// ParsePostType accepts any casing; unknown names report false.
func ParsePostType(s string) (PostType, bool) {
	t := PostType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// DefaultCategorySlug is the category the composer pre-selects.
const DefaultCategorySlug = "uncategorized"

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Post struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username,omitempty"`
	Type        PostType  `json:"type"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	MediaURLs   []string  `json:"media_urls,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	LinkURL     string    `json:"link_url,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Tags        []string  `json:"tags"`
	Attribution string    `json:"attribution,omitempty"`
	License     string    `json:"license,omitempty"`
	LikeCount   int       `json:"like_count"`
	LikedByUser bool      `json:"liked_by_user"`
	ViewCount   int       `json:"view_count"`
	CreatedAt   Timestamp `json:"created_at"`
}

// Media returns the post's media URLs, falling back to the single legacy
// image_url field.
func (p Post) Media() []string {
	if len(p.MediaURLs) > 0 {
		return p.MediaURLs
	}
	if p.ImageURL != "" {
		return []string{p.ImageURL}
	}
	return nil
}

// HasTagSubstring matches q case-insensitively against any tag. An empty
// query matches every post.
func (p Post) HasTagSubstring(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// PostPage is one page of the feed.
type PostPage struct {
	Posts      []Post `json:"posts"`
	HasMore    bool   `json:"has_more"`
	TotalPosts int    `json:"total_posts"`
	Page       int    `json:"page,omitempty"`
}

// UnmarshalJSON accepts both the paginated object and a bare list of posts.
// A bare list is a complete result with no further pages.
func (p *PostPage) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		var posts []Post
		if err := json.Unmarshal(b, &posts); err != nil {
			return err
		}
		*p = PostPage{Posts: posts, TotalPosts: len(posts)}
		return nil
	}
	type page PostPage
	var v page
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = PostPage(v)
	return nil
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
}

type Webmention struct {
	ID          int64     `json:"id"`
	SourceURL   string    `json:"source_url"`
	AuthorName  string    `json:"author_name,omitempty"`
	AuthorURL   string    `json:"author_url,omitempty"`
	AuthorPhoto string    `json:"author_photo,omitempty"`
	MentionType string    `json:"mention_type"`
	Content     string    `json:"content,omitempty"`
	PublishedAt Timestamp `json:"published_at"`
}

// CaptchaChallenge is single use: it is replaced after a failed
// verification and after a successful submission.
type CaptchaChallenge struct {
	Token    string `json:"captcha_token"`
	Question string `json:"question"`
}

// UnmarshalJSON also accepts the older captcha_id field name.
func (c *CaptchaChallenge) UnmarshalJSON(b []byte) error {
	var v struct {
		Token    string `json:"captcha_token"`
		ID       string `json:"captcha_id"`
		Question string `json:"question"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	c.Token, c.Question = v.Token, v.Question
	if c.Token == "" {
		c.Token = v.ID
	}
	return nil
}

type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ParseTheme maps anything that is not "dark" to light.
func ParseTheme(s string) Theme {
	if Theme(strings.ToLower(s)) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// Timestamp is a time that decodes from RFC 3339 as well as the HTTP date
// format ("Mon, 02 Jan 2006 15:04:05 GMT") some servers emit. It encodes as
// RFC 3339.
type Timestamp struct {
	time.Time
}

// At wraps t.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

var timestampLayouts = []string{time.RFC3339Nano, http.TimeFormat, time.RFC1123Z, time.RFC1123}

// UnmarshalJSON accepts null and the empty string as the zero time.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*ts = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts = Timestamp{Time: t}
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

// PostIDString formats an id for URL paths.
func PostIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
