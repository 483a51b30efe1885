// Package activity publishes an event to Kafka after every successful
// mutation made through the API client, and tails those events back.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	appkafka "github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/broker"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

var logg = logger.New()

// Event kinds, also used as the Kafka message key.
const (
	PostCreated  = "post_created"
	PostUpdated  = "post_updated"
	PostDeleted  = "post_deleted"
	LikeToggled  = "like_toggled"
	CommentAdded = "comment_added"
)

type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	PostID    int64           `json:"post_id"`
	PostType  models.PostType `json:"post_type,omitempty"`
	Liked     *bool           `json:"liked,omitempty"`
	LikeCount int             `json:"like_count,omitempty"`
	CommentID int64           `json:"comment_id,omitempty"`
	At        time.Time       `json:"at"`
}

// Publisher is an api.Service that forwards every call and, when a
// mutation succeeds, writes an Event. A failed publish is logged and never
// turns a successful mutation into an error.
type Publisher struct {
	api.Service
	writer appkafka.KafkaWriter
	now    func() time.Time
}

func NewPublisher(svc api.Service, w appkafka.KafkaWriter) *Publisher {
	return &Publisher{Service: svc, writer: w, now: time.Now}
}

func (p *Publisher) publish(ev Event) {
	ev.ID = uuid.NewString()
	ev.At = p.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		logg.Error("activity", "Failed to marshal event", err)
		return
	}
	if err := p.writer.WriteMessages(kafka.Message{Key: []byte(ev.Type), Value: data}); err != nil {
		logg.Error("activity", "Failed to write Kafka message", err)
		return
	}
	logg.Debug("activity", "Published "+ev.Type)
}

func (p *Publisher) CreatePost(ctx context.Context, pl api.PostPayload) (*api.Created, error) {
	created, err := p.Service.CreatePost(ctx, pl)
	if err != nil {
		return nil, err
	}
	p.publish(Event{Type: PostCreated, PostID: created.PostID, PostType: pl.Type})
	return created, nil
}

func (p *Publisher) UpdatePost(ctx context.Context, id int64, pl api.PostPayload) error {
	if err := p.Service.UpdatePost(ctx, id, pl); err != nil {
		return err
	}
	p.publish(Event{Type: PostUpdated, PostID: id, PostType: pl.Type})
	return nil
}

func (p *Publisher) DeletePost(ctx context.Context, id int64) error {
	if err := p.Service.DeletePost(ctx, id); err != nil {
		return err
	}
	p.publish(Event{Type: PostDeleted, PostID: id})
	return nil
}

func (p *Publisher) ToggleLike(ctx context.Context, postID int64) (*models.LikeState, error) {
	st, err := p.Service.ToggleLike(ctx, postID)
	if err != nil {
		return nil, err
	}
	liked := st.Liked
	p.publish(Event{Type: LikeToggled, PostID: postID, Liked: &liked, LikeCount: st.LikeCount})
	return st, nil
}

func (p *Publisher) AddComment(ctx context.Context, postID int64, content string) (*models.Comment, error) {
	c, err := p.Service.AddComment(ctx, postID, content)
	if err != nil {
		return nil, err
	}
	p.publish(Event{Type: CommentAdded, PostID: postID, CommentID: c.ID})
	return c, nil
}
