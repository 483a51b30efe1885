package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	appkafka "github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/broker"
)

// Tail reads events from r and writes one line per event to w until ctx is
// done. Read errors back off exponentially up to one second; undecodable
// messages are logged and skipped.
func Tail(ctx context.Context, r appkafka.KafkaReader, w io.Writer) {
	var retry int
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			backoff := time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
			logg.Error("tail", "Kafka read error, backing off", err)
			if !waitWithContext(ctx, backoff) {
				return
			}
			retry++
			continue
		}
		retry = 0

		if len(msg.Value) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logg.Error("tail", "Invalid JSON in Kafka message", err)
			continue
		}
		fmt.Fprintln(w, Format(ev))
	}
}

// Format renders ev as one human readable line.
func Format(ev Event) string {
	line := fmt.Sprintf("%s %-13s post=%d", ev.At.Format(time.RFC3339), ev.Type, ev.PostID)
	switch ev.Type {
	case PostCreated, PostUpdated:
		if ev.PostType != "" {
			line += " type=" + string(ev.PostType)
		}
	case LikeToggled:
		if ev.Liked != nil {
			line += fmt.Sprintf(" liked=%t count=%d", *ev.Liked, ev.LikeCount)
		}
	case CommentAdded:
		line += fmt.Sprintf(" comment=%d", ev.CommentID)
	}
	return line
}

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
