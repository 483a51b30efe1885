package compose

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
)

// Uploader sends files in parallel with at most limit in flight.
type Uploader struct {
	svc   api.Service
	limit int
}

func NewUploader(svc api.Service, limit int) *Uploader {
	if limit <= 0 {
		limit = 4
	}
	return &Uploader{svc: svc, limit: limit}
}

// UploadAll returns the stored URLs in the order of files. The first
// failure cancels the remaining uploads and is returned naming its file.
// Files that already made it to the server stay there.
func (u *Uploader) UploadAll(ctx context.Context, files []File) ([]string, error) {
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.limit)

	for i, f := range files {
		g.Go(func() error {
			url, err := u.uploadOne(gctx, f)
			if err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logg.Error("compose", "Upload failed", err)
		return nil, err
	}
	logg.Info("compose", "Uploaded "+strconv.Itoa(len(files))+" file(s)")
	return urls, nil
}

func (u *Uploader) uploadOne(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return u.svc.Upload(ctx, f.Name, rc)
}
