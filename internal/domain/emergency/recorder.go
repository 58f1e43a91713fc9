package emergency

import (
	"context"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/writebehind"
)

// Recorder accepts documents for best-effort persistence. Record never
// blocks and never reports failure to the caller.
type Recorder interface {
	Record(doc *Document)
}

// Submitter is the subset of writebehind.Writer the recorder needs.
type Submitter interface {
	Submit(name string, task writebehind.Task) bool
}

// AsyncRecorder hands each document to a write-behind pool.
type AsyncRecorder struct {
	repo   Repository
	writer Submitter
}

func NewAsyncRecorder(repo Repository, writer Submitter) *AsyncRecorder {
	return &AsyncRecorder{repo: repo, writer: writer}
}

func (r *AsyncRecorder) Record(doc *Document) {
	if doc == nil {
		return
	}
	r.writer.Submit(string(doc.Kind), func(ctx context.Context) error {
		return r.repo.Insert(ctx, doc)
	})
}

// NopRecorder discards documents. It is used when no store is configured.
type NopRecorder struct{}

func (NopRecorder) Record(*Document) {}
