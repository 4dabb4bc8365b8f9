// Package archive opens the destination a year archive is written to: a
// Cloud Storage object for gs:// URLs, a local file otherwise.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
	"github.com/secmon-lab/actiontrail/pkg/utils/safe"
)

const gcsScheme = "gs://"

// Destination identifies where the archive of one year goes
type Destination struct {
	Bucket string
	Object string
	Path   string
}

func (d Destination) IsGCS() bool {
	return d.Bucket != ""
}

func (d Destination) String() string {
	if d.IsGCS() {
		return gcsScheme + d.Bucket + "/" + d.Object
	}
	return d.Path
}

// Resolve maps a base location and a year to the archive destination. A base
// ending in ".jsonl" is used as is; otherwise "<year>.jsonl" is appended.
func Resolve(base string, year int) (Destination, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return Destination{}, goerr.New("archive destination is required")
	}
	name := fmt.Sprintf("%d.jsonl", year)

	if rest, ok := strings.CutPrefix(base, gcsScheme); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Destination{}, goerr.New("bucket name is missing", goerr.V("destination", base))
		}
		object := strings.Trim(prefix, "/")
		if !strings.HasSuffix(object, ".jsonl") {
			object = path.Join(object, name)
		}
		return Destination{Bucket: bucket, Object: object}, nil
	}

	if strings.HasSuffix(base, ".jsonl") {
		return Destination{Path: base}, nil
	}
	return Destination{Path: filepath.Join(base, name)}, nil
}

// Writer writes the archive and commits it on Close
type Writer struct {
	ctx    context.Context
	cancel context.CancelFunc
	dst    Destination
	w      io.WriteCloser
	client *storage.Client
}

func (w *Writer) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

// Close flushes the archive. For Cloud Storage the object becomes visible
// only after a successful Close.
func (w *Writer) Close() error {
	err := w.w.Close()
	if w.client != nil {
		safe.Close(w.ctx, w.client)
	}
	w.cancel()
	if err != nil {
		return goerr.Wrap(err, "failed to finalize archive", goerr.V("destination", w.dst.String()))
	}
	return nil
}

// Abort discards a partially written archive
func (w *Writer) Abort() {
	w.cancel()
	if w.client != nil {
		_ = w.w.Close() // cancelled: the object is not created
		safe.Close(w.ctx, w.client)
		return
	}
	safe.Close(w.ctx, w.w)
	if err := os.Remove(w.dst.Path); err != nil && !os.IsNotExist(err) {
		logging.From(w.ctx).Warn("failed to remove partial archive", "path", w.dst.Path, "error", err)
	}
}

// Open creates the destination for writing. Local parent directories are
// created as needed; an existing file is replaced.
func Open(ctx context.Context, dst Destination) (*Writer, error) {
	if dst.IsGCS() {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage client")
		}
		wctx, cancel := context.WithCancel(ctx)
		ow := client.Bucket(dst.Bucket).Object(dst.Object).NewWriter(wctx)
		ow.ContentType = "application/x-ndjson"
		return &Writer{ctx: ctx, cancel: cancel, dst: dst, w: ow, client: client}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst.Path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create archive directory", goerr.V("path", dst.Path))
	}
	f, err := os.Create(filepath.Clean(dst.Path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create archive file", goerr.V("path", dst.Path))
	}
	return &Writer{ctx: ctx, cancel: func() {}, dst: dst, w: f}, nil
}
