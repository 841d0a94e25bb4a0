package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Tailer follows a growing JSONL file and hands complete new lines to
// OnLines. A trailing partial line is held back until its newline lands.
type Tailer struct {
	path     string
	offset   int64
	debounce time.Duration
	watcher  *fsnotify.Watcher
	lg       zerolog.Logger

	// OnLines receives each batch of complete lines.
	OnLines func(ctx context.Context, data []byte) error
}

// NewTailer watches path, which must exist. Reading starts at offset 0.
func NewTailer(path string, lg zerolog.Logger) (*Tailer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory; editors and log shippers often replace files.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Tailer{path: abs, debounce: 200 * time.Millisecond, watcher: w, lg: lg}, nil
}

// Offset returns the byte offset up to which lines have been delivered.
func (t *Tailer) Offset() int64 { return t.offset }

// ReadNew returns the complete lines appended since the last call and
// advances the offset past them. A file that shrank is read again from
// the start.
func (t *Tailer) ReadNew() ([]byte, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() < t.offset {
		t.lg.Warn().Str("path", t.path).Msg("file truncated, rereading")
		t.offset = 0
	}
	if st.Size() == t.offset {
		return nil, nil
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil, nil
	}
	data = data[:end+1]
	t.offset += int64(len(data))
	return data, nil
}

// Run delivers the existing content, then every append, until ctx is done.
func (t *Tailer) Run(ctx context.Context) error {
	defer t.watcher.Close()

	if err := t.flush(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(t.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-t.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if abs, err := filepath.Abs(ev.Name); err != nil || abs != t.path {
				continue
			}
			timer.Reset(t.debounce)

		case <-timer.C:
			if err := t.flush(ctx); err != nil {
				return err
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return nil
			}
			t.lg.Warn().Err(err).Str("path", t.path).Msg("watch error")
		}
	}
}

func (t *Tailer) flush(ctx context.Context) error {
	data, err := t.ReadNew()
	if err != nil {
		t.lg.Warn().Err(err).Str("path", t.path).Msg("read failed")
		return nil
	}
	if len(data) == 0 || t.OnLines == nil {
		return nil
	}
	return t.OnLines(ctx, data)
}

// Close stops watching.
func (t *Tailer) Close() error { return t.watcher.Close() }
