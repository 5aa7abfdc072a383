package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/minutes/pkg/transcript"
)

// FollowerConfig configures a caption file Follower.
type FollowerConfig struct {
	// Path is the caption file. It may not exist yet.
	Path string

	// FromStart replays lines already in the file. By default only lines
	// appended after the follower starts are ingested.
	FromStart bool

	// Now stamps each fragment. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Follower tails a caption file, one "[speaker:] text" line per fragment.
// Truncation and re-creation of the file restart reading from the top.
type Follower struct {
	path    string
	now     func() time.Time
	logger  *slog.Logger
	out     Putter
	watcher *fsnotify.Watcher

	offset  int64
	partial []byte
}

// NewFollower starts watching c.Path's directory. Changes made after it
// returns are observed by Run.
func NewFollower(c FollowerConfig, out Putter) (*Follower, error) {
	if c.Path == "" {
		return nil, errors.New("follower requires a caption file path")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	path, err := filepath.Abs(c.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving caption path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// The directory is watched so the file can be created or rotated later.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	f := &Follower{
		path:    path,
		now:     c.Now,
		logger:  c.Logger,
		out:     out,
		watcher: watcher,
	}

	if !c.FromStart {
		if info, err := os.Stat(path); err == nil {
			f.offset = info.Size()
		}
	}

	return f, nil
}

// Run ingests lines until ctx is done. It closes the underlying watcher on
// return.
func (f *Follower) Run(ctx context.Context) error {
	defer f.watcher.Close()

	f.logger.Info("following caption file", "path", f.path, "offset", f.offset)
	f.drain()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-f.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}

			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				f.logger.Debug("caption file went away", "path", f.path)
				f.offset = 0
				f.partial = nil
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				f.drain()
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			f.logger.Error("caption watcher error", "error", err)
		}
	}
}

// drain reads everything appended since the last offset and emits each
// complete line.
func (f *Follower) drain() {
	file, err := os.Open(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("could not open caption file", "path", f.path, "error", err)
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		f.logger.Warn("could not stat caption file", "path", f.path, "error", err)
		return
	}
	if info.Size() < f.offset {
		f.logger.Info("caption file truncated, restarting from the top", "path", f.path)
		f.offset = 0
		f.partial = nil
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		f.logger.Warn("could not seek caption file", "path", f.path, "error", err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		f.logger.Warn("could not read caption file", "path", f.path, "error", err)
	}
	f.offset += int64(len(data))

	buf := append(f.partial, data...)
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(buf[:idx], "\r"))
		buf = buf[idx+1:]

		if frag, ok := transcript.ParseLine(f.now(), line); ok {
			f.out.Put(frag)
		}
	}
	f.partial = append([]byte(nil), buf...)
}
