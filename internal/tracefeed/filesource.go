package tracefeed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"google.golang.org/protobuf/encoding/protojson"

	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
)

// OTLP JSON lines can be large for batched records.
const (
	lineBufferInitial = 1 << 20
	lineBufferMax     = 10 << 20
)

// FileSource tails a JSONL file of OTLP LogsData, one object per line, as
// written by the collector's file exporter, and feeds each line to a sink.
type FileSource struct {
	path    string
	sink    LogSink
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	offset int64

	wg sync.WaitGroup
}

// NewFileSource prepares a tail of path. The file may not exist yet; its
// directory must.
func NewFileSource(path string, sink LogSink) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("log sink cannot be nil")
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &FileSource{
		path:    filepath.Clean(path),
		sink:    sink,
		logger:  slog.Default().With("component", "trace-file", "path", path),
		watcher: watcher,
	}, nil
}

// Start loads what the file already holds and then follows appends until
// ctx is canceled. The directory is watched so rotation by rename is seen.
func (fs *FileSource) Start(ctx context.Context) error {
	if err := fs.watcher.Add(filepath.Dir(fs.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(fs.path), err)
	}

	if n, err := fs.ReadNew(ctx); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("initial load failed: %w", err)
	} else if n > 0 {
		fs.logger.Info("loaded trace file", "lines", n)
	}

	fs.wg.Add(1)
	go fs.watchLoop(ctx)
	return nil
}

// Stop closes the watcher and waits for the loop to exit.
func (fs *FileSource) Stop() {
	fs.watcher.Close()
	fs.wg.Wait()
}

// ReadNew reads lines appended since the last call and returns how many
// were accepted. A file shorter than the saved offset is read from the start.
func (fs *FileSource) ReadNew(ctx context.Context) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() < fs.offset {
		fs.offset = 0
	}
	if fs.offset > 0 {
		if _, err := f.Seek(fs.offset, io.SeekStart); err != nil {
			fs.offset = 0
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, lineBufferInitial), lineBufferMax)

	var read int64
	count := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		line := scanner.Bytes()
		read += int64(len(line)) + 1
		if len(line) == 0 {
			continue
		}

		var data logspb.LogsData
		if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(line, &data); err != nil {
			fs.logger.Debug("skipping unparseable line", "error", err)
			continue
		}
		if err := fs.sink.ReceiveLogs(ctx, data.ResourceLogs); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("reading %s: %w", fs.path, err)
	}

	fs.offset += read
	return count, nil
}

func (fs *FileSource) watchLoop(ctx context.Context) {
	defer fs.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fs.path {
				continue
			}

			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				fs.mu.Lock()
				fs.offset = 0
				fs.mu.Unlock()
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				n, err := fs.ReadNew(ctx)
				if err != nil && !os.IsNotExist(err) {
					fs.logger.Warn("failed to read trace file", "error", err)
				} else if n > 0 {
					fs.logger.Debug("read trace lines", "lines", n)
				}
			}

		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			fs.logger.Warn("file watcher error", "error", err)
		}
	}
}
