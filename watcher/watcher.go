package watcher

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"JamFM/core/resolver"
	"JamFM/logger"
	"JamFM/model"
	"JamFM/storage"
)

// audioExtensions lists the file types picked up from the drop directory.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
}

// DropWatcher ingests audio files dropped into a local directory: each file
// is uploaded to object storage and registered in the track catalog as an
// uploaded track. Files are only picked up once their size has been stable
// across two checks, so half-written copies are never ingested.
type DropWatcher struct {
	dir     string
	store   *storage.AudioStore
	catalog *resolver.Catalog

	cancel context.CancelFunc
	done   chan struct{}
}

func NewDropWatcher(dir string, store *storage.AudioStore, catalog *resolver.Catalog) *DropWatcher {
	return &DropWatcher{dir: dir, store: store, catalog: catalog}
}

// Start begins watching the drop directory. Files already present at start
// are ingested as well.
func (w *DropWatcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("监听目录失败: %w", err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go w.run(ctx, fsw)

	logger.Info("watching drop directory", logger.String("dir", w.dir))
	return nil
}

// Stop stops the watcher and waits for in-flight ingestion to finish.
func (w *DropWatcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *DropWatcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer fsw.Close()

	// 文件稳定性检查的延迟队列
	pending := make(map[string]int64)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// pick up files that were already in the directory
	if entries, err := os.ReadDir(w.dir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && isAudioFile(entry.Name()) {
				pending[filepath.Join(w.dir, entry.Name())] = -1
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isAudioFile(event.Name) {
				continue
			}
			if _, tracked := pending[event.Name]; !tracked {
				pending[event.Name] = -1
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("drop watcher error", logger.ErrorField(err))

		case <-ticker.C:
			for path, lastSize := range pending {
				info, err := os.Stat(path)
				if err != nil {
					delete(pending, path)
					continue
				}
				if info.Size() != lastSize {
					pending[path] = info.Size()
					continue
				}
				// size stable since last tick
				delete(pending, path)
				if err := w.ingest(ctx, path, info.Size()); err != nil {
					logger.Error("drop ingestion failed",
						logger.String("path", path),
						logger.ErrorField(err))
				}
			}
		}
	}
}

// ingest uploads one stable file and registers it in the catalog.
func (w *DropWatcher) ingest(ctx context.Context, path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dropped file: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	fileURL, err := w.store.PutAudio(ctx, name, f, size, contentType)
	if err != nil {
		return err
	}

	title := strings.TrimSuffix(name, filepath.Ext(name))
	track, err := w.catalog.Register(ctx, resolver.ResolvedTrack{
		Source:          model.SourceUploaded,
		SourceID:        name,
		Title:           title,
		OriginalURL:     fileURL,
		UploadedFileURL: fileURL,
	})
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		logger.Warn("failed to remove ingested file",
			logger.String("path", path),
			logger.ErrorField(err))
	}

	logger.Info("ingested dropped audio file",
		logger.String("trackId", track.ID),
		logger.String("file", name))
	return nil
}

func isAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}
