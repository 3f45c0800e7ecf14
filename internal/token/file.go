// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package token

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/inqwatch/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileProvider serves the token stored in a file and follows changes made
// by whatever process rotates it.
type FileProvider struct {
	path   string
	value  atomic.Pointer[string]
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileProvider loads the token file once. A missing file is not an error;
// the provider simply reports no token until the file appears.
func NewFileProvider(path string) (*FileProvider, error) {
	if path == "" {
		return nil, errors.New("token file path is empty")
	}
	p := &FileProvider{
		path:   filepath.Clean(path),
		now:    time.Now,
		logger: xglog.WithComponent("token"),
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Token implements Provider.
func (p *FileProvider) Token() (string, bool) {
	v := p.value.Load()
	if v == nil {
		return "", false
	}
	return usable(*v, p.now())
}

// Reload re-reads the token file.
func (p *FileProvider) Reload() error {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		p.value.Store(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	s := string(data)
	p.value.Store(&s)
	return nil
}

// Start watches the token file's directory so atomic rename-into-place
// updates are seen too. It returns once the watcher is registered.
func (p *FileProvider) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch token directory: %w", err)
	}

	p.watcher = watcher
	p.done = make(chan struct{})

	p.logger.Info().
		Str(xglog.FieldEvent, "token.watcher_started").
		Str(xglog.FieldPath, p.path).
		Msg("watching token file for changes")

	go p.watchLoop(ctx, watcher, p.done)
	return nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (p *FileProvider) Close() error {
	p.mu.Lock()
	watcher, done := p.watcher, p.done
	p.watcher = nil
	p.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (p *FileProvider) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := p.Reload(); err != nil {
				p.logger.Warn().
					Err(err).
					Str(xglog.FieldEvent, "token.reload_failed").
					Msg("token file reload failed")
				continue
			}
			_, ok = p.Token()
			p.logger.Debug().
				Str(xglog.FieldEvent, "token.reloaded").
				Str("op", event.Op.String()).
				Bool("present", ok).
				Msg("token file changed")

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "token.watcher_error").
				Msg("token watcher error")
		}
	}
}
