package session

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Event describes a cross-process session change observed on disk.
type Event int

const (
	// EventUserUpdated means another process rewrote the persisted profile
	// (login or profile refetch); the store has already reloaded it.
	EventUserUpdated Event = iota
	// EventSignedOut means another process removed the persisted profile;
	// the local session has been cleared.
	EventSignedOut
)

// Watch observes the persisted profile for changes made by other portal
// processes, mirroring them into this store. A rewrite reloads the profile;
// a removal clears the whole session, token included. The returned channel
// closes when ctx is done or the store has no persistence path.
func (s *Store) Watch(ctx context.Context) (<-chan Event, error) {
	events := make(chan Event, 1)
	if s.path == "" {
		close(events)
		return events, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		close(events)
		return events, err
	}
	// Watch the directory, not the file: rename-based atomic writes and
	// removals replace the watched inode.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		close(events)
		return events, err
	}

	go func() {
		defer close(events)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				switch {
				case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && !s.exists():
					s.Clear()
					emit(events, EventSignedOut)
				case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
					if err := s.Reload(); err != nil {
						s.logger.Warn("reload profile after change", "error", err)
						continue
					}
					emit(events, EventUserUpdated)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("profile watch", "error", err)
			}
		}
	}()

	return events, nil
}

func (s *Store) exists() bool {
	if s.path == "" {
		return false
	}
	_, err := os.Stat(s.path)
	return err == nil
}

func emit(ch chan<- Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}
