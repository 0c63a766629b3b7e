package modhost

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// fsnotifyWatcher wakes PollReload's mtime comparison on a filesystem
// event instead of making lane 0 stat the source file on every single
// iteration. The mtime check in PollReload remains authoritative; this
// only decides when to bother running it.
type fsnotifyWatcher struct {
	w       *fsnotify.Watcher
	changed chan struct{}
	done    chan struct{}
}

func newFsnotifyWatcher(sourcePath string) (*fsnotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(sourcePath)); err != nil {
		w.Close()
		return nil, err
	}
	fw := &fsnotifyWatcher{w: w, changed: make(chan struct{}, 1), done: make(chan struct{})}
	base := filepath.Base(sourcePath)
	go fw.run(base)
	return fw, nil
}

func (fw *fsnotifyWatcher) run(base string) {
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			select {
			case fw.changed <- struct{}{}:
			default:
			}
		case _, ok := <-fw.w.Errors:
			if !ok {
				return
			}
		case <-fw.done:
			return
		}
	}
}

func (fw *fsnotifyWatcher) Close() {
	close(fw.done)
	fw.w.Close()
}
