// Package file stores the giveaway state as three JSON files in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"giveaway-bot/internal/domain/giveaway"
)

const (
	giveawaysFile = "giveaways.json"
	settingsFile  = "globalImage.json"
	counterFile   = "counter.json"
)

type Store struct {
	dir string
	log zerolog.Logger
}

var _ giveaway.Store = (*Store)(nil)

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string, log zerolog.Logger) (*Store, error) {
	s := &Store{dir: dir, log: log}
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", s.dir, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (giveaway.Snapshot, error) {
	var snap giveaway.Snapshot
	if err := s.ensureDir(); err != nil {
		return snap, err
	}

	if data, ok := s.read(giveawaysFile); ok {
		gs, err := giveaway.UnmarshalEntries(data)
		if err != nil {
			s.log.Warn().Err(err).Str("file", giveawaysFile).Msg("giveaways unreadable, starting with none")
		} else {
			snap.Giveaways = gs
		}
	}

	if data, ok := s.read(settingsFile); ok {
		settings, err := giveaway.UnmarshalSettings(data)
		if err != nil {
			s.log.Warn().Err(err).Str("file", settingsFile).Msg("settings unreadable, using defaults")
		} else {
			snap.Settings = settings
		}
	}

	if data, ok := s.read(counterFile); ok {
		n, err := giveaway.UnmarshalCounter(data)
		if err != nil {
			s.log.Warn().Err(err).Str("file", counterFile).Msg("counter unreadable, resetting to 0")
		} else {
			snap.Counter = n
		}
	}

	return snap, ctx.Err()
}

// read returns the file content; a missing file is not worth a warning.
func (s *Store) read(name string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Err(err).Str("file", name).Msg("read failed")
		}
		return nil, false
	}
	return data, true
}

// Save rewrites all three files. Each file is replaced atomically, so a crash
// leaves every file either old or new, never truncated.
func (s *Store) Save(ctx context.Context, snap giveaway.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}

	entries, err := giveaway.MarshalEntries(snap.Giveaways)
	if err != nil {
		return err
	}
	settings, err := giveaway.MarshalSettings(snap.Settings)
	if err != nil {
		return err
	}
	counter, err := giveaway.MarshalCounter(snap.Counter)
	if err != nil {
		return err
	}

	return errors.Join(
		s.writeAtomic(giveawaysFile, entries),
		s.writeAtomic(settingsFile, settings),
		s.writeAtomic(counterFile, counter),
	)
}

func (s *Store) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// Ping checks that the data directory is usable.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return ctx.Err()
}
