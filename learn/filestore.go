package learn

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

// FileStore is a MemoryStore persisted as a zstd-compressed JSON-lines
// snapshot. The snapshot is read once on open and rewritten by Flush.
type FileStore struct {
	*MemoryStore
	path string
	log  zerolog.Logger

	flushMu      sync.Mutex
	flushedAt    uint64
	flushStop    chan struct{}
	flushDone    chan struct{}
	stopOnce     sync.Once
	closeErr     error
	flushStarted bool
}

// OpenFileStore loads the snapshot at path. A missing file starts an empty store.
func OpenFileStore(path string, log zerolog.Logger) (*FileStore, error) {
	s := &FileStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
		log:         log.With().Str("component", "learn.filestore").Logger(),
	}
	rows, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}
	s.load(rows)
	s.log.Info().Str("path", path).Int("rows", len(rows)).Msg("loaded learned moves")
	return s, nil
}

func readSnapshot(path string) ([]MoveStat, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer zr.Close()

	var rows []MoveStat
	dec := json.NewDecoder(zr)
	for {
		var row MoveStat
		err := dec.Decode(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s row %d: %w", path, len(rows)+1, err)
		}
		if row.Wins+row.Draws+row.Losses != row.Plays {
			return nil, fmt.Errorf("snapshot %s row %d: outcomes do not add up to plays", path, len(rows)+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Flush writes the snapshot if anything changed since the last flush. The
// file is written next to the target and renamed into place.
func (s *FileStore) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	rows, version := s.Snapshot()
	if version == s.flushedAt {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	tmpPath := s.path + ".tmp"
	if err := writeSnapshot(tmpPath, rows); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write snapshot %s: %w", s.path, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot %s: %w", s.path, err)
	}
	s.flushedAt = version
	s.log.Debug().Int("rows", len(rows)).Uint64("version", version).Msg("flushed learned moves")
	return nil
}

func writeSnapshot(path string, rows []MoveStat) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	enc := json.NewEncoder(zw)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			zw.Close()
			f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// StartBackgroundFlush flushes on every tick until Close.
func (s *FileStore) StartBackgroundFlush(interval time.Duration) {
	if s.flushStarted || interval <= 0 {
		return
	}
	s.flushStarted = true
	s.flushStop = make(chan struct{})
	s.flushDone = make(chan struct{})

	go func() {
		defer close(s.flushDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.flushStop:
				return
			case <-ticker.C:
				if err := s.Flush(); err != nil {
					s.log.Warn().Err(err).Msg("background flush failed")
				}
			}
		}
	}()

	s.log.Info().Dur("interval", interval).Msg("started background flush")
}

// Close stops the background flush, if running, and writes a final snapshot.
func (s *FileStore) Close() error {
	s.stopOnce.Do(func() {
		if s.flushStarted {
			close(s.flushStop)
			<-s.flushDone
		}
		s.closeErr = s.Flush()
	})
	return s.closeErr
}
