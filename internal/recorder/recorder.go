// Package recorder writes tick snapshots to zstd-compressed JSONL files,
// one file per simulated day.
package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/mini-town/internal/engine"
)

// Recorder appends one JSON line per tick. The file rotates after each
// day rollover, so a file holds exactly one simulated day.
type Recorder struct {
	dir string

	mu  sync.Mutex
	day int
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// New creates a recorder writing under dir/runID.
func New(dir, runID string) (*Recorder, error) {
	r := &Recorder{dir: filepath.Join(dir, runID)}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the file for the n-th recorded day.
func (r *Recorder) Path(n int) string {
	return filepath.Join(r.dir, fmt.Sprintf("day-%03d.jsonl.zst", n))
}

// Record writes the tick's snapshot and rotates on a day change.
func (r *Recorder) Record(res engine.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.w == nil {
		if err := r.openLocked(); err != nil {
			return err
		}
	}
	b, err := json.Marshal(res.Snapshot)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	if res.DayChanged == nil {
		return r.w.Flush()
	}
	err = r.closeLocked()
	r.day++
	return err
}

// Close flushes and closes the current file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Recorder) openLocked() error {
	f, err := os.OpenFile(r.Path(r.day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.enc = enc
	r.w = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (r *Recorder) closeLocked() error {
	var err error
	if r.w != nil {
		err = r.w.Flush()
	}
	if r.enc != nil {
		if cerr := r.enc.Close(); err == nil {
			err = cerr
		}
		r.enc = nil
	}
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
		r.f = nil
	}
	r.w = nil
	return err
}

// ReadFile decodes every snapshot in a recorded file.
func ReadFile(path string) ([]engine.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []engine.Snapshot
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var snap engine.Snapshot
		if err := json.Unmarshal(sc.Bytes(), &snap); err != nil {
			return nil, fmt.Errorf("recorder: %s: %w", path, err)
		}
		out = append(out, snap)
	}
	return out, sc.Err()
}
