package planner

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pierrec/lz4/v4"
)

// snapshot is one serialized copy of the full store. Payloads are LZ4
// block-compressed when that makes them smaller.
type snapshot struct {
	payload []byte
	size    int
	raw     bool
}

var errIncompressible = errors.New("incompressible")

var snapshotEncMode cbor.EncMode

func init() {
	var err error
	snapshotEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("planner: CBOR encoder initialization failed: " + err.Error())
	}
}

// History keeps linear undo/redo stacks of full-state snapshots. It is
// unbounded.
type History struct {
	undo []snapshot
	redo []snapshot
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Record pushes the current state of s onto the undo stack and clears the
// redo branch. Call it before mutating.
func (h *History) Record(s *Store) error {
	snap, err := takeSnapshot(s.data)
	if err != nil {
		return err
	}
	h.undo = append(h.undo, snap)
	h.redo = nil
	return nil
}

// Undo restores the previous state. It reports false when there is
// nothing to undo.
func (h *History) Undo(s *Store) (bool, error) {
	return step(s, &h.undo, &h.redo)
}

// Redo re-applies the last undone state. It reports false when there is
// nothing to redo.
func (h *History) Redo(s *Store) (bool, error) {
	return step(s, &h.redo, &h.undo)
}

// CanUndo reports whether Undo would change anything.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo would change anything.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) { return len(h.undo), len(h.redo) }

// Reset drops both stacks.
func (h *History) Reset() {
	h.undo, h.redo = nil, nil
}

func step(s *Store, from, to *[]snapshot) (bool, error) {
	if len(*from) == 0 {
		return false, nil
	}
	current, err := takeSnapshot(s.data)
	if err != nil {
		return false, err
	}
	top := (*from)[len(*from)-1]
	restored, err := top.restore()
	if err != nil {
		return false, err
	}
	*from = (*from)[:len(*from)-1]
	*to = append(*to, current)
	s.Replace(restored)
	return true, nil
}

func takeSnapshot(d *Data) (snapshot, error) {
	encoded, err := snapshotEncMode.Marshal(d)
	if err != nil {
		return snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	compressed, err := compressSnapshot(encoded)
	if errors.Is(err, errIncompressible) {
		return snapshot{payload: encoded, size: len(encoded), raw: true}, nil
	}
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{payload: compressed, size: len(encoded)}, nil
}

func (snap snapshot) restore() (*Data, error) {
	encoded := snap.payload
	if !snap.raw {
		encoded = make([]byte, snap.size)
		n, err := lz4.UncompressBlock(snap.payload, encoded)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != snap.size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, snap.size)
		}
	}
	var d Data
	if err := cbor.Unmarshal(encoded, &d); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	ensureShape(&d)
	return &d, nil
}

func compressSnapshot(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}
