package history

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
	"github.com/zeebo/blake3"
)

// Snapshot is an immutable copy of the committed editing model.
// Captions and detached audio segments are included so that undoing a
// detach restores both the clip flag and the segment list together.
type Snapshot struct {
	Clips         []models.Clip           `json:"clips"`
	TextOverlays  []models.TextOverlay    `json:"text_overlays"`
	Captions      []models.CaptionSegment `json:"captions"`
	AudioSegments []models.AudioSegment   `json:"audio_segments"`
}

// Clone deep-copies a snapshot, preserving nil slices
func (s Snapshot) Clone() Snapshot {
	var out Snapshot
	if s.Clips != nil {
		out.Clips = make([]models.Clip, len(s.Clips))
		for i, c := range s.Clips {
			if c.TransitionOut != nil {
				tr := *c.TransitionOut
				c.TransitionOut = &tr
			}
			out.Clips[i] = c
		}
	}
	if s.TextOverlays != nil {
		out.TextOverlays = append([]models.TextOverlay{}, s.TextOverlays...)
	}
	if s.Captions != nil {
		out.Captions = make([]models.CaptionSegment, len(s.Captions))
		for i, c := range s.Captions {
			if c.Style != nil {
				st := *c.Style
				c.Style = &st
			}
			out.Captions[i] = c
		}
	}
	if s.AudioSegments != nil {
		out.AudioSegments = append([]models.AudioSegment{}, s.AudioSegments...)
	}
	return out
}

// Fingerprint identifies a snapshot's content
type Fingerprint [32]byte

func (f Fingerprint) String() string {
	return fmt.Sprintf("%x", f[:8])
}

// snapshotDomainKey keeps snapshot hashes apart from any other keyed BLAKE3 use
var snapshotDomainKey = [32]byte{
	't', 'i', 'm', 'e', 'l', 'i', 'n', 'e', '.', 'h', 'i', 's', 't', 'o', 'r', 'y',
	'.', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', 0, 0, 0, 0, 0, 0, 0,
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	// nil and empty slices must hash the same
	opts.NilContainers = cbor.NilContainerAsEmpty
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic("history: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("history: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes a snapshot with deterministic CBOR
func Encode(s Snapshot) ([]byte, error) {
	data, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot produced by Encode
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := decMode.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// Sum returns the structural fingerprint of a snapshot
func Sum(s Snapshot) (Fingerprint, error) {
	data, err := Encode(s)
	if err != nil {
		return Fingerprint{}, err
	}
	h, err := blake3.NewKeyed(snapshotDomainKey[:])
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to create hasher: %w", err)
	}
	h.Write(data)
	var f Fingerprint
	copy(f[:], h.Sum(nil))
	return f, nil
}
