package artifact

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrDuplicatePublish is returned when the same (instance, name) pair
// publishes twice. Artifacts are immutable once published.
var ErrDuplicatePublish = errors.New("artifact already published")

// ErrArtifactNotFound is returned when no artifact with the given name is
// visible to the consumer, either because nothing published it or because
// the consumer has no transitive dependency on any publisher.
var ErrArtifactNotFound = errors.New("artifact not found")

// Info describes one published artifact for reporting.
type Info struct {
	Name     string
	Producer string
	Size     int
}

// Bus is the in-memory artifact store for one run. Payloads are held
// zstd-compressed; publication is exclusive-write, consumption shared-read.
// Visibility is fixed at construction from the graph's transitive closures
// and never consulted anywhere else.
type Bus struct {
	mu         sync.RWMutex
	byName     map[string][]*record
	visibility map[string]map[string]struct{}
	enc        *zstd.Encoder
	dec        *zstd.Decoder
}

type record struct {
	producer   string
	compressed []byte
	size       int
}

// NewBus creates a bus whose Consume eligibility follows the given
// consumer -> visible-producer sets.
func NewBus(visibility map[string]map[string]struct{}) (*Bus, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating artifact encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating artifact decoder: %w", err)
	}
	return &Bus{
		byName:     make(map[string][]*record),
		visibility: visibility,
		enc:        enc,
		dec:        dec,
	}, nil
}

// Publish stores an immutable artifact under (producerID, name). A second
// publish of the same pair fails with ErrDuplicatePublish; distinct
// producers may publish under the same name (matrix siblings typically do).
func (b *Bus) Publish(producerID, name string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range b.byName[name] {
		if rec.producer == producerID {
			return fmt.Errorf("%w: %q by %q", ErrDuplicatePublish, name, producerID)
		}
	}
	b.byName[name] = append(b.byName[name], &record{
		producer:   producerID,
		compressed: b.enc.EncodeAll(payload, nil),
		size:       len(payload),
	})
	return nil
}

// Consume returns the payload of the named artifact as published by a
// producer inside the consumer's visibility set. When several visible
// producers published the name, the one with the lexically smallest
// instance ID wins, which keeps consumption deterministic.
func (b *Bus) Consume(consumerID, name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	visible := b.visibility[consumerID]
	var chosen *record
	for _, rec := range b.byName[name] {
		if _, ok := visible[rec.producer]; !ok {
			continue
		}
		if chosen == nil || rec.producer < chosen.producer {
			chosen = rec
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: %q for %q", ErrArtifactNotFound, name, consumerID)
	}
	payload, err := b.dec.DecodeAll(chosen.compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing artifact %q: %w", name, err)
	}
	return payload, nil
}

// List returns every published artifact, sorted by name then producer.
func (b *Bus) List() []Info {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Info
	for name, recs := range b.byName {
		for _, rec := range recs {
			out = append(out, Info{Name: name, Producer: rec.producer, Size: rec.size})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Producer < out[j].Producer
	})
	return out
}
