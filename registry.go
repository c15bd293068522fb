package webcodecs

import (
	"fmt"
	"sort"
	"sync"
)

// BackendFactory creates a fresh, unconfigured backend instance.
type BackendFactory func() CodecBackend

type backendKey struct {
	kind  Kind
	codec string
}

var (
	backendMu sync.RWMutex
	backends  = make(map[backendKey]BackendFactory)
)

// RegisterBackend makes a codec backend available under the given kind
// and codec string. Backend implementations register themselves in
// init(); the last registration for a key wins.
func RegisterBackend(kind Kind, codec string, factory BackendFactory) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backends[backendKey{kind: kind, codec: codec}] = factory
}

// NewBackend instantiates a registered backend, or returns
// ErrCodecNotSupported.
func NewBackend(kind Kind, codec string) (CodecBackend, error) {
	backendMu.RLock()
	factory, ok := backends[backendKey{kind: kind, codec: codec}]
	backendMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no %s backend for %q", ErrCodecNotSupported, kind, codec)
	}
	return factory(), nil
}

// SupportedCodecs returns the codec strings registered for a kind,
// sorted.
func SupportedCodecs(kind Kind) []string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	var out []string
	for k := range backends {
		if k.kind == kind {
			out = append(out, k.codec)
		}
	}
	sort.Strings(out)
	return out
}
