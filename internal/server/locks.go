package server

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockStripes = 64

// keyedMutex serializes requests for the same session. Unrelated sessions
// may share a stripe.
type keyedMutex struct {
	stripes [lockStripes]sync.Mutex
}

// Lock locks the stripe of key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	m := &k.stripes[xxhash.Sum64String(key)%lockStripes]
	m.Lock()
	return m.Unlock
}
