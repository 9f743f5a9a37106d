package jwtx

import (
	"errors"
	"sync"
)

// ErrUnknownKID is returned when a kid is not present in the KeySet.
var ErrUnknownKID = errors.New("jwtx: unknown kid")

type keyEntry struct {
	jwk JWK
	pub any
}

// KeySet holds verification keys keyed by kid, in insertion order. Safe for
// concurrent use.
type KeySet struct {
	mu    sync.RWMutex
	order []string
	keys  map[string]keyEntry
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]keyEntry)}
}

// Add registers j, replacing any key with the same kid.
func (k *KeySet) Add(j JWK) error {
	pub, err := j.PublicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.keys[j.Kid]; !exists {
		k.order = append(k.order, j.Kid)
	}
	k.keys[j.Kid] = keyEntry{jwk: j, pub: pub}
	return nil
}

// Remove drops kid and reports whether it was present.
func (k *KeySet) Remove(kid string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.keys[kid]; !ok {
		return false
	}
	delete(k.keys, kid)
	for i, id := range k.order {
		if id == kid {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup returns the public key and its declared algorithm.
func (k *KeySet) Lookup(kid string) (any, string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	e, ok := k.keys[kid]
	if !ok {
		return nil, "", ErrUnknownKID
	}
	return e.pub, e.jwk.Alg, nil
}

// JWKS snapshots the set for publishing.
func (k *KeySet) JWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := JWKS{Keys: make([]JWK, 0, len(k.order))}
	for _, kid := range k.order {
		out.Keys = append(out.Keys, k.keys[kid].jwk)
	}
	return out
}

// Len returns the number of keys.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}
