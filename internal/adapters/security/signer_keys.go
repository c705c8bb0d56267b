package security

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// StaticSignerKeyDirectory maps signer identities to registered Ed25519
// public keys. Keys arrive hex-encoded in configuration as
// "identity=hexpubkey" entries.
type StaticSignerKeyDirectory struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
}

func NewStaticSignerKeyDirectory() *StaticSignerKeyDirectory {
	return &StaticSignerKeyDirectory{keys: make(map[string]ed25519.PublicKey)}
}

func (d *StaticSignerKeyDirectory) Register(signer string, key ed25519.PublicKey) error {
	if strings.TrimSpace(signer) == "" {
		return fmt.Errorf("%w: signer is required", domain.ErrInvalidInput)
	}
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public key must be %d bytes", domain.ErrInvalidInput, ed25519.PublicKeySize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[signer] = append(ed25519.PublicKey(nil), key...)
	return nil
}

func (d *StaticSignerKeyDirectory) PublicKey(_ context.Context, signer string) (ed25519.PublicKey, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	key, ok := d.keys[signer]
	if !ok {
		return nil, fmt.Errorf("%w: signer %s has no registered key", domain.ErrNotFound, signer)
	}
	return append(ed25519.PublicKey(nil), key...), nil
}

// ParseKeySpec loads "identity=hexpubkey" entries, skipping malformed ones.
func (d *StaticSignerKeyDirectory) ParseKeySpec(entries []string) error {
	for _, entry := range entries {
		signer, encoded, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		raw, err := hex.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return fmt.Errorf("decode key for %s: %w", signer, err)
		}
		if err := d.Register(strings.TrimSpace(signer), raw); err != nil {
			return err
		}
	}
	return nil
}
