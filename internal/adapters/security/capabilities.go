package security

import (
	"context"
	"strings"
	"sync"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// StaticCapabilityDirectory resolves capabilities from an in-process grant
// table seeded at bootstrap. Entries use "identity=capability1|capability2"
// form in configuration.
type StaticCapabilityDirectory struct {
	mu     sync.RWMutex
	grants map[string]map[domain.Capability]bool
}

func NewStaticCapabilityDirectory() *StaticCapabilityDirectory {
	return &StaticCapabilityDirectory{grants: make(map[string]map[domain.Capability]bool)}
}

// Grant adds a capability to an identity. Unknown capability names are
// ignored so a typo in config cannot silently grant something else.
func (d *StaticCapabilityDirectory) Grant(identity, capability string) {
	normalized := domain.NormalizeCapability(capability)
	if normalized == "" || strings.TrimSpace(identity) == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.grants[identity] == nil {
		d.grants[identity] = make(map[domain.Capability]bool)
	}
	d.grants[identity][normalized] = true
}

// Revoke removes a capability from an identity.
func (d *StaticCapabilityDirectory) Revoke(identity, capability string) {
	normalized := domain.NormalizeCapability(capability)
	if normalized == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.grants[identity], normalized)
}

func (d *StaticCapabilityDirectory) HasCapability(_ context.Context, identity string, capability domain.Capability) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.grants[identity][capability], nil
}

// ParseGrantSpec loads "identity=cap1|cap2" entries into the directory.
func (d *StaticCapabilityDirectory) ParseGrantSpec(entries []string) {
	for _, entry := range entries {
		identity, caps, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		for _, capability := range strings.Split(caps, "|") {
			d.Grant(strings.TrimSpace(identity), capability)
		}
	}
}
