package domain

import "strings"

// Capability tags consumed from the external identity/role directory.
type Capability string

const (
	CapabilityAdministrator Capability = "administrator"
	CapabilityArbitrator    Capability = "arbitrator"
	CapabilityAttester      Capability = "attester"
	CapabilityOperator      Capability = "operator"
)

func NormalizeCapability(raw string) Capability {
	switch Capability(strings.ToLower(strings.TrimSpace(raw))) {
	case CapabilityAdministrator:
		return CapabilityAdministrator
	case CapabilityArbitrator:
		return CapabilityArbitrator
	case CapabilityAttester:
		return CapabilityAttester
	case CapabilityOperator:
		return CapabilityOperator
	default:
		return ""
	}
}
