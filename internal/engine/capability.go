package engine

import "github.com/subhound/subhound/internal/ai"

// Capability is the fixed operating tier of a detection engine, chosen
// once at construction from the presence of the two optional AI handles.
// It never changes for the lifetime of an engine instance.
type Capability int

// Capability tiers.
const (
	// CapabilityBare runs rule-tier classification only.
	CapabilityBare Capability = iota
	// CapabilityAI adds AI classification for rule-ineligible or
	// ambiguous profiles.
	CapabilityAI
	// CapabilityOrchestrator adds the agentic verification pass.
	CapabilityOrchestrator
	// CapabilityFull combines AI classification and verification.
	CapabilityFull
)

func (c Capability) String() string {
	switch c {
	case CapabilityBare:
		return "bare"
	case CapabilityAI:
		return "ai"
	case CapabilityOrchestrator:
		return "orchestrator"
	case CapabilityFull:
		return "full"
	default:
		return "unknown"
	}
}

// HasAI reports whether the tier may issue AI classification calls.
func (c Capability) HasAI() bool {
	return c == CapabilityAI || c == CapabilityFull
}

// HasOrchestrator reports whether the tier runs the verification pass.
func (c Capability) HasOrchestrator() bool {
	return c == CapabilityOrchestrator || c == CapabilityFull
}

// capabilityFor derives the tier from the optional handles.
func capabilityFor(client ai.Client, orchestrator ai.Orchestrator) Capability {
	switch {
	case client != nil && orchestrator != nil:
		return CapabilityFull
	case client != nil:
		return CapabilityAI
	case orchestrator != nil:
		return CapabilityOrchestrator
	default:
		return CapabilityBare
	}
}
