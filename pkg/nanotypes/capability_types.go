package nanotypes

import (
	"fmt"
	"strings"
)

// Capability identifies one kind of on-device model API.
type Capability string

// Supported capabilities. The wire names match the command catalog format.
const (
	CapabilityTextGeneration Capability = "languageModel"
	CapabilitySummarization  Capability = "summarizer"
	CapabilityWriting        Capability = "writer"
	CapabilityRewriting      Capability = "rewriter"
	CapabilityTranslation    Capability = "translator"
)

// AllCapabilities lists every capability in dispatch order.
func AllCapabilities() []Capability {
	return []Capability{
		CapabilityTextGeneration,
		CapabilitySummarization,
		CapabilityWriting,
		CapabilityRewriting,
		CapabilityTranslation,
	}
}

// IsValid reports whether c is one of the known capabilities.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityTextGeneration, CapabilitySummarization, CapabilityWriting,
		CapabilityRewriting, CapabilityTranslation:
		return true
	}
	return false
}

// IsTextGeneration reports whether c is the general prompt capability.
func (c Capability) IsTextGeneration() bool {
	return c == CapabilityTextGeneration
}

func (c Capability) String() string {
	return string(c)
}

// ParseCapability resolves a wire name case-insensitively.
func ParseCapability(s string) (Capability, error) {
	for _, c := range AllCapabilities() {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability %q", s)
}

// Availability is the provider's answer to "can this capability run now".
type Availability string

// Availability values reported by providers.
const (
	AvailabilityReadily       Availability = "readily"
	AvailabilityAfterDownload Availability = "after-download"
	AvailabilityNo            Availability = "no"
)

// AvailabilityPolicy decides which availability answers count as usable.
type AvailabilityPolicy string

// Availability policies.
const (
	// PolicyStrict accepts only "readily".
	PolicyStrict AvailabilityPolicy = "strict"
	// PolicyPermissive accepts anything except "no".
	PolicyPermissive AvailabilityPolicy = "permissive"
)

// Accepts reports whether a passes the policy. Unknown policies behave like strict.
func (p AvailabilityPolicy) Accepts(a Availability) bool {
	if p == PolicyPermissive {
		return a != AvailabilityNo && a != ""
	}
	return a == AvailabilityReadily
}

// ParseAvailabilityPolicy resolves a policy name, defaulting to strict for empty input.
func ParseAvailabilityPolicy(s string) (AvailabilityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PolicyStrict):
		return PolicyStrict, nil
	case string(PolicyPermissive):
		return PolicyPermissive, nil
	default:
		return "", fmt.Errorf("unknown availability policy %q (expected strict or permissive)", s)
	}
}
