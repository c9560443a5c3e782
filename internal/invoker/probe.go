// Package invoker maps commands onto the capability provider: it checks
// availability, creates a model handle, dispatches the input to the handle's
// operation and releases the handle on every exit path.
package invoker

import (
	"context"
	"fmt"

	"tswnano/internal/logger"
	"tswnano/pkg/nanotypes"
)

// CapabilityProbe decides whether a capability may be used right now.
type CapabilityProbe struct {
	policy nanotypes.AvailabilityPolicy
}

// NewCapabilityProbe creates a probe applying the given availability policy.
func NewCapabilityProbe(policy nanotypes.AvailabilityPolicy) *CapabilityProbe {
	if policy == "" {
		policy = nanotypes.PolicyStrict
	}
	return &CapabilityProbe{policy: policy}
}

// Policy returns the availability policy in effect.
func (p *CapabilityProbe) Policy() nanotypes.AvailabilityPolicy {
	return p.policy
}

// Check returns the capability's factory when the provider exposes it and its
// availability passes the policy. Failures are CapabilityUnavailable errors.
func (p *CapabilityProbe) Check(ctx context.Context, provider nanotypes.CapabilityProvider, c nanotypes.Capability) (nanotypes.CapabilityFactory, error) {
	if provider == nil {
		return nil, nanotypes.NewInvocationError(nanotypes.KindCapabilityUnavailable, c, "no model provider configured", nil)
	}

	factory, ok := provider.Factory(c)
	if !ok || factory == nil {
		return nil, nanotypes.NewInvocationError(nanotypes.KindCapabilityUnavailable, c,
			fmt.Sprintf("%s does not support %s", provider.Name(), c), nil)
	}

	availability, err := factory.Availability(ctx)
	if err != nil {
		return nil, nanotypes.NewInvocationError(nanotypes.KindCapabilityUnavailable, c, "availability check failed", err)
	}

	logger.Debug("Capability probed", "provider", provider.Name(), "capability", c, "availability", availability, "policy", p.policy)

	if !p.policy.Accepts(availability) {
		return nil, nanotypes.NewInvocationError(nanotypes.KindCapabilityUnavailable, c,
			fmt.Sprintf("model is not ready (availability: %s)", availabilityLabel(availability)), nil)
	}
	return factory, nil
}

// ProbeResult describes one capability for display.
type ProbeResult struct {
	Capability   nanotypes.Capability
	Supported    bool
	Availability nanotypes.Availability
	Usable       bool
	Err          error
}

// Survey probes every capability without creating any handle.
func (p *CapabilityProbe) Survey(ctx context.Context, provider nanotypes.CapabilityProvider) []ProbeResult {
	results := make([]ProbeResult, 0, len(nanotypes.AllCapabilities()))
	for _, c := range nanotypes.AllCapabilities() {
		result := ProbeResult{Capability: c}
		var factory nanotypes.CapabilityFactory
		if provider != nil {
			factory, result.Supported = provider.Factory(c)
		}
		if result.Supported && factory != nil {
			result.Availability, result.Err = factory.Availability(ctx)
			result.Usable = result.Err == nil && p.policy.Accepts(result.Availability)
		}
		results = append(results, result)
	}
	return results
}

func availabilityLabel(a nanotypes.Availability) string {
	if a == "" {
		return "unknown"
	}
	return string(a)
}
