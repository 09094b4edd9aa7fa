package scanner

import (
	"fmt"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
)

// Registry is a simple, ordered, in-memory scanner registry.
// Register panics on duplicate kinds to catch wiring mistakes at startup.
type Registry struct {
	scanners []Scanner
	index    map[models.ResourceType]struct{}
}

// NewRegistry returns an empty registry ready for scanner registration.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[models.ResourceType]struct{}),
	}
}

// Register adds s to the registry. Panics if the same kind is registered
// twice.
func (r *Registry) Register(s Scanner) {
	if _, exists := r.index[s.Kind()]; exists {
		panic(fmt.Sprintf("duplicate scanner kind: %q", s.Kind()))
	}
	r.scanners = append(r.scanners, s)
	r.index[s.Kind()] = struct{}{}
}

// All returns every registered scanner in registration order.
func (r *Registry) All() []Scanner {
	return r.scanners
}

// ForTypes returns the registered scanners matching kinds, preserving
// registration order. Unknown kinds are ignored; config validation rejects
// them before a scan starts.
func (r *Registry) ForTypes(kinds []models.ResourceType) []Scanner {
	want := make(map[models.ResourceType]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}
	var out []Scanner
	for _, s := range r.scanners {
		if _, ok := want[s.Kind()]; ok {
			out = append(out, s)
		}
	}
	return out
}

// DefaultRegistry returns a registry with every built-in scanner
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewEBSVolumeScanner())
	r.Register(NewEBSSnapshotScanner())
	r.Register(NewElasticIPScanner())
	r.Register(NewLoadBalancerScanner())
	r.Register(NewNATGatewayScanner())
	r.Register(NewStoppedInstanceScanner())
	r.Register(NewTargetGroupScanner())
	r.Register(NewNetworkInterfaceScanner())
	r.Register(NewAMIScanner())
	return r
}
