package lod

// Tier is the detail state of one tracked object. Transitions move one way
// or the other purely with viewer distance.
type Tier int

const (
	// TierFull renders full geometry with shadows and collision.
	TierFull Tier = iota
	// TierLow keeps the silhouette but drops shadow casting and
	// collision, the two dominant per-object costs.
	TierLow
	// TierBillboard hides the scene-graph node and renders a single flat
	// quad through the direct draw list.
	TierBillboard
	// TierCulled is fully hidden with no draw instance.
	TierCulled

	TierCount = 4
)

func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierLow:
		return "low"
	case TierBillboard:
		return "billboard"
	case TierCulled:
		return "culled"
	}
	return "unknown"
}
