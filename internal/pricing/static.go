package pricing

import "github.com/cloudsweep-io/cloudsweep/internal/models"

// Static fallback prices in USD, used whenever the live pricing source
// cannot be reached or lacks the requested SKU. Storage rates are per
// GB-month; flat rates are per month assuming 720 hours.
const (
	snapshotRatePerGBMonth = 0.05
	eipMonthly             = 3.60  // $0.005/hr unassociated address
	loadBalancerMonthly    = 16.20 // $0.0225/hr ALB/NLB base
	natGatewayMonthly      = 32.40 // $0.045/hr, excludes data processing
	eniMonthly             = 3.60  // $0.005/hr unattached interface
)

// ebsRatesPerGBMonth is the per-volume-type storage rate. Unknown volume
// types price as gp2, the conservative default.
var ebsRatesPerGBMonth = map[string]float64{
	"gp2":      0.10,
	"gp3":      0.08,
	"io1":      0.125,
	"io2":      0.125,
	"st1":      0.045,
	"sc1":      0.025,
	"standard": 0.05,
}

// StaticPrice returns the fallback unit price for a pricing key.
// For size-based kinds this is a per-GB-month rate; for flat-rate kinds it
// is the monthly cost itself.
func StaticPrice(key Key) float64 {
	switch key.Kind {
	case models.ResourceEBSVolume, models.ResourceStoppedInstance:
		if rate, ok := ebsRatesPerGBMonth[key.Dimension]; ok {
			return rate
		}
		return ebsRatesPerGBMonth["gp2"]
	case models.ResourceEBSSnapshot, models.ResourceAMI:
		return snapshotRatePerGBMonth
	case models.ResourceElasticIP:
		return eipMonthly
	case models.ResourceLoadBalancer:
		return loadBalancerMonthly
	case models.ResourceNATGateway:
		return natGatewayMonthly
	case models.ResourceNetworkInterface:
		return eniMonthly
	case models.ResourceTargetGroup:
		return 0
	}
	return 0
}

// SizeBased reports whether monthly cost for the kind is unit price × GB.
// Flat-rate kinds use the unit price directly.
func SizeBased(kind models.ResourceType) bool {
	switch kind {
	case models.ResourceEBSVolume, models.ResourceEBSSnapshot,
		models.ResourceStoppedInstance, models.ResourceAMI:
		return true
	}
	return false
}

// staticOnly reports kinds that never consult the live pricing source:
// target groups carry no direct cost, and unattached interfaces bill at the
// uniform public IPv4 rate.
func staticOnly(kind models.ResourceType) bool {
	return kind == models.ResourceTargetGroup || kind == models.ResourceNetworkInterface
}
