package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspricing "github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// hoursPerMonth converts hourly SKU rates to the monthly figures the rest of
// the engine works in.
const hoursPerMonth = 720

// regionLocations maps region codes to the location names the Pricing API
// filters on. Regions missing here resolve via the static table.
var regionLocations = map[string]string{
	"us-east-1":      "US East (N. Virginia)",
	"us-east-2":      "US East (Ohio)",
	"us-west-1":      "US West (N. California)",
	"us-west-2":      "US West (Oregon)",
	"af-south-1":     "Africa (Cape Town)",
	"ap-east-1":      "Asia Pacific (Hong Kong)",
	"ap-south-1":     "Asia Pacific (Mumbai)",
	"ap-south-2":     "Asia Pacific (Hyderabad)",
	"ap-northeast-1": "Asia Pacific (Tokyo)",
	"ap-northeast-2": "Asia Pacific (Seoul)",
	"ap-northeast-3": "Asia Pacific (Osaka)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
	"ap-southeast-2": "Asia Pacific (Sydney)",
	"ap-southeast-3": "Asia Pacific (Jakarta)",
	"ap-southeast-4": "Asia Pacific (Melbourne)",
	"ca-central-1":   "Canada (Central)",
	"eu-central-1":   "Europe (Frankfurt)",
	"eu-central-2":   "Europe (Zurich)",
	"eu-west-1":      "Europe (Ireland)",
	"eu-west-2":      "Europe (London)",
	"eu-west-3":      "Europe (Paris)",
	"eu-north-1":     "Europe (Stockholm)",
	"eu-south-1":     "Europe (Milan)",
	"eu-south-2":     "Europe (Spain)",
	"me-central-1":   "Middle East (UAE)",
	"me-south-1":     "Middle East (Bahrain)",
	"sa-east-1":      "South America (Sao Paulo)",
}

// APISource resolves unit prices from the AWS Pricing API's GetProducts
// operation. It implements Source; errors propagate to the resolver, which
// handles the static fallback.
type APISource struct {
	client common.PricingClient
}

// NewAPISource returns an APISource over client.
func NewAPISource(client common.PricingClient) *APISource {
	return &APISource{client: client}
}

// UnitPrice looks up the on-demand price for key. Size-based kinds return a
// per-GB-month rate; flat-rate kinds return the monthly cost.
func (s *APISource) UnitPrice(ctx context.Context, key Key) (float64, error) {
	location, ok := regionLocations[key.Region]
	if !ok {
		return 0, fmt.Errorf("no pricing location for region %q", key.Region)
	}

	filters, err := productFilters(key, location)
	if err != nil {
		return 0, err
	}

	out, err := s.client.GetProducts(ctx, &awspricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		Filters:     filters,
		MaxResults:  aws.Int32(10),
	})
	if err != nil {
		return 0, fmt.Errorf("get products for %s/%s: %w", key.Kind, key.Region, err)
	}

	for _, doc := range out.PriceList {
		rate, unit, perr := extractOnDemandRate(doc)
		if perr != nil {
			continue
		}
		switch unit {
		case "Hrs", "Hours":
			if SizeBased(key.Kind) {
				continue
			}
			return rate * hoursPerMonth, nil
		case "GB-Mo", "GB-month":
			if !SizeBased(key.Kind) {
				continue
			}
			return rate, nil
		}
	}
	return 0, fmt.Errorf("no usable price dimension for %s/%s in %s", key.Kind, key.Dimension, key.Region)
}

// productFilters builds the term-match filters that narrow GetProducts to a
// single SKU family for the kind.
func productFilters(key Key, location string) ([]types.Filter, error) {
	match := func(field, value string) types.Filter {
		return types.Filter{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String(field),
			Value: aws.String(value),
		}
	}

	base := []types.Filter{match("location", location)}
	switch key.Kind {
	case models.ResourceEBSVolume, models.ResourceStoppedInstance:
		return append(base,
			match("productFamily", "Storage"),
			match("volumeApiName", key.Dimension),
		), nil
	case models.ResourceEBSSnapshot, models.ResourceAMI:
		return append(base, match("productFamily", "Storage Snapshot")), nil
	case models.ResourceElasticIP:
		return append(base, match("productFamily", "IP Address")), nil
	case models.ResourceLoadBalancer:
		family := "Load Balancer-Application"
		if key.Dimension == "network" {
			family = "Load Balancer-Network"
		}
		return append(base, match("productFamily", family)), nil
	case models.ResourceNATGateway:
		return append(base, match("productFamily", "NAT Gateway")), nil
	}
	return nil, fmt.Errorf("kind %s has no live pricing filters", key.Kind)
}

// priceDocument is the subset of a Pricing API price-list document the
// source reads. Offer and dimension keys are opaque SKU identifiers.
type priceDocument struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				Unit         string `json:"unit"`
				PricePerUnit struct {
					USD string `json:"USD"`
				} `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// extractOnDemandRate pulls the first non-zero on-demand rate and its unit
// out of one price-list JSON document.
func extractOnDemandRate(doc string) (float64, string, error) {
	var parsed priceDocument
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return 0, "", fmt.Errorf("parse price list document: %w", err)
	}
	for _, offer := range parsed.Terms.OnDemand {
		for _, dim := range offer.PriceDimensions {
			rate, err := strconv.ParseFloat(dim.PricePerUnit.USD, 64)
			if err != nil {
				continue
			}
			if rate > 0 {
				return rate, dim.Unit, nil
			}
		}
	}
	return 0, "", fmt.Errorf("no on-demand rate in document")
}
