package scanner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// ElasticIPScanner finds allocated Elastic IPs not associated with any
// instance or network interface. AWS bills unassociated addresses hourly.
// Addresses carry no creation timestamp, so candidates have unknown age and
// skip the minimum-age filter.
type ElasticIPScanner struct{}

// NewElasticIPScanner returns an ElasticIPScanner.
func NewElasticIPScanner() *ElasticIPScanner { return &ElasticIPScanner{} }

func (s *ElasticIPScanner) Kind() models.ResourceType { return models.ResourceElasticIP }

// Scan lists all addresses and returns the unassociated ones without a
// protected tag. DescribeAddresses is not paginated.
func (s *ElasticIPScanner) Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error) {
	out, err := clients.EC2.DescribeAddresses(ctx, &ec2svc.DescribeAddressesInput{})
	if err != nil {
		return nil, fmt.Errorf("DescribeAddresses: %w", err)
	}

	var candidates []Candidate
	for _, addr := range out.Addresses {
		if addr.AssociationId != nil || addr.InstanceId != nil || addr.NetworkInterfaceId != nil {
			continue
		}
		tags := ec2Tags(addr.Tags)
		if protectedTag(tags, opts.ProtectedTags) {
			continue
		}
		id := aws.ToString(addr.AllocationId)
		if id == "" {
			// EC2-Classic addresses have no allocation ID.
			id = aws.ToString(addr.PublicIp)
		}
		candidates = append(candidates, Candidate{
			Kind:   s.Kind(),
			ID:     id,
			Region: region,
			Tags:   tags,
			Details: map[string]any{
				"public_ip": aws.ToString(addr.PublicIp),
				"domain":    string(addr.Domain),
			},
		})
	}
	return candidates, nil
}
