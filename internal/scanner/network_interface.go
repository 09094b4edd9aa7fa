package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// NetworkInterfaceScanner finds detached network interfaces. Interfaces
// created and managed by AWS services (load balancers, NAT gateways,
// Lambda) are skipped: deleting them breaks the owning service and AWS
// recreates them anyway. ENIs expose no creation time, so candidates have
// unknown age.
type NetworkInterfaceScanner struct{}

// NewNetworkInterfaceScanner returns a NetworkInterfaceScanner.
func NewNetworkInterfaceScanner() *NetworkInterfaceScanner { return &NetworkInterfaceScanner{} }

func (s *NetworkInterfaceScanner) Kind() models.ResourceType { return models.ResourceNetworkInterface }

// Scan pages through available interfaces, skipping requester-managed
// ones, then applies the tag filter.
func (s *NetworkInterfaceScanner) Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error) {
	input := &ec2svc.DescribeNetworkInterfacesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("status"),
				Values: []string{"available"},
			},
		},
	}
	paginator := ec2svc.NewDescribeNetworkInterfacesPaginator(clients.EC2, input)

	var out []Candidate
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeNetworkInterfaces page: %w", err)
		}
		for _, eni := range page.NetworkInterfaces {
			if aws.ToBool(eni.RequesterManaged) {
				continue
			}
			tags := ec2Tags(eni.TagSet)
			if protectedTag(tags, opts.ProtectedTags) {
				continue
			}
			// An available ENI that still reports its last attachment was
			// detached after that attach time; use it as the activity
			// signal so freshly detached interfaces score lower.
			var lastActivity time.Time
			if eni.Attachment != nil {
				lastActivity = aws.ToTime(eni.Attachment.AttachTime)
			}
			out = append(out, Candidate{
				Kind:         s.Kind(),
				ID:           aws.ToString(eni.NetworkInterfaceId),
				Region:       region,
				Tags:         tags,
				LastActivity: lastActivity,
				Details: map[string]any{
					"vpc_id":         aws.ToString(eni.VpcId),
					"subnet_id":      aws.ToString(eni.SubnetId),
					"interface_type": string(eni.InterfaceType),
					"description":    aws.ToString(eni.Description),
				},
			})
		}
	}
	return out, nil
}
