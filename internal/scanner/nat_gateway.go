package scanner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// NATGatewayScanner finds available NAT gateways that no route table routes
// through. A NAT gateway without a route cannot carry traffic but still
// bills its hourly rate.
type NATGatewayScanner struct{}

// NewNATGatewayScanner returns a NATGatewayScanner.
func NewNATGatewayScanner() *NATGatewayScanner { return &NATGatewayScanner{} }

func (s *NATGatewayScanner) Kind() models.ResourceType { return models.ResourceNATGateway }

// Scan pages through available NAT gateways, excluding any referenced by a
// route table, then applies the tag and age filters.
func (s *NATGatewayScanner) Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error) {
	routed, err := routedNATGatewayIDs(ctx, clients)
	if err != nil {
		return nil, err
	}

	input := &ec2svc.DescribeNatGatewaysInput{
		Filter: []ec2types.Filter{
			{
				Name:   aws.String("state"),
				Values: []string{"available"},
			},
		},
	}
	paginator := ec2svc.NewDescribeNatGatewaysPaginator(clients.EC2, input)

	var out []Candidate
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeNatGateways page: %w", err)
		}
		for _, gw := range page.NatGateways {
			id := aws.ToString(gw.NatGatewayId)
			if _, ok := routed[id]; ok {
				continue
			}
			tags := ec2Tags(gw.Tags)
			if protectedTag(tags, opts.ProtectedTags) {
				continue
			}
			created := aws.ToTime(gw.CreateTime)
			if !oldEnough(created, s.Kind(), opts) {
				continue
			}
			out = append(out, Candidate{
				Kind:      s.Kind(),
				ID:        id,
				Region:    region,
				Tags:      tags,
				CreatedAt: created,
				Details: map[string]any{
					"vpc_id":    aws.ToString(gw.VpcId),
					"subnet_id": aws.ToString(gw.SubnetId),
					"state":     string(gw.State),
				},
			})
		}
	}
	return out, nil
}

// routedNATGatewayIDs returns the set of NAT gateway IDs referenced by any
// route in any route table.
func routedNATGatewayIDs(ctx context.Context, clients *common.ClientSet) (map[string]struct{}, error) {
	paginator := ec2svc.NewDescribeRouteTablesPaginator(clients.EC2, &ec2svc.DescribeRouteTablesInput{})

	ids := make(map[string]struct{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeRouteTables page: %w", err)
		}
		for _, rt := range page.RouteTables {
			for _, route := range rt.Routes {
				if route.NatGatewayId != nil {
					ids[*route.NatGatewayId] = struct{}{}
				}
			}
		}
	}
	return ids, nil
}
