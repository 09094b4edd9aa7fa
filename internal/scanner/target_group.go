package scanner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// TargetGroupScanner finds target groups attached to no load balancer, or
// only to idle ones. Target groups are free but accumulate as clutter after
// their load balancers go away; they score as cleanup candidates with zero
// cost. The API exposes no creation time, so candidates have unknown age.
type TargetGroupScanner struct{}

// NewTargetGroupScanner returns a TargetGroupScanner.
func NewTargetGroupScanner() *TargetGroupScanner { return &TargetGroupScanner{} }

func (s *TargetGroupScanner) Kind() models.ResourceType { return models.ResourceTargetGroup }

// Scan pages through all target groups, keeping those whose load balancer
// set is empty or entirely idle, then applies the tag filter.
func (s *TargetGroupScanner) Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error) {
	idle, err := idleLoadBalancers(ctx, clients, opts)
	if err != nil {
		return nil, err
	}
	idleARNs := make(map[string]struct{}, len(idle))
	for _, lb := range idle {
		idleARNs[aws.ToString(lb.LoadBalancerArn)] = struct{}{}
	}

	paginator := elbv2svc.NewDescribeTargetGroupsPaginator(clients.ELBV2, &elbv2svc.DescribeTargetGroupsInput{})

	var groups []elbv2types.TargetGroup
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeTargetGroups page: %w", err)
		}
		for _, tg := range page.TargetGroups {
			if !allIdle(tg.LoadBalancerArns, idleARNs) {
				continue
			}
			groups = append(groups, tg)
		}
	}
	if len(groups) == 0 {
		return nil, nil
	}

	arns := make([]string, 0, len(groups))
	for _, tg := range groups {
		arns = append(arns, aws.ToString(tg.TargetGroupArn))
	}
	tagsByARN, err := elbTags(ctx, clients, arns)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, tg := range groups {
		arn := aws.ToString(tg.TargetGroupArn)
		tags := tagsByARN[arn]
		if protectedTag(tags, opts.ProtectedTags) {
			continue
		}
		out = append(out, Candidate{
			Kind:   s.Kind(),
			ID:     arn,
			Region: region,
			Tags:   tags,
			Details: map[string]any{
				"name":           aws.ToString(tg.TargetGroupName),
				"protocol":       string(tg.Protocol),
				"load_balancers": len(tg.LoadBalancerArns),
			},
		})
	}
	return out, nil
}

// allIdle reports whether every load balancer ARN in arns is in the idle
// set. An empty arns slice (orphaned target group) counts as idle.
func allIdle(arns []string, idle map[string]struct{}) bool {
	for _, arn := range arns {
		if _, ok := idle[arn]; !ok {
			return false
		}
	}
	return true
}
