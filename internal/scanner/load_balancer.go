package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// describeTagsBatchSize is the ELBv2 DescribeTags ResourceArns limit.
const describeTagsBatchSize = 20

// LoadBalancerScanner finds idle Application and Network Load Balancers.
// A load balancer is idle when none of its target groups has a healthy
// target; ALBs must additionally show zero RequestCount over the lookback
// window, since an ALB can serve fixed responses with no targets at all.
type LoadBalancerScanner struct{}

// NewLoadBalancerScanner returns a LoadBalancerScanner.
func NewLoadBalancerScanner() *LoadBalancerScanner { return &LoadBalancerScanner{} }

func (s *LoadBalancerScanner) Kind() models.ResourceType { return models.ResourceLoadBalancer }

// Scan returns the idle load balancers past the minimum age without a
// protected tag. Tags come from a separate DescribeTags call, batched to
// the API limit.
func (s *LoadBalancerScanner) Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error) {
	idle, err := idleLoadBalancers(ctx, clients, opts)
	if err != nil {
		return nil, err
	}
	if len(idle) == 0 {
		return nil, nil
	}

	arns := make([]string, 0, len(idle))
	for _, lb := range idle {
		arns = append(arns, aws.ToString(lb.LoadBalancerArn))
	}
	tagsByARN, err := elbTags(ctx, clients, arns)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, lb := range idle {
		arn := aws.ToString(lb.LoadBalancerArn)
		tags := tagsByARN[arn]
		if protectedTag(tags, opts.ProtectedTags) {
			continue
		}
		created := aws.ToTime(lb.CreatedTime)
		if !oldEnough(created, s.Kind(), opts) {
			continue
		}
		out = append(out, Candidate{
			Kind:      s.Kind(),
			ID:        arn,
			Region:    region,
			Dimension: string(lb.Type),
			Tags:      tags,
			CreatedAt: created,
			Details: map[string]any{
				"name":   aws.ToString(lb.LoadBalancerName),
				"type":   string(lb.Type),
				"scheme": string(lb.Scheme),
			},
		})
	}
	return out, nil
}

// idleLoadBalancers pages through active ALBs and NLBs and returns those
// with no healthy targets (and, for ALBs, no requests over the lookback
// window). Shared with the target-group scanner, which needs the idle set
// to classify target groups attached to dead load balancers.
func idleLoadBalancers(ctx context.Context, clients *common.ClientSet, opts Options) ([]elbv2types.LoadBalancer, error) {
	paginator := elbv2svc.NewDescribeLoadBalancersPaginator(clients.ELBV2, &elbv2svc.DescribeLoadBalancersInput{})

	var idle []elbv2types.LoadBalancer
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeLoadBalancers page: %w", err)
		}
		for _, lb := range page.LoadBalancers {
			switch lb.Type {
			case elbv2types.LoadBalancerTypeEnumApplication, elbv2types.LoadBalancerTypeEnumNetwork:
			default:
				continue
			}
			if lb.State != nil && lb.State.Code != elbv2types.LoadBalancerStateEnumActive {
				continue
			}
			arn := aws.ToString(lb.LoadBalancerArn)
			healthy, err := hasHealthyTarget(ctx, clients, arn)
			if err != nil {
				return nil, err
			}
			if healthy {
				continue
			}
			if lb.Type == elbv2types.LoadBalancerTypeEnumApplication {
				count, err := albRequestCount(ctx, clients, arn, opts)
				if err != nil {
					return nil, err
				}
				if count > 0 {
					continue
				}
			}
			idle = append(idle, lb)
		}
	}
	return idle, nil
}

// hasHealthyTarget reports whether any target group of the load balancer
// has at least one healthy target.
func hasHealthyTarget(ctx context.Context, clients *common.ClientSet, lbARN string) (bool, error) {
	paginator := elbv2svc.NewDescribeTargetGroupsPaginator(clients.ELBV2, &elbv2svc.DescribeTargetGroupsInput{
		LoadBalancerArn: aws.String(lbARN),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("DescribeTargetGroups page: %w", err)
		}
		for _, tg := range page.TargetGroups {
			health, err := clients.ELBV2.DescribeTargetHealth(ctx, &elbv2svc.DescribeTargetHealthInput{
				TargetGroupArn: tg.TargetGroupArn,
			})
			if err != nil {
				return false, fmt.Errorf("DescribeTargetHealth: %w", err)
			}
			for _, desc := range health.TargetHealthDescriptions {
				if desc.TargetHealth != nil && desc.TargetHealth.State == elbv2types.TargetHealthStateEnumHealthy {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// albRequestCount sums the ALB's CloudWatch RequestCount over the lookback
// window at 1-day granularity. The LoadBalancer dimension value is the ARN
// suffix after "loadbalancer/".
func albRequestCount(ctx context.Context, clients *common.ClientSet, lbARN string, opts Options) (int64, error) {
	const marker = ":loadbalancer/"
	idx := strings.Index(lbARN, marker)
	if idx < 0 {
		return 0, fmt.Errorf("malformed load balancer ARN %q", lbARN)
	}
	lbDim := lbARN[idx+len(marker):]

	end := opts.now().UTC()
	start := end.AddDate(0, 0, -opts.LookbackDays)

	out, err := clients.CloudWatch.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/ApplicationELB"),
		MetricName: aws.String("RequestCount"),
		Dimensions: []cwtypes.Dimension{
			{
				Name:  aws.String("LoadBalancer"),
				Value: aws.String(lbDim),
			},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(int32((24 * time.Hour).Seconds())),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticSum},
	})
	if err != nil {
		return 0, fmt.Errorf("GetMetricStatistics RequestCount: %w", err)
	}

	var total float64
	for _, dp := range out.Datapoints {
		if dp.Sum != nil {
			total += *dp.Sum
		}
	}
	return int64(total), nil
}

// elbTags fetches tags for the given ELBv2 resource ARNs, batched to the
// DescribeTags limit, keyed by ARN.
func elbTags(ctx context.Context, clients *common.ClientSet, arns []string) (map[string]map[string]string, error) {
	tagsByARN := make(map[string]map[string]string, len(arns))
	for start := 0; start < len(arns); start += describeTagsBatchSize {
		end := start + describeTagsBatchSize
		if end > len(arns) {
			end = len(arns)
		}
		out, err := clients.ELBV2.DescribeTags(ctx, &elbv2svc.DescribeTagsInput{
			ResourceArns: arns[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeTags: %w", err)
		}
		for _, desc := range out.TagDescriptions {
			arn := aws.ToString(desc.ResourceArn)
			if len(desc.Tags) == 0 {
				continue
			}
			m := make(map[string]string, len(desc.Tags))
			for _, t := range desc.Tags {
				if t.Key == nil {
					continue
				}
				m[*t.Key] = aws.ToString(t.Value)
			}
			tagsByARN[arn] = m
		}
	}
	return tagsByARN, nil
}
