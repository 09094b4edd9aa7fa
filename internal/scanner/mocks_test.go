package scanner

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/cloudsweep-io/cloudsweep/internal/config"
	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// testNow anchors time-sensitive scanner tests.
var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return testNow.Add(-time.Duration(d) * 24 * time.Hour)
}

// testOptions returns scan options with production-like defaults and a
// frozen clock.
func testOptions() Options {
	minAge := make(map[models.ResourceType]time.Duration)
	for rt, days := range config.DefaultMinAgeDays {
		minAge[rt] = time.Duration(days) * 24 * time.Hour
	}
	return Options{
		MinAge:        minAge,
		ProtectedTags: []string{"donotdelete", "production", "critical"},
		LookbackDays:  30,
		Now:           func() time.Time { return testNow },
	}
}

// ── EC2 mock ────────────────────────────────────────────────────────────────

// mockEC2 serves canned DescribeX outputs and records terminal calls.
// Every Describe returns a single page.
type mockEC2 struct {
	volumes      []ec2types.Volume
	snapshots    []ec2types.Snapshot
	images       []ec2types.Image
	addresses    []ec2types.Address
	natGateways  []ec2types.NatGateway
	routeTables  []ec2types.RouteTable
	reservations []ec2types.Reservation
	interfaces   []ec2types.NetworkInterface

	err error

	// lastVolumeFilters records the filters of the most recent
	// DescribeVolumes call, so tests can tell the attached-storage lookup
	// apart from the unattached-volume listing.
	lastVolumeFilters []ec2types.Filter
}

func (m *mockEC2) DescribeVolumes(_ context.Context, params *ec2svc.DescribeVolumesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeVolumesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastVolumeFilters = params.Filters
	return &ec2svc.DescribeVolumesOutput{Volumes: m.volumes}, nil
}

func (m *mockEC2) DescribeSnapshots(_ context.Context, _ *ec2svc.DescribeSnapshotsInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeSnapshotsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ec2svc.DescribeSnapshotsOutput{Snapshots: m.snapshots}, nil
}

func (m *mockEC2) DescribeImages(_ context.Context, _ *ec2svc.DescribeImagesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeImagesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ec2svc.DescribeImagesOutput{Images: m.images}, nil
}

func (m *mockEC2) DescribeAddresses(_ context.Context, _ *ec2svc.DescribeAddressesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeAddressesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ec2svc.DescribeAddressesOutput{Addresses: m.addresses}, nil
}

func (m *mockEC2) DescribeNatGateways(_ context.Context, _ *ec2svc.DescribeNatGatewaysInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeNatGatewaysOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ec2svc.DescribeNatGatewaysOutput{NatGateways: m.natGateways}, nil
}

func (m *mockEC2) DescribeRouteTables(_ context.Context, _ *ec2svc.DescribeRouteTablesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeRouteTablesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ec2svc.DescribeRouteTablesOutput{RouteTables: m.routeTables}, nil
}

func (m *mockEC2) DescribeInstances(_ context.Context, _ *ec2svc.DescribeInstancesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeInstancesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ec2svc.DescribeInstancesOutput{Reservations: m.reservations}, nil
}

func (m *mockEC2) DescribeNetworkInterfaces(_ context.Context, _ *ec2svc.DescribeNetworkInterfacesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeNetworkInterfacesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ec2svc.DescribeNetworkInterfacesOutput{NetworkInterfaces: m.interfaces}, nil
}

func (m *mockEC2) DeleteVolume(_ context.Context, _ *ec2svc.DeleteVolumeInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteVolumeOutput, error) {
	return &ec2svc.DeleteVolumeOutput{}, nil
}

func (m *mockEC2) DeleteSnapshot(_ context.Context, _ *ec2svc.DeleteSnapshotInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteSnapshotOutput, error) {
	return &ec2svc.DeleteSnapshotOutput{}, nil
}

func (m *mockEC2) ReleaseAddress(_ context.Context, _ *ec2svc.ReleaseAddressInput, _ ...func(*ec2svc.Options)) (*ec2svc.ReleaseAddressOutput, error) {
	return &ec2svc.ReleaseAddressOutput{}, nil
}

func (m *mockEC2) DeleteNatGateway(_ context.Context, _ *ec2svc.DeleteNatGatewayInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteNatGatewayOutput, error) {
	return &ec2svc.DeleteNatGatewayOutput{}, nil
}

func (m *mockEC2) DeregisterImage(_ context.Context, _ *ec2svc.DeregisterImageInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeregisterImageOutput, error) {
	return &ec2svc.DeregisterImageOutput{}, nil
}

func (m *mockEC2) DeleteNetworkInterface(_ context.Context, _ *ec2svc.DeleteNetworkInterfaceInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteNetworkInterfaceOutput, error) {
	return &ec2svc.DeleteNetworkInterfaceOutput{}, nil
}

func (m *mockEC2) TerminateInstances(_ context.Context, _ *ec2svc.TerminateInstancesInput, _ ...func(*ec2svc.Options)) (*ec2svc.TerminateInstancesOutput, error) {
	return &ec2svc.TerminateInstancesOutput{}, nil
}

// ── ELBv2 mock ──────────────────────────────────────────────────────────────

type mockELBV2 struct {
	loadBalancers []elbv2types.LoadBalancer

	// targetGroupsByLB maps LoadBalancerArn to the target groups returned
	// when DescribeTargetGroups filters by it. allTargetGroups is returned
	// for unfiltered calls.
	targetGroupsByLB map[string][]elbv2types.TargetGroup
	allTargetGroups  []elbv2types.TargetGroup

	// healthByTG maps TargetGroupArn to target health states.
	healthByTG map[string][]elbv2types.TargetHealthStateEnum

	tags map[string]map[string]string

	err error
}

func (m *mockELBV2) DescribeLoadBalancers(_ context.Context, _ *elbv2svc.DescribeLoadBalancersInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeLoadBalancersOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &elbv2svc.DescribeLoadBalancersOutput{LoadBalancers: m.loadBalancers}, nil
}

func (m *mockELBV2) DescribeTargetGroups(_ context.Context, params *elbv2svc.DescribeTargetGroupsInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeTargetGroupsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	if params.LoadBalancerArn != nil {
		return &elbv2svc.DescribeTargetGroupsOutput{TargetGroups: m.targetGroupsByLB[*params.LoadBalancerArn]}, nil
	}
	return &elbv2svc.DescribeTargetGroupsOutput{TargetGroups: m.allTargetGroups}, nil
}

func (m *mockELBV2) DescribeTargetHealth(_ context.Context, params *elbv2svc.DescribeTargetHealthInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeTargetHealthOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	var descs []elbv2types.TargetHealthDescription
	for _, state := range m.healthByTG[*params.TargetGroupArn] {
		descs = append(descs, elbv2types.TargetHealthDescription{
			TargetHealth: &elbv2types.TargetHealth{State: state},
		})
	}
	return &elbv2svc.DescribeTargetHealthOutput{TargetHealthDescriptions: descs}, nil
}

func (m *mockELBV2) DescribeTags(_ context.Context, params *elbv2svc.DescribeTagsInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeTagsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	var descs []elbv2types.TagDescription
	for _, arn := range params.ResourceArns {
		arn := arn
		desc := elbv2types.TagDescription{ResourceArn: &arn}
		for k, v := range m.tags[arn] {
			k, v := k, v
			desc.Tags = append(desc.Tags, elbv2types.Tag{Key: &k, Value: &v})
		}
		descs = append(descs, desc)
	}
	return &elbv2svc.DescribeTagsOutput{TagDescriptions: descs}, nil
}

func (m *mockELBV2) DeleteLoadBalancer(_ context.Context, _ *elbv2svc.DeleteLoadBalancerInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DeleteLoadBalancerOutput, error) {
	return &elbv2svc.DeleteLoadBalancerOutput{}, nil
}

func (m *mockELBV2) DeleteTargetGroup(_ context.Context, _ *elbv2svc.DeleteTargetGroupInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DeleteTargetGroupOutput, error) {
	return &elbv2svc.DeleteTargetGroupOutput{}, nil
}

// ── CloudWatch mock ─────────────────────────────────────────────────────────

type mockCloudWatch struct {
	// requestSums maps the LoadBalancer dimension value to datapoint sums.
	requestSums map[string][]float64
	err         error
}

func (m *mockCloudWatch) GetMetricStatistics(_ context.Context, params *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	var dim string
	if len(params.Dimensions) > 0 && params.Dimensions[0].Value != nil {
		dim = *params.Dimensions[0].Value
	}
	var dps []cwtypes.Datapoint
	for _, sum := range m.requestSums[dim] {
		sum := sum
		dps = append(dps, cwtypes.Datapoint{Sum: &sum})
	}
	return &cloudwatch.GetMetricStatisticsOutput{Datapoints: dps}, nil
}

// ── STS / Pricing stubs ─────────────────────────────────────────────────────

type stubSTS struct{}

func (stubSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{}, nil
}

type stubPricing struct{}

func (stubPricing) GetProducts(_ context.Context, _ *pricing.GetProductsInput, _ ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	return &pricing.GetProductsOutput{}, nil
}

// newMockClients wires the mocks into a ClientSet.
func newMockClients(ec2 *mockEC2, elb *mockELBV2, cw *mockCloudWatch) *common.ClientSet {
	if ec2 == nil {
		ec2 = &mockEC2{}
	}
	if elb == nil {
		elb = &mockELBV2{}
	}
	if cw == nil {
		cw = &mockCloudWatch{}
	}
	return &common.ClientSet{
		STS:        stubSTS{},
		EC2:        ec2,
		ELBV2:      elb,
		CloudWatch: cw,
		Pricing:    stubPricing{},
	}
}
