package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	internalpricing "github.com/cloudsweep-io/cloudsweep/internal/pricing"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
	"github.com/cloudsweep-io/cloudsweep/internal/scanner"
)

// testNow anchors time-sensitive engine tests.
var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return testNow.Add(-time.Duration(d) * 24 * time.Hour)
}

// ── provider mock ───────────────────────────────────────────────────────────

type mockProvider struct {
	session    *common.Session
	sessionErr error
	clients    *common.ClientSet
}

func (m *mockProvider) LoadSession(_ context.Context, _ string) (*common.Session, error) {
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	return m.session, nil
}

func (m *mockProvider) ClientsForRegion(_ *common.Session, _ string) *common.ClientSet {
	return m.clients
}

func goodProvider(clients *common.ClientSet) *mockProvider {
	return &mockProvider{
		session: &common.Session{AccountID: "111122223333"},
		clients: clients,
	}
}

// ── scanner stub ────────────────────────────────────────────────────────────

// stubScanner returns canned candidates, or an error, for every region.
type stubScanner struct {
	kind       models.ResourceType
	candidates []scanner.Candidate
	err        error
}

func (s *stubScanner) Kind() models.ResourceType { return s.kind }

func (s *stubScanner) Scan(_ context.Context, _ *common.ClientSet, region string, _ scanner.Options) ([]scanner.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]scanner.Candidate, len(s.candidates))
	copy(out, s.candidates)
	for i := range out {
		out[i].Region = region
	}
	return out, nil
}

// ── pricing stub ────────────────────────────────────────────────────────────

// stubSource returns pricesByKind, falling back to an error for unlisted
// kinds so the resolver uses the static table.
type stubSource struct {
	pricesByKind map[models.ResourceType]float64
}

func (s *stubSource) UnitPrice(_ context.Context, key internalpricing.Key) (float64, error) {
	if p, ok := s.pricesByKind[key.Kind]; ok {
		return p, nil
	}
	return 0, errors.New("no live price")
}

// ── recording clients for cleanup tests ─────────────────────────────────────

// recordingEC2 records terminal calls by resource ID and injects per-ID
// errors. Describe operations return empty results; cleanup never lists.
type recordingEC2 struct {
	mu      sync.Mutex
	calls   []string
	errByID map[string]error
}

func (r *recordingEC2) record(op, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+":"+id)
	return r.errByID[id]
}

func (r *recordingEC2) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recordingEC2) DescribeVolumes(_ context.Context, _ *ec2svc.DescribeVolumesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeVolumesOutput, error) {
	return &ec2svc.DescribeVolumesOutput{}, nil
}

func (r *recordingEC2) DescribeSnapshots(_ context.Context, _ *ec2svc.DescribeSnapshotsInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeSnapshotsOutput, error) {
	return &ec2svc.DescribeSnapshotsOutput{}, nil
}

func (r *recordingEC2) DescribeImages(_ context.Context, _ *ec2svc.DescribeImagesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeImagesOutput, error) {
	return &ec2svc.DescribeImagesOutput{}, nil
}

func (r *recordingEC2) DescribeAddresses(_ context.Context, _ *ec2svc.DescribeAddressesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeAddressesOutput, error) {
	return &ec2svc.DescribeAddressesOutput{}, nil
}

func (r *recordingEC2) DescribeNatGateways(_ context.Context, _ *ec2svc.DescribeNatGatewaysInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeNatGatewaysOutput, error) {
	return &ec2svc.DescribeNatGatewaysOutput{}, nil
}

func (r *recordingEC2) DescribeRouteTables(_ context.Context, _ *ec2svc.DescribeRouteTablesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeRouteTablesOutput, error) {
	return &ec2svc.DescribeRouteTablesOutput{}, nil
}

func (r *recordingEC2) DescribeInstances(_ context.Context, _ *ec2svc.DescribeInstancesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeInstancesOutput, error) {
	return &ec2svc.DescribeInstancesOutput{}, nil
}

func (r *recordingEC2) DescribeNetworkInterfaces(_ context.Context, _ *ec2svc.DescribeNetworkInterfacesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeNetworkInterfacesOutput, error) {
	return &ec2svc.DescribeNetworkInterfacesOutput{}, nil
}

func (r *recordingEC2) DeleteVolume(_ context.Context, params *ec2svc.DeleteVolumeInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteVolumeOutput, error) {
	return &ec2svc.DeleteVolumeOutput{}, r.record("DeleteVolume", aws.ToString(params.VolumeId))
}

func (r *recordingEC2) DeleteSnapshot(_ context.Context, params *ec2svc.DeleteSnapshotInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteSnapshotOutput, error) {
	return &ec2svc.DeleteSnapshotOutput{}, r.record("DeleteSnapshot", aws.ToString(params.SnapshotId))
}

func (r *recordingEC2) ReleaseAddress(_ context.Context, params *ec2svc.ReleaseAddressInput, _ ...func(*ec2svc.Options)) (*ec2svc.ReleaseAddressOutput, error) {
	id := aws.ToString(params.AllocationId)
	if id == "" {
		id = aws.ToString(params.PublicIp)
	}
	return &ec2svc.ReleaseAddressOutput{}, r.record("ReleaseAddress", id)
}

func (r *recordingEC2) DeleteNatGateway(_ context.Context, params *ec2svc.DeleteNatGatewayInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteNatGatewayOutput, error) {
	return &ec2svc.DeleteNatGatewayOutput{}, r.record("DeleteNatGateway", aws.ToString(params.NatGatewayId))
}

func (r *recordingEC2) DeregisterImage(_ context.Context, params *ec2svc.DeregisterImageInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeregisterImageOutput, error) {
	return &ec2svc.DeregisterImageOutput{}, r.record("DeregisterImage", aws.ToString(params.ImageId))
}

func (r *recordingEC2) DeleteNetworkInterface(_ context.Context, params *ec2svc.DeleteNetworkInterfaceInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteNetworkInterfaceOutput, error) {
	return &ec2svc.DeleteNetworkInterfaceOutput{}, r.record("DeleteNetworkInterface", aws.ToString(params.NetworkInterfaceId))
}

func (r *recordingEC2) TerminateInstances(_ context.Context, params *ec2svc.TerminateInstancesInput, _ ...func(*ec2svc.Options)) (*ec2svc.TerminateInstancesOutput, error) {
	id := ""
	if len(params.InstanceIds) > 0 {
		id = params.InstanceIds[0]
	}
	return &ec2svc.TerminateInstancesOutput{}, r.record("TerminateInstances", id)
}

// recordingELBV2 is the ELBv2 counterpart of recordingEC2.
type recordingELBV2 struct {
	mu      sync.Mutex
	calls   []string
	errByID map[string]error
}

func (r *recordingELBV2) record(op, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+":"+id)
	return r.errByID[id]
}

func (r *recordingELBV2) DescribeLoadBalancers(_ context.Context, _ *elbv2svc.DescribeLoadBalancersInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeLoadBalancersOutput, error) {
	return &elbv2svc.DescribeLoadBalancersOutput{}, nil
}

func (r *recordingELBV2) DescribeTargetGroups(_ context.Context, _ *elbv2svc.DescribeTargetGroupsInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeTargetGroupsOutput, error) {
	return &elbv2svc.DescribeTargetGroupsOutput{}, nil
}

func (r *recordingELBV2) DescribeTargetHealth(_ context.Context, _ *elbv2svc.DescribeTargetHealthInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeTargetHealthOutput, error) {
	return &elbv2svc.DescribeTargetHealthOutput{}, nil
}

func (r *recordingELBV2) DescribeTags(_ context.Context, _ *elbv2svc.DescribeTagsInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeTagsOutput, error) {
	return &elbv2svc.DescribeTagsOutput{}, nil
}

func (r *recordingELBV2) DeleteLoadBalancer(_ context.Context, params *elbv2svc.DeleteLoadBalancerInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DeleteLoadBalancerOutput, error) {
	return &elbv2svc.DeleteLoadBalancerOutput{}, r.record("DeleteLoadBalancer", aws.ToString(params.LoadBalancerArn))
}

func (r *recordingELBV2) DeleteTargetGroup(_ context.Context, params *elbv2svc.DeleteTargetGroupInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DeleteTargetGroupOutput, error) {
	return &elbv2svc.DeleteTargetGroupOutput{}, r.record("DeleteTargetGroup", aws.ToString(params.TargetGroupArn))
}

// ── stubs ───────────────────────────────────────────────────────────────────

type stubSTS struct{}

func (stubSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{}, nil
}

type stubCloudWatch struct{}

func (stubCloudWatch) GetMetricStatistics(_ context.Context, _ *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	return &cloudwatch.GetMetricStatisticsOutput{}, nil
}

type stubPricingClient struct{}

func (stubPricingClient) GetProducts(_ context.Context, _ *pricing.GetProductsInput, _ ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	return &pricing.GetProductsOutput{}, nil
}

func recordingClients(ec2 *recordingEC2, elb *recordingELBV2) *common.ClientSet {
	return &common.ClientSet{
		STS:        stubSTS{},
		EC2:        ec2,
		ELBV2:      elb,
		CloudWatch: stubCloudWatch{},
		Pricing:    stubPricingClient{},
	}
}
