package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations this project uses. Narrow
// interfaces instead of the full SDK clients make mocking in unit tests
// trivial: a struct returning canned data satisfies the interface without
// touching the SDK.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used by the session loader.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// EC2Client covers the EC2 operations used by the scanners and the cleanup
// engine: read-only listings plus the terminal delete/release/terminate calls.
type EC2Client interface {
	DescribeVolumes(
		ctx context.Context,
		params *ec2.DescribeVolumesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeVolumesOutput, error)

	DescribeSnapshots(
		ctx context.Context,
		params *ec2.DescribeSnapshotsInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeSnapshotsOutput, error)

	DescribeImages(
		ctx context.Context,
		params *ec2.DescribeImagesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeImagesOutput, error)

	DescribeAddresses(
		ctx context.Context,
		params *ec2.DescribeAddressesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeAddressesOutput, error)

	DescribeNatGateways(
		ctx context.Context,
		params *ec2.DescribeNatGatewaysInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeNatGatewaysOutput, error)

	DescribeRouteTables(
		ctx context.Context,
		params *ec2.DescribeRouteTablesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeRouteTablesOutput, error)

	DescribeInstances(
		ctx context.Context,
		params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstancesOutput, error)

	DescribeNetworkInterfaces(
		ctx context.Context,
		params *ec2.DescribeNetworkInterfacesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeNetworkInterfacesOutput, error)

	DeleteVolume(
		ctx context.Context,
		params *ec2.DeleteVolumeInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DeleteVolumeOutput, error)

	DeleteSnapshot(
		ctx context.Context,
		params *ec2.DeleteSnapshotInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DeleteSnapshotOutput, error)

	ReleaseAddress(
		ctx context.Context,
		params *ec2.ReleaseAddressInput,
		optFns ...func(*ec2.Options),
	) (*ec2.ReleaseAddressOutput, error)

	DeleteNatGateway(
		ctx context.Context,
		params *ec2.DeleteNatGatewayInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DeleteNatGatewayOutput, error)

	DeregisterImage(
		ctx context.Context,
		params *ec2.DeregisterImageInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DeregisterImageOutput, error)

	DeleteNetworkInterface(
		ctx context.Context,
		params *ec2.DeleteNetworkInterfaceInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DeleteNetworkInterfaceOutput, error)

	TerminateInstances(
		ctx context.Context,
		params *ec2.TerminateInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.TerminateInstancesOutput, error)
}

// ELBV2Client covers the Elastic Load Balancing v2 operations used by the
// load balancer and target group scanners and their cleanup actions.
type ELBV2Client interface {
	DescribeLoadBalancers(
		ctx context.Context,
		params *elbv2.DescribeLoadBalancersInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DescribeLoadBalancersOutput, error)

	DescribeTargetGroups(
		ctx context.Context,
		params *elbv2.DescribeTargetGroupsInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DescribeTargetGroupsOutput, error)

	DescribeTargetHealth(
		ctx context.Context,
		params *elbv2.DescribeTargetHealthInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DescribeTargetHealthOutput, error)

	DescribeTags(
		ctx context.Context,
		params *elbv2.DescribeTagsInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DescribeTagsOutput, error)

	DeleteLoadBalancer(
		ctx context.Context,
		params *elbv2.DeleteLoadBalancerInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DeleteLoadBalancerOutput, error)

	DeleteTargetGroup(
		ctx context.Context,
		params *elbv2.DeleteTargetGroupInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DeleteTargetGroupOutput, error)
}

// CloudWatchClient covers the metric reads used for idle-traffic checks.
type CloudWatchClient interface {
	GetMetricStatistics(
		ctx context.Context,
		params *cloudwatch.GetMetricStatisticsInput,
		optFns ...func(*cloudwatch.Options),
	) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// PricingClient covers the AWS Pricing API operations used by the pricing
// resolver's live source.
type PricingClient interface {
	GetProducts(
		ctx context.Context,
		params *pricing.GetProductsInput,
		optFns ...func(*pricing.Options),
	) (*pricing.GetProductsOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds initialised AWS service clients scoped to one region.
// All fields are interfaces so tests can swap in mocks without importing
// real SDK clients.
type ClientSet struct {
	STS        STSClient
	EC2        EC2Client
	ELBV2      ELBV2Client
	CloudWatch CloudWatchClient
	Pricing    PricingClient
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject mock clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory. The Pricing API is a global
// service only reachable in us-east-1, so its client is pinned there
// regardless of the scan region.
func NewClientSet(cfg aws.Config) *ClientSet {
	pricingCfg := cfg
	pricingCfg.Region = "us-east-1"

	return &ClientSet{
		STS:        sts.NewFromConfig(cfg),
		EC2:        ec2.NewFromConfig(cfg),
		ELBV2:      elbv2.NewFromConfig(cfg),
		CloudWatch: cloudwatch.NewFromConfig(cfg),
		Pricing:    pricing.NewFromConfig(pricingCfg),
	}
}
