package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// StoppedInstanceScanner finds instances stopped long ago. A stopped
// instance bills nothing for compute but keeps paying for its attached EBS
// volumes, so the candidate's size is the sum of attached volume sizes and
// its cost is storage only.
type StoppedInstanceScanner struct{}

// NewStoppedInstanceScanner returns a StoppedInstanceScanner.
func NewStoppedInstanceScanner() *StoppedInstanceScanner { return &StoppedInstanceScanner{} }

func (s *StoppedInstanceScanner) Kind() models.ResourceType { return models.ResourceStoppedInstance }

// Scan pages through stopped instances and returns those past the minimum
// age without a protected tag. Age is measured from LaunchTime, the closest
// timestamp the API exposes to when the instance last ran.
func (s *StoppedInstanceScanner) Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error) {
	input := &ec2svc.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{"stopped"},
			},
		},
	}
	paginator := ec2svc.NewDescribeInstancesPaginator(clients.EC2, input)

	var instances []ec2types.Instance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeInstances page: %w", err)
		}
		for _, res := range page.Reservations {
			instances = append(instances, res.Instances...)
		}
	}

	var kept []ec2types.Instance
	for _, inst := range instances {
		tags := ec2Tags(inst.Tags)
		if protectedTag(tags, opts.ProtectedTags) {
			continue
		}
		if !oldEnough(aws.ToTime(inst.LaunchTime), s.Kind(), opts) {
			continue
		}
		kept = append(kept, inst)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(kept))
	for _, inst := range kept {
		ids = append(ids, aws.ToString(inst.InstanceId))
	}
	storage, err := attachedStorageGB(ctx, clients, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(kept))
	for _, inst := range kept {
		id := aws.ToString(inst.InstanceId)
		out = append(out, Candidate{
			Kind:   s.Kind(),
			ID:     id,
			Region: region,
			SizeGB: storage[id],
			// Stopped instances bill for storage; price at the common
			// default volume type rather than per attached volume.
			Dimension:    "gp3",
			Tags:         ec2Tags(inst.Tags),
			CreatedAt:    aws.ToTime(inst.LaunchTime),
			LastActivity: stopTime(aws.ToString(inst.StateTransitionReason)),
			Details: map[string]any{
				"instance_type": string(inst.InstanceType),
				"state":         string(inst.State.Name),
			},
		})
	}
	return out, nil
}

// stopTime extracts the stop timestamp from a state transition reason like
// "User initiated (2025-05-30 08:00:00 GMT)". Returns the zero time when
// the reason carries no parseable timestamp.
func stopTime(reason string) time.Time {
	start := strings.LastIndexByte(reason, '(')
	end := strings.LastIndexByte(reason, ')')
	if start < 0 || end < start {
		return time.Time{}
	}
	ts, err := time.Parse("2006-01-02 15:04:05 MST", reason[start+1:end])
	if err != nil {
		return time.Time{}
	}
	return ts
}

// attachedStorageGB sums the attached EBS volume sizes per instance for the
// given instance IDs in one paginated DescribeVolumes call.
func attachedStorageGB(ctx context.Context, clients *common.ClientSet, instanceIDs []string) (map[string]int32, error) {
	input := &ec2svc.DescribeVolumesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("attachment.instance-id"),
				Values: instanceIDs,
			},
		},
	}
	paginator := ec2svc.NewDescribeVolumesPaginator(clients.EC2, input)

	storage := make(map[string]int32, len(instanceIDs))
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeVolumes page: %w", err)
		}
		for _, v := range page.Volumes {
			for _, att := range v.Attachments {
				if att.InstanceId != nil {
					storage[*att.InstanceId] += aws.ToInt32(v.Size)
				}
			}
		}
	}
	return storage, nil
}
