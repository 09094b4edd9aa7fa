package scanner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// EBSSnapshotScanner finds snapshots owned by the account that are no
// longer referenced by any AMI. Deregistering an AMI leaves its backing
// snapshots behind, which is the usual source of snapshot waste.
type EBSSnapshotScanner struct{}

// NewEBSSnapshotScanner returns an EBSSnapshotScanner.
func NewEBSSnapshotScanner() *EBSSnapshotScanner { return &EBSSnapshotScanner{} }

func (s *EBSSnapshotScanner) Kind() models.ResourceType { return models.ResourceEBSSnapshot }

// Scan pages through self-owned snapshots, excluding any referenced by an
// AMI block-device mapping, then applies the tag and age filters.
func (s *EBSSnapshotScanner) Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error) {
	referenced, err := amiSnapshotIDs(ctx, clients)
	if err != nil {
		return nil, err
	}

	input := &ec2svc.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
	}
	paginator := ec2svc.NewDescribeSnapshotsPaginator(clients.EC2, input)

	var out []Candidate
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeSnapshots page: %w", err)
		}
		for _, snap := range page.Snapshots {
			id := aws.ToString(snap.SnapshotId)
			if _, ok := referenced[id]; ok {
				continue
			}
			tags := ec2Tags(snap.Tags)
			if protectedTag(tags, opts.ProtectedTags) {
				continue
			}
			created := aws.ToTime(snap.StartTime)
			if !oldEnough(created, s.Kind(), opts) {
				continue
			}
			out = append(out, Candidate{
				Kind:      s.Kind(),
				ID:        id,
				Region:    region,
				SizeGB:    aws.ToInt32(snap.VolumeSize),
				Tags:      tags,
				CreatedAt: created,
				Details: map[string]any{
					"volume_id":   aws.ToString(snap.VolumeId),
					"state":       string(snap.State),
					"description": aws.ToString(snap.Description),
				},
			})
		}
	}
	return out, nil
}

// amiSnapshotIDs returns the set of snapshot IDs referenced by any
// self-owned AMI's block-device mappings.
func amiSnapshotIDs(ctx context.Context, clients *common.ClientSet) (map[string]struct{}, error) {
	input := &ec2svc.DescribeImagesInput{
		Owners: []string{"self"},
	}
	paginator := ec2svc.NewDescribeImagesPaginator(clients.EC2, input)

	ids := make(map[string]struct{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeImages page: %w", err)
		}
		for _, img := range page.Images {
			for _, bdm := range img.BlockDeviceMappings {
				if bdm.Ebs != nil && bdm.Ebs.SnapshotId != nil {
					ids[*bdm.Ebs.SnapshotId] = struct{}{}
				}
			}
		}
	}
	return ids, nil
}
