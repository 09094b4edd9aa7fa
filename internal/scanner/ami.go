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

// AMIScanner finds self-owned AMIs that no live instance uses. An unused
// AMI costs nothing directly, but its backing snapshots bill per GB, so the
// candidate's size is the sum of its block-device snapshot sizes.
type AMIScanner struct{}

// NewAMIScanner returns an AMIScanner.
func NewAMIScanner() *AMIScanner { return &AMIScanner{} }

func (s *AMIScanner) Kind() models.ResourceType { return models.ResourceAMI }

// Scan pages through self-owned images, excluding any referenced by a
// non-terminated instance, then applies the tag and age filters.
func (s *AMIScanner) Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error) {
	inUse, err := imageIDsInUse(ctx, clients)
	if err != nil {
		return nil, err
	}

	input := &ec2svc.DescribeImagesInput{
		Owners: []string{"self"},
	}
	paginator := ec2svc.NewDescribeImagesPaginator(clients.EC2, input)

	var out []Candidate
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeImages page: %w", err)
		}
		for _, img := range page.Images {
			id := aws.ToString(img.ImageId)
			if _, ok := inUse[id]; ok {
				continue
			}
			tags := ec2Tags(img.Tags)
			if protectedTag(tags, opts.ProtectedTags) {
				continue
			}
			created := parseImageCreation(aws.ToString(img.CreationDate))
			if !oldEnough(created, s.Kind(), opts) {
				continue
			}
			out = append(out, Candidate{
				Kind:      s.Kind(),
				ID:        id,
				Region:    region,
				SizeGB:    imageStorageGB(img),
				Tags:      tags,
				CreatedAt: created,
				Details: map[string]any{
					"name":  aws.ToString(img.Name),
					"state": string(img.State),
				},
			})
		}
	}
	return out, nil
}

// imageIDsInUse returns the set of AMI IDs referenced by any non-terminated
// instance.
func imageIDsInUse(ctx context.Context, clients *common.ClientSet) (map[string]struct{}, error) {
	input := &ec2svc.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{"pending", "running", "shutting-down", "stopping", "stopped"},
			},
		},
	}
	paginator := ec2svc.NewDescribeInstancesPaginator(clients.EC2, input)

	ids := make(map[string]struct{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeInstances page: %w", err)
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				if inst.ImageId != nil {
					ids[*inst.ImageId] = struct{}{}
				}
			}
		}
	}
	return ids, nil
}

// imageStorageGB sums the snapshot sizes of an image's EBS block devices.
func imageStorageGB(img ec2types.Image) int32 {
	var total int32
	for _, bdm := range img.BlockDeviceMappings {
		if bdm.Ebs != nil {
			total += aws.ToInt32(bdm.Ebs.VolumeSize)
		}
	}
	return total
}

// parseImageCreation parses the AMI CreationDate string. A missing or
// malformed date yields a zero time, which the age filter treats as
// unknown.
func parseImageCreation(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
