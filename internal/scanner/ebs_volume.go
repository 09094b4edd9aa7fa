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

// EBSVolumeScanner finds unattached EBS volumes. A volume in the
// "available" state has no attachment and accrues storage cost with no
// consumer.
type EBSVolumeScanner struct{}

// NewEBSVolumeScanner returns an EBSVolumeScanner.
func NewEBSVolumeScanner() *EBSVolumeScanner { return &EBSVolumeScanner{} }

func (s *EBSVolumeScanner) Kind() models.ResourceType { return models.ResourceEBSVolume }

// Scan pages through available volumes and returns those past the minimum
// age without a protected tag.
func (s *EBSVolumeScanner) Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error) {
	input := &ec2svc.DescribeVolumesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("status"),
				Values: []string{"available"},
			},
		},
	}
	paginator := ec2svc.NewDescribeVolumesPaginator(clients.EC2, input)

	var out []Candidate
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeVolumes page: %w", err)
		}
		for _, v := range page.Volumes {
			tags := ec2Tags(v.Tags)
			if protectedTag(tags, opts.ProtectedTags) {
				continue
			}
			created := aws.ToTime(v.CreateTime)
			if !oldEnough(created, s.Kind(), opts) {
				continue
			}
			out = append(out, Candidate{
				Kind:      s.Kind(),
				ID:        aws.ToString(v.VolumeId),
				Region:    region,
				SizeGB:    aws.ToInt32(v.Size),
				Dimension: string(v.VolumeType),
				Tags:      tags,
				CreatedAt: created,
				Details: map[string]any{
					"volume_type":       string(v.VolumeType),
					"state":             string(v.State),
					"availability_zone": aws.ToString(v.AvailabilityZone),
				},
			})
		}
	}
	return out, nil
}
