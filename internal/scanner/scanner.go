package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// Candidate is one idle resource found by a scanner, before scoring and
// pricing turn it into a waste item. SizeGB is zero for kinds without a
// size dimension; CreatedAt and LastActivity are zero when AWS does not
// expose them for the kind.
type Candidate struct {
	Kind         models.ResourceType
	ID           string
	Region       string
	SizeGB       int32
	Dimension    string
	Tags         map[string]string
	CreatedAt    time.Time
	LastActivity time.Time
	Details      map[string]any
}

// Options carries the scan-wide settings each scanner consults while
// filtering candidates.
type Options struct {
	// MinAge is the minimum age per kind; resources younger than this are
	// skipped outright. Kinds without a creation timestamp pass the check.
	MinAge map[models.ResourceType]time.Duration

	// ProtectedTags are tag keys, lower-cased, whose presence excludes a
	// resource from the scan entirely.
	ProtectedTags []string

	// LookbackDays bounds the activity window for scanners that consult
	// CloudWatch metrics.
	LookbackDays int

	// Now supplies the clock, injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Scanner finds idle resources of one kind in one region. Implementations
// must be safe for concurrent use: the orchestrator runs one Scan per
// region in parallel against the same Scanner value.
type Scanner interface {
	// Kind identifies the resource type this scanner covers.
	Kind() models.ResourceType

	// Scan returns the idle candidates found in the region, already
	// filtered by age and protected tags per opts.
	Scan(ctx context.Context, clients *common.ClientSet, region string, opts Options) ([]Candidate, error)
}

// protectedTag reports whether tags contains any of the protected keys.
// Matching is case-insensitive on the key; values are ignored.
func protectedTag(tags map[string]string, protected []string) bool {
	if len(tags) == 0 || len(protected) == 0 {
		return false
	}
	for key := range tags {
		lower := strings.ToLower(key)
		for _, p := range protected {
			if lower == p {
				return true
			}
		}
	}
	return false
}

// oldEnough reports whether a resource created at created passes the
// minimum-age gate for kind. A zero created time means the kind exposes no
// creation timestamp and always passes.
func oldEnough(created time.Time, kind models.ResourceType, opts Options) bool {
	if created.IsZero() {
		return true
	}
	return opts.now().Sub(created) >= opts.MinAge[kind]
}

// ec2Tags converts the EC2 SDK tag list into a plain map. Nil keys or
// values are tolerated because the API allows either to be absent.
func ec2Tags(tags []ec2types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		if t.Key == nil {
			continue
		}
		m[*t.Key] = aws.ToString(t.Value)
	}
	return m
}
