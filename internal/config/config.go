package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
)

// Defaults applied by Default and by the accessor methods when a field is
// left zero.
const (
	DefaultScanConcurrency    = 16
	DefaultCleanupConcurrency = 4
	DefaultLookbackDays       = 30
	DefaultMaxAttempts        = 3
)

// DefaultMinAgeDays is the per-kind minimum resource age before a resource
// may be reported as waste. Ages differ per kind on purpose: storage-level
// resources become suspicious quickly, while stopped instances, NAT gateways
// and AMIs need a longer quiet period before removal is plausible.
var DefaultMinAgeDays = map[models.ResourceType]int{
	models.ResourceEBSVolume:        7,
	models.ResourceEBSSnapshot:      7,
	models.ResourceElasticIP:        7,
	models.ResourceLoadBalancer:     7,
	models.ResourceNATGateway:       30,
	models.ResourceStoppedInstance:  30,
	models.ResourceTargetGroup:      7,
	models.ResourceNetworkInterface: 7,
	models.ResourceAMI:              30,
}

// DefaultProtectedTags is the tag-key deny-list. A resource carrying any of
// these keys (case-insensitive) is never reported as waste.
var DefaultProtectedTags = []string{"DoNotDelete", "Production", "Critical"}

// regionPattern matches standard and GovCloud/ISO region names,
// e.g. us-east-1, eu-central-1, us-gov-west-1, cn-north-1.
var regionPattern = regexp.MustCompile(`^[a-z]{2}(-gov|-isob?)?-[a-z]+-\d$`)

// Config is the resolved scan/cleanup configuration. The CLI wrapper owns
// construction; this package owns defaults and validation. A zero field
// means "use the default".
type Config struct {
	// Regions to scan. Must not be empty.
	Regions []string

	// ResourceTypes limits the scan to the listed kinds. Empty means all.
	ResourceTypes []models.ResourceType

	// MinAgeDays overrides the per-kind minimum age. Kinds absent from the
	// map use DefaultMinAgeDays.
	MinAgeDays map[models.ResourceType]int

	// ProtectedTags is the tag-key deny-list. Nil means DefaultProtectedTags.
	ProtectedTags []string

	// MinMonthlyCost drops costed items estimated below this threshold.
	// Hygiene-only kinds (target groups) are always reported.
	MinMonthlyCost float64

	// LookbackDays is the CloudWatch traffic window for idle checks.
	LookbackDays int

	// ScanConcurrency bounds concurrent (region, kind) scanner invocations.
	ScanConcurrency int

	// CleanupConcurrency bounds concurrent destructive calls. Kept lower
	// than ScanConcurrency; Validate rejects the inverse.
	CleanupConcurrency int
}

// Default returns a Config with every field at its documented default,
// scanning all resource types. Regions must still be set by the caller.
func Default() *Config {
	return &Config{
		ResourceTypes:      models.AllResourceTypes(),
		MinAgeDays:         map[models.ResourceType]int{},
		ProtectedTags:      DefaultProtectedTags,
		LookbackDays:       DefaultLookbackDays,
		ScanConcurrency:    DefaultScanConcurrency,
		CleanupConcurrency: DefaultCleanupConcurrency,
	}
}

// ValidationError reports a malformed configuration. It is raised before any
// cloud call is made and maps to CLI exit code 2.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the configuration for problems that would make a scan
// meaningless. It never makes a network call.
func (c *Config) Validate() error {
	if len(c.Regions) == 0 {
		return &ValidationError{Field: "regions", Reason: "at least one region is required"}
	}
	seen := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		if !regionPattern.MatchString(r) {
			return &ValidationError{Field: "regions", Reason: fmt.Sprintf("%q is not a valid AWS region name", r)}
		}
		if seen[r] {
			return &ValidationError{Field: "regions", Reason: fmt.Sprintf("region %q listed twice", r)}
		}
		seen[r] = true
	}
	for _, rt := range c.ResourceTypes {
		if _, err := models.ParseResourceType(string(rt)); err != nil {
			return &ValidationError{Field: "resource_types", Reason: err.Error()}
		}
	}
	for rt, days := range c.MinAgeDays {
		if _, err := models.ParseResourceType(string(rt)); err != nil {
			return &ValidationError{Field: "min_age_days", Reason: err.Error()}
		}
		if days < 0 {
			return &ValidationError{Field: "min_age_days", Reason: fmt.Sprintf("%s: negative age %d", rt, days)}
		}
	}
	if c.MinMonthlyCost < 0 {
		return &ValidationError{Field: "min_monthly_cost", Reason: "must not be negative"}
	}
	if c.ScanConcurrency < 0 || c.CleanupConcurrency < 0 {
		return &ValidationError{Field: "concurrency", Reason: "must not be negative"}
	}
	if c.CleanupConcurrency > 0 && c.ScanConcurrency > 0 && c.CleanupConcurrency > c.ScanConcurrency {
		return &ValidationError{Field: "cleanup_concurrency", Reason: "must not exceed scan concurrency"}
	}
	return nil
}

// Kinds returns the resource types to scan, defaulting to all.
func (c *Config) Kinds() []models.ResourceType {
	if len(c.ResourceTypes) == 0 {
		return models.AllResourceTypes()
	}
	return c.ResourceTypes
}

// MinAge returns the effective minimum age for a resource kind.
// Lookup order: explicit override, per-kind default, zero.
func (c *Config) MinAge(rt models.ResourceType) time.Duration {
	days, ok := c.MinAgeDays[rt]
	if !ok {
		days = DefaultMinAgeDays[rt]
	}
	return time.Duration(days) * 24 * time.Hour
}

// DenyTags returns the effective protection-tag deny-list, lower-cased for
// case-insensitive matching.
func (c *Config) DenyTags() []string {
	src := c.ProtectedTags
	if src == nil {
		src = DefaultProtectedTags
	}
	out := make([]string, len(src))
	for i, t := range src {
		out[i] = strings.ToLower(t)
	}
	return out
}

// Lookback returns the effective CloudWatch lookback window in days.
func (c *Config) Lookback() int {
	if c.LookbackDays <= 0 {
		return DefaultLookbackDays
	}
	return c.LookbackDays
}

// ScanLimit returns the effective scanner concurrency bound.
func (c *Config) ScanLimit() int {
	if c.ScanConcurrency <= 0 {
		return DefaultScanConcurrency
	}
	return c.ScanConcurrency
}

// CleanupLimit returns the effective destructive-call concurrency bound.
func (c *Config) CleanupLimit() int {
	if c.CleanupConcurrency <= 0 {
		return DefaultCleanupConcurrency
	}
	return c.CleanupConcurrency
}
