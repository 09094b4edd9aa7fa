package common

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// throttlingCodes are the API error codes AWS services return when the
// caller exceeds a request rate limit. Calls failing with one of these are
// safe to retry.
var throttlingCodes = map[string]bool{
	"Throttling":                true,
	"ThrottlingException":       true,
	"RequestLimitExceeded":      true,
	"RequestThrottled":          true,
	"RequestThrottledException": true,
	"TooManyRequestsException":  true,
	"SlowDown":                  true,
}

// accessDeniedCodes are the API error codes for missing IAM permissions.
// These are never retried; the affected scanner's results are simply absent.
var accessDeniedCodes = map[string]bool{
	"AccessDenied":          true,
	"AccessDeniedException": true,
	"UnauthorizedOperation": true,
	"AuthFailure":           true,
	"OptInRequired":         true,
}

// IsThrottling reports whether err is a transient rate-limit rejection.
func IsThrottling(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	return throttlingCodes[ae.ErrorCode()]
}

// IsAccessDenied reports whether err is a permission failure scoped to one
// operation.
func IsAccessDenied(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	return accessDeniedCodes[ae.ErrorCode()]
}

// IsNotFound reports whether err means the referenced resource does not
// exist. EC2 uses codes like InvalidVolume.NotFound and
// InvalidAllocationID.NotFound; ELBv2 uses LoadBalancerNotFound and
// TargetGroupNotFound. During cleanup a not-found error is a benign no-op:
// the desired end state is already reached.
func IsNotFound(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	code := ae.ErrorCode()
	return strings.Contains(code, "NotFound") ||
		code == "InvalidAMIID.Unavailable"
}
