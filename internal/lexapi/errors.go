package lexapi

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2/types"
	"github.com/aws/smithy-go"
)

// IsThrottling reports whether err is a transient capacity signal from the
// service: the concurrent-build quota, request throttling, or a service
// quota. These are retried with bounded backoff; genuine failures are not.
func IsThrottling(err error) bool {
	if err == nil {
		return false
	}
	var throttled *types.ThrottlingException
	if errors.As(err, &throttled) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "LimitExceededException", "ServiceQuotaExceededException", "TooManyRequestsException":
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "throttl") ||
		strings.Contains(msg, "rate exceed") ||
		strings.Contains(msg, "too many requests")
}

// IsNotFound reports whether err means the addressed resource does not exist.
func IsNotFound(err error) bool {
	var nf *types.ResourceNotFoundException
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException"
}

// IsPreconditionFailed reports the service's signal that a delete targeted a
// resource that was already gone or never materialized.
func IsPreconditionFailed(err error) bool {
	var pf *types.PreconditionFailedException
	if errors.As(err, &pf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailedException"
}
