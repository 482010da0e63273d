package blob

import (
	"errors"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

var (
	ErrBucketNotFound = errors.New("blob: bucket does not exist")
)

// permanentCodes are store error codes that will never succeed on retry.
// They are reported and dead-lettered (uploads) or reported (deletes), and
// must not be retried blindly.
var permanentCodes = map[string]struct{}{
	"AccessDenied":          {},
	"AccountProblem":        {},
	"AllAccessDisabled":     {},
	"InvalidAccessKeyId":    {},
	"InvalidArgument":       {},
	"InvalidBucketName":     {},
	"InvalidTag":            {},
	"MalformedXML":          {},
	"MethodNotAllowed":      {},
	"SignatureDoesNotMatch": {},
}

var notFoundCodes = map[string]struct{}{
	"NoSuchBucket": {},
	"NoSuchKey":    {},
	"NotFound":     {},
}

// IsNotFound reports whether err represents a missing object or bucket.
func IsNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := notFoundCodes[apiErr.ErrorCode()]; ok {
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}

// IsPermanent reports whether err is a terminal store error
// (auth/permission/bad-request class). Everything else that isn't a
// not-found is treated as transient and left to the SDK retryer.
func IsPermanent(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := permanentCodes[apiErr.ErrorCode()]; ok {
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == 400 || code == 401 || code == 403
	}
	return false
}

// IsTransient reports whether err should be considered retryable. The SDK
// already retried these up to the attempt budget; a transient error
// escaping PutFile means the budget is exhausted.
func IsTransient(err error) bool {
	return err != nil && !IsPermanent(err) && !IsNotFound(err)
}
