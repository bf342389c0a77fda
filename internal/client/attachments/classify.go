package attachments

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// DeleteResult classifies the outcome of Store.Delete.
type DeleteResult string

const (
	DeleteOK          DeleteResult = "ok"
	DeleteNotFound    DeleteResult = "not_found"
	DeleteServerError DeleteResult = "server_error"
	DeleteOther       DeleteResult = "other"
)

// Resolved reports whether the attachment can be treated as gone.
func (r DeleteResult) Resolved() bool {
	return r != DeleteOther
}

var (
	notFoundCodes    = []string{"NoSuchKey", "NotFound", "NoSuchBucket"}
	notFoundText     = []string{"not found", "no such key", "nosuchkey", "does not exist", "404"}
	serverErrorCodes = []string{"InternalError", "ServiceUnavailable", "SlowDown", "RequestTimeout"}
	serverErrorText  = []string{"internal server error", "service unavailable", "bad gateway", "gateway timeout", "500", "502", "503", "504"}
)

// ClassifyDeleteError looks at typed S3 and HTTP errors first and at the
// error text last.
func ClassifyDeleteError(err error) DeleteResult {
	if err == nil {
		return DeleteOK
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return DeleteNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		for _, c := range notFoundCodes {
			if code == c {
				return DeleteNotFound
			}
		}
		for _, c := range serverErrorCodes {
			if code == c {
				return DeleteServerError
			}
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return DeleteServerError
		}
	}

	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) {
		switch code := status.HTTPStatusCode(); {
		case code == 404:
			return DeleteNotFound
		case code >= 500:
			return DeleteServerError
		}
	}

	msg := strings.ToLower(err.Error())
	for _, s := range notFoundText {
		if strings.Contains(msg, s) {
			return DeleteNotFound
		}
	}
	for _, s := range serverErrorText {
		if strings.Contains(msg, s) {
			return DeleteServerError
		}
	}
	return DeleteOther
}
