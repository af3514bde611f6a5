package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func apiErr(code, msg string) error {
	return &smithy.GenericAPIError{Code: code, Message: msg}
}

func TestClassifyByCode(t *testing.T) {
	cases := []struct {
		code string
		want ErrorKind
	}{
		{"AccessDeniedException", ErrorKindAccessDenied},
		{"UnauthorizedOperation", ErrorKindAccessDenied},
		{"ResourceNotFoundException", ErrorKindNotFound},
		{"InvalidAMIID.NotFound", ErrorKindNotFound},
		{"InvalidGroup.NotFound", ErrorKindNotFound},
		{"NoSuchEntity", ErrorKindNotFound},
		{"DependencyViolation", ErrorKindDependencyViolation},
		{"ResourceInUseException", ErrorKindDependencyViolation},
		{"ThrottlingException", ErrorKindThrottled},
		{"RequestLimitExceeded", ErrorKindThrottled},
		{"TooManyRequestsException", ErrorKindThrottled},
		{"ValidationException", ErrorKindValidation},
		{"KMSInvalidStateException", ErrorKindValidation},
		{"SomethingNovel", ErrorKindUnknown},
	}
	for _, tc := range cases {
		got := Classify(apiErr(tc.code, "x")).Kind
		assert.Equal(t, tc.want, got, "code %s", tc.code)
	}
}

func TestClassifyContextErrors(t *testing.T) {
	assert.Equal(t, ErrorKindTimeout, Classify(context.DeadlineExceeded).Kind)
	assert.Equal(t, ErrorKindTimeout, Classify(fmt.Errorf("wrapped: %w", context.Canceled)).Kind)
}

func TestClassifyPlainError(t *testing.T) {
	c := Classify(errors.New("connection reset"))
	assert.Equal(t, ErrorKindUnknown, c.Kind)
	assert.Equal(t, "connection reset", c.Message)
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("while deleting: %w", apiErr("DependencyViolation", "in use"))
	assert.True(t, IsKind(err, ErrorKindDependencyViolation))
	assert.False(t, IsKind(err, ErrorKindNotFound))
}

func TestFormatUserError(t *testing.T) {
	s := FormatUserError(apiErr("AccessDenied", "not allowed"))
	assert.Equal(t, "not allowed (AccessDenied)", s)
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	base := apiErr("ThrottlingException", "slow down")
	c := Classify(base)
	assert.True(t, errors.Is(c, base))
}
