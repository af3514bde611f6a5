package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectAllPages(t *testing.T) {
	pages := map[string]PageResult[int]{
		"":   {Items: []int{1, 2}, NextToken: strPtr("t1")},
		"t1": {Items: []int{3}, NextToken: strPtr("t2")},
		"t2": {Items: []int{4, 5}},
	}

	fetch := func(ctx context.Context, next *string) (PageResult[int], error) {
		key := ""
		if next != nil {
			key = *next
		}
		return pages[key], nil
	}

	items, err := CollectAllPages(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
}

func TestCollectAllPagesDuplicateToken(t *testing.T) {
	fetch := func(ctx context.Context, next *string) (PageResult[int], error) {
		return PageResult[int]{Items: []int{1}, NextToken: strPtr("same")}, nil
	}

	_, err := CollectAllPages(context.Background(), fetch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate token")
}

func TestCollectAllPagesPropagatesError(t *testing.T) {
	boom := errors.New("page fetch failed")
	fetch := func(ctx context.Context, next *string) (PageResult[int], error) {
		return PageResult[int]{}, boom
	}

	_, err := CollectAllPages(context.Background(), fetch)
	assert.True(t, errors.Is(err, boom))
}

func TestWithRetryPermanentFailsFast(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), func() (int, error) {
		calls++
		return 0, &smithy.GenericAPIError{Code: "AccessDenied", Message: "no"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "access denied must not be retried")
}

func TestWithRetryRecoversFromThrottle(t *testing.T) {
	calls := 0
	v, err := WithRetry(context.Background(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, calls)
}

func strPtr(s string) *string { return &s }
