package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
)

// StackHit names a stack that owns a given physical resource.
type StackHit struct {
	StackName         string `json:"stack_name"`
	LogicalResourceID string `json:"logical_resource_id"`
	ResourceType      string `json:"resource_type"`
	ResourceStatus    string `json:"resource_status"`
}

// StackFinder answers "which CloudFormation stack created this resource".
// Useful before retiring anything by hand: a stack-owned resource should be
// removed through its stack instead.
type StackFinder struct {
	CFN *cloudformation.Client
}

func NewStackFinder(cfg aws.Config) *StackFinder {
	return &StackFinder{CFN: cloudformation.NewFromConfig(cfg)}
}

// Find scans every live stack's resources for the physical id. Matching is
// exact or suffix-based so both bare ids and full ARNs resolve.
func (f *StackFinder) Find(ctx context.Context, physicalID string) ([]StackHit, error) {
	names, err := f.listStackNames(ctx)
	if err != nil {
		return nil, err
	}

	var hits []StackHit
	for _, name := range names {
		out, err := provider.WithRetry(ctx, func() (*cloudformation.DescribeStackResourcesOutput, error) {
			return f.CFN.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{
				StackName: aws.String(name),
			})
		})
		if err != nil {
			if provider.IsKind(err, provider.ErrorKindAccessDenied) {
				continue
			}
			return nil, fmt.Errorf("describing resources of stack %s: %w", name, err)
		}
		for _, res := range out.StackResources {
			pid := aws.ToString(res.PhysicalResourceId)
			if pid == "" {
				continue
			}
			if pid == physicalID || strings.HasSuffix(pid, "/"+physicalID) {
				hits = append(hits, StackHit{
					StackName:         name,
					LogicalResourceID: aws.ToString(res.LogicalResourceId),
					ResourceType:      aws.ToString(res.ResourceType),
					ResourceStatus:    string(res.ResourceStatus),
				})
			}
		}
	}
	return hits, nil
}

func (f *StackFinder) listStackNames(ctx context.Context) ([]string, error) {
	var names []string
	paginator := cloudformation.NewDescribeStacksPaginator(f.CFN, &cloudformation.DescribeStacksInput{})
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*cloudformation.DescribeStacksOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("listing stacks: %w", err)
		}
		for _, st := range page.Stacks {
			names = append(names, aws.ToString(st.StackName))
		}
	}
	return names, nil
}
