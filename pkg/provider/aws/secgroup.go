package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

// SGClass filters security groups by naming convention at discovery time.
// The live-reference check still covers every AWS service: an rds- prefixed
// group attached to an EC2 instance stays protected.
type SGClass string

const (
	SGClassAll SGClass = "all"
	SGClassEC2 SGClass = "ec2"
	SGClassRDS SGClass = "rds"
	SGClassELB SGClass = "elb"
)

// SecurityGroupProvider retires security groups no ENI references. The ENI
// scan is the single live-usage source: every service that uses a group
// attaches it through a network interface.
type SecurityGroupProvider struct {
	EC2   *ec2.Client
	Class SGClass
}

func NewSecurityGroupProvider(cfg aws.Config, class SGClass) *SecurityGroupProvider {
	if class == "" {
		class = SGClassAll
	}
	return &SecurityGroupProvider{EC2: ec2.NewFromConfig(cfg), Class: class}
}

func (p *SecurityGroupProvider) Domain() string { return "sg" }

func (p *SecurityGroupProvider) ListCandidates(ctx context.Context) ([]resource.Resource, error) {
	var out []resource.Resource

	paginator := ec2.NewDescribeSecurityGroupsPaginator(p.EC2, &ec2.DescribeSecurityGroupsInput{})
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*ec2.DescribeSecurityGroupsOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("describing security groups: %w", err)
		}

		for _, sg := range page.SecurityGroups {
			name := aws.ToString(sg.GroupName)
			if !p.classMatches(name) {
				continue
			}
			out = append(out, resource.Resource{
				ID:    aws.ToString(sg.GroupId),
				Type:  resource.TypeSecurityGroup,
				Name:  name,
				Tags:  parseTags(sg.Tags),
				State: "available",
			})
		}
	}
	return out, nil
}

func (p *SecurityGroupProvider) classMatches(name string) bool {
	lower := strings.ToLower(name)
	switch p.Class {
	case SGClassRDS:
		return strings.HasPrefix(lower, "rds-")
	case SGClassELB:
		return strings.HasPrefix(lower, "elb-")
	case SGClassEC2:
		return !strings.HasPrefix(lower, "rds-") && !strings.HasPrefix(lower, "elb-")
	default:
		return true
	}
}

// ListLiveReferences walks every network interface in the region and
// collects the attached group ids.
func (p *SecurityGroupProvider) ListLiveReferences(ctx context.Context) (map[string]struct{}, error) {
	used := make(map[string]struct{})

	paginator := ec2.NewDescribeNetworkInterfacesPaginator(p.EC2, &ec2.DescribeNetworkInterfacesInput{})
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*ec2.DescribeNetworkInterfacesOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("describing network interfaces: %w", err)
		}
		for _, eni := range page.NetworkInterfaces {
			for _, g := range eni.Groups {
				if g.GroupId != nil {
					used[*g.GroupId] = struct{}{}
				}
			}
		}
	}
	return used, nil
}

func (p *SecurityGroupProvider) LookupHistoricalEvents(ctx context.Context, start time.Time) ([]provider.Event, error) {
	return nil, nil
}

func (p *SecurityGroupProvider) ListDependents(ctx context.Context, id string) ([]resource.Resource, error) {
	return nil, nil
}

func (p *SecurityGroupProvider) FetchState(ctx context.Context, id string) (string, error) {
	out, err := p.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{id},
	})
	if err != nil {
		return "", err
	}
	if len(out.SecurityGroups) == 0 {
		return "", &smithy.GenericAPIError{
			Code:    "InvalidGroup.NotFound",
			Message: fmt.Sprintf("security group %s not found", id),
		}
	}
	return "available", nil
}

func (p *SecurityGroupProvider) Delete(ctx context.Context, id string, dryRun bool) (provider.Disposition, error) {
	if dryRun {
		return provider.DispositionDeleted, nil
	}

	_, err := p.EC2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: aws.String(id),
	})
	if err != nil {
		return "", err
	}
	return provider.DispositionDeleted, nil
}
