package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

const amiCreationLayout = "2006-01-02T15:04:05.000Z"

// AMIProvider retires machine images owned by the account. Live usage is an
// instance launched from the image, in any state; stopped instances still
// need their AMI to start again.
type AMIProvider struct {
	EC2 *ec2.Client
	// Trail is optional; without it AMIs are judged on age and live use
	// alone.
	Trail *TrailSource
}

func NewAMIProvider(cfg aws.Config) *AMIProvider {
	return &AMIProvider{EC2: ec2.NewFromConfig(cfg)}
}

func (p *AMIProvider) Domain() string { return "ami" }

func (p *AMIProvider) ListCandidates(ctx context.Context) ([]resource.Resource, error) {
	var out []resource.Resource

	paginator := ec2.NewDescribeImagesPaginator(p.EC2, &ec2.DescribeImagesInput{
		Owners: []string{"self"},
	})
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*ec2.DescribeImagesOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("describing images: %w", err)
		}

		for _, img := range page.Images {
			r := resource.Resource{
				ID:    aws.ToString(img.ImageId),
				Type:  resource.TypeAMI,
				Name:  aws.ToString(img.Name),
				Tags:  parseTags(img.Tags),
				State: string(img.State),
			}
			if img.CreationDate != nil {
				if t, err := time.Parse(amiCreationLayout, *img.CreationDate); err == nil {
					r.CreatedAt = t
				}
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// ListLiveReferences enumerates every instance regardless of state and
// collects the image ids they were launched from.
func (p *AMIProvider) ListLiveReferences(ctx context.Context) (map[string]struct{}, error) {
	used := make(map[string]struct{})

	paginator := ec2.NewDescribeInstancesPaginator(p.EC2, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*ec2.DescribeInstancesOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("describing instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				if instance.ImageId != nil {
					used[*instance.ImageId] = struct{}{}
				}
			}
		}
	}
	return used, nil
}

func (p *AMIProvider) LookupHistoricalEvents(ctx context.Context, start time.Time) ([]provider.Event, error) {
	if p.Trail == nil {
		return nil, nil
	}
	return p.Trail.LookupHistoricalEvents(ctx, start)
}

// ListDependents is empty for AMIs: associated snapshots are removed in the
// same deregister call rather than ahead of it.
func (p *AMIProvider) ListDependents(ctx context.Context, id string) ([]resource.Resource, error) {
	return nil, nil
}

func (p *AMIProvider) FetchState(ctx context.Context, id string) (string, error) {
	out, err := p.EC2.DescribeImages(ctx, &ec2.DescribeImagesInput{
		ImageIds: []string{id},
	})
	if err != nil {
		return "", err
	}
	if len(out.Images) == 0 {
		return "", &smithy.GenericAPIError{
			Code:    "InvalidAMIID.NotFound",
			Message: fmt.Sprintf("image %s not found", id),
		}
	}
	return string(out.Images[0].State), nil
}

func (p *AMIProvider) Delete(ctx context.Context, id string, dryRun bool) (provider.Disposition, error) {
	if dryRun {
		return provider.DispositionDeleted, nil
	}

	_, err := p.EC2.DeregisterImage(ctx, &ec2.DeregisterImageInput{
		ImageId:                   aws.String(id),
		DeleteAssociatedSnapshots: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	return provider.DispositionDeleted, nil
}

func parseTags(tags []ec2types.Tag) map[string]string {
	out := make(map[string]string)
	for _, t := range tags {
		if t.Key != nil && t.Value != nil {
			out[*t.Key] = *t.Value
		}
	}
	return out
}
