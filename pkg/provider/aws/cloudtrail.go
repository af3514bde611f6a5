package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
)

// TrailSource reads resource activity from CloudTrail. One lookup covers the
// whole candidate set; the caller builds its id -> last-used map from the
// returned events instead of querying per resource.
type TrailSource struct {
	Client *cloudtrail.Client
	// ResourceType scopes the lookup, e.g. "AWS::KMS::Key".
	ResourceType string
}

func NewTrailSource(cfg aws.Config, resourceType string) *TrailSource {
	return &TrailSource{
		Client:       cloudtrail.NewFromConfig(cfg),
		ResourceType: resourceType,
	}
}

// LookupHistoricalEvents pages through every matching event since start.
// A disabled trail or denied access comes back as ErrUnavailable so the
// evidence layer fails closed instead of concluding "never used".
func (s *TrailSource) LookupHistoricalEvents(ctx context.Context, start time.Time) ([]provider.Event, error) {
	input := &cloudtrail.LookupEventsInput{
		LookupAttributes: []types.LookupAttribute{
			{
				AttributeKey:   types.LookupAttributeKeyResourceType,
				AttributeValue: aws.String(s.ResourceType),
			},
		},
		StartTime: aws.Time(start),
	}

	var events []provider.Event
	paginator := cloudtrail.NewLookupEventsPaginator(s.Client, input)
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*cloudtrail.LookupEventsOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			classified := provider.Classify(err)
			if classified.Kind == provider.ErrorKindAccessDenied || classified.Code == "TrailNotFoundException" {
				return nil, fmt.Errorf("%w: %s", provider.ErrUnavailable, classified.Message)
			}
			return nil, fmt.Errorf("cloudtrail lookup: %w", err)
		}

		for _, ev := range page.Events {
			name := aws.ToString(ev.EventName)
			when := aws.ToTime(ev.EventTime)
			for _, res := range ev.Resources {
				if aws.ToString(res.ResourceType) != s.ResourceType {
					continue
				}
				if res.ResourceName == nil {
					continue
				}
				events = append(events, provider.Event{
					ResourceID: aws.ToString(res.ResourceName),
					EventName:  name,
					EventTime:  when,
				})
			}
		}
	}
	return events, nil
}
