package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/smithy-go"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

// LogGroupProvider retires CloudWatch log groups, optionally narrowed to a
// name prefix. Historical usage comes from the last-ingestion timestamp on
// the group's streams rather than CloudTrail: PutLogEvents is a data-plane
// call the trail never sees.
type LogGroupProvider struct {
	Logs   *cloudwatchlogs.Client
	Prefix string
}

func NewLogGroupProvider(cfg aws.Config, prefix string) *LogGroupProvider {
	return &LogGroupProvider{Logs: cloudwatchlogs.NewFromConfig(cfg), Prefix: prefix}
}

func (p *LogGroupProvider) Domain() string { return "loggroup" }

func (p *LogGroupProvider) ListCandidates(ctx context.Context) ([]resource.Resource, error) {
	input := &cloudwatchlogs.DescribeLogGroupsInput{}
	if p.Prefix != "" {
		input.LogGroupNamePrefix = aws.String(p.Prefix)
	}

	var out []resource.Resource
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(p.Logs, input)
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("describing log groups: %w", err)
		}
		for _, lg := range page.LogGroups {
			name := aws.ToString(lg.LogGroupName)
			out = append(out, resource.Resource{
				ID:        name,
				Type:      resource.TypeLogGroup,
				Name:      name,
				CreatedAt: time.UnixMilli(aws.ToInt64(lg.CreationTime)).UTC(),
			})
		}
	}
	return out, nil
}

func (p *LogGroupProvider) ListLiveReferences(ctx context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

// LookupHistoricalEvents reports each group's most recent ingestion as a
// synthetic event so the recent-activity window applies to log traffic.
func (p *LogGroupProvider) LookupHistoricalEvents(ctx context.Context, start time.Time) ([]provider.Event, error) {
	groups, err := p.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrUnavailable, err)
	}

	var events []provider.Event
	for _, g := range groups {
		last, err := p.lastIngestion(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: last ingestion for %s: %s", provider.ErrUnavailable, g.ID, err)
		}
		if last.IsZero() || last.Before(start) {
			continue
		}
		events = append(events, provider.Event{
			ResourceID: g.ID,
			EventName:  "PutLogEvents",
			EventTime:  last,
		})
	}
	return events, nil
}

func (p *LogGroupProvider) lastIngestion(ctx context.Context, group string) (time.Time, error) {
	// Streams ordered by LastEventTime descending: the first page is enough.
	out, err := provider.WithRetry(ctx, func() (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
		return p.Logs.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
			LogGroupName: aws.String(group),
			OrderBy:      "LastEventTime",
			Descending:   aws.Bool(true),
			Limit:        aws.Int32(1),
		})
	})
	if err != nil {
		return time.Time{}, err
	}
	if len(out.LogStreams) == 0 {
		return time.Time{}, nil
	}
	ts := out.LogStreams[0].LastIngestionTime
	if ts == nil {
		return time.Time{}, nil
	}
	return time.UnixMilli(*ts).UTC(), nil
}

func (p *LogGroupProvider) ListDependents(ctx context.Context, id string) ([]resource.Resource, error) {
	return nil, nil
}

func (p *LogGroupProvider) FetchState(ctx context.Context, id string) (string, error) {
	out, err := p.Logs.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(id),
	})
	if err != nil {
		return "", err
	}
	for _, lg := range out.LogGroups {
		if aws.ToString(lg.LogGroupName) == id {
			return "ACTIVE", nil
		}
	}
	return "", &smithy.GenericAPIError{
		Code:    "ResourceNotFoundException",
		Message: fmt.Sprintf("log group %s not found", id),
	}
}

func (p *LogGroupProvider) Delete(ctx context.Context, id string, dryRun bool) (provider.Disposition, error) {
	if dryRun {
		return provider.DispositionDeleted, nil
	}
	_, err := p.Logs.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{
		LogGroupName: aws.String(id),
	})
	if err != nil {
		return "", err
	}
	return provider.DispositionDeleted, nil
}
