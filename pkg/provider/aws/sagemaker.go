package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/smithy-go"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

// SpaceProvider retires SageMaker Studio spaces. Spaces cannot be deleted
// while apps run inside them, so apps surface as dependents and are torn
// down first. Resource ids encode the path to the object:
//
//	space: <domainID>/<spaceName>
//	app:   <domainID>/<spaceName>/<appType>/<appName>
type SpaceProvider struct {
	SM *sagemaker.Client
}

func NewSpaceProvider(cfg aws.Config) *SpaceProvider {
	return &SpaceProvider{SM: sagemaker.NewFromConfig(cfg)}
}

func (p *SpaceProvider) Domain() string { return "sagemaker" }

func spaceID(domainID, spaceName string) string {
	return domainID + "/" + spaceName
}

func appID(domainID, spaceName string, appType smtypes.AppType, appName string) string {
	return fmt.Sprintf("%s/%s/%s/%s", domainID, spaceName, appType, appName)
}

func (p *SpaceProvider) ListCandidates(ctx context.Context) ([]resource.Resource, error) {
	domains, err := p.listDomains(ctx)
	if err != nil {
		return nil, err
	}

	var out []resource.Resource
	for _, domainID := range domains {
		paginator := sagemaker.NewListSpacesPaginator(p.SM, &sagemaker.ListSpacesInput{
			DomainIdEquals: aws.String(domainID),
		})
		for paginator.HasMorePages() {
			page, err := provider.WithRetry(ctx, func() (*sagemaker.ListSpacesOutput, error) {
				return paginator.NextPage(ctx)
			})
			if err != nil {
				return nil, fmt.Errorf("listing spaces in domain %s: %w", domainID, err)
			}
			for _, sp := range page.Spaces {
				switch sp.Status {
				case smtypes.SpaceStatusDeleting, smtypes.SpaceStatusDeleteFailed:
					continue
				}
				name := aws.ToString(sp.SpaceName)
				out = append(out, resource.Resource{
					ID:        spaceID(domainID, name),
					Type:      resource.TypeSageMakerSpace,
					Name:      name,
					CreatedAt: aws.ToTime(sp.CreationTime),
					State:     string(sp.Status),
				})
			}
		}
	}
	return out, nil
}

func (p *SpaceProvider) listDomains(ctx context.Context) ([]string, error) {
	var ids []string
	paginator := sagemaker.NewListDomainsPaginator(p.SM, &sagemaker.ListDomainsInput{})
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*sagemaker.ListDomainsOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("listing domains: %w", err)
		}
		for _, d := range page.Domains {
			ids = append(ids, aws.ToString(d.DomainId))
		}
	}
	return ids, nil
}

func (p *SpaceProvider) ListLiveReferences(ctx context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (p *SpaceProvider) LookupHistoricalEvents(ctx context.Context, start time.Time) ([]provider.Event, error) {
	return nil, nil
}

// ListDependents returns the running apps inside a space. Deleted apps stay
// listable for a while, so terminal entries are filtered out.
func (p *SpaceProvider) ListDependents(ctx context.Context, id string) ([]resource.Resource, error) {
	domainID, spaceName, _, _, err := splitSageMakerID(id)
	if err != nil {
		return nil, err
	}

	var out []resource.Resource
	paginator := sagemaker.NewListAppsPaginator(p.SM, &sagemaker.ListAppsInput{
		DomainIdEquals:  aws.String(domainID),
		SpaceNameEquals: aws.String(spaceName),
	})
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*sagemaker.ListAppsOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("listing apps in space %s: %w", id, err)
		}
		for _, app := range page.Apps {
			switch app.Status {
			case smtypes.AppStatusDeleted, smtypes.AppStatusFailed:
				continue
			}
			name := aws.ToString(app.AppName)
			out = append(out, resource.Resource{
				ID:        appID(domainID, spaceName, app.AppType, name),
				Type:      resource.TypeSageMakerApp,
				Name:      name,
				CreatedAt: aws.ToTime(app.CreationTime),
				State:     string(app.Status),
			})
		}
	}
	return out, nil
}

func (p *SpaceProvider) FetchState(ctx context.Context, id string) (string, error) {
	domainID, spaceName, appType, appName, err := splitSageMakerID(id)
	if err != nil {
		return "", err
	}

	if appName != "" {
		out, err := p.SM.DescribeApp(ctx, &sagemaker.DescribeAppInput{
			DomainId:  aws.String(domainID),
			SpaceName: aws.String(spaceName),
			AppType:   appType,
			AppName:   aws.String(appName),
		})
		if err != nil {
			return "", err
		}
		return string(out.Status), nil
	}

	out, err := p.SM.DescribeSpace(ctx, &sagemaker.DescribeSpaceInput{
		DomainId:  aws.String(domainID),
		SpaceName: aws.String(spaceName),
	})
	if err != nil {
		return "", err
	}
	return string(out.Status), nil
}

func (p *SpaceProvider) Delete(ctx context.Context, id string, dryRun bool) (provider.Disposition, error) {
	domainID, spaceName, appType, appName, err := splitSageMakerID(id)
	if err != nil {
		return "", err
	}
	if dryRun {
		return provider.DispositionScheduled, nil
	}

	if appName != "" {
		_, err = p.SM.DeleteApp(ctx, &sagemaker.DeleteAppInput{
			DomainId:  aws.String(domainID),
			SpaceName: aws.String(spaceName),
			AppType:   appType,
			AppName:   aws.String(appName),
		})
	} else {
		_, err = p.SM.DeleteSpace(ctx, &sagemaker.DeleteSpaceInput{
			DomainId:  aws.String(domainID),
			SpaceName: aws.String(spaceName),
		})
	}
	if err != nil {
		return "", err
	}
	// Both calls only start the teardown; the tracker polls until the
	// object reaches Deleted.
	return provider.DispositionScheduled, nil
}

func splitSageMakerID(id string) (domainID, spaceName string, appType smtypes.AppType, appName string, err error) {
	parts := strings.Split(id, "/")
	switch len(parts) {
	case 2:
		return parts[0], parts[1], "", "", nil
	case 4:
		return parts[0], parts[1], smtypes.AppType(parts[2]), parts[3], nil
	default:
		return "", "", "", "", &smithy.GenericAPIError{
			Code:    "ValidationException",
			Message: fmt.Sprintf("malformed sagemaker id %q", id),
		}
	}
}
