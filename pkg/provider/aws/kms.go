package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/smithy-go"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
)

const (
	minPendingWindowDays = 7
	maxPendingWindowDays = 30
)

// KeyProvider retires customer-managed KMS keys. Deletion is never
// immediate: keys are scheduled with a pending window so an operator can
// cancel before the key material is destroyed.
type KeyProvider struct {
	KMS   *kms.Client
	Trail *TrailSource

	// PendingWindowDays is clamped into the 7..30 range KMS accepts.
	PendingWindowDays int
}

func NewKeyProvider(cfg aws.Config, pendingWindowDays int) *KeyProvider {
	return &KeyProvider{
		KMS:               kms.NewFromConfig(cfg),
		Trail:             NewTrailSource(cfg, "AWS::KMS::Key"),
		PendingWindowDays: pendingWindowDays,
	}
}

func (p *KeyProvider) Domain() string { return "kms" }

func (p *KeyProvider) pendingWindow() int32 {
	d := p.PendingWindowDays
	if d < minPendingWindowDays {
		d = minPendingWindowDays
	}
	if d > maxPendingWindowDays {
		d = maxPendingWindowDays
	}
	return int32(d)
}

// ListCandidates returns enabled or disabled customer-managed keys.
// AWS-managed keys and keys already pending deletion are excluded.
func (p *KeyProvider) ListCandidates(ctx context.Context) ([]resource.Resource, error) {
	aliases, err := p.aliasNames(ctx)
	if err != nil {
		return nil, err
	}

	var out []resource.Resource
	paginator := kms.NewListKeysPaginator(p.KMS, &kms.ListKeysInput{})
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*kms.ListKeysOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("listing keys: %w", err)
		}

		for _, entry := range page.Keys {
			keyID := aws.ToString(entry.KeyId)
			desc, err := provider.WithRetry(ctx, func() (*kms.DescribeKeyOutput, error) {
				return p.KMS.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: entry.KeyId})
			})
			if err != nil {
				if provider.IsKind(err, provider.ErrorKindAccessDenied) {
					continue
				}
				return nil, fmt.Errorf("describing key %s: %w", keyID, err)
			}

			meta := desc.KeyMetadata
			if meta.KeyManager == kmstypes.KeyManagerTypeAws {
				continue
			}
			switch meta.KeyState {
			case kmstypes.KeyStateEnabled, kmstypes.KeyStateDisabled:
			default:
				continue
			}

			out = append(out, resource.Resource{
				ID:        keyID,
				Type:      resource.TypeKMSKey,
				Name:      aliases[keyID],
				CreatedAt: aws.ToTime(meta.CreationDate),
				State:     string(meta.KeyState),
			})
		}
	}
	return out, nil
}

func (p *KeyProvider) aliasNames(ctx context.Context) (map[string]string, error) {
	names := make(map[string]string)
	paginator := kms.NewListAliasesPaginator(p.KMS, &kms.ListAliasesInput{})
	for paginator.HasMorePages() {
		page, err := provider.WithRetry(ctx, func() (*kms.ListAliasesOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("listing aliases: %w", err)
		}
		for _, alias := range page.Aliases {
			if alias.TargetKeyId == nil {
				continue
			}
			name := strings.TrimPrefix(aws.ToString(alias.AliasName), "alias/")
			names[*alias.TargetKeyId] = name
		}
	}
	return names, nil
}

// ListLiveReferences has nothing to report: KMS exposes no cheap "attached
// to" relation, so key usage comes entirely from the trail scan.
func (p *KeyProvider) ListLiveReferences(ctx context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (p *KeyProvider) LookupHistoricalEvents(ctx context.Context, start time.Time) ([]provider.Event, error) {
	return p.Trail.LookupHistoricalEvents(ctx, start)
}

func (p *KeyProvider) ListDependents(ctx context.Context, id string) ([]resource.Resource, error) {
	return nil, nil
}

func (p *KeyProvider) FetchState(ctx context.Context, id string) (string, error) {
	out, err := p.KMS.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(id)})
	if err != nil {
		return "", err
	}
	return string(out.KeyMetadata.KeyState), nil
}

func (p *KeyProvider) Delete(ctx context.Context, id string, dryRun bool) (provider.Disposition, error) {
	if dryRun {
		return provider.DispositionScheduled, nil
	}

	_, err := p.KMS.ScheduleKeyDeletion(ctx, &kms.ScheduleKeyDeletionInput{
		KeyId:               aws.String(id),
		PendingWindowInDays: aws.Int32(p.pendingWindow()),
	})
	if err != nil {
		// Already pending deletion means a previous run got here first.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "KMSInvalidStateException" &&
			strings.Contains(apiErr.ErrorMessage(), "pending deletion") {
			return provider.DispositionScheduled, nil
		}
		return "", err
	}
	return provider.DispositionScheduled, nil
}
