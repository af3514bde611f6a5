package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"

	"github.com/DrSkyle/cloudreaper/pkg/provider"
)

// OrgNode is one entry in the flattened organization tree. Path is the
// slash-joined chain of OU names from the root.
type OrgNode struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"` // ROOT, ORGANIZATIONAL_UNIT or ACCOUNT
	Path   string `json:"path"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status,omitempty"`
}

// OrgExporter walks the organization structure from its roots and flattens
// it for export. The walk is iterative with a visited set so a malformed
// listing can never loop it.
type OrgExporter struct {
	Orgs *organizations.Client
}

func NewOrgExporter(cfg aws.Config) *OrgExporter {
	return &OrgExporter{Orgs: organizations.NewFromConfig(cfg)}
}

type orgFrame struct {
	parentID string
	path     string
}

func (e *OrgExporter) Export(ctx context.Context) ([]OrgNode, error) {
	var nodes []OrgNode
	var worklist []orgFrame
	visited := make(map[string]struct{})

	roots, err := e.listRoots(ctx)
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		id := aws.ToString(root.Id)
		name := aws.ToString(root.Name)
		nodes = append(nodes, OrgNode{ID: id, Name: name, Type: "ROOT", Path: name})
		worklist = append(worklist, orgFrame{parentID: id, path: name})
	}

	for len(worklist) > 0 {
		frame := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if _, ok := visited[frame.parentID]; ok {
			continue
		}
		visited[frame.parentID] = struct{}{}

		ous, err := e.listOUs(ctx, frame.parentID)
		if err != nil {
			return nil, err
		}
		for _, ou := range ous {
			id := aws.ToString(ou.Id)
			path := frame.path + "/" + aws.ToString(ou.Name)
			nodes = append(nodes, OrgNode{
				ID:   id,
				Name: aws.ToString(ou.Name),
				Type: "ORGANIZATIONAL_UNIT",
				Path: path,
			})
			worklist = append(worklist, orgFrame{parentID: id, path: path})
		}

		accounts, err := e.listAccounts(ctx, frame.parentID)
		if err != nil {
			return nil, err
		}
		for _, acct := range accounts {
			nodes = append(nodes, OrgNode{
				ID:     aws.ToString(acct.Id),
				Name:   aws.ToString(acct.Name),
				Type:   "ACCOUNT",
				Path:   frame.path + "/" + aws.ToString(acct.Name),
				Email:  aws.ToString(acct.Email),
				Status: string(acct.Status),
			})
		}
	}
	return nodes, nil
}

// Listing goes through the generic pager: the Organizations API has been
// seen returning the same NextToken twice, which the pager rejects instead
// of looping on.
func (e *OrgExporter) listRoots(ctx context.Context) ([]orgtypes.Root, error) {
	roots, err := provider.CollectAllPages(ctx, func(ctx context.Context, next *string) (provider.PageResult[orgtypes.Root], error) {
		out, err := provider.WithRetry(ctx, func() (*organizations.ListRootsOutput, error) {
			return e.Orgs.ListRoots(ctx, &organizations.ListRootsInput{NextToken: next})
		})
		if err != nil {
			return provider.PageResult[orgtypes.Root]{}, err
		}
		return provider.PageResult[orgtypes.Root]{Items: out.Roots, NextToken: out.NextToken}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing roots: %w", err)
	}
	return roots, nil
}

func (e *OrgExporter) listOUs(ctx context.Context, parentID string) ([]orgtypes.OrganizationalUnit, error) {
	ous, err := provider.CollectAllPages(ctx, func(ctx context.Context, next *string) (provider.PageResult[orgtypes.OrganizationalUnit], error) {
		out, err := provider.WithRetry(ctx, func() (*organizations.ListOrganizationalUnitsForParentOutput, error) {
			return e.Orgs.ListOrganizationalUnitsForParent(ctx, &organizations.ListOrganizationalUnitsForParentInput{
				ParentId:  aws.String(parentID),
				NextToken: next,
			})
		})
		if err != nil {
			return provider.PageResult[orgtypes.OrganizationalUnit]{}, err
		}
		return provider.PageResult[orgtypes.OrganizationalUnit]{Items: out.OrganizationalUnits, NextToken: out.NextToken}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing OUs under %s: %w", parentID, err)
	}
	return ous, nil
}

func (e *OrgExporter) listAccounts(ctx context.Context, parentID string) ([]orgtypes.Account, error) {
	accounts, err := provider.CollectAllPages(ctx, func(ctx context.Context, next *string) (provider.PageResult[orgtypes.Account], error) {
		out, err := provider.WithRetry(ctx, func() (*organizations.ListAccountsForParentOutput, error) {
			return e.Orgs.ListAccountsForParent(ctx, &organizations.ListAccountsForParentInput{
				ParentId:  aws.String(parentID),
				NextToken: next,
			})
		})
		if err != nil {
			return provider.PageResult[orgtypes.Account]{}, err
		}
		return provider.PageResult[orgtypes.Account]{Items: out.Accounts, NextToken: out.NextToken}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing accounts under %s: %w", parentID, err)
	}
	return accounts, nil
}
