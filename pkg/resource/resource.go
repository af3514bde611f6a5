// Package resource defines the immutable resource snapshot model shared by
// every retirement domain.
package resource

import (
	"fmt"
	"strings"
	"time"
)

// Resource type identifiers.
const (
	TypeAMI            = "AWS::EC2::AMI"
	TypeSecurityGroup  = "AWS::EC2::SecurityGroup"
	TypeSnapshot       = "AWS::EC2::Snapshot"
	TypeKMSKey         = "AWS::KMS::Key"
	TypeLogGroup       = "AWS::Logs::LogGroup"
	TypeSageMakerSpace = "AWS::SageMaker::Space"
	TypeSageMakerApp   = "AWS::SageMaker::App"
)

// Resource is a point-in-time snapshot of a cloud resource taken at discovery.
// It is never mutated after construction; fresh state is always re-fetched.
type Resource struct {
	ID        string
	Type      string
	Name      string
	CreatedAt time.Time
	Tags      map[string]string
	State     string
}

// Key returns the (type, id) identity of the resource.
func (r Resource) Key() string {
	return r.Type + "/" + r.ID
}

// AgeDays returns the whole-day age of the resource at the given instant.
func (r Resource) AgeDays(now time.Time) int {
	if r.CreatedAt.IsZero() {
		return 0
	}
	return int(now.Sub(r.CreatedAt).Hours() / 24)
}

// DisplayName prefers the human-readable name, falling back to the id.
func (r Resource) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

func (r Resource) String() string {
	return fmt.Sprintf("%s (%s)", r.DisplayName(), r.ID)
}

// BareID strips an ARN-style qualifier down to the trailing identifier.
// CloudTrail resource names arrive as either bare ids or full ARNs; both must
// normalize to the same map key.
func BareID(id string) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		return id[idx+1:]
	}
	return id
}
