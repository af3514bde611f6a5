package permissions

// ReadCatalog maps each retirement domain to the IAM actions its discovery
// and evidence collection need. Destructive actions live in MutateCatalog so
// a scan-only operator never holds delete rights.
var ReadCatalog = map[string][]string{
	"ami": {
		"ec2:DescribeImages",
		"ec2:DescribeInstances",
	},
	"sg": {
		"ec2:DescribeSecurityGroups",
		"ec2:DescribeNetworkInterfaces",
	},
	"kms": {
		"kms:ListKeys",
		"kms:ListAliases",
		"kms:DescribeKey",
	},
	"loggroup": {
		"logs:DescribeLogGroups",
		"logs:DescribeLogStreams",
	},
	"sagemaker": {
		"sagemaker:ListDomains",
		"sagemaker:ListSpaces",
		"sagemaker:ListApps",
		"sagemaker:DescribeSpace",
		"sagemaker:DescribeApp",
	},
	"stacks": {
		"cloudformation:DescribeStacks",
		"cloudformation:DescribeStackResources",
	},
	"orgs": {
		"organizations:ListRoots",
		"organizations:ListOrganizationalUnitsForParent",
		"organizations:ListAccountsForParent",
	},
}

// MutateCatalog maps each domain to the destructive actions reap needs on
// top of its read set.
var MutateCatalog = map[string][]string{
	"ami": {
		"ec2:DeregisterImage",
		"ec2:DeleteSnapshot",
	},
	"sg": {
		"ec2:DeleteSecurityGroup",
	},
	"kms": {
		"kms:ScheduleKeyDeletion",
	},
	"loggroup": {
		"logs:DeleteLogGroup",
	},
	"sagemaker": {
		"sagemaker:DeleteApp",
		"sagemaker:DeleteSpace",
	},
}

// CorePermissions returns the actions every run needs regardless of domain.
func CorePermissions() []string {
	return []string{
		"sts:GetCallerIdentity",
		"cloudtrail:LookupEvents",
	}
}
