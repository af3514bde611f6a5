package permissions

import (
	"encoding/json"
	"sort"
)

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Sid      string   `json:"Sid"`
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource string   `json:"Resource"`
}

// GeneratePolicy builds a least-privilege IAM policy for the given domains.
// An empty domain list covers every supported domain. Mutating actions are
// emitted as a separate statement so they are easy to strip.
func GeneratePolicy(domains []string, includeMutating bool) ([]byte, error) {
	if len(domains) == 0 {
		for d := range ReadCatalog {
			domains = append(domains, d)
		}
	}

	read := make(map[string]struct{})
	for _, perm := range CorePermissions() {
		read[perm] = struct{}{}
	}
	mutate := make(map[string]struct{})

	for _, d := range domains {
		for _, p := range ReadCatalog[d] {
			read[p] = struct{}{}
		}
		if includeMutating {
			for _, p := range MutateCatalog[d] {
				mutate[p] = struct{}{}
			}
		}
	}

	doc := PolicyDocument{
		Version: "2012-10-17",
		Statement: []Statement{
			{
				Sid:      "CloudReaperReadOnly",
				Effect:   "Allow",
				Action:   sortedKeys(read),
				Resource: "*",
			},
		},
	}
	if len(mutate) > 0 {
		doc.Statement = append(doc.Statement, Statement{
			Sid:      "CloudReaperRetire",
			Effect:   "Allow",
			Action:   sortedKeys(mutate),
			Resource: "*",
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
