package data

// DependencyKey uniquely identifies a GitHub data dependency.
type DependencyKey string

// DependencyRequest represents a request for a specific dependency with optional parameters.
type DependencyRequest struct {
	Key    DependencyKey
	Params map[string]string
}

// StatsKeys lists the dependencies gathered for a full repository report.
func StatsKeys() []DependencyKey {
	return []DependencyKey{
		DepRepoMetadata,
		DepRepoReadme,
		DepRepoContributing,
		DepRepoLanguages,
		DepRepoContributors,
		DepRepoParticipation,
		DepRepoCodeFrequency,
		DepRepoOpenIssues,
		DepRepoSimilar,
	}
}

// DetailKeys lists the dependencies gathered per repository when search results
// are enriched with --details.
func DetailKeys() []DependencyKey {
	return []DependencyKey{
		DepRepoLanguages,
		DepRepoContributors,
		DepRepoParticipation,
	}
}

// FetchScope decides which cache namespace a dependency lives in.
type FetchScope string

// ScopeRepo dependencies are cached per owner/name.
const ScopeRepo FetchScope = "repo"
