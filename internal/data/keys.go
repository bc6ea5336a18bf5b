package data

const (
	// DepRepoMetadata represents the repository metadata (usually fetched during discovery, but can be a dependency).
	DepRepoMetadata DependencyKey = "repo.metadata"

	// DepRepoReadme represents the presence of a repository README on the
	// default branch, along with its resolved path and size.
	DepRepoReadme DependencyKey = "repo.readme"

	// DepRepoContributing represents the presence of contribution guidelines,
	// as reported by the community profile endpoint.
	DepRepoContributing DependencyKey = "repo.contributing"

	// DepRepoLanguages represents the byte count per language.
	DepRepoLanguages DependencyKey = "repo.languages"

	// DepRepoContributors represents the top contributors (first page of 100).
	DepRepoContributors DependencyKey = "repo.contributors"

	// DepRepoParticipation represents the weekly commit counts for the last 52
	// weeks, split into all commits and owner commits.
	DepRepoParticipation DependencyKey = "repo.participation"

	// DepRepoCodeFrequency represents the weekly additions and deletions.
	DepRepoCodeFrequency DependencyKey = "repo.code_frequency"

	// DepRepoOpenIssues represents the newest open issues (pull requests excluded).
	DepRepoOpenIssues DependencyKey = "repo.open_issues"

	// DepRepoSimilar represents a handful of popular repositories written in the
	// same primary language.
	//
	// Params:
	// - min_stars: lower bound on stargazers (defaults to the repository's own count)
	DepRepoSimilar DependencyKey = "repo.similar"
)

// Priority returns the fetch priority for a dependency key (lower is higher priority).
func Priority(key DependencyKey) int {
	switch key {
	case DepRepoMetadata:
		return 0
	case DepRepoLanguages, DepRepoContributors, DepRepoParticipation:
		return 1 // Needed for list enrichment.
	default:
		return 2
	}
}
