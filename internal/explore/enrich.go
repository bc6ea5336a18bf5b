package explore

import (
	"fmt"
	"sort"

	"ghexplorer/internal/analytics"
	"ghexplorer/internal/data"
	"ghexplorer/internal/data/models"
	"ghexplorer/internal/export"
)

// EnrichRecord converts a fetched RepoResult into an export record carrying the
// detail fields. partial reports hard dependency failures; skippable ones
// (see isSkippableForbidden) only leave their field empty.
func EnrichRecord(res RepoResult, verbose bool) (rec export.Record, partial bool) {
	rec = export.NewRecord(res.Repo)

	if langs, ok := data.Lookup[map[string]int](res.Data, data.DepRepoLanguages); ok {
		rec.Languages = analytics.Languages(langs)
	}
	if contributors, ok := data.Lookup[[]models.Contributor](res.Data, data.DepRepoContributors); ok {
		n := len(contributors)
		rec.Contributors = &n
	}
	// Impact needs only listing fields; participation refines the engagement term.
	participation, _ := data.Lookup[models.Participation](res.Data, data.DepRepoParticipation)
	impact := analytics.ImpactScore(res.Repo, participation)
	rec.Impact = &impact

	keys := make([]data.DependencyKey, 0, len(res.DepErrs))
	for k := range res.DepErrs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		pres := presentDependencyError(k, res.DepErrs[k], verbose)
		if pres.disposition == depErrDispositionSkip {
			continue
		}
		partial = true
		rec.Errors = append(rec.Errors, fmt.Sprintf("%s: %s", k, pres.message))
	}
	return rec, partial
}
