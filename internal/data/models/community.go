package models

// Contributing reports whether the repository publishes contribution
// guidelines (CONTRIBUTING.md in the root, docs/ or .github/).
type Contributing struct {
	Found bool
	URL   string
}
