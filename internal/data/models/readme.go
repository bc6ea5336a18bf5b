package models

// Readme captures whether a README exists on the default branch.
//
// Path and Size are only meaningful when Found is true.
type Readme struct {
	Found bool
	Path  string
	Size  int
}
