package models

import "time"

// Contributor is one entry of the contributors listing.
type Contributor struct {
	Login         string `json:"login" yaml:"login"`
	Contributions int    `json:"contributions" yaml:"contributions"`
	HTMLURL       string `json:"html_url,omitempty" yaml:"html_url,omitempty"`
}

// Participation holds weekly commit counts, oldest week first.
//
// All includes Owner. Both are empty while GitHub is still computing the
// statistics for a repository.
type Participation struct {
	All   []int `json:"all" yaml:"all"`
	Owner []int `json:"owner" yaml:"owner"`
}

// Empty reports whether no weekly data is available.
func (p Participation) Empty() bool {
	return len(p.All) == 0
}

// WeeklyChange is one week of the code frequency statistics.
type WeeklyChange struct {
	Week      time.Time `json:"week" yaml:"week"`
	Additions int       `json:"additions" yaml:"additions"`
	Deletions int       `json:"deletions" yaml:"deletions"`
}
