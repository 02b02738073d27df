package schedule

import (
	"sort"
	"strings"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

// RankFunc maps a designation label to an authority rank.
type RankFunc func(designation string) int

// authorityRanks is the institution-wide table. It decides override
// eligibility and orders the admin user listing.
var authorityRanks = map[string]int{
	"ADMIN":               7,
	"DEAN":                7,
	"HOD":                 5,
	"ASSOCIATE PROFESSOR": 3,
	"ASSISTANT PROFESSOR": 2,
	"FACULTY":             2,
	"LAB ASSISTANT":       1,
	"OTHERS":              1,
}

// departmentRanks orders members inside a single department listing only.
var departmentRanks = map[string]int{
	"HOD":                 5,
	"HOD'S ASSISTANT":     4,
	"ASSOCIATE PROFESSOR": 3,
	"ASSISTANT PROFESSOR": 2,
	"LAB ASSISTANT":       1,
}

func normalizeDesignation(designation string) string {
	return strings.ToUpper(strings.TrimSpace(designation))
}

// AuthorityRank returns 0 for blank or unknown designations.
func AuthorityRank(designation string) int {
	return authorityRanks[normalizeDesignation(designation)]
}

// DepartmentRank returns 0 for blank or unknown designations.
func DepartmentRank(designation string) int {
	return departmentRanks[normalizeDesignation(designation)]
}

// Outranks reports whether a strictly outranks b on the authority table.
func Outranks(a, b string) bool {
	return AuthorityRank(a) > AuthorityRank(b)
}

// SortUsersByRank sorts in place: highest rank first, then by name.
func SortUsersByRank(users []models.User, rank RankFunc) {
	sort.SliceStable(users, func(i, j int) bool {
		ri, rj := rank(users[i].Designation), rank(users[j].Designation)
		if ri != rj {
			return ri > rj
		}
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
}
