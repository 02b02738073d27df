package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

func TestAuthorityRankOrder(t *testing.T) {
	require.Greater(t, AuthorityRank("HOD"), AuthorityRank("Assistant Professor"))
	require.Greater(t, AuthorityRank("Assistant Professor"), AuthorityRank("Lab Assistant"))
	require.Greater(t, AuthorityRank("Lab Assistant"), AuthorityRank(""))
	require.Equal(t, AuthorityRank("DEAN"), AuthorityRank("admin"))
	require.Equal(t, 5, AuthorityRank("  hod "))
	require.Zero(t, AuthorityRank("Visiting Lecturer"))
}

func TestDepartmentRankIsSeparate(t *testing.T) {
	require.Equal(t, 4, DepartmentRank("HOD's Assistant"))
	require.Zero(t, AuthorityRank("HOD's Assistant"))
	require.Zero(t, DepartmentRank("DEAN"))
	require.Greater(t, DepartmentRank("HOD"), DepartmentRank("Assistant Professor"))
	require.Greater(t, DepartmentRank("Assistant Professor"), DepartmentRank("Lab Assistant"))
	require.Greater(t, DepartmentRank("Lab Assistant"), DepartmentRank(""))
}

func TestOutranks(t *testing.T) {
	require.True(t, Outranks("DEAN", "HOD"))
	require.False(t, Outranks("DEAN", "ADMIN"))
	require.False(t, Outranks("Assistant Professor", "Faculty"))
}

func TestSortUsersByRank(t *testing.T) {
	users := []models.User{
		{Name: "zoe", Designation: "Lab Assistant"},
		{Name: "Bob", Designation: "HOD"},
		{Name: "amy", Designation: "Lab Assistant"},
		{Name: "Carl", Designation: "Unassigned"},
	}
	SortUsersByRank(users, DepartmentRank)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	require.Equal(t, []string{"Bob", "amy", "zoe", "Carl"}, names)
}
