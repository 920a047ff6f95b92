package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func countByAdmin(plan []Assignment) map[string]int {
	counts := make(map[string]int)
	for _, a := range plan {
		counts[a.AdminID]++
	}
	return counts
}

func TestPlanAssignmentsBalancesLoad(t *testing.T) {
	admins := []AdminLoad{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}
	apps := []AppNeed{
		{ID: "x", UserID: "h1"},
		{ID: "y", UserID: "h2"},
		{ID: "z", UserID: "h3"},
	}

	plan := PlanAssignments(apps, admins, 2)
	assert.Len(t, plan, 6)
	assert.Equal(t, map[string]int{"a1": 2, "a2": 2, "a3": 2}, countByAdmin(plan))
}

func TestPlanAssignmentsPrefersLeastPending(t *testing.T) {
	admins := []AdminLoad{{ID: "busy", Pending: 5}, {ID: "idle", Pending: 0}}
	plan := PlanAssignments([]AppNeed{{ID: "x", UserID: "h1"}}, admins, 1)
	assert.Equal(t, []Assignment{{ApplicationID: "x", AdminID: "idle"}}, plan)
}

func TestPlanAssignmentsSkipsSelfAndExisting(t *testing.T) {
	admins := []AdminLoad{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}
	apps := []AppNeed{{ID: "x", UserID: "a1", ReviewsAssigned: 1, AssignedTo: []string{"a2"}}}

	plan := PlanAssignments(apps, admins, 3)
	assert.Equal(t, []Assignment{{ApplicationID: "x", AdminID: "a3"}}, plan)
}

func TestPlanAssignmentsNoAdmins(t *testing.T) {
	assert.Nil(t, PlanAssignments([]AppNeed{{ID: "x"}}, nil, 3))
	assert.Nil(t, PlanAssignments([]AppNeed{{ID: "x"}}, []AdminLoad{{ID: "a1"}}, 0))
}
