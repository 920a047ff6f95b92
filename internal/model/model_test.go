package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitionsAreForwardOnly(t *testing.T) {
	assert.True(t, StatusDraft.CanTransitionTo(StatusSubmitted))
	assert.False(t, StatusDraft.CanTransitionTo(StatusAccepted))

	for _, terminal := range []ApplicationStatus{StatusAccepted, StatusRejected, StatusWaitlisted} {
		assert.True(t, StatusSubmitted.CanTransitionTo(terminal))
		assert.True(t, terminal.Terminal())
		assert.False(t, terminal.CanTransitionTo(StatusSubmitted))
		assert.False(t, terminal.CanTransitionTo(StatusDraft))
	}
	assert.False(t, StatusSubmitted.CanTransitionTo(StatusDraft))
	assert.False(t, StatusSubmitted.CanTransitionTo(StatusSubmitted))
	assert.False(t, ApplicationStatus("bogus").Valid())
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleSuperAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.False(t, RoleHacker.AtLeast(RoleAdmin))
	assert.False(t, UserRole("guest").AtLeast(RoleHacker))
}

func TestCloneDoesNotAlias(t *testing.T) {
	app := Application{
		ShortAnswerResponses: ShortAnswerResponses{"q1": "a"},
		DietaryRestrictions:  []string{"vegan"},
	}
	clone := app.Clone()
	clone.ShortAnswerResponses["q1"] = "changed"
	clone.DietaryRestrictions[0] = "halal"

	assert.Equal(t, "a", app.ShortAnswerResponses["q1"])
	assert.Equal(t, "vegan", app.DietaryRestrictions[0])
}
