package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportStatus_Transitions(t *testing.T) {
	assert.True(t, ReportStatusPending.CanTransitionTo(ReportStatusActive))
	assert.True(t, ReportStatusActive.CanTransitionTo(ReportStatusSolved))

	assert.False(t, ReportStatusPending.CanTransitionTo(ReportStatusSolved))
	assert.False(t, ReportStatusActive.CanTransitionTo(ReportStatusPending))
	assert.False(t, ReportStatusSolved.CanTransitionTo(ReportStatusActive))
	assert.False(t, ReportStatus("rejected").CanTransitionTo(ReportStatusActive))
}

func TestNewStatus(t *testing.T) {
	_, err := NewReportStatus("active")
	assert.NoError(t, err)
	_, err = NewReportStatus("rejected")
	assert.Error(t, err)

	_, err = NewSightingStatus("approved")
	assert.NoError(t, err)
	_, err = NewSightingStatus("rejected")
	assert.Error(t, err)
}

func TestRole(t *testing.T) {
	assert.True(t, RoleAdmin.IsModerator())
	assert.False(t, RoleUser.IsModerator())
	assert.False(t, Role("guest").IsValid())
}

func TestNewLocation(t *testing.T) {
	lat, lng := 28.6, 77.2
	loc, err := NewLocation(&lat, &lng, "  New Delhi ")
	assert.NoError(t, err)
	assert.Equal(t, "New Delhi", loc.Address)

	badLng := 181.0
	_, err = NewLocation(&lat, &badLng, "x")
	assert.Error(t, err)

	_, err = NewLocation(nil, &lng, "x")
	assert.Error(t, err)
}
