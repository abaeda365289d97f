package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentory/rentory-backend/pkg/errors"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCanTransition_Table(t *testing.T) {
	valid := map[AvailabilityStatus]map[AvailabilityStatus]bool{
		StatusAvailable:   {StatusRented: true, StatusMaintenance: true, StatusDamaged: true, StatusLost: true},
		StatusRented:      {StatusAvailable: true, StatusDamaged: true, StatusLost: true},
		StatusMaintenance: {StatusAvailable: true, StatusDamaged: true, StatusLost: true},
		StatusDamaged:     {StatusAvailable: true, StatusMaintenance: true, StatusLost: true},
		StatusLost:        {StatusAvailable: true},
	}

	for _, from := range AllAvailabilityStatuses {
		for _, to := range AllAvailabilityStatuses {
			want := valid[from][to]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCheckTransition_RejectsPairsOutsideTable(t *testing.T) {
	for _, from := range AllAvailabilityStatuses {
		for _, to := range AllAvailabilityStatuses {
			if CanTransition(from, to) {
				continue
			}
			err := CheckTransition(TransitionRequest{From: from, To: to, Reason: "r"}, now)
			require.Error(t, err, "%s -> %s", from, to)
			assert.Equal(t, CodeInvalidStatusTransition, errors.CodeOf(err))

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, AllowedTransitions(from), appErr.Details["allowed"])
		}
	}
}

func TestCheckTransition_ReasonRules(t *testing.T) {
	tests := []struct {
		to       AvailabilityStatus
		needsWhy bool
	}{
		{StatusRented, false},
		{StatusMaintenance, true},
		{StatusDamaged, true},
		{StatusLost, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			err := CheckTransition(TransitionRequest{From: StatusAvailable, To: tt.to}, now)
			if tt.needsWhy {
				assert.Equal(t, CodeReasonRequired, errors.CodeOf(err))
				assert.True(t, errors.Is(err, errors.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckTransition_MaintenanceWithoutResolutionDateIsAccepted(t *testing.T) {
	err := CheckTransition(TransitionRequest{From: StatusAvailable, To: StatusMaintenance, Reason: "cleaning"}, now)
	assert.NoError(t, err)
}

func TestCheckTransition_ResolutionDateRules(t *testing.T) {
	future := now.Add(48 * time.Hour)
	past := now.Add(-time.Hour)

	assert.NoError(t, CheckTransition(TransitionRequest{From: StatusAvailable, To: StatusDamaged, Reason: "dent", ResolutionDate: &future}, now))

	err := CheckTransition(TransitionRequest{From: StatusAvailable, To: StatusLost, Reason: "gone", ResolutionDate: &future}, now)
	assert.Equal(t, CodeResolutionDateNotAllowed, errors.CodeOf(err))

	err = CheckTransition(TransitionRequest{From: StatusAvailable, To: StatusMaintenance, Reason: "fix", ResolutionDate: &past}, now)
	assert.Equal(t, CodeResolutionDateInPast, errors.CodeOf(err))
}

func TestCheckTransition_LeavingRented(t *testing.T) {
	err := CheckTransition(TransitionRequest{From: StatusRented, To: StatusDamaged, Reason: "dropped", Allocated: true, ItemID: "i1"}, now)
	assert.Equal(t, CodeItemAllocated, errors.CodeOf(err))
	assert.True(t, errors.Is(err, errors.ErrPolicyBlocked))

	assert.NoError(t, CheckTransition(TransitionRequest{From: StatusRented, To: StatusAvailable, Allocated: true}, now))
	assert.NoError(t, CheckTransition(TransitionRequest{From: StatusRented, To: StatusLost, Reason: "stolen", Allocated: false}, now))
}

func TestCheckTransition_UnknownTarget(t *testing.T) {
	err := CheckTransition(TransitionRequest{From: StatusAvailable, To: "borrowed"}, now)
	assert.Equal(t, CodeInvalidStatus, errors.CodeOf(err))
}

func TestOptions(t *testing.T) {
	opts := Options(StatusRented, true)

	assert.Equal(t, StatusRented, opts.CurrentStatus)
	assert.Equal(t, []AvailabilityStatus{StatusAvailable, StatusDamaged, StatusLost}, opts.ValidTransitions)
	require.Len(t, opts.Restrictions, 3)

	byStatus := map[AvailabilityStatus]StatusRestriction{}
	for _, r := range opts.Restrictions {
		byStatus[r.Status] = r
	}
	assert.False(t, byStatus[StatusAvailable].Blocked)
	assert.True(t, byStatus[StatusDamaged].Blocked)
	assert.True(t, byStatus[StatusDamaged].RequiresReason)
	assert.True(t, byStatus[StatusDamaged].AllowsResolutionDate)
	assert.True(t, byStatus[StatusLost].Blocked)
	assert.False(t, byStatus[StatusLost].AllowsResolutionDate)
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	allowed := AllowedTransitions(StatusLost)
	allowed[0] = StatusRented
	assert.Equal(t, []AvailabilityStatus{StatusAvailable}, AllowedTransitions(StatusLost))
}
