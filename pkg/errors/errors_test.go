package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypeChecks(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidation("type is required"), IsValidation},
		{"not found", NewNotFound("conversation not found"), IsNotFound},
		{"already member", NewAlreadyMember("user is already a participant"), IsAlreadyMember},
		{"not member", NewNotMember("user is not a participant"), IsNotMember},
		{"not participant", NewNotParticipant("sender is not a participant"), IsNotParticipant},
		{"transient", NewTransient("dynamodb unavailable", fmt.Errorf("timeout")), IsTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, IsInternal(tt.err))
		})
	}
}

func TestMembershipErrorsAreConflicts(t *testing.T) {
	assert.True(t, IsConflict(NewAlreadyMember("dup")))
	assert.True(t, IsConflict(NewNotMember("missing")))
	assert.True(t, IsConflict(NewNotParticipant("outsider")))
	assert.False(t, IsConflict(NewNotFound("gone")))
}

func TestWrapPreservesTypeAndCode(t *testing.T) {
	err := Wrap(NewAlreadyMember("user is already a participant"), "add participant")
	assert.True(t, IsAlreadyMember(err))
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "add participant")

	// Plain errors become internal
	plain := Wrap(fmt.Errorf("boom"), "save conversation")
	assert.True(t, IsInternal(plain))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewTransient("storage fault", cause)
	var appErr *AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, cause, appErr.Unwrap())
}
