package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateUninitialized, StateInitialized, true},
		{StateUninitialized, StateRunning, false},
		{StateInitialized, StateInitialized, true},
		{StateInitialized, StateRunning, true},
		{StateInitialized, StateStopped, false},
		{StateRunning, StateStopped, true},
		{StateRunning, StateInitialized, false},
		{StateStopped, StateInitialized, true},
		{StateStopped, StateRunning, false},
	}
	for _, tt := range tests {
		err := tt.from.CanTransition(tt.to)
		if tt.ok {
			require.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			require.Error(t, err, "%s -> %s", tt.from, tt.to)
		}
	}
}
