package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLowBalance(t *testing.T) {
	tests := []struct {
		role    string
		credits int
		want    bool
	}{
		{RoleUser, LowCreditThreshold - 1, true},
		{RoleUser, LowCreditThreshold, false},
		{RoleUser, -1, true},
		{RoleBeta, 0, false},
		{RoleAdmin, -5, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsLowBalance(tt.role, tt.credits), "%s with %d credits", tt.role, tt.credits)
	}
}
