package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"clinicore/pkg/domain"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  domain.Role
	}{
		{"ADMIN", domain.RoleAdmin},
		{"STAFF", domain.RoleStaff},
		{"", domain.RoleStaff},
		{"admin", domain.RoleStaff},
		{"SUPERUSER", domain.RoleStaff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.ParseRole(tt.input), "input %q", tt.input)
	}
}

func TestPrincipalIsAdmin(t *testing.T) {
	assert.True(t, domain.Principal{ID: "u1", Role: domain.RoleAdmin}.IsAdmin())
	assert.False(t, domain.Principal{ID: "u2", Role: domain.RoleStaff}.IsAdmin())
}
