package rtc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRole(t *testing.T) {
	assert.Equal(t, RoleActive, newRole("active"))
	assert.Equal(t, RolePassive, newRole("passive"))
	assert.Equal(t, RoleActPass, newRole("actpass"))
	assert.Equal(t, RoleActPass, newRole("bogus"))
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "active", RoleActive.String())
	assert.Equal(t, "passive", RolePassive.String())
	assert.Equal(t, "actpass", RoleActPass.String())
	assert.Equal(t, unknownStr, Role(42).String())
}

func TestRoleParity(t *testing.T) {
	assert.Equal(t, uint16(0), RoleActive.localParity())
	assert.Equal(t, uint16(1), RoleActive.remoteParity())

	assert.Equal(t, uint16(1), RolePassive.localParity())
	assert.Equal(t, uint16(0), RolePassive.remoteParity())
}

func TestRoleIsClient(t *testing.T) {
	assert.True(t, RoleActive.isClient())
	assert.False(t, RolePassive.isClient())
	assert.False(t, RoleActPass.isClient())
}
