package family

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMemberDefaultsToMember(t *testing.T) {
	req := AddMemberRequest{UserID: "u2"}
	require.NoError(t, req.Validate())
	assert.Equal(t, RoleMember, req.Role)
}

func TestAddMemberRejectsUnknownRole(t *testing.T) {
	req := AddMemberRequest{UserID: "u2", Role: "owner"}
	assert.Error(t, req.Validate())

	req = AddMemberRequest{Role: RoleAdmin}
	assert.Error(t, req.Validate())
}

func TestFamilyNameLength(t *testing.T) {
	assert.NoError(t, (&CreateFamilyRequest{Name: "García"}).Validate())
	assert.Error(t, (&CreateFamilyRequest{Name: ""}).Validate())
	assert.Error(t, (&CreateFamilyRequest{Name: strings.Repeat("x", 256)}).Validate())

	assert.NoError(t, (&UpdateFamilyRequest{}).Validate())
	assert.Error(t, (&UpdateMemberRequest{Role: ""}).Validate())
}
