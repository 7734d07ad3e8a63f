package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRejectsForbiddenOperations(t *testing.T) {
	v := New()
	violation := v.Validate("DELETE FROM claims", []string{"claims"}, "admin", "delete all claims")
	assert.NotNil(t, violation)
	assert.Equal(t, ViolationForbiddenOperation, violation.Kind)
}

func TestValidateAllowsPlainSelect(t *testing.T) {
	v := New()
	violation := v.Validate("SELECT id FROM claims", []string{"claims"}, "admin", "show me claims")
	assert.Nil(t, violation)
}

func TestValidateRejectsMultiStatement(t *testing.T) {
	v := New()
	violation := v.Validate("SELECT id FROM claims; DROP TABLE claims;", []string{"claims"}, "admin", "show claims")
	assert.NotNil(t, violation)
	assert.Equal(t, ViolationForbiddenOperation, violation.Kind)
}

func TestValidateRejectsBenignMultiStatement(t *testing.T) {
	v := New()
	violation := v.Validate("SELECT id FROM claims; SELECT id FROM providers;", []string{"claims", "providers"}, "admin", "show claims")
	assert.NotNil(t, violation)
	assert.Equal(t, ViolationMultiStatement, violation.Kind)
}

func TestValidateRejectsCartesianJoin(t *testing.T) {
	v := New()
	violation := v.Validate("SELECT * FROM claims JOIN providers", []string{"claims", "providers"}, "admin", "join claims and providers")
	assert.NotNil(t, violation)
	assert.Equal(t, ViolationCartesianJoin, violation.Kind)
}

func TestValidateAllowsJoinWithOn(t *testing.T) {
	v := New()
	violation := v.Validate(
		"SELECT * FROM claims JOIN providers ON claims.provider_id = providers.id",
		[]string{"claims", "providers"}, "admin", "claims with providers",
	)
	assert.Nil(t, violation)
}

func TestCheckRolePermissionsAnalystStateFilterAllowed(t *testing.T) {
	v := New()
	violation := v.CheckRolePermissions("analyst", []string{"claims", "states"}, "how many claims in lagos state")
	assert.Nil(t, violation)
}

func TestCheckRolePermissionsAnalystUserDetailRejected(t *testing.T) {
	v := New()
	violation := v.CheckRolePermissions("analyst", []string{"users"}, "show me user details for lagos state")
	assert.NotNil(t, violation)
	assert.Equal(t, ViolationRole, violation.Kind)
}

func TestCheckRolePermissionsPublicRejectedOutsideAllowedTables(t *testing.T) {
	v := New()
	violation := v.CheckRolePermissions("public", []string{"claims"}, "show me claims")
	assert.NotNil(t, violation)
	assert.Equal(t, ViolationRole, violation.Kind)
}

func TestCheckRolePermissionsAdminUnrestricted(t *testing.T) {
	v := New()
	violation := v.CheckRolePermissions("admin", []string{"claims", "users", "states"}, "anything at all")
	assert.Nil(t, violation)
}

func TestValidateRejectsPIIExposure(t *testing.T) {
	v := New()
	violation := v.Validate("SELECT email, ssn FROM users", []string{"users"}, "admin", "show user emails")
	assert.NotNil(t, violation)
	assert.Equal(t, ViolationPIIExposure, violation.Kind)
}

func TestValidateAllowsPIIColumnWhenUtteranceDoesNotMentionSensitiveKeyword(t *testing.T) {
	v := New()
	violation := v.Validate("SELECT email FROM providers", []string{"providers"}, "admin", "list provider contact records")
	assert.Nil(t, violation)
}

func TestValidateRejectsPIIColumnWhenUtteranceMentionsSensitiveKeywordWithoutNamingColumn(t *testing.T) {
	v := New()
	violation := v.Validate("SELECT ssn FROM users", []string{"users"}, "admin", "I need the password and ssn for this patient")
	assert.NotNil(t, violation)
	assert.Equal(t, ViolationPIIExposure, violation.Kind)
}

func TestIdentifyPIIColumnsFindsAll(t *testing.T) {
	v := New()
	found := v.IdentifyPIIColumns("SELECT email, salary, password FROM users")
	assert.ElementsMatch(t, []string{"email", "salary", "password"}, found)
}

func TestIdentifyPIIColumnsEmptyWhenNone(t *testing.T) {
	v := New()
	found := v.IdentifyPIIColumns("SELECT id, name FROM claims")
	assert.Empty(t, found)
}
