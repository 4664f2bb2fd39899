package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadApprovalPolicy(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		policy := LoadApprovalPolicy()
		assert.True(t, policy.RequireSameBank)
		assert.True(t, policy.FlagPartialFailure)
		assert.Equal(t, 1, policy.DisbursementWorkers)
		assert.Equal(t, 3, policy.UrgentAfterDays)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("APPROVAL_REQUIRE_SAME_BANK", "false")
		t.Setenv("DISBURSE_WORKERS", "4")
		t.Setenv("APPROVAL_URGENT_AFTER_DAYS", "7")

		policy := LoadApprovalPolicy()
		assert.False(t, policy.RequireSameBank)
		assert.Equal(t, 4, policy.DisbursementWorkers)
		assert.Equal(t, 7, policy.UrgentAfterDays)
	})

	t.Run("garbage values fall back to defaults", func(t *testing.T) {
		t.Setenv("DISBURSE_WORKERS", "many")
		t.Setenv("APPROVAL_REQUIRE_SAME_BANK", "yep")

		policy := LoadApprovalPolicy()
		assert.Equal(t, 1, policy.DisbursementWorkers)
		assert.True(t, policy.RequireSameBank)
	})
}
