package config

import (
	"os"
	"strconv"
)

// ApprovalPolicy carries the decisions the approval workflows leave to
// deployment rather than hard-coding.
type ApprovalPolicy struct {
	// RequireSameBank gates approvals to bank users of the client's own
	// bank.
	RequireSameBank bool
	// FlagPartialFailure marks a disbursement summary as degraded when any
	// detail fails. Details always commit independently either way.
	FlagPartialFailure bool
	// DisbursementWorkers bounds parallel detail processing. 1 means
	// sequential.
	DisbursementWorkers int
	// UrgentAfterDays controls when a pending payment is flagged urgent in
	// the bank work queue.
	UrgentAfterDays int
}

func LoadApprovalPolicy() *ApprovalPolicy {
	return &ApprovalPolicy{
		RequireSameBank:     getEnvAsBool("APPROVAL_REQUIRE_SAME_BANK", true),
		FlagPartialFailure:  getEnvAsBool("DISBURSE_FLAG_PARTIAL_FAILURE", true),
		DisbursementWorkers: getEnvAsInt("DISBURSE_WORKERS", 1),
		UrgentAfterDays:     getEnvAsInt("APPROVAL_URGENT_AFTER_DAYS", 3),
	}
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
