package models

import "time"

// ActionType is the terminal operation executed against a waste item.
type ActionType string

const (
	ActionDelete    ActionType = "delete"
	ActionRelease   ActionType = "release"
	ActionTerminate ActionType = "terminate"
)

// CleanupStatus values stamped onto WasteItem.CleanupStatus.
const (
	CleanupStatusSimulated = "simulated"
	CleanupStatusCleaned   = "cleaned"
	CleanupStatusFailed    = "failed"
)

// CleanupAction is the append-only audit record of one cleanup attempt.
// Exactly one is produced per attempted item, success or failure.
// RollbackPossible is always false: volume/snapshot deletion, address
// release, and instance termination cannot be reversed through the AWS API.
type CleanupAction struct {
	WasteItemID             string       `json:"waste_item_id"`
	ResourceType            ResourceType `json:"resource_type"`
	ResourceID              string       `json:"resource_id"`
	Region                  string       `json:"region"`
	ActionType              ActionType   `json:"action_type"`
	DryRun                  bool         `json:"dry_run"`
	Success                 bool         `json:"success"`
	ErrorMessage            string       `json:"error_message,omitempty"`
	EstimatedMonthlySavings float64      `json:"estimated_monthly_savings"`
	ActualMonthlySavings    float64      `json:"actual_monthly_savings"`
	RollbackPossible        bool         `json:"rollback_possible"`
	ExecutedAt              time.Time    `json:"executed_at"`
}

// ActionForResource maps a resource type to its terminal action.
func ActionForResource(rt ResourceType) ActionType {
	switch rt {
	case ResourceElasticIP:
		return ActionRelease
	case ResourceStoppedInstance:
		return ActionTerminate
	default:
		return ActionDelete
	}
}
