package models

import (
	"fmt"
	"time"
)

// ResourceType identifies the kind of AWS resource a waste item refers to.
type ResourceType string

const (
	ResourceEBSVolume        ResourceType = "ebs_volume"
	ResourceEBSSnapshot      ResourceType = "ebs_snapshot"
	ResourceElasticIP        ResourceType = "elastic_ip"
	ResourceLoadBalancer     ResourceType = "load_balancer"
	ResourceNATGateway       ResourceType = "nat_gateway"
	ResourceStoppedInstance  ResourceType = "stopped_instance"
	ResourceTargetGroup      ResourceType = "target_group"
	ResourceNetworkInterface ResourceType = "network_interface"
	ResourceAMI              ResourceType = "ami"
)

// AllResourceTypes returns every supported resource type in scan order.
func AllResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceEBSVolume,
		ResourceEBSSnapshot,
		ResourceElasticIP,
		ResourceLoadBalancer,
		ResourceNATGateway,
		ResourceStoppedInstance,
		ResourceTargetGroup,
		ResourceNetworkInterface,
		ResourceAMI,
	}
}

// ParseResourceType validates s against the supported resource types.
func ParseResourceType(s string) (ResourceType, error) {
	for _, rt := range AllResourceTypes() {
		if s == string(rt) {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown resource type %q", s)
}

// RiskLevel is the coarse removal-risk tier derived from a confidence score.
type RiskLevel string

const (
	RiskSafe   RiskLevel = "safe"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel validates s against the supported risk tiers.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(s) {
	case RiskSafe, RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s), nil
	}
	return "", fmt.Errorf("unknown risk level %q", s)
}

// WasteItem is a discovered idle/unused resource with an estimated recurring
// cost and a removal-safety score. It is the atomic output unit of a scan.
// Once built it is never mutated, except for CleanupStatus which the cleanup
// engine stamps after an attempt.
type WasteItem struct {
	ResourceType    ResourceType   `json:"resource_type"`
	ResourceID      string         `json:"resource_id"`
	Region          string         `json:"region"`
	MonthlyCost     float64        `json:"monthly_cost"`
	AnnualCost      float64        `json:"annual_cost"`
	ConfidenceScore int            `json:"confidence_score"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	Details         map[string]any `json:"resource_details,omitempty"`
	DiscoveredAt    time.Time      `json:"discovered_at"`
	CleanupStatus   string         `json:"cleanup_status,omitempty"`
}

// Key returns the identifier that makes a WasteItem unique within one scan
// and links CleanupActions back to it.
func (w WasteItem) Key() string {
	return fmt.Sprintf("%s/%s", w.ResourceType, w.ResourceID)
}

// ScanStatus is the lifecycle state of an orchestrator run.
type ScanStatus string

const (
	ScanPending             ScanStatus = "pending"
	ScanRunning             ScanStatus = "running"
	ScanCompleted           ScanStatus = "completed"
	ScanCompletedWithErrors ScanStatus = "completed_with_errors"
	ScanFailed              ScanStatus = "failed"
)

// Warning codes surfaced in ScanResult.Warnings.
const (
	WarnPermissionDenied = "permission_denied"
	WarnThrottled        = "throttled"
	WarnScanError        = "scan_error"
	WarnPricingFallback  = "pricing_fallback"
)

// ScanWarning records a non-fatal problem scoped to one scanner, region, or
// pricing lookup. A scan with warnings still returns best-effort results.
type ScanWarning struct {
	Code         string       `json:"code"`
	ResourceType ResourceType `json:"resource_type,omitempty"`
	Region       string       `json:"region,omitempty"`
	Message      string       `json:"message"`
}

// ScanSummary aggregates counts and cost totals across all waste items.
type ScanSummary struct {
	TotalItems       int                  `json:"total_items"`
	ResourcesScanned int                  `json:"resources_scanned"`
	TotalMonthlyCost float64              `json:"total_monthly_cost"`
	TotalAnnualCost  float64              `json:"total_annual_cost"`
	ByRiskLevel      map[RiskLevel]int    `json:"by_risk_level"`
	ByResourceType   map[ResourceType]int `json:"by_resource_type"`
}

// ScanResult is the top-level output of one orchestrator run. It is created
// once per run and immutable after the orchestrator returns it.
type ScanResult struct {
	ScanID         string        `json:"scan_id"`
	Timestamp      time.Time     `json:"timestamp"`
	AccountID      string        `json:"account_id"`
	RegionsScanned []string      `json:"regions_scanned"`
	Status         ScanStatus    `json:"status"`
	WasteItems     []WasteItem   `json:"waste_items"`
	Warnings       []ScanWarning `json:"warnings,omitempty"`
	Summary        ScanSummary   `json:"summary"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
}
