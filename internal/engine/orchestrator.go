// Package engine coordinates scanning, scoring, pricing, and cleanup. The
// orchestrator owns the scan lifecycle; the cleanup engine owns the
// destructive half and its audit trail.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cloudsweep-io/cloudsweep/internal/config"
	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/pricing"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
	"github.com/cloudsweep-io/cloudsweep/internal/safety"
	"github.com/cloudsweep-io/cloudsweep/internal/scanner"
)

// Orchestrator runs one scan across every configured region and resource
// kind, turning scanner candidates into scored, priced waste items.
//
// Individual scanner failures become warnings, not errors: a scan keeps
// going and returns best-effort results. Only setup failures (invalid
// config, no credentials) fail the run.
type Orchestrator struct {
	provider common.ClientProvider
	registry *scanner.Registry
	cfg      *config.Config
	log      zerolog.Logger
	backoff  common.BackoffPolicy

	// pricerFor builds the pricing resolver from the client set of the
	// first region. Tests swap it to avoid live pricing lookups.
	pricerFor func(*common.ClientSet) *pricing.Resolver

	now func() time.Time
}

// NewOrchestrator wires an Orchestrator over provider with the built-in
// scanner registry.
func NewOrchestrator(provider common.ClientProvider, cfg *config.Config, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		registry: scanner.DefaultRegistry(),
		cfg:      cfg,
		log:      log,
		backoff:  common.DefaultBackoff(),
		now:      time.Now,
	}
	o.pricerFor = func(cs *common.ClientSet) *pricing.Resolver {
		return pricing.NewResolver(pricing.NewAPISource(cs.Pricing), 0, log)
	}
	return o
}

// scanUnit is one (region, scanner) pair of the fan-out.
type scanUnit struct {
	region string
	sc     scanner.Scanner
}

// Scan executes one full scan for the AWS profile. The returned result is
// always non-nil once config validation passes; on a session failure its
// status is failed and the error is returned alongside it.
func (o *Orchestrator) Scan(ctx context.Context, profile string) (*models.ScanResult, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	started := o.now()
	result := &models.ScanResult{
		ScanID:         "scan-" + uuid.NewString(),
		Timestamp:      started,
		StartedAt:      started,
		RegionsScanned: o.cfg.Regions,
		Status:         models.ScanPending,
	}

	session, err := o.provider.LoadSession(ctx, profile)
	if err != nil {
		result.Status = models.ScanFailed
		result.CompletedAt = o.now()
		return result, fmt.Errorf("load AWS session: %w", err)
	}
	result.AccountID = session.AccountID
	result.Status = models.ScanRunning

	scanners := o.registry.ForTypes(o.cfg.Kinds())
	opts := scanner.Options{
		MinAge:        make(map[models.ResourceType]time.Duration),
		ProtectedTags: o.cfg.DenyTags(),
		LookbackDays:  o.cfg.Lookback(),
		Now:           o.now,
	}
	for _, rt := range models.AllResourceTypes() {
		opts.MinAge[rt] = o.cfg.MinAge(rt)
	}

	pricer := o.pricerFor(o.provider.ClientsForRegion(session, o.cfg.Regions[0]))

	var (
		mu          sync.Mutex
		items       []models.WasteItem
		warnings    []models.ScanWarning
		seen        = make(map[string]struct{})
		scanned     int
		failedUnits int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.ScanLimit())
	for _, region := range o.cfg.Regions {
		for _, sc := range scanners {
			unit := scanUnit{region: region, sc: sc}
			g.Go(func() error {
				clients := o.provider.ClientsForRegion(session, unit.region)

				var candidates []scanner.Candidate
				err := o.backoff.Do(gctx, func() error {
					var serr error
					candidates, serr = unit.sc.Scan(gctx, clients, unit.region, opts)
					return serr
				})

				if err != nil {
					o.log.Warn().
						Str("kind", string(unit.sc.Kind())).
						Str("region", unit.region).
						Err(err).
						Msg("scanner failed")
					mu.Lock()
					failedUnits++
					warnings = append(warnings, classifyScanError(unit, err))
					mu.Unlock()
					return nil
				}

				// Score and price before taking the lock; pricing can block
				// on a live lookup.
				built := make([]models.WasteItem, 0, len(candidates))
				for _, c := range candidates {
					built = append(built, o.buildItem(gctx, pricer, c))
				}

				mu.Lock()
				scanned += len(candidates)
				for _, item := range built {
					if _, dup := seen[item.Key()]; dup {
						continue
					}
					seen[item.Key()] = struct{}{}
					items = append(items, item)
				}
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		result.Status = models.ScanFailed
		result.CompletedAt = o.now()
		return result, err
	}

	// Drop below-threshold items. Target groups are exempt: they always
	// cost zero and exist in the report as cleanup candidates, not savings.
	if o.cfg.MinMonthlyCost > 0 {
		kept := items[:0]
		for _, item := range items {
			if item.ResourceType == models.ResourceTargetGroup || item.MonthlyCost >= o.cfg.MinMonthlyCost {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].MonthlyCost != items[j].MonthlyCost {
			return items[i].MonthlyCost > items[j].MonthlyCost
		}
		return items[i].Key() < items[j].Key()
	})

	for _, key := range pricer.Fallbacks() {
		warnings = append(warnings, models.ScanWarning{
			Code:         models.WarnPricingFallback,
			ResourceType: key.Kind,
			Region:       key.Region,
			Message:      fmt.Sprintf("live pricing unavailable for %s in %s, used static rate", key.Kind, key.Region),
		})
	}

	totalUnits := len(o.cfg.Regions) * len(scanners)
	switch {
	case totalUnits > 0 && failedUnits == totalUnits:
		result.Status = models.ScanFailed
	case failedUnits > 0:
		result.Status = models.ScanCompletedWithErrors
	default:
		result.Status = models.ScanCompleted
	}

	result.WasteItems = items
	result.Warnings = warnings
	result.Summary = summarize(items, scanned)
	result.CompletedAt = o.now()

	o.log.Info().
		Str("scan_id", result.ScanID).
		Str("status", string(result.Status)).
		Int("items", len(items)).
		Float64("monthly_cost", result.Summary.TotalMonthlyCost).
		Msg("scan finished")
	return result, nil
}

// buildItem scores and prices one candidate.
func (o *Orchestrator) buildItem(ctx context.Context, pricer *pricing.Resolver, c scanner.Candidate) models.WasteItem {
	now := o.now()
	score := safety.Score(c, now)

	price, _ := pricer.Price(ctx, pricing.Key{
		Kind:      c.Kind,
		Dimension: c.Dimension,
		Region:    c.Region,
	})
	monthly := price
	if pricing.SizeBased(c.Kind) {
		monthly = price * float64(c.SizeGB)
	}

	return models.WasteItem{
		ResourceType:    c.Kind,
		ResourceID:      c.ID,
		Region:          c.Region,
		MonthlyCost:     monthly,
		AnnualCost:      monthly * 12,
		ConfidenceScore: score,
		RiskLevel:       safety.RiskForScore(score),
		Details:         c.Details,
		DiscoveredAt:    now,
	}
}

// classifyScanError maps a scanner failure to its warning code.
func classifyScanError(unit scanUnit, err error) models.ScanWarning {
	code := models.WarnScanError
	switch {
	case common.IsAccessDenied(err):
		code = models.WarnPermissionDenied
	case common.IsThrottling(err):
		code = models.WarnThrottled
	}
	return models.ScanWarning{
		Code:         code,
		ResourceType: unit.sc.Kind(),
		Region:       unit.region,
		Message:      err.Error(),
	}
}

// summarize computes the aggregate block of a scan result.
func summarize(items []models.WasteItem, scanned int) models.ScanSummary {
	s := models.ScanSummary{
		TotalItems:       len(items),
		ResourcesScanned: scanned,
		ByRiskLevel:      make(map[models.RiskLevel]int),
		ByResourceType:   make(map[models.ResourceType]int),
	}
	for _, item := range items {
		s.TotalMonthlyCost += item.MonthlyCost
		s.TotalAnnualCost += item.AnnualCost
		s.ByRiskLevel[item.RiskLevel]++
		s.ByResourceType[item.ResourceType]++
	}
	return s
}
