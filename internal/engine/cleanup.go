package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cloudsweep-io/cloudsweep/internal/config"
	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
)

// CleanupEngine executes the terminal action for waste items and records an
// audit trail. Dry-run is the default everywhere above this layer; the
// engine itself never mutates anything unless DryRun is explicitly false.
type CleanupEngine struct {
	provider common.ClientProvider
	cfg      *config.Config
	log      zerolog.Logger
	backoff  common.BackoffPolicy
	now      func() time.Time
}

// NewCleanupEngine wires a CleanupEngine over provider.
func NewCleanupEngine(provider common.ClientProvider, cfg *config.Config, log zerolog.Logger) *CleanupEngine {
	return &CleanupEngine{
		provider: provider,
		cfg:      cfg,
		log:      log,
		backoff:  common.DefaultBackoff(),
		now:      time.Now,
	}
}

// CleanupOptions configures one cleanup run.
type CleanupOptions struct {
	// Profile is the named AWS profile. Empty means the default chain.
	Profile string

	// DryRun simulates the run: actions are recorded but no AWS mutating
	// call is made.
	DryRun bool

	// RiskFilter limits cleanup to items at the listed risk levels. Empty
	// means only safe items, never everything.
	RiskFilter []models.RiskLevel
}

// Cleanup attempts the terminal action for every eligible item and returns
// exactly one CleanupAction per attempted item, ordered by item key.
// Items are deduplicated by (type, id) so a resource is never acted on
// twice in one run. Each processed item has its CleanupStatus stamped in
// place, the only mutation a waste item ever sees after discovery.
//
// Cancelling ctx stops new actions from being issued; calls already in
// flight run to completion so the audit trail matches what AWS did.
func (e *CleanupEngine) Cleanup(ctx context.Context, items []models.WasteItem, opts CleanupOptions) ([]models.CleanupAction, error) {
	session, err := e.provider.LoadSession(ctx, opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("load AWS session: %w", err)
	}

	allowed := make(map[models.RiskLevel]struct{})
	if len(opts.RiskFilter) == 0 {
		allowed[models.RiskSafe] = struct{}{}
	}
	for _, rl := range opts.RiskFilter {
		allowed[rl] = struct{}{}
	}

	seen := make(map[string]struct{}, len(items))
	var eligible []models.WasteItem
	for _, item := range items {
		if _, ok := allowed[item.RiskLevel]; !ok {
			continue
		}
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		seen[item.Key()] = struct{}{}
		eligible = append(eligible, item)
	}

	var (
		mu      sync.Mutex
		actions []models.CleanupAction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.CleanupLimit())
	for _, item := range eligible {
		item := item
		g.Go(func() error {
			action := e.attempt(gctx, session, item, opts.DryRun)
			mu.Lock()
			actions = append(actions, action)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(actions, func(i, j int) bool {
		return actions[i].WasteItemID < actions[j].WasteItemID
	})

	byKey := make(map[string]models.CleanupAction, len(actions))
	for _, a := range actions {
		byKey[a.WasteItemID] = a
	}
	for i := range items {
		a, ok := byKey[items[i].Key()]
		if !ok {
			continue
		}
		switch {
		case a.DryRun:
			items[i].CleanupStatus = models.CleanupStatusSimulated
		case a.Success:
			items[i].CleanupStatus = models.CleanupStatusCleaned
		default:
			items[i].CleanupStatus = models.CleanupStatusFailed
		}
	}
	return actions, nil
}

// attempt executes (or simulates) the terminal action for one item.
func (e *CleanupEngine) attempt(ctx context.Context, session *common.Session, item models.WasteItem, dryRun bool) models.CleanupAction {
	action := models.CleanupAction{
		WasteItemID:             item.Key(),
		ResourceType:            item.ResourceType,
		ResourceID:              item.ResourceID,
		Region:                  item.Region,
		ActionType:              models.ActionForResource(item.ResourceType),
		DryRun:                  dryRun,
		EstimatedMonthlySavings: item.MonthlyCost,
		ExecutedAt:              e.now(),
	}

	// Cancellation stops actions that have not been issued yet.
	if err := ctx.Err(); err != nil {
		action.ErrorMessage = fmt.Sprintf("not attempted: %v", err)
		return action
	}

	if dryRun {
		action.Success = true
		e.log.Info().
			Str("resource", item.Key()).
			Str("action", string(action.ActionType)).
			Msg("dry run, no call made")
		return action
	}

	// Once a destructive call is issued it must run to completion even if
	// the caller's context is cancelled mid-run; otherwise the audit
	// record could disagree with what AWS actually did.
	callCtx := context.WithoutCancel(ctx)
	err := e.backoff.Do(callCtx, func() error {
		return e.execute(callCtx, session, item)
	})
	if err != nil {
		if common.IsNotFound(err) {
			// Already gone: the desired end state holds.
			action.Success = true
			action.ActualMonthlySavings = item.MonthlyCost
			return action
		}
		action.ErrorMessage = err.Error()
		e.log.Error().
			Str("resource", item.Key()).
			Err(err).
			Msg("cleanup failed")
		return action
	}

	action.Success = true
	action.ActualMonthlySavings = item.MonthlyCost
	e.log.Info().
		Str("resource", item.Key()).
		Str("action", string(action.ActionType)).
		Float64("monthly_savings", item.MonthlyCost).
		Msg("resource cleaned")
	return action
}

// execute issues the terminal AWS call for the item's resource type.
func (e *CleanupEngine) execute(ctx context.Context, session *common.Session, item models.WasteItem) error {
	clients := e.provider.ClientsForRegion(session, item.Region)

	switch item.ResourceType {
	case models.ResourceEBSVolume:
		_, err := clients.EC2.DeleteVolume(ctx, &ec2svc.DeleteVolumeInput{
			VolumeId: aws.String(item.ResourceID),
		})
		return err
	case models.ResourceEBSSnapshot:
		_, err := clients.EC2.DeleteSnapshot(ctx, &ec2svc.DeleteSnapshotInput{
			SnapshotId: aws.String(item.ResourceID),
		})
		return err
	case models.ResourceElasticIP:
		// EC2-Classic addresses have no allocation ID; the scanner records
		// their public IP instead, and release keys on that.
		in := &ec2svc.ReleaseAddressInput{}
		if strings.HasPrefix(item.ResourceID, "eipalloc-") {
			in.AllocationId = aws.String(item.ResourceID)
		} else {
			in.PublicIp = aws.String(item.ResourceID)
		}
		_, err := clients.EC2.ReleaseAddress(ctx, in)
		return err
	case models.ResourceLoadBalancer:
		_, err := clients.ELBV2.DeleteLoadBalancer(ctx, &elbv2svc.DeleteLoadBalancerInput{
			LoadBalancerArn: aws.String(item.ResourceID),
		})
		return err
	case models.ResourceNATGateway:
		_, err := clients.EC2.DeleteNatGateway(ctx, &ec2svc.DeleteNatGatewayInput{
			NatGatewayId: aws.String(item.ResourceID),
		})
		return err
	case models.ResourceStoppedInstance:
		_, err := clients.EC2.TerminateInstances(ctx, &ec2svc.TerminateInstancesInput{
			InstanceIds: []string{item.ResourceID},
		})
		return err
	case models.ResourceTargetGroup:
		_, err := clients.ELBV2.DeleteTargetGroup(ctx, &elbv2svc.DeleteTargetGroupInput{
			TargetGroupArn: aws.String(item.ResourceID),
		})
		return err
	case models.ResourceNetworkInterface:
		_, err := clients.EC2.DeleteNetworkInterface(ctx, &ec2svc.DeleteNetworkInterfaceInput{
			NetworkInterfaceId: aws.String(item.ResourceID),
		})
		return err
	case models.ResourceAMI:
		_, err := clients.EC2.DeregisterImage(ctx, &ec2svc.DeregisterImageInput{
			ImageId: aws.String(item.ResourceID),
		})
		return err
	}
	return fmt.Errorf("no cleanup action for resource type %q", item.ResourceType)
}
