package services

import (
	"context"
	"time"

	awspkg "github.com/Bharatkumawat03/pedalWB-sub001/pkg/aws"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	"go.uber.org/zap"
)

// MergeFailurePolicy decides what happens to guest items the account cart
// refused during a merge.
type MergeFailurePolicy int

const (
	// DropFailedItems logs failed items and clears the whole guest cart.
	DropFailedItems MergeFailurePolicy = iota
	// KeepFailedItems writes failed items back to the guest cart so the next
	// login retries them.
	KeepFailedItems
)

// MergeFailure is one guest item the account cart did not accept.
type MergeFailure struct {
	Item models.CartLineItem
	Err  error
}

// MergeReport is the outcome of one Merge. Cart is the authoritative account
// cart afterwards.
type MergeReport struct {
	Cart     *models.CartState
	Merged   int
	Failures []MergeFailure
	Duration time.Duration
}

type Reconciler struct {
	logger    *zap.Logger
	publisher EventPublisher
	metrics   MetricsRecorder
	policy    MergeFailurePolicy
}

// NewReconciler builds a Reconciler. publisher and metrics may be nil.
func NewReconciler(logger *zap.Logger, publisher EventPublisher, metrics MetricsRecorder, policy MergeFailurePolicy) *Reconciler {
	return &Reconciler{
		logger:    logger,
		publisher: publisher,
		metrics:   metrics,
		policy:    policy,
	}
}

// Merge folds the guest cart into the account cart of userID.
//
// Items are merged one at a time in guest order. A product already in the
// account cart has its quantities summed, anything else is added. A failing
// item does not stop the others. Once every item was attempted the guest cart
// is cleared and the account cart re-fetched.
//
// If the account cart cannot be read up front nothing is changed and the
// guest cart is kept. If ctx is cancelled mid-merge, items not yet attempted
// are written back to the guest cart.
func (r *Reconciler) Merge(ctx context.Context, guest GuestCart, account AccountCart, userID string) (*MergeReport, error) {
	start := time.Now()
	log := r.logger.With(zap.String("user_id", userID), zap.String("guest_id", guest.GuestID()))

	items := guest.Load(ctx)
	if len(items) == 0 {
		cart, err := account.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		return &MergeReport{Cart: cart, Duration: time.Since(start)}, nil
	}

	cart, err := account.Fetch(ctx)
	if err != nil {
		log.Warn("merge aborted, account cart unavailable", zap.Error(err))
		return nil, err
	}

	report := &MergeReport{}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			guest.Save(context.WithoutCancel(ctx), append(failedItems(report.Failures), items[i:]...))
			log.Warn("merge interrupted", zap.Int("remaining", len(items)-i), zap.Error(err))
			return nil, err
		}

		next, err := mergeItem(ctx, account, cart, item)
		if err != nil {
			log.Warn("guest cart item not merged",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
			report.Failures = append(report.Failures, MergeFailure{Item: item, Err: err})
			continue
		}
		cart = next
		report.Merged++
	}

	if r.policy == KeepFailedItems && len(report.Failures) > 0 {
		guest.Save(ctx, failedItems(report.Failures))
	} else {
		guest.Clear(ctx)
	}

	if final, err := account.Fetch(ctx); err != nil {
		log.Warn("re-fetch after merge failed, using last mutation result", zap.Error(err))
	} else {
		cart = final
	}
	report.Cart = cart
	report.Duration = time.Since(start)

	log.Info("guest cart merged",
		zap.Int("merged", report.Merged),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("duration", report.Duration),
	)
	r.publish(ctx, log, guest.GuestID(), userID, report)
	r.record(ctx, log, report)
	return report, nil
}

func mergeItem(ctx context.Context, account AccountCart, cart *models.CartState, item models.CartLineItem) (*models.CartState, error) {
	if idx := models.FindByProduct(cart.Items, item.ProductID); idx >= 0 {
		existing := cart.Items[idx]
		return account.UpdateQuantity(ctx, existing.CartItemID, existing.Quantity+item.Quantity)
	}
	return account.Add(ctx, item.ProductID, item.Quantity)
}

func failedItems(failures []MergeFailure) []models.CartLineItem {
	items := make([]models.CartLineItem, 0, len(failures))
	for _, f := range failures {
		items = append(items, f.Item)
	}
	return items
}

func (r *Reconciler) publish(ctx context.Context, log *zap.Logger, guestID, userID string, report *MergeReport) {
	if r.publisher == nil {
		return
	}
	event := models.CartMergedEvent{
		Event:       models.EventCartMerged,
		UserID:      userID,
		GuestID:     guestID,
		MergedItems: report.Merged,
		FailedItems: len(report.Failures),
		ItemCount:   report.Cart.ItemCount,
		Timestamp:   time.Now().UTC(),
	}
	if err := r.publisher.PublishCartMerged(ctx, event); err != nil {
		log.Warn("failed to publish cart merged event", zap.Error(err))
	}
}

func (r *Reconciler) record(ctx context.Context, log *zap.Logger, report *MergeReport) {
	if r.metrics == nil {
		return
	}
	dims := map[string]string{"Service": "cart-service"}
	if err := r.metrics.RecordCount(ctx, awspkg.MetricCartMerges, dims); err != nil {
		log.Debug("metric not recorded", zap.String("metric", awspkg.MetricCartMerges), zap.Error(err))
	}
	if err := r.metrics.RecordValue(ctx, awspkg.MetricCartMergeItemFailures, float64(len(report.Failures)), dims); err != nil {
		log.Debug("metric not recorded", zap.String("metric", awspkg.MetricCartMergeItemFailures), zap.Error(err))
	}
	if err := r.metrics.RecordLatency(ctx, awspkg.MetricCartMergeLatency, report.Duration, dims); err != nil {
		log.Debug("metric not recorded", zap.String("metric", awspkg.MetricCartMergeLatency), zap.Error(err))
	}
}
