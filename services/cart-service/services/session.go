package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
	"go.uber.org/zap"
)

type SessionOptions struct {
	Guest      GuestCart
	Reconciler *Reconciler
	// Guard is optional. Without it mutations are only serialized within
	// this session, not across sessions of the same visitor.
	Guard  InFlightGuard
	Logger *zap.Logger
}

// CartSession is the cart of one storefront visitor. It starts on the guest
// cart and switches to the account cart on Login or Resume.
//
// All operations go through one dispatch lock, so mutations are applied in
// the order they were issued. State may be read at any time.
type CartSession struct {
	guest      GuestCart
	reconciler *Reconciler
	guard      InFlightGuard
	logger     *zap.Logger

	dispatch sync.Mutex

	mu      sync.RWMutex
	state   *models.CartState
	account AccountCart
	userID  string

	closed atomic.Bool
}

// NewCartSession opens a session on the visitor's guest cart.
func NewCartSession(ctx context.Context, opts SessionOptions) *CartSession {
	return &CartSession{
		guest:      opts.Guest,
		reconciler: opts.Reconciler,
		guard:      opts.Guard,
		logger:     opts.Logger.With(zap.String("guest_id", opts.Guest.GuestID())),
		state:      NewCartState(opts.Guest.Load(ctx), models.PhaseGuest),
	}
}

// Close ends the session. Operations still in flight finish but their results
// are discarded.
func (s *CartSession) Close() {
	s.closed.Store(true)
}

// State returns a snapshot of the current cart.
func (s *CartSession) State() *models.CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.state)
}

func (s *CartSession) Phase() models.SessionPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Phase
}

func (s *CartSession) Add(ctx context.Context, item models.CartLineItem) (*models.CartState, error) {
	if item.ProductID == "" {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidInput, "product id is required")
	}
	if item.Quantity < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidQuantity, "got %d", item.Quantity)
	}
	if item.Price.IsNegative() {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidInput, "price must not be negative")
	}
	item.CartItemID = ""

	return s.run(ctx, item.ProductID,
		func(items []models.CartLineItem) ([]models.CartLineItem, error) {
			if idx := models.FindByProduct(items, item.ProductID); idx >= 0 {
				items[idx].Quantity += item.Quantity
				return items, nil
			}
			return append(items, item), nil
		},
		func(ctx context.Context, account AccountCart, _ *models.CartState) (*models.CartState, error) {
			return account.Add(ctx, item.ProductID, item.Quantity)
		},
	)
}

// UpdateQuantity sets the quantity of productID. Zero is not a removal.
func (s *CartSession) UpdateQuantity(ctx context.Context, productID string, quantity int) (*models.CartState, error) {
	if productID == "" {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidInput, "product id is required")
	}
	if quantity < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidQuantity, "got %d", quantity)
	}

	return s.run(ctx, productID,
		func(items []models.CartLineItem) ([]models.CartLineItem, error) {
			idx := models.FindByProduct(items, productID)
			if idx < 0 {
				return nil, apperrors.WithMessage(apperrors.ErrItemNotInCart, "product %s", productID)
			}
			items[idx].Quantity = quantity
			return items, nil
		},
		func(ctx context.Context, account AccountCart, current *models.CartState) (*models.CartState, error) {
			id, err := cartItemID(current, productID)
			if err != nil {
				return nil, err
			}
			return account.UpdateQuantity(ctx, id, quantity)
		},
	)
}

func (s *CartSession) Remove(ctx context.Context, productID string) (*models.CartState, error) {
	if productID == "" {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidInput, "product id is required")
	}

	return s.run(ctx, productID,
		func(items []models.CartLineItem) ([]models.CartLineItem, error) {
			idx := models.FindByProduct(items, productID)
			if idx < 0 {
				return nil, apperrors.WithMessage(apperrors.ErrItemNotInCart, "product %s", productID)
			}
			return append(items[:idx], items[idx+1:]...), nil
		},
		func(ctx context.Context, account AccountCart, current *models.CartState) (*models.CartState, error) {
			id, err := cartItemID(current, productID)
			if err != nil {
				return nil, err
			}
			return account.Remove(ctx, id)
		},
	)
}

func (s *CartSession) Clear(ctx context.Context) (*models.CartState, error) {
	return s.run(ctx, "",
		func([]models.CartLineItem) ([]models.CartLineItem, error) {
			return nil, nil
		},
		func(ctx context.Context, account AccountCart, _ *models.CartState) (*models.CartState, error) {
			return account.Clear(ctx)
		},
	)
}

// Refresh re-reads the cart from wherever the current phase keeps it.
func (s *CartSession) Refresh(ctx context.Context) (*models.CartState, error) {
	if s.closed.Load() {
		return nil, apperrors.ErrSessionClosed
	}
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	account, _ := s.current()
	if account == nil {
		return s.commit(NewCartState(s.guest.Load(ctx), models.PhaseGuest))
	}
	return s.remote(ctx, account.Fetch)
}

// Login merges the guest cart into account and switches the session to it.
// If the merge cannot start the session stays on the guest cart.
func (s *CartSession) Login(ctx context.Context, account AccountCart, userID string) (*MergeReport, error) {
	if s.closed.Load() {
		return nil, apperrors.ErrSessionClosed
	}
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.update(func(st *models.CartState) {
		st.Phase = models.PhaseMerging
		st.Loading = true
		st.Error = ""
	})

	report, err := s.merge(ctx, account, userID)
	if s.closed.Load() {
		return nil, apperrors.ErrSessionClosed
	}
	if err != nil {
		s.logger.Warn("login merge failed, staying on guest cart", zap.String("user_id", userID), zap.Error(err))
		state := NewCartState(s.guest.Load(ctx), models.PhaseGuest)
		state.Error = apperrors.From(err).Message
		s.mu.Lock()
		s.account = nil
		s.userID = ""
		s.state = state
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.account = account
	s.userID = userID
	s.state = authenticated(report.Cart)
	s.mu.Unlock()
	return report, nil
}

// merge runs the reconciler while holding the guest lock, so guest writes
// from other requests land either before the merge reads the cart or after it
// is cleared.
func (s *CartSession) merge(ctx context.Context, account AccountCart, userID string) (*MergeReport, error) {
	unlock, err := s.lockGuest(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.reconciler.Merge(ctx, s.guest, account, userID)
}

// Resume switches to the account cart of an already signed-in user without
// merging.
func (s *CartSession) Resume(ctx context.Context, account AccountCart, userID string) (*models.CartState, error) {
	if s.closed.Load() {
		return nil, apperrors.ErrSessionClosed
	}
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	s.account = account
	s.userID = userID
	s.mu.Unlock()
	return s.remote(ctx, account.Fetch)
}

// Logout drops the account cart and goes back to whatever the guest cart
// holds.
func (s *CartSession) Logout(ctx context.Context) *models.CartState {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	state := NewCartState(s.guest.Load(ctx), models.PhaseGuest)
	s.mu.Lock()
	s.account = nil
	s.userID = ""
	s.state = state
	s.mu.Unlock()
	return snapshot(state)
}

type guestOp func(items []models.CartLineItem) ([]models.CartLineItem, error)

type accountOp func(ctx context.Context, account AccountCart, current *models.CartState) (*models.CartState, error)

// run applies one mutation to the cart of the current phase.
func (s *CartSession) run(ctx context.Context, productID string, onGuest guestOp, onAccount accountOp) (*models.CartState, error) {
	if s.closed.Load() {
		return nil, apperrors.ErrSessionClosed
	}

	if s.guard != nil && productID != "" {
		release, err := s.guard.Acquire(ctx, s.ownerKey()+":"+productID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	account, current := s.current()
	if account == nil {
		// Other sessions of this visitor write the same document, so the
		// mutation is applied to a fresh read under the visitor's lock.
		unlock, err := s.lockGuest(ctx)
		if err != nil {
			s.fail(err)
			return nil, err
		}
		defer unlock()

		items, err := onGuest(s.guest.Load(ctx))
		if err != nil {
			s.fail(err)
			return nil, err
		}
		if len(items) == 0 {
			s.guest.Clear(ctx)
		} else {
			s.guest.Save(ctx, items)
		}
		return s.commit(NewCartState(items, models.PhaseGuest))
	}

	return s.remote(ctx, func(ctx context.Context) (*models.CartState, error) {
		return onAccount(ctx, account, current)
	})
}

// remote runs a network call against the account cart, marking the state as
// loading meanwhile. Callers hold the dispatch lock.
func (s *CartSession) remote(ctx context.Context, call func(context.Context) (*models.CartState, error)) (*models.CartState, error) {
	s.update(func(st *models.CartState) { st.Loading = true })

	next, err := call(ctx)
	if s.closed.Load() {
		return nil, apperrors.ErrSessionClosed
	}
	if err != nil {
		s.fail(err)
		return nil, err
	}
	return s.commit(authenticated(next))
}

func (s *CartSession) current() (AccountCart, *models.CartState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account, snapshot(s.state)
}

func (s *CartSession) ownerKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account != nil {
		return "user:" + s.userID
	}
	return "guest:" + s.guest.GuestID()
}

func (s *CartSession) lockGuest(ctx context.Context) (func(), error) {
	if s.guard == nil {
		return func() {}, nil
	}
	return s.guard.Lock(ctx, "guest:"+s.guest.GuestID())
}

func (s *CartSession) commit(state *models.CartState) (*models.CartState, error) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return snapshot(state), nil
}

func (s *CartSession) update(fn func(st *models.CartState)) {
	s.mu.Lock()
	fn(s.state)
	s.mu.Unlock()
}

func (s *CartSession) fail(err error) {
	s.update(func(st *models.CartState) {
		st.Loading = false
		st.Error = apperrors.From(err).Message
	})
}

func cartItemID(cart *models.CartState, productID string) (string, error) {
	idx := models.FindByProduct(cart.Items, productID)
	if idx < 0 {
		return "", apperrors.WithMessage(apperrors.ErrItemNotInCart, "product %s", productID)
	}
	return cart.Items[idx].CartItemID, nil
}

func authenticated(cart *models.CartState) *models.CartState {
	out := snapshot(cart)
	out.Phase = models.PhaseAuthenticated
	out.Loading = false
	out.Error = ""
	return out
}

func snapshot(state *models.CartState) *models.CartState {
	out := *state
	out.Items = models.CloneItems(state.Items)
	return &out
}
