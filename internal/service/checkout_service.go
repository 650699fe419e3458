package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"stablecoin-checkout/config"
	"stablecoin-checkout/internal/core/domain"
	"stablecoin-checkout/internal/core/ports"
	"stablecoin-checkout/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Processor error marker for a shipping address the seller cannot fulfil.
const sellerConfigInvalid = "SELLER_CONFIG_INVALID"

// CheckoutServiceImpl implements ports.CheckoutService. It is the phase
// machine: all session mutation happens here, under the session's lock, and
// collaborator results are folded back in before anyone else observes them.
type CheckoutServiceImpl struct {
	requestor ports.OrderRequestor
	poller    ports.OrderStatusPoller
	oracle    ports.BalanceOracle
	signer    ports.TransactionSigner
	cfg       config.CheckoutConfig
	log       zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionState
}

// sessionState pairs a session with its settlement goroutine bookkeeping.
// st.mu is held for every read or write of the session and of subs; the
// settlement goroutine releases it around collaborator calls.
type sessionState struct {
	mu      sync.Mutex
	session *domain.CheckoutSession
	cancel  context.CancelFunc // stops the settlement goroutine
	// settling is true from Finalize until the settlement goroutine folds a
	// terminal or review outcome. It prevents a second concurrent settlement.
	settling bool
	// submitDone is closed once the wallet submission outcome has been folded
	// into the session. Close waits on it so teardown can never race the
	// "submitted" fold and discard a settlement whose money already moved.
	submitDone chan struct{}
	subs       map[int]chan ports.PhaseEvent
	nextSub    int
}

// NewCheckoutService creates a new CheckoutServiceImpl.
func NewCheckoutService(
	requestor ports.OrderRequestor,
	poller ports.OrderStatusPoller,
	oracle ports.BalanceOracle,
	signer ports.TransactionSigner,
	cfg config.CheckoutConfig,
	log zerolog.Logger,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		requestor: requestor,
		poller:    poller,
		oracle:    oracle,
		signer:    signer,
		cfg:       cfg,
		log:       log,
		sessions:  make(map[uuid.UUID]*sessionState),
	}
}

// OpenSession creates a fresh session in the details phase.
func (s *CheckoutServiceImpl) OpenSession(ctx context.Context, req ports.OpenSessionRequest) (*domain.CheckoutSession, error) {
	if req.WalletAddress == "" {
		return nil, apperror.ErrWalletNotConnected()
	}
	if req.Product.ASIN == "" {
		return nil, apperror.Validation("Product is required")
	}

	now := time.Now().UTC()
	session := &domain.CheckoutSession{
		ID:            uuid.New(),
		Phase:         domain.PhaseDetails,
		Product:       req.Product,
		WalletAddress: req.WalletAddress,
		Chain:         s.cfg.Chain,
		Currency:      s.cfg.Currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	st := &sessionState{
		session: session,
		subs:    make(map[int]chan ports.PhaseEvent),
	}

	s.mu.Lock()
	s.sessions[session.ID] = st
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("asin", req.Product.ASIN).
		Str("wallet", req.WalletAddress).
		Msg("checkout session opened")

	return session.Clone(), nil
}

// GetSession returns a copy of the session's current state.
func (s *CheckoutServiceImpl) GetSession(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	st, err := s.state(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session.Clone(), nil
}

// SubmitDetails validates and normalizes the buyer's details, requests a
// quote from the processor and moves the session to review. The session stays
// in details on any failure, so the buyer can correct and resubmit.
func (s *CheckoutServiceImpl) SubmitDetails(ctx context.Context, id uuid.UUID, req ports.DetailsRequest) (*domain.CheckoutSession, error) {
	st, err := s.state(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	session := st.session
	if session.Phase != domain.PhaseDetails {
		return nil, apperror.ErrInvalidPhase("submit details", session.Phase.String())
	}
	if req.Email == "" || !req.ShippingAddress.Complete() {
		return nil, apperror.ErrMissingFields()
	}

	email := strings.ToUpper(req.Email)
	address := req.ShippingAddress.Normalized()

	order, quote, err := s.requestor.CreateOrder(ctx, ports.CreateOrderRequest{
		Product:       session.Product,
		Email:         email,
		Address:       address,
		WalletAddress: session.WalletAddress,
		Chain:         session.Chain,
		Currency:      session.Currency,
	})
	if err != nil {
		// Entered fields survive the failed attempt.
		session.Email = email
		session.ShippingAddress = address
		session.UpdatedAt = time.Now().UTC()
		if strings.Contains(err.Error(), sellerConfigInvalid) {
			return nil, apperror.ErrAddressRejected()
		}
		return nil, err
	}

	session.Email = email
	session.ShippingAddress = address
	session.Order = order
	session.Quote = quote
	session.Phase = domain.PhaseReview
	session.UpdatedAt = time.Now().UTC()

	// Best effort: the review screen wants a balance next to the quote, but a
	// failed refresh must not undo the quote we just got.
	if snap, refreshErr := s.oracle.Refresh(ctx, session.WalletAddress); refreshErr != nil {
		s.log.Warn().Err(refreshErr).Str("session_id", id.String()).Msg("balance refresh after quote failed")
	} else {
		session.Balance = snap
	}

	s.emit(st)
	return session.Clone(), nil
}

// RefreshBalance replaces the session's balance snapshot. The phase never
// changes; a buyer can refresh as often as they like.
func (s *CheckoutServiceImpl) RefreshBalance(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	st, err := s.state(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	wallet := st.session.WalletAddress
	st.mu.Unlock()

	snap, err := s.oracle.Refresh(ctx, wallet)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.session.Balance = snap
	st.session.UpdatedAt = time.Now().UTC()
	return st.session.Clone(), nil
}

// Finalize gates the settlement: the order must be prepared, the quote fresh
// and the raw balance sufficient. All three hold before anything is handed to
// the wallet; the session then moves to signing and the settlement goroutine
// takes over.
func (s *CheckoutServiceImpl) Finalize(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	st, err := s.state(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	session := st.session
	if session.Phase != domain.PhaseReview {
		return nil, apperror.ErrInvalidPhase("finalize", session.Phase.String())
	}
	if st.settling {
		return nil, apperror.ErrInvalidPhase("finalize", session.Phase.String())
	}
	if !session.Order.Prepared() {
		return nil, apperror.ErrOrderNotPrepared()
	}
	if session.Quote == nil || session.Quote.Expired(time.Now()) {
		return nil, apperror.ErrQuoteExpired()
	}

	if session.Balance == nil {
		snap, snapErr := s.oracle.Snapshot(ctx, session.WalletAddress)
		if snapErr != nil {
			return nil, snapErr
		}
		session.Balance = snap
	}
	if err := s.checkFunds(session); err != nil {
		return nil, err
	}

	session.Phase = domain.PhaseSigning
	session.LastError = ""
	session.UpdatedAt = time.Now().UTC()
	st.settling = true
	st.submitDone = make(chan struct{})

	settleCtx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	go s.settle(settleCtx, st, session.Order.Payment.Preparation.SerializedTransaction, session.Order.OrderID)

	s.emit(st)
	return session.Clone(), nil
}

// checkFunds compares raw integers only: the quote's decimal amount is
// shifted by the processor-reported decimals and must land on a whole number.
// An exactly-equal balance passes.
func (s *CheckoutServiceImpl) checkFunds(session *domain.CheckoutSession) error {
	token := session.Balance.Token(session.Currency)
	if token == nil {
		return apperror.ErrInsufficientFunds(session.Currency)
	}

	need, err := session.Quote.RawTotal(token.Decimals)
	if err != nil {
		return apperror.InternalError(err)
	}

	covered, err := session.Balance.Covers(session.Currency, session.Chain, need)
	if err != nil {
		return apperror.InternalError(err)
	}
	if !covered {
		return apperror.ErrInsufficientFunds(session.Currency)
	}
	return nil
}

// Back returns the session to details. Order and quote are discarded — a new
// quote is required after any change — but the entered shipping fields stay.
func (s *CheckoutServiceImpl) Back(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	st, err := s.state(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	session := st.session
	if session.Phase != domain.PhaseReview && session.Phase != domain.PhaseError {
		return nil, apperror.ErrInvalidPhase("go back", session.Phase.String())
	}

	session.Phase = domain.PhaseDetails
	session.Order = nil
	session.Quote = nil
	session.Receipt = nil
	session.LastError = ""
	session.UpdatedAt = time.Now().UTC()

	s.emit(st)
	return session.Clone(), nil
}

// CloseSession tears the session down and stops any settlement goroutine. It
// is refused while a submitted transaction awaits its first terminal poll
// result: money has left the wallet and the outcome must be observed.
func (s *CheckoutServiceImpl) CloseSession(ctx context.Context, id uuid.UUID) error {
	st, err := s.state(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	if st.session.ConfirmationPending {
		st.mu.Unlock()
		return apperror.ErrConfirmationOutstanding()
	}

	// A settlement in flight: cancel it and wait for the submission outcome
	// to be folded in. Cancellation can race the wallet confirming — if the
	// folded outcome is "submitted", money has left the wallet and the close
	// must be refused until a terminal poll result.
	if st.settling && st.submitDone != nil {
		cancel, done := st.cancel, st.submitDone
		st.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		<-done
		st.mu.Lock()
		if st.session.ConfirmationPending {
			st.mu.Unlock()
			return apperror.ErrConfirmationOutstanding()
		}
	}

	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	for key, ch := range st.subs {
		close(ch)
		delete(st.subs, key)
	}
	st.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.log.Info().Str("session_id", id.String()).Msg("checkout session closed")
	return nil
}

// Subscribe streams the session's phase changes. Slow consumers lose events
// rather than stall the phase machine.
func (s *CheckoutServiceImpl) Subscribe(id uuid.UUID) (<-chan ports.PhaseEvent, func(), error) {
	st, err := s.state(id)
	if err != nil {
		return nil, nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	key := st.nextSub
	st.nextSub++
	ch := make(chan ports.PhaseEvent, 8)
	st.subs[key] = ch

	unsubscribe := func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		if sub, ok := st.subs[key]; ok {
			close(sub)
			delete(st.subs, key)
		}
	}
	return ch, unsubscribe, nil
}

// settle drives one settlement attempt: wallet submission, then status
// polling. It owns the signing and processing phases until a terminal or
// review outcome is folded in.
func (s *CheckoutServiceImpl) settle(ctx context.Context, st *sessionState, serializedTx, orderID string) {
	result, err := s.signer.Submit(ctx, serializedTx)
	if err != nil {
		// Context cancelled: the session is being torn down.
		s.finishSettle(st, func(session *domain.CheckoutSession) {})
		return
	}

	switch result.Status {
	case ports.SubmitDeclined:
		// Not an error: back to review, same order and quote.
		s.finishSettle(st, func(session *domain.CheckoutSession) {
			session.Phase = domain.PhaseReview
		})
		return

	case ports.SubmitFailed:
		s.finishSettle(st, func(session *domain.CheckoutSession) {
			session.Phase = domain.PhaseError
			session.LastError = result.Reason
		})
		return
	}

	// Submitted: from here until a terminal poll result the session must not
	// be closed. The poll loop runs on a fresh context so a close that
	// cancelled the submission context cannot kill the confirmation watch.
	pollCtx, pollCancel := context.WithCancel(context.Background())

	st.mu.Lock()
	if st.cancel != nil {
		st.cancel()
	}
	st.cancel = pollCancel
	st.session.Receipt = &domain.SettlementReceipt{
		TransactionHash: result.TransactionHash,
		Chain:           st.session.Chain,
		SubmittedAt:     time.Now().UTC(),
	}
	st.session.ConfirmationPending = true
	st.session.Phase = domain.PhaseProcessing
	st.session.UpdatedAt = time.Now().UTC()
	if st.submitDone != nil {
		close(st.submitDone)
		st.submitDone = nil
	}
	s.emit(st)
	st.mu.Unlock()

	s.log.Info().
		Str("order_id", orderID).
		Str("tx_hash", result.TransactionHash).
		Msg("settlement submitted, polling order status")

	s.pollLoop(pollCtx, st, orderID)
}

// pollLoop polls the order at a fixed interval until a terminal result. Polls
// run synchronously inside the loop, so at most one is in flight; a poll that
// outlasts the interval delays the next tick instead of stacking.
func (s *CheckoutServiceImpl) pollLoop(ctx context.Context, st *sessionState, orderID string) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		phase, err := s.poller.PollOrder(ctx, orderID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient: confirmation stays outstanding, keep polling.
			s.log.Warn().Err(err).Str("order_id", orderID).Msg("order status poll failed")
			continue
		}

		switch phase {
		case domain.SettlementCompleted:
			s.finishSettle(st, func(session *domain.CheckoutSession) {
				session.ConfirmationPending = false
				session.Phase = domain.PhaseSuccess
			})
			return
		case domain.SettlementFailed:
			s.finishSettle(st, func(session *domain.CheckoutSession) {
				session.ConfirmationPending = false
				session.Phase = domain.PhaseError
				session.LastError = "Order failed during processing"
			})
			return
		}
	}
}

// finishSettle folds a settlement outcome into the session and releases the
// settling flag.
func (s *CheckoutServiceImpl) finishSettle(st *sessionState, fold func(*domain.CheckoutSession)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fold(st.session)
	st.session.UpdatedAt = time.Now().UTC()
	st.settling = false
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	if st.submitDone != nil {
		close(st.submitDone)
		st.submitDone = nil
	}
	s.emit(st)
}

func (s *CheckoutServiceImpl) state(id uuid.UUID) (*sessionState, error) {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.ErrSessionNotFound()
	}
	return st, nil
}

// emit sends the current phase to every subscriber. Callers hold st.mu.
func (s *CheckoutServiceImpl) emit(st *sessionState) {
	event := ports.PhaseEvent{
		SessionID: st.session.ID,
		Phase:     st.session.Phase,
		Error:     st.session.LastError,
	}
	for _, ch := range st.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
