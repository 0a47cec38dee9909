package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/sjson"
	"go.uber.org/dig"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
	"github.com/davidbz/creditline/internal/payment"
	"github.com/davidbz/creditline/internal/upstream"
)

const (
	maxBodyBytes    = 1 << 20
	maxWebhookBytes = 64 << 10

	headerResponseTime    = "X-Response-Time"
	headerUserRemaining   = "X-User-Remaining"
	headerCreditsConsumed = "X-Credits-Consumed"
)

// Authorizer authenticates callers and answers role questions.
type Authorizer interface {
	domain.Authenticator
	IsAdmin(id domain.Identity) bool
}

// HandlerParams are the handler's injected dependencies.
type HandlerParams struct {
	dig.In

	Auth     Authorizer
	Chat     *domain.ChatService
	Ledger   *domain.Ledger
	Payments *payment.Service `optional:"true"`
}

// Handler handles HTTP requests.
type Handler struct {
	auth     Authorizer
	chat     *domain.ChatService
	ledger   *domain.Ledger
	payments *payment.Service
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		auth:     p.Auth,
		chat:     p.Chat,
		ledger:   p.Ledger,
		payments: p.Payments,
	}
}

// authenticate resolves the caller and makes sure a balance record exists.
func (h *Handler) authenticate(r *http.Request) (context.Context, domain.Identity, error) {
	ctx := r.Context()

	id, err := h.auth.Authenticate(ctx, r.Header.Get("Authorization"))
	if err != nil {
		return ctx, domain.Identity{}, err
	}

	ctx = observability.WithUser(ctx, id.Email)

	if err := h.chat.Provision(ctx, id); err != nil {
		return ctx, domain.Identity{}, err
	}

	return ctx, id, nil
}

// HandleChat authenticates, checks the balance, forwards the conversation
// and bills the caller for what the upstream reported.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeError(ctx, w, errMethodNotAllowed, false)
		return
	}

	var req domain.ChatRequest
	decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	stream := decodeErr == nil && req.Streaming()

	ctx, id, err := h.authenticate(r)
	if err != nil {
		writeError(ctx, w, err, stream)
		return
	}

	if decodeErr != nil {
		writeError(ctx, w, domain.InvalidInput("invalid request body: %v", decodeErr), false)
		return
	}

	ctx = observability.WithSessionID(ctx, req.SessionID)

	plan, err := h.chat.Prepare(ctx, id, &req)
	if err != nil {
		writeError(ctx, w, err, stream)
		return
	}

	ctx = observability.WithModel(ctx, plan.Model)
	logger := observability.FromContext(ctx)
	logger.Info("chat request received",
		observability.Bool("stream", plan.Stream),
		observability.Int("messages", len(plan.Messages)),
		observability.Bool("first_call", req.IsFirstCall))

	resp, err := h.chat.Forward(ctx, plan)
	if err != nil {
		writeError(ctx, w, err, stream)
		return
	}
	defer resp.Body.Close()

	if plan.Stream {
		h.relayStream(ctx, w, start, plan, resp)
		return
	}

	h.respondBuffered(ctx, w, start, plan, resp)
}

func (h *Handler) relayStream(
	ctx context.Context,
	w http.ResponseWriter,
	start time.Time,
	plan *domain.ChatPlan,
	resp *domain.UpstreamResponse,
) {
	logger := observability.FromContext(ctx)

	remaining := plan.Balance
	if !plan.BalanceChecked {
		if balance, err := h.ledger.Peek(ctx, plan.User); err == nil {
			remaining = balance
		}
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set(headerResponseTime, strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	header.Set(headerUserRemaining, remaining.String())
	header.Set(headerCreditsConsumed, plan.Estimate.String())
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	// Streams are not bound by SERVER_WRITE_TIMEOUT.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Warn("could not clear write deadline", observability.Error(err))
	}
	flush := func() {
		_ = rc.Flush()
	}

	result, err := upstream.Relay(resp.Body, w, flush)
	if err != nil {
		logger.Warn("stream relay interrupted",
			observability.Int64("bytes", result.Bytes),
			observability.Bool("completed", result.Completed),
			observability.Error(err))
	}

	if !result.Completed {
		logger.Info("stream ended before completion, not billing")
		return
	}

	// The client may already be gone; billing must still happen.
	if _, err := h.chat.Settle(context.WithoutCancel(ctx), plan, result.Usage); err != nil {
		logger.Error("stream settlement failed", observability.Error(err))
	}
}

type creditsMetadata struct {
	Consumed  float64 `json:"consumed"`
	Remaining float64 `json:"remaining"`
}

type responseMetadata struct {
	ResponseTime int64           `json:"responseTime"`
	Timestamp    string          `json:"timestamp"`
	Credits      creditsMetadata `json:"credits"`
	Cost         *float64        `json:"cost,omitempty"`
}

func (h *Handler) respondBuffered(
	ctx context.Context,
	w http.ResponseWriter,
	start time.Time,
	plan *domain.ChatPlan,
	resp *domain.UpstreamResponse,
) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamTimeout) {
			writeError(ctx, w, err, false)
			return
		}
		writeError(ctx, w, fmt.Errorf("%w: reading body: %w", domain.ErrUpstream, err), false)
		return
	}

	settlement, err := h.chat.Settle(context.WithoutCancel(ctx), plan, upstream.ExtractUsage(body))
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			writeError(ctx, w, err, false)
			return
		}
		writeErrorResponse(ctx, w, http.StatusInternalServerError,
			ErrorResponse{Error: "failed to settle request", Code: CodeInternalError}, err, false)
		return
	}

	elapsed := time.Since(start).Milliseconds()
	meta := responseMetadata{
		ResponseTime: elapsed,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Credits: creditsMetadata{
			Consumed:  settlement.Consumed.InexactFloat64(),
			Remaining: settlement.Remaining.InexactFloat64(),
		},
	}
	if settlement.Cost != nil {
		cost := settlement.Cost.InexactFloat64()
		meta.Cost = &cost
	}

	if out, err := sjson.SetBytes(body, "_metadata", meta); err == nil {
		body = out
	} else {
		observability.FromContext(ctx).Warn("could not attach metadata to upstream body", observability.Error(err))
	}

	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set(headerResponseTime, strconv.FormatInt(elapsed, 10))
	header.Set(headerUserRemaining, settlement.Remaining.String())
	header.Set(headerCreditsConsumed, settlement.Consumed.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type balanceResponse struct {
	Email     string  `json:"email"`
	Remaining float64 `json:"remaining"`
}

type balanceChangeResponse struct {
	Email     string  `json:"email"`
	Previous  float64 `json:"previous"`
	Remaining float64 `json:"remaining"`
}

type debitRequest struct {
	Cost *decimal.Decimal `json:"cost"`
}

type setBalanceRequest struct {
	Remaining *decimal.Decimal `json:"remaining"`
	Email     string           `json:"email,omitempty"`
}

// HandleBalance serves GET (read), POST (debit) and PUT (admin hard-set).
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		writeError(r.Context(), w, errMethodNotAllowed, false)
		return
	}

	ctx, id, err := h.authenticate(r)
	if err != nil {
		writeError(ctx, w, err, false)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getBalance(ctx, w, id)
	case http.MethodPost:
		h.debitBalance(ctx, w, r, id)
	case http.MethodPut:
		h.setBalance(ctx, w, r, id)
	}
}

func (h *Handler) getBalance(ctx context.Context, w http.ResponseWriter, id domain.Identity) {
	remaining, err := h.ledger.Peek(ctx, id.Email)
	if err != nil {
		writeError(ctx, w, err, false)
		return
	}

	writeJSON(ctx, w, http.StatusOK, balanceResponse{Email: id.Email, Remaining: remaining.InexactFloat64()})
}

func (h *Handler) debitBalance(ctx context.Context, w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req debitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(ctx, w, domain.InvalidInput("invalid request body: %v", err), false)
		return
	}

	if req.Cost == nil || !req.Cost.IsPositive() {
		writeError(ctx, w, domain.InvalidInput("cost must be a positive number"), false)
		return
	}

	change, err := h.ledger.Debit(ctx, id.Email, *req.Cost)
	if err != nil {
		writeError(ctx, w, err, false)
		return
	}

	writeJSON(ctx, w, http.StatusOK, balanceChangeResponse{
		Email:     id.Email,
		Previous:  change.Previous.InexactFloat64(),
		Remaining: change.New.InexactFloat64(),
	})
}

func (h *Handler) setBalance(ctx context.Context, w http.ResponseWriter, r *http.Request, id domain.Identity) {
	if !h.auth.IsAdmin(id) {
		writeError(ctx, w, fmt.Errorf("%w: %s may not set balances", domain.ErrForbidden, id.Email), false)
		return
	}

	var req setBalanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(ctx, w, domain.InvalidInput("invalid request body: %v", err), false)
		return
	}

	if req.Remaining == nil {
		writeError(ctx, w, domain.InvalidInput("remaining is required"), false)
		return
	}

	target := id.Email
	if req.Email != "" {
		target = req.Email
	}

	change, err := h.ledger.Set(ctx, target, *req.Remaining)
	if err != nil {
		writeError(ctx, w, err, false)
		return
	}

	observability.FromContext(ctx).Info("balance set by admin",
		observability.String("target", target),
		observability.Stringer("remaining", change.New))

	writeJSON(ctx, w, http.StatusOK, balanceChangeResponse{
		Email:     target,
		Previous:  change.Previous.InexactFloat64(),
		Remaining: change.New.InexactFloat64(),
	})
}

type checkoutRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// HandleCheckout creates a payment checkout session for the caller.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(r.Context(), w, errMethodNotAllowed, false)
		return
	}

	ctx, id, err := h.authenticate(r)
	if err != nil {
		writeError(ctx, w, err, false)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(ctx, w, domain.InvalidInput("invalid request body: %v", err), false)
		return
	}

	if req.Amount == nil {
		writeError(ctx, w, domain.InvalidInput("amount is required"), false)
		return
	}

	checkout, err := h.payments.CreateCheckout(ctx, id.Email, *req.Amount)
	if err != nil {
		writeError(ctx, w, err, false)
		return
	}

	writeJSON(ctx, w, http.StatusOK, checkout)
}

// HandlePaymentWebhook reconciles processor events. It is authenticated by
// the event signature, not a bearer token.
func (h *Handler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeError(ctx, w, errMethodNotAllowed, false)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(ctx, w, domain.InvalidInput("failed to read body: %v", err), false)
		return
	}

	result, err := h.payments.HandleWebhook(ctx, payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(ctx, w, err, false)
		return
	}

	observability.FromContext(ctx).Info("payment webhook handled",
		observability.String("event_type", result.EventType),
		observability.Bool("credited", result.Credited),
		observability.Bool("duplicate", result.Duplicate))

	writeJSON(ctx, w, http.StatusOK, map[string]any{
		"received": true,
		"credited": result.Credited,
	})
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
