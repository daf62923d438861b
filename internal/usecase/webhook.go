package usecase

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"furnish-backend/internal/domain"
)

// WebhookEvent is the part of a gateway callback the shop acts on.
type WebhookEvent struct {
	TransactionID string
	Reference     string
	Status        string
}

func (e WebhookEvent) key() string {
	return e.TransactionID + "|" + e.Reference + "|" + strings.ToLower(e.Status)
}

type WebhookResult struct {
	Event     WebhookEvent
	Duplicate bool
	OrderID   uint
	// Applied is set when the order status changed.
	Applied bool
}

var (
	paidStatuses   = []string{"success", "successful", "succeeded", "completed", "complete", "paid", "ins-0"}
	failedStatuses = []string{"failed", "failure", "fail", "cancelled", "canceled", "rejected", "declined", "expired", "timeout", "error"}
)

type outcome int

const (
	outcomeUnknown outcome = iota
	outcomePaid
	outcomeFailed
)

func classify(status string) outcome {
	s := strings.ToLower(strings.TrimSpace(status))
	for _, v := range paidStatuses {
		if s == v {
			return outcomePaid
		}
	}
	for _, v := range failedStatuses {
		if s == v {
			return outcomeFailed
		}
	}
	return outcomeUnknown
}

// ParseWebhook extracts the event from a callback body. Gateways nest the
// interesting fields under "data" and vary the key casing, so several names
// are accepted.
func ParseWebhook(raw []byte) (WebhookEvent, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook: %w", err)
	}
	if data, ok := m["data"].(map[string]any); ok {
		for k, v := range data {
			if _, exists := m[k]; !exists {
				m[k] = v
			}
		}
	}
	ev := WebhookEvent{
		TransactionID: pick(m, "transaction_id", "transactionId", "transaction_reference", "conversation_id", "id"),
		Reference:     pick(m, "reference", "third_party_reference", "thirdPartyReference", "thirdparty_reference"),
		Status:        pick(m, "status", "transaction_status", "result", "state"),
	}
	if ev.Reference == "" && ev.TransactionID == "" {
		return ev, errors.New("webhook carries neither reference nor transaction id")
	}
	return ev, nil
}

func pick(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		case bool:
			if k == "status" || k == "result" {
				if v {
					return "success"
				}
				return "failed"
			}
		}
	}
	return ""
}

// HandleWebhook authenticates, logs, deduplicates and applies a gateway
// callback. A bad shared secret is ErrUnauthorized. A storage failure while
// applying is returned after the event is forgotten, so the gateway's retry
// is processed again. Everything else is acknowledged.
func (s *PaymentService) HandleWebhook(ctx context.Context, token string, raw []byte) (*WebhookResult, error) {
	if s.WebhookSecret != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.WebhookSecret)) != 1 {
		s.logger().Warn("e2 webhook rejected: bad token")
		return nil, ErrUnauthorized
	}
	log := s.logger()
	log.Info("e2 webhook received", "payload", truncate(string(raw), 2048))

	ev, err := ParseWebhook(raw)
	res := &WebhookResult{Event: ev}
	if err != nil {
		log.Warn("e2 webhook ignored", "err", err)
		return res, nil
	}
	key := ev.key()
	if s.Events != nil {
		seen, err := s.Events.Seen(ctx, key)
		if err != nil {
			log.Error("webhook dedupe", "err", err)
		} else if seen {
			res.Duplicate = true
			log.Info("e2 webhook duplicate", "reference", ev.Reference, "transaction_id", ev.TransactionID)
			return res, nil
		}
	}

	if err := s.applyWebhook(ctx, ev, raw, res); err != nil {
		if s.Events != nil {
			if ferr := s.Events.Forget(ctx, key); ferr != nil {
				log.Error("webhook dedupe forget", "err", ferr)
			}
		}
		log.Error("e2 webhook failed", "reference", ev.Reference, "err", err)
		return nil, fmt.Errorf("apply webhook %s: %w", ev.Reference, err)
	}
	return res, nil
}

func (s *PaymentService) applyWebhook(ctx context.Context, ev WebhookEvent, raw []byte, res *WebhookResult) error {
	log := s.logger()
	result := classify(ev.Status)
	var orderID uint
	tx, err := s.Store.TransactionByReference(ctx, ev.Reference)
	switch {
	case err == nil:
		if tx.OrderID != nil {
			orderID = *tx.OrderID
		}
		// a settled attempt keeps its status
		if tx.Status != domain.TxSucceeded {
			switch result {
			case outcomePaid:
				tx.Status = domain.TxSucceeded
			case outcomeFailed:
				tx.Status = domain.TxFailed
			}
		}
		if ev.TransactionID != "" {
			tx.GatewayTxID = ev.TransactionID
		}
		tx.GatewayDetail = truncate(string(raw), 4000)
		if err := s.Store.SaveTransaction(ctx, tx); err != nil {
			return err
		}
	case errors.Is(err, domain.ErrNotFound):
		tx = nil
	default:
		return err
	}
	// Unrecorded references are only trusted from an authenticated gateway.
	if orderID == 0 && s.WebhookSecret != "" {
		orderID, _ = domain.OrderIDFromReference(ev.Reference)
	}
	res.OrderID = orderID

	if orderID == 0 || result == outcomeUnknown || s.Orders == nil {
		log.Info("e2 webhook not applied", "reference", ev.Reference, "status", ev.Status, "order_id", orderID)
		return nil
	}
	if result == outcomeFailed {
		superseded, err := s.failureSuperseded(ctx, orderID, tx)
		if err != nil {
			return err
		}
		if superseded {
			log.Info("e2 webhook failure superseded", "reference", ev.Reference, "order_id", orderID)
			return nil
		}
	}
	applied, err := s.Orders.ApplyPayment(ctx, orderID, result == outcomePaid)
	if err != nil {
		return err
	}
	res.Applied = applied
	log.Info("e2 webhook applied", "order_id", orderID, "status", ev.Status, "changed", applied)
	return nil
}

// failureSuperseded reports whether a failed attempt must leave the order
// alone: another attempt is still open or paid, or a newer attempt has not
// itself failed.
func (s *PaymentService) failureSuperseded(ctx context.Context, orderID uint, failed *domain.PaymentTransaction) (bool, error) {
	txs, err := s.Store.TransactionsForOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, t := range txs {
		if failed != nil && t.ID == failed.ID {
			continue
		}
		switch {
		case t.Status == domain.TxSubmitted, t.Status == domain.TxSucceeded:
			return true, nil
		case failed != nil && t.ID > failed.ID && t.Status != domain.TxFailed:
			return true, nil
		}
	}
	return false, nil
}
