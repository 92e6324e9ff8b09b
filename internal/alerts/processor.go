package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/nearbuy/internal/metrics"
)

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n Notification) error
}

// Processor handles notification tasks.
type Processor struct {
	notifications NotificationStore
	mailer        Mailer
}

// NewProcessor builds a Processor. mailer may be nil, in which case emails
// are skipped.
func NewProcessor(notifications NotificationStore, mailer Mailer) *Processor {
	return &Processor{notifications: notifications, mailer: mailer}
}

// ProcessTask implements asynq.Handler.
func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var err error
	switch t.Type() {
	case TaskOrderStatusChanged:
		err = p.handleOrderStatusChanged(ctx, t)
	case TaskSellerApproved:
		err = p.handleSellerApproved(ctx, t)
	default:
		err = fmt.Errorf("unknown task type %q: %w", t.Type(), asynq.SkipRetry)
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.TasksProcessed.WithLabelValues(t.Type(), result).Inc()
	return err
}

// Mux routes every task type to p.
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TaskOrderStatusChanged, p)
	mux.Handle(TaskSellerApproved, p)
	return mux
}

// NewServer builds the asynq worker server.
func NewServer(opt asynq.RedisConnOpt) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueNotifications: 10,
			QueueEmails:        5,
		},
	})
}

func (p *Processor) handleOrderStatusChanged(ctx context.Context, t *asynq.Task) error {
	var pl OrderStatusChangedPayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	recipient := pl.Recipient()
	if recipient == "" {
		log.Printf("[notify] order %s: no recipient for status %s", pl.OrderID, pl.Status)
		return nil
	}

	title, body := StatusMessage(pl.Status, pl.OrderNumber)
	ref := pl.OrderID
	if err := p.notifications.Create(ctx, Notification{
		UserID:    recipient,
		Type:      TaskOrderStatusChanged,
		Title:     title,
		Body:      body,
		Reference: &ref,
	}); err != nil {
		log.Printf("[notify][ERROR] order %s notification failed: %v", pl.OrderID, err)
		return err
	}
	log.Printf("[notify] OrderStatusChanged -> order=%s status=%s to=%s", pl.OrderNumber, pl.Status, recipient)
	return nil
}

func (p *Processor) handleSellerApproved(ctx context.Context, t *asynq.Task) error {
	var pl SellerApprovedPayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	ref := pl.SellerID
	if err := p.notifications.Create(ctx, Notification{
		UserID:    pl.UserID,
		Type:      TaskSellerApproved,
		Title:     "Your shop has been approved",
		Body:      fmt.Sprintf("%s is now visible to customers. Sign in again to manage it.", pl.ShopName),
		Reference: &ref,
	}); err != nil {
		return err
	}

	if p.mailer == nil || pl.Envelope.To == "" {
		log.Printf("[notify] SellerApproved -> seller=%s (email skipped)", pl.SellerID)
		return nil
	}
	if err := p.mailer.Send(ctx, pl.Envelope.To, pl.Envelope.Subject, pl.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] SellerApproved send failed: %v", err)
		return err
	}
	log.Printf("[notify] SellerApproved sent -> to=%s seller=%s", pl.Envelope.To, pl.SellerID)
	return nil
}

// StatusMessage is the notification text for an order reaching status.
func StatusMessage(status, orderNumber string) (title, body string) {
	switch status {
	case "pending":
		return "New order received", fmt.Sprintf("Order %s is waiting for you to accept it.", orderNumber)
	case "accepted":
		return "Order accepted", fmt.Sprintf("The shop accepted order %s.", orderNumber)
	case "packed":
		return "Order packed", fmt.Sprintf("Order %s is packed and ready.", orderNumber)
	case "out_for_delivery":
		return "Out for delivery", fmt.Sprintf("Order %s is on its way.", orderNumber)
	case "delivered":
		return "Order delivered", fmt.Sprintf("Order %s was delivered. Tell others how it went by leaving a review.", orderNumber)
	case "cancelled":
		return "Order cancelled", fmt.Sprintf("Order %s was cancelled.", orderNumber)
	}
	return "Order updated", fmt.Sprintf("Order %s is now %s.", orderNumber, status)
}
