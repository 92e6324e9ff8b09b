package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules notification tasks. Failures are reported but callers
// treat delivery as best-effort.
type Enqueuer interface {
	OrderStatusChanged(ctx context.Context, p OrderStatusChangedPayload) error
	SellerApproved(ctx context.Context, p SellerApprovedPayload) error
}

// Client enqueues tasks on Redis through asynq.
type Client struct {
	client *asynq.Client
	appURL string
}

func NewClient(opt asynq.RedisConnOpt, appURL string) *Client {
	return &Client{client: asynq.NewClient(opt), appURL: strings.TrimRight(appURL, "/")}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) OrderStatusChanged(ctx context.Context, p OrderStatusChangedPayload) error {
	task, err := newOrderStatusTask(p)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueNotifications), asynq.MaxRetry(5))
	return err
}

func (c *Client) SellerApproved(ctx context.Context, p SellerApprovedPayload) error {
	task, err := newSellerApprovedTask(withApprovalEnvelope(p, c.appURL))
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueEmails), asynq.MaxRetry(5))
	return err
}

func newOrderStatusTask(p OrderStatusChangedPayload) (*asynq.Task, error) {
	if p.SentAt.IsZero() {
		p.SentAt = time.Now()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", TaskOrderStatusChanged, err)
	}
	return asynq.NewTask(TaskOrderStatusChanged, b), nil
}

func newSellerApprovedTask(p SellerApprovedPayload) (*asynq.Task, error) {
	if p.SentAt.IsZero() {
		p.SentAt = time.Now()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", TaskSellerApproved, err)
	}
	return asynq.NewTask(TaskSellerApproved, b), nil
}

func withApprovalEnvelope(p SellerApprovedPayload, appURL string) SellerApprovedPayload {
	if p.Envelope.To == "" {
		p.Envelope = EmailEnvelope{
			To:      p.Email,
			Subject: fmt.Sprintf("%s is now live on NearBuy", p.ShopName),
			Body: fmt.Sprintf("Good news! Your shop %s has been approved.\n\n"+
				"Sign in again to open your seller dashboard: %s/seller\n\n"+
				"- NearBuy Team", p.ShopName, appURL),
		}
	}
	return p
}

// Inline runs tasks in-process on a goroutine. It is used when no Redis is
// configured.
type Inline struct {
	proc   *Processor
	appURL string
}

func NewInline(proc *Processor, appURL string) *Inline {
	return &Inline{proc: proc, appURL: strings.TrimRight(appURL, "/")}
}

func (i *Inline) OrderStatusChanged(_ context.Context, p OrderStatusChangedPayload) error {
	task, err := newOrderStatusTask(p)
	if err != nil {
		return err
	}
	go i.run(task)
	return nil
}

func (i *Inline) SellerApproved(_ context.Context, p SellerApprovedPayload) error {
	task, err := newSellerApprovedTask(withApprovalEnvelope(p, i.appURL))
	if err != nil {
		return err
	}
	go i.run(task)
	return nil
}

func (i *Inline) run(task *asynq.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := i.proc.ProcessTask(ctx, task); err != nil {
		log.Printf("[notify][ERROR] inline %s failed: %v", task.Type(), err)
	}
}
