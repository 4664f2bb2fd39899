package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Notification templates.
const (
	TemplatePaymentApproved      = "payment_approved"
	TemplatePaymentRejected      = "payment_rejected"
	TemplateDisbursementApproved = "disbursement_approved"
	TemplateDisbursementRejected = "disbursement_rejected"
	TemplateAccountOpened        = "account_opened"
	TemplateQueryResponse        = "query_response"
)

const notificationQueue = "notification_queue"

// NotificationService queues outbound emails/notifications. It is
// fire-and-forget from the core's perspective: enqueue failures are logged
// and swallowed, never surfaced as the outcome of a financial operation.
// A nil redis client degrades to log-only delivery.
type NotificationService struct {
	redis *redis.Client
}

func NewNotificationService(redisClient *redis.Client) *NotificationService {
	return &NotificationService{redis: redisClient}
}

type Notification struct {
	Recipient string         `json:"recipient"`
	Template  string         `json:"template"`
	Data      map[string]any `json:"data,omitempty"`
	QueuedAt  time.Time      `json:"queued_at"`
}

// Notify pushes a notification onto the delivery queue. The returned error
// carries the external-failure kind; financial call sites ignore it after
// logging, since delivery never gates an operation's outcome.
func (s *NotificationService) Notify(recipient, template string, data map[string]any) error {
	n := Notification{
		Recipient: recipient,
		Template:  template,
		Data:      data,
		QueuedAt:  time.Now(),
	}

	payload, err := json.Marshal(n)
	if err != nil {
		log.Printf("[NOTIFY] Failed to marshal notification: %v", err)
		return Externalf("notification payload not serializable")
	}

	if s.redis == nil {
		log.Printf("[NOTIFY] Redis unavailable, delivering inline: %s -> %s", template, recipient)
		return nil
	}

	if err := s.redis.RPush(context.Background(), notificationQueue, string(payload)).Err(); err != nil {
		log.Printf("[NOTIFY] Failed to queue notification %s for %s: %v", template, recipient, err)
		return Externalf("notification queue unavailable")
	}
	return nil
}

// Run drains the queue until the context is cancelled. Delivery here is the
// log-backed sender; an SMTP/SMS provider slots in behind the same loop.
func (s *NotificationService) Run(ctx context.Context) {
	if s.redis == nil {
		return
	}

	log.Println("[NOTIFY] Notification worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[NOTIFY] Notification worker stopped")
			return
		default:
		}

		result, err := s.redis.BLPop(ctx, 5*time.Second, notificationQueue).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("[NOTIFY] Queue read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var n Notification
		if err := json.Unmarshal([]byte(result[1]), &n); err != nil {
			log.Printf("[NOTIFY] Dropping malformed notification: %v", err)
			continue
		}
		s.deliver(n)
	}
}

func (s *NotificationService) deliver(n Notification) {
	log.Printf("[NOTIFY] Delivered %s to %s (queued %s)", n.Template, n.Recipient, n.QueuedAt.Format(time.RFC3339))
}
