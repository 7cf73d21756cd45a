package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"

	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/store"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// pushPayload is the JSON body the service worker on the client renders.
type pushPayload struct {
	ID         string                     `json:"id"`
	Title      string                     `json:"title"`
	Body       string                     `json:"body"`
	Category   model.NotificationCategory `json:"category"`
	FacilityID int64                      `json:"facilityId"`
}

// WorkerPool is the in-process Sink. Every request is persisted, then pushed to
// the recipient's browser subscriptions when web push is configured.
type WorkerPool struct {
	size    int
	jobs    chan model.NotificationRequest
	store   store.Store
	webpush *webpush.Options
	sender  Sender
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. A nil webpushOptions disables pushes.
func NewWorkerPool(size, queueSize int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.NotificationRequest, queueSize),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned after ctx cancellation.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case n := <-wp.jobs:
			wp.deliver(ctx, n)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Enqueue hands a request to the pool without waiting for a free worker.
func (wp *WorkerPool) Enqueue(ctx context.Context, n model.NotificationRequest) error {
	select {
	case wp.jobs <- n:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
	default:
		return fmt.Errorf("%w: queue is full", ErrTransientFailure)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.NotificationRequest {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, n model.NotificationRequest) {
	if err := wp.store.SaveNotification(ctx, &n); err != nil {
		log.Printf("Error persisting notification %s: %v", n.ID, err)
	}

	if n.RecipientID == "" || wp.webpush == nil {
		return
	}

	subscriptions, err := wp.store.LoadSubscriptionsByUser(ctx, n.RecipientID)
	if err != nil {
		log.Printf("Error fetching subscriptions for user %s: %v", n.RecipientID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		ID:         n.ID,
		Title:      n.Title,
		Body:       n.Message,
		Category:   n.Category,
		FacilityID: n.TargetFacilityID,
	})
	if err != nil {
		log.Printf("Error encoding notification %s: %v", n.ID, err)
		return
	}

	log.Printf("Sending %d push notifications to user %s", len(subscriptions), n.RecipientID)
	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
