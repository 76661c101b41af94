package notifications

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/notify"
)

// Delivery is one notification addressed to one user.
type Delivery struct {
	UserID       string
	Notification notify.Notification
}

// Report counts the outcome of a fan-out.
type Report struct {
	Sent   int
	Failed int
}

// Fanout sends notifications concurrently and waits for all of them.
type Fanout struct {
	sender notify.Sender
	logg   *logger.Logger
}

func NewFanout(sender notify.Sender, logg *logger.Logger) (*Fanout, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Fanout{sender: sender, logg: logg}, nil
}

// SendAll delivers every notification. A failed delivery is logged and
// collected into the returned error; it never stops the others.
func (f *Fanout) SendAll(ctx context.Context, deliveries []Delivery) (Report, error) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report Report
		errs   error
	)
	for _, d := range deliveries {
		wg.Add(1)
		go func(d Delivery) {
			defer wg.Done()
			logCtx := f.logg.WithFields(ctx, map[string]any{
				"user_id":           d.UserID,
				"notification_type": d.Notification.Data["type"],
			})
			id, err := f.sender.Send(ctx, d.Notification)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				errs = multierr.Append(errs, fmt.Errorf("notify %s: %w", d.UserID, err))
				f.logg.Error(logCtx, "notification delivery failed", err)
				return
			}
			report.Sent++
			f.logg.Info(f.logg.WithField(logCtx, "message_id", id), "notification sent")
		}(d)
	}
	wg.Wait()
	return report, errs
}
