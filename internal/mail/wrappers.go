package mail

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lhclegal/lhc-backend/internal/logger"
)

// LogMailer writes messages to the log instead of sending them. Used in
// development.
type LogMailer struct {
	Log logger.Logger
}

func (l LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.Log.Info("email (not sent)",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

// Limited caps throughput with a token bucket refilled over a day.
type Limited struct {
	next    Mailer
	limiter *rate.Limiter
}

// NewLimited allows perDay messages per 24h, with the whole quota available
// as burst. perDay <= 0 disables the limit.
func NewLimited(next Mailer, perDay int) *Limited {
	if perDay <= 0 {
		return &Limited{next: next, limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	every := rate.Every(24 * time.Hour / time.Duration(perDay))
	return &Limited{next: next, limiter: rate.NewLimiter(every, perDay)}
}

func (l *Limited) Send(ctx context.Context, msg Message) error {
	if !l.limiter.Allow() {
		return ErrRateLimited
	}
	return l.next.Send(ctx, msg)
}

// Async hands messages to a goroutine and returns immediately. Failures are
// logged. Validation errors are still returned synchronously.
type Async struct {
	next    Mailer
	log     logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
	// OnResult is called after each delivery attempt, if set.
	OnResult func(err error)
}

func NewAsync(next Mailer, log logger.Logger, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{next: next, log: log, timeout: timeout}
}

func (a *Async) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		// detached from the request, which ends before delivery
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		err := a.next.Send(ctx, msg)
		if err != nil {
			a.log.Error("async email failed", "to", strings.Join(msg.To, ","), "subject", msg.Subject, "err", err)
		} else {
			a.log.Info("email sent", "to", strings.Join(msg.To, ","), "subject", msg.Subject)
		}
		if a.OnResult != nil {
			a.OnResult(err)
		}
	}()
	return nil
}

// Wait blocks until in-flight messages finish.
func (a *Async) Wait() { a.wg.Wait() }
