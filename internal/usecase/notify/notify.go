package notify

import (
	"context"
	"sync"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	tokenDomain "linggo_sync/internal/domain/token"
)

const (
	KindReview   = "review"
	KindDaysAway = "days_away"

	// multicastLimit is the most tokens FCM accepts in one multicast.
	multicastLimit = 500
	removeTimeout  = 10 * time.Second
)

type PushSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type SentLog interface {
	MarkSent(ctx context.Context, kind, uid, day string) (bool, error)
	Forget(ctx context.Context, kind, uid, day string) error
}

type Recipients interface {
	ReviewRecipients(ctx context.Context, now time.Time) ([]tokenDomain.Recipient, error)
	DaysAwayRecipients(ctx context.Context, now time.Time, lower, upper int) ([]tokenDomain.Recipient, error)
	RemoveTokenEverywhere(ctx context.Context, token string) error
}

type Message struct {
	Title string
	Body  string
}

type Config struct {
	Review        Message
	DaysAway      Message
	DaysAwayLower int
	DaysAwayUpper int
}

type Report struct {
	Kind        string `json:"kind"`
	Recipients  int    `json:"recipients"`
	Skipped     int    `json:"skipped"`
	Sent        int    `json:"sent"`
	Failed      int    `json:"failed"`
	StaleTokens int    `json:"staleTokens"`
}

type Dispatcher struct {
	sender     PushSender
	sentLog    SentLog
	recipients Recipients
	cfg        Config
	log        *zap.SugaredLogger
	isStale    func(error) bool

	removals sync.WaitGroup
}

// NewDispatcher builds a dispatcher. sentLog may be nil, in which case every
// run notifies every selected recipient.
func NewDispatcher(sender PushSender, sentLog SentLog, recipients Recipients, cfg Config, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		sentLog:    sentLog,
		recipients: recipients,
		cfg:        cfg,
		log:        log,
		isStale:    IsStaleToken,
	}
}

// WithStaleCheck replaces the classifier of dead-token send errors.
func (d *Dispatcher) WithStaleCheck(isStale func(error) bool) *Dispatcher {
	d.isStale = isStale
	return d
}

// IsStaleToken reports the FCM errors after which a token is useless.
func IsStaleToken(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err)
}

func (d *Dispatcher) RunReview(ctx context.Context, now time.Time) (Report, error) {
	recipients, err := d.recipients.ReviewRecipients(ctx, now)
	if err != nil {
		return Report{Kind: KindReview}, err
	}
	return d.Dispatch(ctx, KindReview, d.cfg.Review, recipients, now), nil
}

func (d *Dispatcher) RunDaysAway(ctx context.Context, now time.Time) (Report, error) {
	recipients, err := d.recipients.DaysAwayRecipients(ctx, now, d.cfg.DaysAwayLower, d.cfg.DaysAwayUpper)
	if err != nil {
		return Report{Kind: KindDaysAway}, err
	}
	return d.Dispatch(ctx, KindDaysAway, d.cfg.DaysAway, recipients, now), nil
}

// Dispatch sends msg to every recipient not yet notified today. Send failures
// are logged and counted, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, kind string, msg Message, recipients []tokenDomain.Recipient, now time.Time) Report {
	report := Report{Kind: kind, Recipients: len(recipients)}
	day := now.UTC().Format("2006-01-02")

	var tokens []string
	owners := map[string]string{}
	for _, r := range recipients {
		if d.sentLog != nil {
			first, err := d.sentLog.MarkSent(ctx, kind, r.UID, day)
			if err != nil {
				d.log.Warnf("Dispatch: sent log unavailable for %s: %v", r.UID, err)
			} else if !first {
				report.Skipped++
				continue
			}
		}
		for _, t := range r.Tokens {
			if _, dup := owners[t]; dup {
				continue
			}
			owners[t] = r.UID
			tokens = append(tokens, t)
		}
	}

	for start := 0; start < len(tokens); start += multicastLimit {
		end := min(start+multicastLimit, len(tokens))
		d.send(ctx, kind, msg, tokens[start:end], owners, day, &report)
	}

	d.log.Infof("Dispatch: %s to %d recipient(s): sent=%d failed=%d skipped=%d stale=%d",
		kind, report.Recipients, report.Sent, report.Failed, report.Skipped, report.StaleTokens)
	return report
}

func (d *Dispatcher) send(ctx context.Context, kind string, msg Message, chunk []string, owners map[string]string, day string, report *Report) {
	resp, err := d.sender.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: chunk,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: map[string]string{"type": kind},
	})
	if err != nil {
		d.log.Errorf("Dispatch: %s multicast of %d token(s) failed: %v", kind, len(chunk), err)
		report.Failed += len(chunk)
		d.forget(ctx, kind, chunk, owners, day)
		return
	}

	for i, r := range resp.Responses {
		if i >= len(chunk) {
			break
		}
		if r.Success {
			report.Sent++
			continue
		}
		report.Failed++
		if d.isStale(r.Error) {
			report.StaleTokens++
			d.removeStale(chunk[i], owners[chunk[i]])
			continue
		}
		d.log.Warnf("Dispatch: %s to %s failed: %v", kind, owners[chunk[i]], r.Error)
	}
}

// forget releases the sent log entries of a failed multicast. Nothing resends
// on its own; a manual rerun the same day may notify those users again.
func (d *Dispatcher) forget(ctx context.Context, kind string, chunk []string, owners map[string]string, day string) {
	if d.sentLog == nil {
		return
	}
	seen := map[string]bool{}
	for _, t := range chunk {
		uid := owners[t]
		if seen[uid] {
			continue
		}
		seen[uid] = true
		if err := d.sentLog.Forget(ctx, kind, uid, day); err != nil {
			d.log.Warnf("Dispatch: forget %s for %s: %v", kind, uid, err)
		}
	}
}

// removeStale drops a dead token in the background. There is no retry.
func (d *Dispatcher) removeStale(token, uid string) {
	d.removals.Add(1)
	go func() {
		defer d.removals.Done()
		ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
		defer cancel()
		if err := d.recipients.RemoveTokenEverywhere(ctx, token); err != nil {
			d.log.Errorf("Dispatch: removing stale token of %s: %v", uid, err)
			return
		}
		d.log.Infof("Dispatch: removed stale token of %s", uid)
	}()
}

// Wait blocks until every background token removal has finished.
func (d *Dispatcher) Wait() {
	d.removals.Wait()
}
