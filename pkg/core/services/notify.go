package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/matchflow"
	"github.com/jakechorley/support-match/pkg/db"
	"github.com/jakechorley/support-match/pkg/metrics"
)

// EmailSender sends one plain-text email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Email is a rendered notification
type Email struct {
	To      string
	Subject string
	Body    string
}

// EmailNotifier turns transition notices into emails to the people involved.
// Send failures are logged and counted, never returned.
type EmailNotifier struct {
	store   db.ProfileStore
	sender  EmailSender
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewEmailNotifier(store db.ProfileStore, sender EmailSender, m *metrics.Metrics, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{store: store, sender: sender, metrics: m, logger: logger}
}

// Notify sends the emails for every notice in order
func (n *EmailNotifier) Notify(ctx context.Context, notices []matchflow.Notice) {
	for _, notice := range notices {
		emails, err := n.Render(ctx, notice)
		if err != nil {
			n.logger.Error("Failed to prepare notification",
				zap.String("kind", string(notice.Kind)),
				zap.String("request_id", notice.RequestID),
				zap.Error(err))
			n.metrics.ObserveEmail(string(notice.Kind), "error")
			continue
		}

		for _, email := range emails {
			if email.To == "" {
				n.metrics.ObserveEmail(string(notice.Kind), "skipped")
				continue
			}
			if err := n.sender.SendEmail(ctx, email.To, email.Subject, email.Body); err != nil {
				n.logger.Error("Failed to send notification",
					zap.String("kind", string(notice.Kind)),
					zap.String("to", email.To),
					zap.Error(err))
				n.metrics.ObserveEmail(string(notice.Kind), "error")
				continue
			}
			n.metrics.ObserveEmail(string(notice.Kind), "ok")
			n.logger.Debug("Notification sent",
				zap.String("kind", string(notice.Kind)),
				zap.String("to", email.To))
		}
	}
}

// Render builds the emails for one notice. People who no longer exist are skipped.
func (n *EmailNotifier) Render(ctx context.Context, notice matchflow.Notice) ([]Email, error) {
	requesterName, requesterEmail, err := n.requester(ctx, notice.RequesterID)
	if err != nil {
		return nil, err
	}
	volunteerName, volunteerEmail, err := n.volunteer(ctx, notice.VolunteerID)
	if err != nil {
		return nil, err
	}

	switch notice.Kind {
	case matchflow.NoticeAwaitingAdmin:
		admins, err := n.store.ListAdmins(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list admins: %w", err)
		}
		emails := make([]Email, 0, len(admins))
		for _, admin := range admins {
			emails = append(emails, Email{
				To:      admin.Email,
				Subject: "בקשה ממתינה לאישור",
				Body: fmt.Sprintf("שלום %s,\n\nהבקשה של %s להתאמה עם %s ממתינה לאישורך.\nמזהה בקשה: %s\n",
					admin.FullName, requesterName, volunteerName, notice.RequestID),
			})
		}
		return emails, nil

	case matchflow.NoticeMatchConfirmed:
		return []Email{
			{
				To:      requesterEmail,
				Subject: "נמצאה עבורך התאמה",
				Body: fmt.Sprintf("שלום %s,\n\nשמחים לעדכן שהותאם לך מתנדב/ת: %s.\nניצור איתך קשר בקרוב לתיאום המפגש הראשון.\n",
					requesterName, volunteerName),
			},
			{
				To:      volunteerEmail,
				Subject: "התאמה חדשה אושרה",
				Body: fmt.Sprintf("שלום %s,\n\nאושרה התאמה בינך לבין %s.\nתודה על ההתנדבות!\n",
					volunteerName, requesterName),
			},
		}, nil

	case matchflow.NoticeRequestDeclined:
		return []Email{{
			To:      requesterEmail,
			Subject: "עדכון לגבי הבקשה שלך",
			Body: fmt.Sprintf("שלום %s,\n\nהמתנדב/ת שבחרת אינו/ה זמין/ה כרגע. הבקשה שלך חזרה לרשימה ונמשיך לחפש עבורך התאמה.\n",
				requesterName),
		}}, nil

	case matchflow.NoticeMatchCancelled:
		emails := []Email{{
			To:      requesterEmail,
			Subject: "ההתאמה בוטלה",
			Body: fmt.Sprintf("שלום %s,\n\nההתאמה שלך בוטלה. הבקשה שלך פתוחה שוב ונמשיך לחפש עבורך התאמה.\n",
				requesterName),
		}}
		if volunteerEmail != "" {
			emails = append(emails, Email{
				To:      volunteerEmail,
				Subject: "ההתאמה בוטלה",
				Body:    fmt.Sprintf("שלום %s,\n\nההתאמה שלך עם %s בוטלה.\n", volunteerName, requesterName),
			})
		}
		return emails, nil
	}

	return nil, fmt.Errorf("unknown notice kind %q", notice.Kind)
}

func (n *EmailNotifier) requester(ctx context.Context, id string) (name, email string, err error) {
	if id == "" {
		return "", "", nil
	}
	r, err := n.store.GetRequester(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load requester %s: %w", id, err)
	}
	return r.FullName, r.Email, nil
}

func (n *EmailNotifier) volunteer(ctx context.Context, id string) (name, email string, err error) {
	if id == "" {
		return "", "", nil
	}
	v, err := n.store.GetVolunteer(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load volunteer %s: %w", id, err)
	}
	return v.FullName, v.Email, nil
}

const (
	DefaultNotifyQueue   = 64
	DefaultNotifyTimeout = 2 * time.Minute
)

// AsyncNotifier hands notices to a background worker so callers never wait on email.
// Notices that do not fit in the queue are dropped with a warning.
type AsyncNotifier struct {
	next    Notifier
	logger  *zap.Logger
	timeout time.Duration

	queue chan []matchflow.Notice
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewAsyncNotifier(next Notifier, logger *zap.Logger, queueSize int) *AsyncNotifier {
	if queueSize <= 0 {
		queueSize = DefaultNotifyQueue
	}
	return &AsyncNotifier{
		next:    next,
		logger:  logger,
		timeout: DefaultNotifyTimeout,
		queue:   make(chan []matchflow.Notice, queueSize),
	}
}

// Start runs the worker until Close
func (a *AsyncNotifier) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for notices := range a.queue {
			ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			a.next.Notify(ctx, notices)
			cancel()
		}
	}()
}

// Notify queues the notices. ctx is not used for delivery; the caller's request may end first.
func (a *AsyncNotifier) Notify(_ context.Context, notices []matchflow.Notice) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		a.logger.Warn("Notifier closed, dropping notices", zap.Int("count", len(notices)))
		return
	}

	select {
	case a.queue <- notices:
	default:
		a.logger.Warn("Notification queue full, dropping notices", zap.Int("count", len(notices)))
	}
}

// Close stops accepting notices and waits for queued ones to be sent
func (a *AsyncNotifier) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
}
