package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gracepointe/growthtrack-backend/internal/clients/twilio"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
)

// =========================
// Post-commit notifier
// =========================

const (
	NotifyWelcome        = "welcome"
	NotifyMilestoneDone  = "milestone_completed"
	NotifyAttendanceGoal = "attendance_goal"
)

// SMSGateway is the slice of the Twilio client the notifier needs.
type SMSGateway interface {
	SendSMS(ctx context.Context, to string, body string) (*twilio.Message, error)
}

// Notification is queued inside a write transaction and dispatched only after
// the transaction commits, so messaging never holds or fails a store write.
type Notification struct {
	Kind      string
	Recipient string
	Body      string
	PersonID  uuid.UUID
}

type Notifier interface {
	// Dispatch hands the notifications to a background sender and returns
	// immediately; the committed write never waits on the gateway. Failures
	// are logged and swallowed.
	Dispatch(ctx context.Context, notes []Notification)
	// Flush blocks until every dispatched batch has been sent. Called on
	// shutdown, and by tests before asserting on the gateway.
	Flush()
}

type smsNotifier struct {
	log     *logger.Logger
	gateway SMSGateway
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotifier(log *logger.Logger, gateway SMSGateway) Notifier {
	return &smsNotifier{
		log:     log.With("service", "Notifier"),
		gateway: gateway,
		timeout: 30 * time.Second,
	}
}

func (n *smsNotifier) Dispatch(ctx context.Context, notes []Notification) {
	if n == nil || len(notes) == 0 {
		return
	}
	if n.gateway == nil {
		n.log.Debug("No SMS gateway configured, dropping notifications", "count", len(notes))
		return
	}
	// detach from the request before the handler returns
	base := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(base, notes)
	}()
}

func (n *smsNotifier) Flush() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *smsNotifier) deliver(ctx context.Context, notes []Notification) {
	for _, note := range notes {
		if note.Recipient == "" || note.Body == "" {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		_, err := n.gateway.SendSMS(sendCtx, note.Recipient, note.Body)
		cancel()
		if err != nil {
			n.log.Warn("Notification dispatch failed",
				"kind", note.Kind,
				"person_id", note.PersonID,
				"recipient", note.Recipient,
				"error", err,
			)
			continue
		}
		n.log.Info("Notification dispatched",
			"kind", note.Kind,
			"person_id", note.PersonID,
			"recipient", note.Recipient,
		)
	}
}

func welcomeNotification(personID uuid.UUID, phone, firstName string) Notification {
	return Notification{
		Kind:      NotifyWelcome,
		Recipient: phone,
		PersonID:  personID,
		Body:      fmt.Sprintf("Hi %s, welcome to the growth track! We're glad you're here.", firstName),
	}
}

func milestoneNotification(personID uuid.UUID, phone, firstName, milestoneName string) Notification {
	return Notification{
		Kind:      NotifyMilestoneDone,
		Recipient: phone,
		PersonID:  personID,
		Body:      fmt.Sprintf("Congratulations %s, you completed the %q milestone!", firstName, milestoneName),
	}
}

func attendanceGoalNotification(personID uuid.UUID, phone, firstName string, goal int) Notification {
	return Notification{
		Kind:      NotifyAttendanceGoal,
		Recipient: phone,
		PersonID:  personID,
		Body:      fmt.Sprintf("Congratulations %s, you reached %d services attended!", firstName, goal),
	}
}
