package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tideraider/surf-alert-server/internal/alert"
	"github.com/tideraider/surf-alert-server/internal/protocol"
)

// EmailSender is the outbound email collaborator.
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

// WhatsAppSender is the outbound WhatsApp collaborator.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

// Recorder persists dispatch attempts and in-app notifications.
type Recorder interface {
	RecordNotification(n *alert.Notification) error
	WriteInAppNotification(id, userID, title, body string) error
}

// MatchPublisher announces fired alerts on the feed topic. Optional.
type MatchPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Dispatcher routes a matched alert to its configured channel, records every
// attempt, and never lets a send failure escape to the evaluation loop.
type Dispatcher struct {
	email    EmailSender
	whatsapp WhatsAppSender
	recorder Recorder
	feed     MatchPublisher // may be nil
}

// NewDispatcher creates a dispatcher. feed may be nil when no match topic is
// wired.
func NewDispatcher(email EmailSender, whatsapp WhatsAppSender, recorder Recorder, feed MatchPublisher) *Dispatcher {
	return &Dispatcher{
		email:    email,
		whatsapp: whatsapp,
		recorder: recorder,
		feed:     feed,
	}
}

// Dispatch renders the channel message and delivers it. For "both", email
// and whatsapp are each attempted and the dispatch succeeds when at least
// one does; a partial channel failure is recorded, not escalated. The in-app
// channel only writes a notification row.
func (d *Dispatcher) Dispatch(ctx context.Context, match alert.MatchResult, a *alert.Alert, contextLabel string) bool {
	subject := fmt.Sprintf("Surf alert: %s - %s", a.Name, contextLabel)
	body, err := RenderMatchBody(match, a, contextLabel)
	if err != nil {
		log.Printf("Failed to render message for alert %s: %v", a.ID, err)
		return false
	}

	var success bool
	switch a.NotificationMethod {
	case alert.MethodEmail:
		success = d.sendOne(ctx, a, alert.MethodEmail, subject, body)
	case alert.MethodWhatsApp:
		success = d.sendOne(ctx, a, alert.MethodWhatsApp, subject, body)
	case alert.MethodApp:
		success = d.writeInApp(a, subject, body)
	case alert.MethodBoth:
		emailOK := d.sendOne(ctx, a, alert.MethodEmail, subject, body)
		waOK := d.sendOne(ctx, a, alert.MethodWhatsApp, subject, body)
		success = emailOK || waOK
	default:
		log.Printf("Alert %s has unknown notification method %q", a.ID, a.NotificationMethod)
		return false
	}

	if success {
		d.publishMatch(ctx, match, a, contextLabel)
	}
	return success
}

// sendOne attempts one channel send and records the outcome. Errors and
// panics from the external collaborator become success=false.
func (d *Dispatcher) sendOne(ctx context.Context, a *alert.Alert, channel alert.NotificationMethod, subject, body string) bool {
	var sendErr error

	func() {
		defer func() {
			if r := recover(); r != nil {
				sendErr = fmt.Errorf("panic in %s sender: %v", channel, r)
			}
		}()
		switch channel {
		case alert.MethodEmail:
			sendErr = d.email.SendEmail(a.ContactInfo, subject, body)
		case alert.MethodWhatsApp:
			sendErr = d.whatsapp.SendWhatsApp(ctx, a.ContactInfo, body)
		}
	}()

	details := subject
	if sendErr != nil {
		details = fmt.Sprintf("%s: %v", subject, sendErr)
		log.Printf("Failed to send %s notification for alert %s: %v", channel, a.ID, sendErr)
	}

	d.record(a.ID, channel, sendErr == nil, details)
	return sendErr == nil
}

func (d *Dispatcher) writeInApp(a *alert.Alert, title, body string) bool {
	err := d.recorder.WriteInAppNotification(uuid.New().String(), a.UserID, title, body)
	if err != nil {
		log.Printf("Failed to write in-app notification for alert %s: %v", a.ID, err)
	}
	d.record(a.ID, alert.MethodApp, err == nil, title)
	return err == nil
}

func (d *Dispatcher) record(alertID string, channel alert.NotificationMethod, success bool, details string) {
	n := &alert.Notification{
		AlertID: alertID,
		Channel: channel,
		Success: success,
		Details: details,
		SentAt:  time.Now().UTC(),
	}
	if err := d.recorder.RecordNotification(n); err != nil {
		// History write failures must not turn a delivered message into a
		// failed dispatch.
		log.Printf("Failed to record notification for alert %s: %v", alertID, err)
	}
}

func (d *Dispatcher) publishMatch(ctx context.Context, match alert.MatchResult, a *alert.Alert, contextLabel string) {
	if d.feed == nil {
		return
	}

	msg := &protocol.MatchMessage{
		AlertID:   a.ID,
		UserID:    a.UserID,
		AlertName: a.Name,
		RegionID:  a.RegionID,
		BeachID:   a.BeachID,
		Channel:   string(a.NotificationMethod),
		Summary:   match.Summary,
		Details:   match,
		MatchedAt: time.Now().UTC(),
	}
	data, err := protocol.EncodeMatchMessage(msg)
	if err != nil {
		log.Printf("Failed to encode match message for alert %s: %v", a.ID, err)
		return
	}
	if err := d.feed.Publish(ctx, a.RegionID, data); err != nil {
		log.Printf("Failed to publish match for alert %s: %v", a.ID, err)
	}
}
