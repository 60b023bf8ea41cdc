// Package notify renders and delivers inquiry notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brhygiene/internal/domain"
	"brhygiene/internal/metrics"
	apperrors "brhygiene/pkg/errors"
)

// Kind identifies a notification sent for an inquiry.
type Kind string

const (
	KindOperator        Kind = "operator"
	KindAcknowledgement Kind = "acknowledgement"
)

// DeliveryError reports which notifications for an inquiry failed.
type DeliveryError struct {
	InquiryID string
	Failed    []Kind
	Err       error
}

func (e *DeliveryError) Error() string {
	kinds := make([]string, len(e.Failed))
	for i, k := range e.Failed {
		kinds[i] = string(k)
	}
	return fmt.Sprintf("notification for %s failed (%s): %v", e.InquiryID, strings.Join(kinds, ", "), e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Notifier sends the operator notification and, optionally, the
// acknowledgement to the submitter.
type Notifier struct {
	templates     *Templates
	mailer        Mailer
	operatorEmail string
	acknowledge   bool
}

// NewNotifier creates a notifier. When acknowledge is false only the
// operator is notified.
func NewNotifier(templates *Templates, mailer Mailer, operatorEmail string, acknowledge bool) *Notifier {
	return &Notifier{
		templates:     templates,
		mailer:        mailer,
		operatorEmail: operatorEmail,
		acknowledge:   acknowledge,
	}
}

// Kinds returns the notifications Notify sends for every inquiry.
func (n *Notifier) Kinds() []Kind {
	if n.acknowledge {
		return []Kind{KindOperator, KindAcknowledgement}
	}
	return []Kind{KindOperator}
}

// Deliver renders and sends a single notification.
func (n *Notifier) Deliver(ctx context.Context, kind Kind, inq *domain.Inquiry) error {
	msg, err := n.message(kind, inq)
	if err == nil {
		err = n.mailer.Send(ctx, msg)
	}
	metrics.RecordNotification(string(kind), err)
	return err
}

// Notify delivers every configured notification for inq. A failure of one
// kind does not prevent the others from being attempted. The returned error
// wraps a *DeliveryError with the NOTIFICATION_FAILURE code.
func (n *Notifier) Notify(ctx context.Context, inq *domain.Inquiry) error {
	var failed []Kind
	var errs []error
	for _, kind := range n.Kinds() {
		if err := n.Deliver(ctx, kind, inq); err != nil {
			failed = append(failed, kind)
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return apperrors.NotificationFailure(&DeliveryError{
		InquiryID: inq.ID,
		Failed:    failed,
		Err:       errors.Join(errs...),
	})
}

func (n *Notifier) message(kind Kind, inq *domain.Inquiry) (Message, error) {
	switch kind {
	case KindOperator:
		r, err := n.templates.Operator(inq)
		if err != nil {
			return Message{}, err
		}
		return Message{
			To:      n.operatorEmail,
			ReplyTo: inq.Email,
			Subject: r.Subject,
			Text:    r.Text,
			HTML:    r.HTML,
		}, nil
	case KindAcknowledgement:
		r, err := n.templates.Acknowledgement(inq)
		if err != nil {
			return Message{}, err
		}
		return Message{
			To:      inq.Email,
			ReplyTo: n.operatorEmail,
			Subject: r.Subject,
			Text:    r.Text,
			HTML:    r.HTML,
		}, nil
	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}
}
