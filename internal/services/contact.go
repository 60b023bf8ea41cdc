package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"brhygiene/internal/config"
	"brhygiene/internal/domain"
	"brhygiene/internal/logging"
	"brhygiene/internal/metrics"
	apperrors "brhygiene/pkg/errors"
)

// Submission outcomes recorded in inquiry_submissions_total.
const (
	OutcomeAccepted      = "accepted"
	OutcomeRejected      = "rejected"
	OutcomePersistFailed = "persist_failed"
)

// InquiryValidator checks and normalizes a raw contact form.
type InquiryValidator interface {
	Validate(form domain.InquiryForm) (*domain.Inquiry, error)
}

// InquiryStore persists a validated inquiry, assigning its identifier.
type InquiryStore interface {
	Create(ctx context.Context, inq *domain.Inquiry) error
}

// NotificationDispatcher notifies about a stored inquiry without
// reporting failure to the caller.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, inq *domain.Inquiry)
}

// SubmitPayload is the contact form as decoded by the transport.
type SubmitPayload = domain.InquiryForm

// SubmitResult is returned for an accepted inquiry.
type SubmitResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	InquiryID string `json:"inquiry_id"`
}

// ContactService implements the inquiry submission pipeline:
// validate, store, notify, respond.
type ContactService struct {
	validator  InquiryValidator
	store      InquiryStore
	dispatcher NotificationDispatcher

	acceptedMessage    string
	unavailableMessage string
	log                *logrus.Entry
}

// NewContactService creates a new contact service
func NewContactService(validator InquiryValidator, store InquiryStore, dispatcher NotificationDispatcher, business *config.BusinessConfig, acknowledge bool) *ContactService {
	accepted := fmt.Sprintf("Thank you for your inquiry! We will respond within %s.", business.ResponseTime)
	if acknowledge {
		accepted += " Check your email for confirmation."
	}

	return &ContactService{
		validator:          validator,
		store:              store,
		dispatcher:         dispatcher,
		acceptedMessage:    accepted,
		unavailableMessage: UnavailableMessage(business),
		log:                logging.For("contact"),
	}
}

// UnavailableMessage is shown when an inquiry could not be saved. It points
// the submitter at the business's direct contact details.
func UnavailableMessage(business *config.BusinessConfig) string {
	return fmt.Sprintf("Failed to process inquiry. Please try again or contact us directly at %s or call %s.",
		business.Email, business.Phone)
}

// Submit runs one inquiry through the pipeline. It returns FieldErrors when
// the form is invalid and a STORAGE_UNAVAILABLE AppError when it could not
// be saved. Notification happens only after a successful save and never
// changes the result.
func (s *ContactService) Submit(ctx context.Context, p *SubmitPayload) (*SubmitResult, error) {
	log := s.log.WithField("request_id", requestID(ctx))
	log.Debug("Received")

	if p == nil {
		p = &SubmitPayload{}
	}

	log.Debug("Validating")
	inq, err := s.validator.Validate(*p)
	if err != nil {
		metrics.RecordInquirySubmission(OutcomeRejected)
		var fe apperrors.FieldErrors
		if errors.As(err, &fe) {
			log.WithField("fields", fe.Fields()).Info("Rejected")
		} else {
			log.WithError(err).Info("Rejected")
		}
		return nil, err
	}
	log.Debug("Validated")

	log.Debug("Persisting")
	if err := s.store.Create(ctx, inq); err != nil {
		metrics.RecordInquirySubmission(OutcomePersistFailed)
		log.WithError(err).Error("PersistFailed")
		if apperrors.IsStorageUnavailable(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeStorageUnavailable, s.unavailableMessage, err)
		}
		return nil, err
	}
	log = log.WithField("inquiry_id", inq.ID)
	log.Debug("Persisted")
	metrics.RecordInquirySubject(inq.Subject, domain.IsKnownSubject(inq.Subject))

	log.Debug("Notifying")
	s.dispatcher.Dispatch(ctx, inq)

	metrics.RecordInquirySubmission(OutcomeAccepted)
	log.WithField("subject", inq.TypeLabel()).Info("Responded")

	return &SubmitResult{
		Success:   true,
		Message:   s.acceptedMessage,
		InquiryID: inq.ID,
	}, nil
}
