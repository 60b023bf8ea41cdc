// Package store persists contact inquiries.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"brhygiene/internal/domain"
	"brhygiene/internal/logging"
	"brhygiene/internal/metrics"
	apperrors "brhygiene/pkg/errors"
)

// ErrAlreadyStored is wrapped when Create is given an inquiry that already
// carries an identifier.
var ErrAlreadyStored = errors.New("inquiry already has an identifier")

// InquiryStore is the insert-only inquiry collection.
type InquiryStore struct {
	db      *gorm.DB
	timeout time.Duration
	log     *logrus.Entry
}

// NewInquiryStore creates a store bounding each insert by timeout.
func NewInquiryStore(db *gorm.DB, timeout time.Duration) *InquiryStore {
	return &InquiryStore{
		db:      db,
		timeout: timeout,
		log:     logging.For("store"),
	}
}

// Create assigns the identifier and UTC creation time to inq and inserts it.
// Any persistence failure is returned as StorageUnavailable.
func (s *InquiryStore) Create(ctx context.Context, inq *domain.Inquiry) error {
	if inq.ID != "" {
		return apperrors.Wrap(apperrors.ErrCodeBadRequest, "inquiry cannot be stored twice", ErrAlreadyStored)
	}

	id, err := domain.NewInquiryID()
	if err != nil {
		return apperrors.StorageUnavailable(err)
	}
	inq.ID = id

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err = s.db.WithContext(ctx).Create(inq).Error
	metrics.RecordDBQuery("inquiry_create", time.Since(start), err)

	if err != nil {
		s.log.WithError(err).WithField("inquiry_id", id).Error("insert failed")
		inq.ID = ""
		inq.CreatedAt = time.Time{}
		return apperrors.StorageUnavailable(err)
	}
	return nil
}
