package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InquiryIDPrefix prefixes every generated inquiry identifier.
const InquiryIDPrefix = "INQ-"

// DefaultInquiryType labels an inquiry submitted without a subject.
const DefaultInquiryType = "General Inquiry"

// ErrInquiryImmutable is returned when something tries to update a stored inquiry.
var ErrInquiryImmutable = errors.New("inquiries are immutable once stored")

// Subjects offered by the contact form. Free text is accepted as well.
var Subjects = []string{
	"OEM / Private Label",
	"Bulk Order",
	"Sample Request",
	"Custom Formulation",
	"Pricing Inquiry",
	"Other",
}

// InquiryForm is the raw contact form as received from the client.
type InquiryForm struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Phone   string `json:"phone" form:"phone"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message"`
}

// Inquiry represents a contact form submission
type Inquiry struct {
	ID        string    `gorm:"primaryKey;size:64" json:"inquiry_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:254;not null;index" json:"email"`
	Phone     string    `gorm:"size:20;not null" json:"phone"`
	Subject   string    `gorm:"size:100;not null" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for Inquiry
func (Inquiry) TableName() string {
	return "inquiries"
}

// BeforeCreate assigns the identifier if the caller did not, and always
// stamps the creation time in UTC.
func (i *Inquiry) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		id, err := NewInquiryID()
		if err != nil {
			return err
		}
		i.ID = id
	}
	i.CreatedAt = time.Now().UTC()
	return nil
}

// BeforeUpdate hook
func (i *Inquiry) BeforeUpdate(tx *gorm.DB) error {
	return ErrInquiryImmutable
}

// BeforeDelete hook
func (i *Inquiry) BeforeDelete(tx *gorm.DB) error {
	return ErrInquiryImmutable
}

// TypeLabel returns the inquiry type shown in notifications.
func (i *Inquiry) TypeLabel() string {
	if s := strings.TrimSpace(i.Subject); s != "" {
		return s
	}
	return DefaultInquiryType
}

// NewInquiryID returns a time-ordered random identifier (UUIDv7).
func NewInquiryID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate inquiry id: %w", err)
	}
	return InquiryIDPrefix + id.String(), nil
}

// IsKnownSubject reports whether subject is one of the form's fixed choices.
func IsKnownSubject(subject string) bool {
	for _, s := range Subjects {
		if strings.EqualFold(s, strings.TrimSpace(subject)) {
			return true
		}
	}
	return false
}
