package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brhygiene/internal/domain"
	apperrors "brhygiene/pkg/errors"
)

const operatorAddr = "ops@brhygiene.test"

var testBrand = Branding{
	Name:         "BR Hygiene",
	Phone:        "+91 60014 60018",
	Email:        "hello@brhygiene.test",
	Address:      "Rajkot, Gujarat",
	ResponseTime: "24 hours",
}

// fakeMailer records sent messages and fails for recipients in failFor.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []Message
	failFor map[string]error
	block   chan struct{}
}

func (m *fakeMailer) Send(ctx context.Context, msg Message) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

func storedInquiry() *domain.Inquiry {
	return &domain.Inquiry{
		ID:        "INQ-0190c7d2-3b1e-7a55-9c44-2f1d6b0e8a11",
		Name:      "Jane Doe",
		Email:     "jane@co.com",
		Phone:     "+91 98765 43210",
		Subject:   "Bulk Order",
		Message:   "Need 500 units monthly.",
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func newTestNotifier(t *testing.T, mailer Mailer, acknowledge bool) *Notifier {
	t.Helper()
	tpl, err := NewTemplates(testBrand)
	require.NoError(t, err)
	return NewNotifier(tpl, mailer, operatorAddr, acknowledge)
}

func TestOperatorMailCarriesEveryField(t *testing.T) {
	tpl, err := NewTemplates(testBrand)
	require.NoError(t, err)

	inq := storedInquiry()
	r, err := tpl.Operator(inq)
	require.NoError(t, err)

	assert.Equal(t, "New Inquiry: Bulk Order - Jane Doe ["+inq.ID+"]", r.Subject)
	for _, body := range []string{r.Text, r.HTML} {
		assert.Contains(t, body, inq.ID)
		assert.Contains(t, body, inq.Name)
		assert.Contains(t, body, inq.Email)
		assert.Contains(t, body, "98765 43210")
		assert.Contains(t, body, inq.Subject)
		assert.Contains(t, body, inq.Message)
		assert.Contains(t, body, "2026-03-14T09:30:00Z")
		assert.Contains(t, body, "Saturday, 14 March 2026 at 3:00 PM IST")
	}
	assert.Contains(t, r.Text, "Phone:   +91 98765 43210")
}

func TestOperatorMailEscapesHTML(t *testing.T) {
	tpl, err := NewTemplates(testBrand)
	require.NoError(t, err)

	inq := storedInquiry()
	inq.Message = `<script>alert("x")</script> please call`
	r, err := tpl.Operator(inq)
	require.NoError(t, err)

	assert.NotContains(t, r.HTML, "<script>")
	assert.Contains(t, r.HTML, "&lt;script&gt;")
	assert.Contains(t, r.Text, "<script>")
}

func TestOperatorMailDefaultsInquiryType(t *testing.T) {
	tpl, err := NewTemplates(testBrand)
	require.NoError(t, err)

	inq := storedInquiry()
	inq.Subject = ""
	r, err := tpl.Operator(inq)
	require.NoError(t, err)

	assert.Contains(t, r.Subject, domain.DefaultInquiryType)
	assert.Contains(t, r.Text, domain.DefaultInquiryType)
}

func TestAcknowledgementOmitsMessage(t *testing.T) {
	tpl, err := NewTemplates(testBrand)
	require.NoError(t, err)

	inq := storedInquiry()
	r, err := tpl.Acknowledgement(inq)
	require.NoError(t, err)

	assert.Equal(t, "We received your inquiry - BR Hygiene", r.Subject)
	for _, body := range []string{r.Text, r.HTML} {
		assert.Contains(t, body, inq.ID)
		assert.Contains(t, body, "24 hours")
		assert.Contains(t, body, "60014 60018")
		assert.NotContains(t, body, inq.Message)
		assert.NotContains(t, body, operatorAddr)
	}
}

func TestNotifySendsOperatorMailOnly(t *testing.T) {
	mailer := &fakeMailer{}
	n := newTestNotifier(t, mailer, false)

	require.NoError(t, n.Notify(context.Background(), storedInquiry()))

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, operatorAddr, sent[0].To)
	assert.Equal(t, "jane@co.com", sent[0].ReplyTo)
	assert.NotEmpty(t, sent[0].HTML)
}

func TestNotifySendsAcknowledgementWhenEnabled(t *testing.T) {
	mailer := &fakeMailer{}
	n := newTestNotifier(t, mailer, true)

	require.NoError(t, n.Notify(context.Background(), storedInquiry()))

	sent := mailer.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, operatorAddr, sent[0].To)
	assert.Equal(t, "jane@co.com", sent[1].To)
	assert.Equal(t, operatorAddr, sent[1].ReplyTo)
}

func TestNotifyReportsFailedKinds(t *testing.T) {
	mailer := &fakeMailer{failFor: map[string]error{operatorAddr: errors.New("smtp: 421 service not available")}}
	n := newTestNotifier(t, mailer, true)

	err := n.Notify(context.Background(), storedInquiry())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotificationFailure(err))

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, []Kind{KindOperator}, derr.Failed)
	assert.Contains(t, err.Error(), "421")

	// The acknowledgement is still attempted.
	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@co.com", sent[0].To)
}

func TestDeliverRejectsUnknownKind(t *testing.T) {
	n := newTestNotifier(t, &fakeMailer{}, false)
	assert.Error(t, n.Deliver(context.Background(), Kind("sms"), storedInquiry()))
}
