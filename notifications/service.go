package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Service writes the per-upload notification and fans it out to the broker
// and, for doctor-issued documents, to the patient's inbox.
type Service struct {
	Store     Store
	Publisher Publisher
	// MailCertificate is optional; failures are logged.
	MailCertificate func(to, doctorName, fileName string) error
}

func NewService(store Store, pub Publisher) *Service {
	return &Service{Store: store, Publisher: pub}
}

// NotifyUpload creates the notification for a stored upload. Only the store
// write can fail the call; broker and mail errors are logged.
func (s *Service) NotifyUpload(ctx context.Context, owner, fileName, issuedBy string) error {
	n := &Notification{
		ID:        uuid.NewString(),
		Title:     "New Record Analyzed",
		Message:   fmt.Sprintf("Your file '%s' has been processed by AI.", fileName),
		Type:      TypeSuccess,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
	}
	if issuedBy != "" {
		n.Title = "New Certificate Issued"
		n.Message = fmt.Sprintf("%s issued '%s' to your records.", issuedBy, fileName)
	}
	if err := s.Store.Create(ctx, n); err != nil {
		return err
	}

	if s.Publisher != nil {
		ev := RecordAnalyzedEvent{NotificationID: n.ID, Owner: owner, FileName: fileName, IssuedBy: issuedBy, Title: n.Title, At: n.CreatedAt}
		if err := s.Publisher.Publish(ctx, ev); err != nil {
			log.Printf("[NOTIFY][PUBLISH][ERROR] id=%s err=%v", n.ID, err)
		}
	}
	if issuedBy != "" && s.MailCertificate != nil {
		if err := s.MailCertificate(owner, issuedBy, fileName); err != nil {
			log.Printf("[NOTIFY][EMAIL] certificate notice not sent to %s: %v", owner, err)
		}
	}
	return nil
}
