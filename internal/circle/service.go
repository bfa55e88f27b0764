// Package circle registers organizations once both representatives have
// completed the email ceremony, and carries the admin document review.
package circle

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tus-lockers/locker-backend/internal/apperr"
	"github.com/tus-lockers/locker-backend/internal/authflow"
	"github.com/tus-lockers/locker-backend/internal/gform"
	"github.com/tus-lockers/locker-backend/internal/mail"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/validate"
)

var errPayload = errors.New("auth session does not carry a circle payload")

type Service struct {
	store store.Store
	mail  mail.Dispatcher
	auth  *authflow.Service
	form  gform.Notifier
	now   func() time.Time
}

func NewService(s store.Store, d mail.Dispatcher, auth *authflow.Service, form gform.Notifier, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if form == nil {
		form = gform.Noop{}
	}
	return &Service{store: s, mail: d, auth: auth, form: form, now: now}
}

// Register turns a verified circle session into this year's registration.
// The organization upsert, the representatives, the pending registration and
// the session deletion commit together; the form update and the mail follow
// on a best-effort basis.
func (s *Service) Register(ctx context.Context, authID string) (*store.Registration, error) {
	sess, err := s.auth.Verified(ctx, store.FlowCircle, authID)
	if err != nil {
		return nil, err
	}
	p, ok := sess.Payload.(store.CirclePayload)
	if !ok {
		return nil, apperr.Internal("failed to read auth session", errPayload)
	}
	year := s.now().Year()

	org := store.Organization{
		OrganizationID: uuid.NewString(),
		Name:           p.Organization.Name,
		Ruby:           p.Organization.Ruby,
		Email:          p.Organization.Email,
		ClubType:       p.Organization.ClubType,
	}
	reg := store.Registration{
		RegistrationID: uuid.NewString(),
		Year:           year,
		DocumentURLs:   pq.StringArray(p.Documents.Slice()),
		Status:         store.RegistrationPending,
	}

	err = s.store.Tx(ctx, func(tx store.Store) error {
		if err := tx.Circles().UpsertOrganization(ctx, &org); err != nil {
			return apperr.FromStore("failed to register organization", err)
		}
		reps := store.Representatives{
			ID:             uuid.NewString(),
			OrganizationID: org.OrganizationID,
			Year:           year,
			MainStudentID:  p.Main.StudentID,
			CoStudentID:    p.Co.StudentID,
		}
		if err := tx.Circles().CreateRepresentatives(ctx, &reps); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.Conflict("organization is already registered this year")
			}
			return apperr.FromStore("failed to register representatives", err)
		}
		reg.OrganizationID = org.OrganizationID
		if err := tx.Circles().CreateRegistration(ctx, &reg); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.Conflict("organization is already registered this year")
			}
			return apperr.FromStore("failed to create registration", err)
		}
		if err := tx.Auth().Delete(ctx, authID); err != nil {
			return apperr.FromStore("failed to delete auth session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	reg.Organization = &org
	log.Printf("[circle] organization=%q registered year=%d registration=%s", org.Name, year, reg.RegistrationID)

	bg := context.WithoutCancel(ctx)
	if err := s.form.Notify(bg, gform.Submission{
		RegistrationID:   reg.RegistrationID,
		Year:             year,
		OrganizationName: org.Name,
		OrganizationRuby: org.Ruby,
		ClubType:         org.ClubType,
		MainStudentID:    p.Main.StudentID,
		CoStudentID:      p.Co.StudentID,
		DocumentURLs:     p.Documents.Slice(),
	}); err != nil {
		log.Printf("[circle] form update for %s failed: %v", reg.RegistrationID, err)
	}
	if err := mail.Deliver(bg, s.mail, mail.CircleRegistered(validate.CampusEmail(p.Main.StudentID), org.Name, year)); err != nil {
		log.Printf("[circle] confirmation mail for %s not sent: %v", reg.RegistrationID, err)
	}
	return &reg, nil
}

// List returns the registrations of a year, optionally filtered by status.
func (s *Service) List(ctx context.Context, year int, status store.RegistrationStatus) ([]store.Registration, error) {
	switch status {
	case "", store.RegistrationPending, store.RegistrationApproved, store.RegistrationRejected:
	default:
		return nil, apperr.Invalid("invalid status")
	}
	regs, err := s.store.Circles().ListRegistrations(ctx, year, status)
	if err != nil {
		return nil, apperr.FromStore("failed to get registrations", err)
	}
	return regs, nil
}

type ReviewRequest struct {
	Status  store.RegistrationStatus `json:"status"`
	Comment string                   `json:"comment"`
}

// Review records an approval or rejection of a pending registration and
// notifies the organization when it has a contact address.
func (s *Service) Review(ctx context.Context, registrationID, reviewer string, req ReviewRequest) (*store.Registration, error) {
	if _, err := uuid.Parse(registrationID); err != nil {
		return nil, apperr.New(apperr.KindInvalid, "invalid registration id", err)
	}
	if req.Status != store.RegistrationApproved && req.Status != store.RegistrationRejected {
		return nil, apperr.Invalid("status must be approved or rejected")
	}

	err := s.store.Circles().ReviewRegistration(ctx, registrationID, req.Status, req.Comment, reviewer, s.now())
	if errors.Is(err, store.ErrConflict) {
		return nil, apperr.Conflict("registration is not pending")
	}
	if err != nil {
		return nil, apperr.FromStore("failed to review registration", err)
	}

	reg, err := s.store.Circles().GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, apperr.FromStore("failed to get registration", err)
	}
	log.Printf("[circle] registration=%s %s by %s", registrationID, req.Status, reviewer)

	if reg.Organization != nil && reg.Organization.Email != "" {
		msg := mail.CircleReviewed(reg.Organization.Email, reg.Organization.Name, req.Status == store.RegistrationApproved, req.Comment)
		if err := mail.Deliver(context.WithoutCancel(ctx), s.mail, msg); err != nil {
			log.Printf("[circle] review mail for %s not sent: %v", registrationID, err)
		}
	}
	return reg, nil
}
