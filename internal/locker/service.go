// Package locker claims lockers for verified pairs and serves the inventory.
package locker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tus-lockers/locker-backend/internal/apperr"
	"github.com/tus-lockers/locker-backend/internal/authflow"
	"github.com/tus-lockers/locker-backend/internal/mail"
	"github.com/tus-lockers/locker-backend/internal/metrics"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/validate"
)

var errStudentMismatch = errors.New("student_id is not the representative of the auth session")

type Service struct {
	store store.Store
	mail  mail.Dispatcher
	auth  *authflow.Service
	now   func() time.Time
}

func NewService(s store.Store, d mail.Dispatcher, auth *authflow.Service, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: s, mail: d, auth: auth, now: now}
}

type ClaimRequest struct {
	StudentID string `json:"student_id"`
	LockerID  string `json:"locker_id"`
	AuthID    string `json:"auth_id"`
}

// Claim assigns the locker to the pair represented by req.StudentID. The
// existence checks, the assignment insert, the status flip and the session
// deletion commit together while the locker row is locked. The confirmation
// mail is sent after commit and its failure does not fail the claim.
func (s *Service) Claim(ctx context.Context, req ClaimRequest) (*store.AssignmentRecord, error) {
	rec, err := s.claim(ctx, req)
	if err != nil {
		metrics.Claims.WithLabelValues(apperr.KindOf(err).String()).Inc()
		return nil, err
	}
	metrics.Claims.WithLabelValues("ok").Inc()
	return rec, nil
}

func (s *Service) claim(ctx context.Context, req ClaimRequest) (*store.AssignmentRecord, error) {
	if err := validate.StudentID(req.StudentID); err != nil {
		return nil, apperr.New(apperr.KindInvalid, "invalid student_id", err)
	}
	if err := validate.LockerID(req.LockerID); err != nil {
		return nil, apperr.New(apperr.KindInvalid, "invalid locker_id", err)
	}
	sess, err := s.auth.Verified(ctx, store.FlowLocker, req.AuthID)
	if err != nil {
		return nil, err
	}
	if sess.Payload.MainStudent().StudentID != req.StudentID {
		return nil, apperr.New(apperr.KindInvalid, "student_id does not match auth session", errStudentMismatch)
	}

	year := s.now().Year()
	var (
		record store.AssignmentRecord
		locker *store.Locker
	)
	err = s.store.Tx(ctx, func(tx store.Store) error {
		pair, err := tx.Pairs().GetByRepresentative(ctx, req.StudentID, year)
		if err != nil {
			return apperr.FromStore("failed to get student_pair id", err)
		}

		_, err = tx.Assignments().GetByPair(ctx, pair.PairID, year)
		if err == nil {
			return apperr.Conflict("This pair already has a locker")
		}
		if !errors.Is(err, store.ErrNotFound) {
			return apperr.FromStore("failed to get assignment", err)
		}

		locker, err = tx.Lockers().GetForUpdate(ctx, req.LockerID)
		if err != nil {
			return apperr.FromStore("failed to get locker", err)
		}
		if locker.Status != store.StatusVacant {
			return apperr.Conflict("This locker is not vacant")
		}

		record = store.AssignmentRecord{
			RecordID: uuid.NewString(),
			PairID:   pair.PairID,
			LockerID: req.LockerID,
			Year:     year,
		}
		if err := tx.Assignments().Create(ctx, &record); err != nil {
			return apperr.FromStore("failed to create assignment", err)
		}
		if err := tx.Lockers().SetStatus(ctx, req.LockerID, store.StatusOccupied); err != nil {
			return apperr.FromStore("failed to update locker status", err)
		}
		if err := tx.Auth().Delete(ctx, req.AuthID); err != nil {
			return apperr.FromStore("failed to delete auth session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logClaim(record)
	msg := mail.LockerClaimed(validate.CampusEmail(req.StudentID), record.LockerID, locker.Location, year)
	if err := mail.Deliver(context.WithoutCancel(ctx), s.mail, msg); err != nil {
		log.Printf("[locker] confirmation mail for %s not sent: %v", record.RecordID, err)
	}
	return &record, nil
}

// Availability lists lockers on a floor ("" for every floor) sorted by id.
func (s *Service) Availability(ctx context.Context, floor string) ([]store.Locker, error) {
	prefix, err := validate.Floor(floor)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalid, "invalid floor", err)
	}
	lockers, err := s.store.Lockers().List(ctx, prefix)
	if err != nil {
		return nil, apperr.FromStore("failed to get lockers", err)
	}
	return lockers, nil
}

// Reset returns every occupied locker to vacant; out-of-work lockers are left
// alone. It returns the number of lockers changed.
func (s *Service) Reset(ctx context.Context) (int64, error) {
	n, err := s.store.Lockers().UpdateStatus(ctx, "", store.StatusOccupied, store.StatusVacant)
	if err != nil {
		return 0, apperr.FromStore("failed to reset lockers", err)
	}
	log.Printf("[locker] reset %d occupied lockers to vacant", n)
	return n, nil
}

func logClaim(r store.AssignmentRecord) {
	log.Printf("[locker] pair=%s claimed locker=%s year=%d record=%s", r.PairID, r.LockerID, r.Year, r.RecordID)
}
