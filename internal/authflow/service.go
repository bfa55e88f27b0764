// Package authflow drives the two-party email-link ceremony shared by the
// locker and circle flows:
//
//	(none) -> main_auth -> co_auth -> auth_check -> (deleted)
//
// Each transition is triggered by a request carrying the token mailed at the
// previous step. The terminal step belongs to the flow's own package, which
// consumes the auth_check session through Verified.
package authflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tus-lockers/locker-backend/internal/apperr"
	"github.com/tus-lockers/locker-backend/internal/captcha"
	"github.com/tus-lockers/locker-backend/internal/mail"
	"github.com/tus-lockers/locker-backend/internal/metrics"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/token"
	"github.com/tus-lockers/locker-backend/internal/validate"
)

var (
	errPairExists  = errors.New("student already belongs to a pair this year")
	errPhase       = errors.New("session is not at the expected phase")
	errFlow        = errors.New("session belongs to another flow")
	errSameStudent = errors.New("main and co student ids are equal")
)

type Config struct {
	AppURL            string
	SameStudentEnable bool
	// Now returns the campus-local time; the year of a pair is taken from it.
	Now func() time.Time
}

type Service struct {
	store   store.Store
	mail    mail.Dispatcher
	captcha captcha.Verifier
	cfg     Config
}

func NewService(s store.Store, d mail.Dispatcher, v captcha.Verifier, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{store: s, mail: d, captcha: v, cfg: cfg}
}

// IssueRequest starts a ceremony for either flow.
type IssueRequest struct {
	Payload        store.Payload
	RecaptchaToken string
	RemoteIP       string
}

// Issue validates the payload, verifies the CAPTCHA, stores a new session at
// main_auth and mails the representative the main-auth link.
func (s *Service) Issue(ctx context.Context, req IssueRequest) error {
	payload, err := normalizePayload(req.Payload)
	if err != nil {
		return apperr.New(apperr.KindInvalid, "invalid request body", err)
	}
	flow := payload.Flow()
	main, co := payload.MainStudent(), payload.CoStudent()

	same := main.StudentID == co.StudentID
	if same && !s.cfg.SameStudentEnable {
		return apperr.New(apperr.KindInvalid, "main and co student must differ", errSameStudent)
	}

	if err := s.checkPeriod(ctx, flow); err != nil {
		return err
	}

	if err := s.captcha.Verify(ctx, req.RecaptchaToken, req.RemoteIP); err != nil {
		if errors.Is(err, captcha.ErrRejected) || errors.Is(err, captcha.ErrMissingToken) {
			return apperr.New(apperr.KindUnauthorized, "recaptcha verification failed", err)
		}
		return apperr.Internal("failed to verify recaptcha", err)
	}

	mainToken, coToken, err := token.Pair(same)
	if err != nil {
		return apperr.Internal("failed to generate token", err)
	}
	sess := &store.Session{
		Auth: store.Auth{
			AuthID:        uuid.NewString(),
			MainAuthToken: mainToken,
			CoAuthToken:   coToken,
			Phase:         store.PhaseMainAuth,
			Flow:          flow,
			IsSame:        same,
		},
		Payload: payload,
	}
	if err := s.store.Auth().Create(ctx, sess); err != nil {
		return apperr.FromStore("failed to create auth session", err)
	}

	link := mail.Link(s.cfg.AppURL, string(flow), "main-auth", mainToken)
	if err := mail.Deliver(ctx, s.mail, mail.MainAuth(validate.CampusEmail(main.StudentID), string(flow), link)); err != nil {
		// The session is useless without its link; the client restarts from token-gen.
		if derr := s.store.Auth().Delete(context.WithoutCancel(ctx), sess.Auth.AuthID); derr != nil {
			logError(flow, "discard session", derr)
		}
		return apperr.Internal("failed to send mail", err)
	}

	recordTransition(flow, store.PhaseMainAuth, sess.Auth.AuthID)
	return nil
}

// MainAuth consumes the main token: it registers the representative, mails
// the co-representative and advances the session to co_auth.
func (s *Service) MainAuth(ctx context.Context, flow store.Flow, tok string) error {
	sess, err := s.lookup(ctx, flow, tok, s.store.Auth().GetByMainToken)
	if err != nil {
		return err
	}
	if sess.Auth.Phase != store.PhaseMainAuth {
		return apperr.New(apperr.KindInvalid, "invalid phase", errPhase)
	}

	main, co := sess.Payload.MainStudent(), sess.Payload.CoStudent()
	if err := s.store.Students().Upsert(ctx, studentOf(main)); err != nil {
		return apperr.FromStore("failed to register student", err)
	}

	link := mail.Link(s.cfg.AppURL, string(flow), "co-auth", sess.Auth.CoAuthToken)
	msg := mail.CoAuth(validate.CampusEmail(co.StudentID), string(flow), main.FamilyName+" "+main.GivenName, link)
	if err := mail.Deliver(ctx, s.mail, msg); err != nil {
		return apperr.Internal("failed to send mail", err)
	}

	if err := s.store.Auth().AdvancePhase(ctx, sess.Auth.AuthID, store.PhaseMainAuth, store.PhaseCoAuth); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return apperr.New(apperr.KindInvalid, "invalid phase", err)
		}
		return apperr.FromStore("failed to update auth phase", err)
	}

	recordTransition(flow, store.PhaseCoAuth, sess.Auth.AuthID)
	return nil
}

// CoAuth consumes the co token. In one transaction it registers the
// co-representative, creates the pair (locker flow), replaces the session by
// a fresh one at auth_check and mails the completion link; a mail failure
// rolls everything back so the same link can be retried.
func (s *Service) CoAuth(ctx context.Context, flow store.Flow, tok string) error {
	sess, err := s.lookup(ctx, flow, tok, s.store.Auth().GetByCoToken)
	if err != nil {
		return err
	}
	if sess.Auth.Phase != store.PhaseCoAuth {
		return apperr.New(apperr.KindInvalid, "invalid phase", errPhase)
	}

	mainToken, coToken, err := token.Pair(sess.Auth.IsSame)
	if err != nil {
		return apperr.Internal("failed to generate token", err)
	}
	next := &store.Session{
		Auth: store.Auth{
			AuthID:        uuid.NewString(),
			MainAuthToken: mainToken,
			CoAuthToken:   coToken,
			Phase:         store.PhaseAuthCheck,
			Flow:          flow,
			IsSame:        sess.Auth.IsSame,
		},
		Payload: sess.Payload,
	}
	main, co := sess.Payload.MainStudent(), sess.Payload.CoStudent()
	year := s.cfg.Now().Year()

	err = s.store.Tx(ctx, func(tx store.Store) error {
		// Claims the old session; a concurrent click on the same link fails here.
		if err := tx.Auth().AdvancePhase(ctx, sess.Auth.AuthID, store.PhaseCoAuth, store.PhaseAuthCheck); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.New(apperr.KindInvalid, "invalid phase", err)
			}
			return apperr.FromStore("failed to update auth phase", err)
		}
		if err := tx.Students().Upsert(ctx, studentOf(co)); err != nil {
			return apperr.FromStore("failed to register student", err)
		}

		if flow == store.FlowLocker {
			if err := s.createPair(ctx, tx, main.StudentID, co.StudentID, year); err != nil {
				return err
			}
		}

		if err := tx.Auth().Create(ctx, next); err != nil {
			return apperr.FromStore("failed to create auth session", err)
		}
		if err := tx.Auth().Delete(ctx, sess.Auth.AuthID); err != nil {
			return apperr.FromStore("failed to delete auth session", err)
		}

		// Sent before commit so a failed mail leaves the co token usable. This
		// holds a pool slot and the auth row for up to MAIL_TIMEOUT.
		link := mail.Link(s.cfg.AppURL, string(flow), "auth-check", mainToken)
		if err := mail.Deliver(ctx, s.mail, mail.AuthComplete(validate.CampusEmail(main.StudentID), string(flow), link)); err != nil {
			return apperr.Internal("failed to send mail", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordTransition(flow, store.PhaseAuthCheck, next.Auth.AuthID)
	return nil
}

// createPair rejects students who already belong to a pair this year, then
// inserts the pair. Both failures are reported as internal errors.
//
// The unique indexes only cover each column on its own, so a student joining
// as main in one transaction and as co in another would slip past them. The
// member locks close that gap.
func (s *Service) createPair(ctx context.Context, tx store.Store, mainID, coID string, year int) error {
	if err := tx.Pairs().LockMembers(ctx, year, mainID, coID); err != nil {
		return apperr.FromStore("failed to lock student_pair members", err)
	}
	for _, id := range []string{mainID, coID} {
		_, err := tx.Pairs().GetByMember(ctx, id, year)
		if err == nil {
			return apperr.Internal("student_pair already exists", errPairExists)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return apperr.FromStore("failed to check student_pair", err)
		}
	}

	pair := &store.StudentPair{
		PairID:     uuid.NewString(),
		StudentID1: mainID,
		StudentID2: coID,
		Year:       year,
	}
	if err := tx.Pairs().Create(ctx, pair); err != nil {
		return apperr.FromStore("failed to create student_pair", err)
	}
	return nil
}

// AuthCheckResult is the body of a successful auth-check.
type AuthCheckResult struct {
	Data   any    `json:"data"`
	AuthID string `json:"auth_id"`
}

// AuthCheck returns the verified members (and, for circles, the submitted
// organization) together with the session id used as the final capability.
func (s *Service) AuthCheck(ctx context.Context, flow store.Flow, tok string) (*AuthCheckResult, error) {
	sess, err := s.lookup(ctx, flow, tok, s.store.Auth().GetByMainToken)
	if err != nil {
		return nil, err
	}
	if sess.Auth.Phase != store.PhaseAuthCheck {
		return nil, apperr.New(apperr.KindInvalid, "invalid phase", errPhase)
	}

	var data any = sess.Pair()
	if p, ok := sess.Payload.(store.CirclePayload); ok {
		data = p
	}
	return &AuthCheckResult{Data: data, AuthID: sess.Auth.AuthID}, nil
}

// Verified returns the auth_check session identified by authID. Any other
// state means the caller does not hold a completed ceremony (401).
func (s *Service) Verified(ctx context.Context, flow store.Flow, authID string) (*store.Session, error) {
	if err := validate.AuthID(authID); err != nil {
		return nil, apperr.New(apperr.KindInvalid, "invalid auth_id", err)
	}
	sess, err := s.store.Auth().Get(ctx, authID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid auth_id", err)
	}
	if err != nil {
		return nil, apperr.FromStore("failed to get auth session", err)
	}
	if sess.Auth.Flow != flow || sess.Auth.Phase != store.PhaseAuthCheck {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid auth_id", errPhase)
	}
	return sess, nil
}

func (s *Service) lookup(ctx context.Context, flow store.Flow, tok string,
	get func(context.Context, string) (*store.Session, error)) (*store.Session, error) {
	if err := validate.Token(tok); err != nil {
		return nil, apperr.New(apperr.KindInvalid, "invalid token", err)
	}
	sess, err := get(ctx, tok)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.KindUnauthorized, "unknown token", err)
	}
	if err != nil {
		return nil, apperr.FromStore("failed to get auth session", err)
	}
	if sess.Auth.Flow != flow {
		return nil, apperr.New(apperr.KindUnauthorized, "unknown token", errFlow)
	}
	return sess, nil
}

// checkPeriod rejects token-gen outside the flow's registration window. A flow
// without a window is always open.
func (s *Service) checkPeriod(ctx context.Context, flow store.Flow) error {
	p, err := s.store.Periods().Get(ctx, string(flow))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.FromStore("failed to get registration period", err)
	}
	if !p.Open(s.cfg.Now()) {
		return apperr.Invalid("registration period is closed")
	}
	return nil
}

func studentOf(u store.UserInfo) *store.Student {
	return &store.Student{StudentID: u.StudentID, FamilyName: u.FamilyName, GivenName: u.GivenName}
}

func recordTransition(flow store.Flow, phase store.Phase, authID string) {
	metrics.AuthTransitions.WithLabelValues(string(flow), string(phase)).Inc()
	logTransition(flow, phase, authID)
}
