package circle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tus-lockers/locker-backend/internal/apperr"
	"github.com/tus-lockers/locker-backend/internal/authflow"
	"github.com/tus-lockers/locker-backend/internal/captcha"
	"github.com/tus-lockers/locker-backend/internal/gform"
	"github.com/tus-lockers/locker-backend/internal/mail"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/store/memstore"
)

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.FixedZone("JST", 9*60*60))

func now() time.Time { return fixedNow }

type recordingForm struct {
	mu   sync.Mutex
	subs []gform.Submission
	err  error
}

func (f *recordingForm) Notify(_ context.Context, s gform.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, s)
	return f.err
}

type fixture struct {
	svc   *Service
	flows *authflow.Service
	store *memstore.Store
	mail  *mail.Recorder
	form  *recordingForm
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := memstore.New()
	rec := &mail.Recorder{}
	form := &recordingForm{}
	flows := authflow.NewService(ms, rec, captcha.Static{}, authflow.Config{AppURL: "https://lockers.example.jp", Now: now})
	return &fixture{svc: NewService(ms, rec, flows, form, now), flows: flows, store: ms, mail: rec, form: form}
}

func payload(org string) store.CirclePayload {
	return store.CirclePayload{
		Main:         store.RepresentativeInfo{UserInfo: store.UserInfo{StudentID: "4622999", FamilyName: "テスト", GivenName: "太郎"}},
		Co:           store.RepresentativeInfo{UserInfo: store.UserInfo{StudentID: "4622000", FamilyName: "テスト", GivenName: "次郎"}},
		Organization: store.OrganizationInfo{Name: org, Ruby: "てんもんけんきゅうかい", Email: "astro@example.jp", ClubType: "culture"},
		Documents: store.Documents{
			ActivityPlanURL: "https://forms.example.jp/a",
			BudgetPlanURL:   "https://forms.example.jp/b",
			MemberListURL:   "https://forms.example.jp/c",
		},
	}
}

func (f *fixture) verify(t *testing.T, p store.CirclePayload) string {
	t.Helper()
	ctx := context.Background()
	if err := f.flows.Issue(ctx, authflow.IssueRequest{Payload: p, RecaptchaToken: "ok"}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := f.flows.MainAuth(ctx, store.FlowCircle, f.mail.LastToken("4622999@ed.tus.ac.jp")); err != nil {
		t.Fatalf("main-auth: %v", err)
	}
	if err := f.flows.CoAuth(ctx, store.FlowCircle, f.mail.LastToken("4622000@ed.tus.ac.jp")); err != nil {
		t.Fatalf("co-auth: %v", err)
	}
	res, err := f.flows.AuthCheck(ctx, store.FlowCircle, f.mail.LastToken("4622999@ed.tus.ac.jp"))
	if err != nil {
		t.Fatalf("auth-check: %v", err)
	}
	return res.AuthID
}

func TestRegisterCreatesPendingRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	authID := f.verify(t, payload("天文研究会"))

	reg, err := f.svc.Register(ctx, authID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Status != store.RegistrationPending || reg.Year != 2026 || len(reg.DocumentURLs) != 3 {
		t.Errorf("unexpected registration %+v", reg)
	}

	if _, err := f.store.Auth().Get(ctx, authID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected session consumed, got %v", err)
	}
	if len(f.form.subs) != 1 || f.form.subs[0].OrganizationName != "天文研究会" {
		t.Errorf("expected one form update, got %+v", f.form.subs)
	}
	if _, ok := f.mail.Last("4622999@ed.tus.ac.jp"); !ok {
		t.Error("expected confirmation mail to the representative")
	}
}

func TestRegisterTwiceInOneYearConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, f.verify(t, payload("天文研究会"))); err != nil {
		t.Fatalf("first: %v", err)
	}

	authID := f.verify(t, payload("天文研究会"))
	_, err := f.svc.Register(ctx, authID)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := f.store.Auth().Get(ctx, authID); err != nil {
		t.Errorf("expected session kept after rollback, got %v", err)
	}
}

func TestRegisterSurvivesFormFailure(t *testing.T) {
	f := newFixture(t)
	f.form.err = errors.New("quota")
	if _, err := f.svc.Register(context.Background(), f.verify(t, payload("天文研究会"))); err != nil {
		t.Fatalf("expected success despite form failure, got %v", err)
	}
}

func TestRegisterRejectsUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), "6f1c2a52-5d4e-4b5e-9a35-0c8a0f2f7e10")
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, f.verify(t, payload("天文研究会")))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.svc.Review(ctx, reg.RegistrationID, "admin", ReviewRequest{Status: "maybe"}); apperr.KindOf(err) != apperr.KindInvalid {
		t.Errorf("expected invalid status, got %v", err)
	}

	got, err := f.svc.Review(ctx, reg.RegistrationID, "admin", ReviewRequest{Status: store.RegistrationApproved, Comment: "ok"})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if got.Status != store.RegistrationApproved || got.ReviewedBy == nil || *got.ReviewedBy != "admin" {
		t.Errorf("unexpected review result %+v", got)
	}
	if _, ok := f.mail.Last("astro@example.jp"); !ok {
		t.Error("expected review mail to the organization")
	}

	_, err = f.svc.Review(ctx, reg.RegistrationID, "admin", ReviewRequest{Status: store.RegistrationRejected})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict on second review, got %v", err)
	}

	pending, err := f.svc.List(ctx, 2026, store.RegistrationPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending registrations, got %d", len(pending))
	}
	approved, _ := f.svc.List(ctx, 2026, store.RegistrationApproved)
	if len(approved) != 1 || approved[0].Organization == nil || approved[0].Organization.Name != "天文研究会" {
		t.Errorf("unexpected approved list %+v", approved)
	}
}
