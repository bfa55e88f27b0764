package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/tus-lockers/locker-backend/internal/config"
)

type mockSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (m *mockSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.input = in
	return &sesv2.SendEmailOutput{}, m.err
}

func TestSESBuildsSimpleTextMessage(t *testing.T) {
	api := &mockSES{}
	d := NewSES(api, "noreply@example.jp")

	if err := d.Send(context.Background(), "4622999@ed.tus.ac.jp", "本文", "件名"); err != nil {
		t.Fatalf("send: %v", err)
	}
	in := api.input
	if *in.FromEmailAddress != "noreply@example.jp" {
		t.Errorf("unexpected from %q", *in.FromEmailAddress)
	}
	if got := in.Destination.ToAddresses; len(got) != 1 || got[0] != "4622999@ed.tus.ac.jp" {
		t.Errorf("unexpected destination %v", got)
	}
	if *in.Content.Simple.Subject.Data != "件名" || *in.Content.Simple.Body.Text.Data != "本文" {
		t.Errorf("unexpected content %+v", in.Content.Simple)
	}
	if in.Content.Simple.Body.Html != nil {
		t.Error("expected a text-only body")
	}
}

func TestSESWrapsError(t *testing.T) {
	boom := errors.New("throttled")
	d := NewSES(&mockSES{err: boom}, "noreply@example.jp")
	if err := d.Send(context.Background(), "a@b.c", "x", "y"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

type slowDispatcher struct{}

func (slowDispatcher) Send(ctx context.Context, _, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestInstrumentAppliesTimeout(t *testing.T) {
	d := Instrument(BackendSES, slowDispatcher{}, 10*time.Millisecond)
	err := d.Send(context.Background(), "a@b.c", "x", "y")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestInstrumentRejectsEmptyRecipient(t *testing.T) {
	rec := &Recorder{}
	d := Instrument(BackendSMTP, rec, 0)
	if err := d.Send(context.Background(), "", "x", "y"); !errors.Is(err, ErrEmptyRecipient) {
		t.Fatalf("expected ErrEmptyRecipient, got %v", err)
	}
	if len(rec.Sent()) != 0 {
		t.Fatal("nothing should have been sent")
	}
}

func TestNewRequiresSMTPCredentials(t *testing.T) {
	_, err := New(&config.Config{LocalMailEnable: true, SMTPHost: "smtp.example.jp", SMTPPort: 587})
	if !errors.Is(err, config.ErrMissingSMTPSender) {
		t.Fatalf("expected ErrMissingSMTPSender, got %v", err)
	}
}

func TestRecorderLastToken(t *testing.T) {
	rec := &Recorder{}
	link := Link("https://lockers.example.jp/", "locker", "main-auth", "abcdEFGH12345678")
	if link != "https://lockers.example.jp/locker/main-auth?token=abcdEFGH12345678" {
		t.Fatalf("unexpected link %q", link)
	}
	_ = Deliver(context.Background(), rec, MainAuth("4622999@ed.tus.ac.jp", "locker", link))

	if got := rec.LastToken("4622999@ed.tus.ac.jp"); got != "abcdEFGH12345678" {
		t.Fatalf("expected token from link, got %q", got)
	}
	if rec.LastToken("nobody@ed.tus.ac.jp") != "" {
		t.Fatal("expected no token for unknown recipient")
	}
}

func TestTemplatesAreFlowSpecific(t *testing.T) {
	locker := MainAuth("a", "locker", "L")
	circle := MainAuth("a", "circle", "L")
	if locker.Subject == circle.Subject {
		t.Fatal("expected distinct subjects per flow")
	}
	if !strings.Contains(CircleReviewed("a", "天文部", false, "書類不備").Body, "書類不備") {
		t.Fatal("expected review comment in body")
	}
}
