package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tideraider/surf-alert-server/internal/alert"
	"github.com/tideraider/surf-alert-server/internal/surf"
)

type fakeEmail struct {
	err    error
	panics bool
	sent   []string
}

func (f *fakeEmail) SendEmail(to, subject, body string) error {
	if f.panics {
		panic("smtp library exploded")
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeWhatsApp struct {
	err  error
	sent []string
}

func (f *fakeWhatsApp) SendWhatsApp(ctx context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeRecorder struct {
	notifications []*alert.Notification
	inApp         int
	inAppErr      error
}

func (f *fakeRecorder) RecordNotification(n *alert.Notification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeRecorder) WriteInAppNotification(id, userID, title, body string) error {
	if f.inAppErr != nil {
		return f.inAppErr
	}
	f.inApp++
	return nil
}

func matchedResult() alert.MatchResult {
	return alert.MatchResult{
		Matched: true,
		Properties: []alert.PropertyComparison{
			{Property: surf.PropWindSpeed, TargetValue: 15, ActualValue: 16, Difference: 1, WithinRange: true},
		},
		Summary: "dawn patrol: all 1 conditions met",
	}
}

func testAlert(method alert.NotificationMethod) *alert.Alert {
	return &alert.Alert{
		ID:                 "a1",
		UserID:             "u1",
		Name:               "dawn patrol",
		RegionID:           "jbay",
		Type:               alert.TypeVariables,
		Properties:         []alert.Property{{Name: surf.PropWindSpeed, OptimalValue: 15, Range: 2}},
		NotificationMethod: method,
		ContactInfo:        "surfer@example.com",
		Active:             true,
	}
}

func TestDispatch_EmailSuccess(t *testing.T) {
	email := &fakeEmail{}
	rec := &fakeRecorder{}
	d := NewDispatcher(email, &fakeWhatsApp{}, rec, nil)

	ok := d.Dispatch(context.Background(), matchedResult(), testAlert(alert.MethodEmail), "Supertubes")
	if !ok {
		t.Fatal("expected dispatch success")
	}
	if len(email.sent) != 1 || email.sent[0] != "surfer@example.com" {
		t.Errorf("email sent to %v, want surfer@example.com", email.sent)
	}
	if len(rec.notifications) != 1 {
		t.Fatalf("expected 1 recorded notification, got %d", len(rec.notifications))
	}
	if !rec.notifications[0].Success {
		t.Error("recorded notification should be successful")
	}
}

func TestDispatch_BothSucceedsOnPartialFailure(t *testing.T) {
	email := &fakeEmail{err: errors.New("smtp timeout")}
	wa := &fakeWhatsApp{}
	rec := &fakeRecorder{}
	d := NewDispatcher(email, wa, rec, nil)

	ok := d.Dispatch(context.Background(), matchedResult(), testAlert(alert.MethodBoth), "Supertubes")
	if !ok {
		t.Fatal("one working channel should make the dispatch successful")
	}
	if len(wa.sent) != 1 {
		t.Errorf("whatsapp sends = %d, want 1", len(wa.sent))
	}
	if len(rec.notifications) != 2 {
		t.Fatalf("both channels must be recorded, got %d records", len(rec.notifications))
	}

	var failures, successes int
	for _, n := range rec.notifications {
		if n.Success {
			successes++
		} else {
			failures++
		}
	}
	if failures != 1 || successes != 1 {
		t.Errorf("got %d failures and %d successes, want 1 and 1", failures, successes)
	}
}

func TestDispatch_BothFailsWhenAllChannelsFail(t *testing.T) {
	email := &fakeEmail{err: errors.New("smtp down")}
	wa := &fakeWhatsApp{err: errors.New("gateway 503")}
	d := NewDispatcher(email, wa, &fakeRecorder{}, nil)

	if d.Dispatch(context.Background(), matchedResult(), testAlert(alert.MethodBoth), "Supertubes") {
		t.Error("dispatch should fail when every channel fails")
	}
}

func TestDispatch_SenderPanicBecomesFailure(t *testing.T) {
	email := &fakeEmail{panics: true}
	rec := &fakeRecorder{}
	d := NewDispatcher(email, &fakeWhatsApp{}, rec, nil)

	ok := d.Dispatch(context.Background(), matchedResult(), testAlert(alert.MethodEmail), "Supertubes")
	if ok {
		t.Fatal("panicking sender must yield dispatch failure, not a crash")
	}
	if len(rec.notifications) != 1 || rec.notifications[0].Success {
		t.Error("the failed attempt must still be recorded")
	}
}

func TestDispatch_InAppChannel(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(&fakeEmail{}, &fakeWhatsApp{}, rec, nil)

	ok := d.Dispatch(context.Background(), matchedResult(), testAlert(alert.MethodApp), "Supertubes")
	if !ok {
		t.Fatal("in-app dispatch should succeed")
	}
	if rec.inApp != 1 {
		t.Errorf("in-app writes = %d, want 1", rec.inApp)
	}

	// A failing persistence write is the one thing that fails the channel.
	rec2 := &fakeRecorder{inAppErr: errors.New("insert failed")}
	d2 := NewDispatcher(&fakeEmail{}, &fakeWhatsApp{}, rec2, nil)
	if d2.Dispatch(context.Background(), matchedResult(), testAlert(alert.MethodApp), "Supertubes") {
		t.Error("in-app dispatch should fail when the write fails")
	}
}

func TestRenderMatchBody(t *testing.T) {
	body, err := RenderMatchBody(matchedResult(), testAlert(alert.MethodEmail), "Supertubes")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{"Supertubes", "dawn patrol", "windSpeed", "16.0", "15.0"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}

	rating := alert.MatchResult{Matched: true, RequiredStars: 4, ActualStars: 5, Summary: "weekend: rated 5 stars (needed 4)"}
	a := testAlert(alert.MethodEmail)
	a.Type = alert.TypeRating
	body, err = RenderMatchBody(rating, a, "Supertubes")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(body, "5 stars") || !strings.Contains(body, "threshold: 4") {
		t.Errorf("rating body missing star details:\n%s", body)
	}
}
