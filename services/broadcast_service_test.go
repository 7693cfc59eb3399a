package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aldiyarbek/tournament-bot/models"
)

func TestSendNoRecipients(t *testing.T) {
	env := newTestEnv(8, 2)
	if _, err := env.broadcasts.Send(context.Background(), nil, "hello", nil); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("got %v, want ErrNoRecipients", err)
	}
}

func TestSendPartialFailure(t *testing.T) {
	env := newTestEnv(8, 2)
	env.transport.failChats[3] = true
	env.transport.failChats[5] = true

	recipients := []int64{1, 2, 3, 4, 5}
	report, err := env.broadcasts.Send(context.Background(), recipients, "hello", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if report.Total != 5 || report.Succeeded != 3 || report.Failed != 2 {
		t.Errorf("report = %+v, want 5/3/2", report)
	}

	// Сбой на одном получателе не прерывает остальных.
	for _, id := range []int64{1, 2, 4} {
		if got := env.transport.sentTo(id); len(got) != 1 {
			t.Errorf("recipient %d got %d messages, want 1", id, len(got))
		}
	}
}

func TestSendProgressCadence(t *testing.T) {
	env := newTestEnv(8, 2)

	recipients := make([]int64, 25)
	for i := range recipients {
		recipients[i] = int64(i + 1)
	}

	var snapshots []models.BroadcastProgress
	report, err := env.broadcasts.Send(context.Background(), recipients, "hello", func(p models.BroadcastProgress) {
		snapshots = append(snapshots, p)
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if report.Succeeded != 25 {
		t.Errorf("succeeded = %d, want 25", report.Succeeded)
	}

	// Каждые 10 получателей: после 1-го, 11-го и 21-го.
	if len(snapshots) != 3 {
		t.Fatalf("got %d progress snapshots, want 3", len(snapshots))
	}
	for i, wantSent := range []int{1, 11, 21} {
		if snapshots[i].Sent != wantSent || snapshots[i].Total != 25 {
			t.Errorf("snapshot[%d] = %+v, want sent=%d total=25", i, snapshots[i], wantSent)
		}
	}
}

func TestSendRunsToCompletionAfterCallerCancel(t *testing.T) {
	env := newTestEnv(8, 2)

	recipients := make([]int64, 15)
	for i := range recipients {
		recipients[i] = int64(i + 1)
	}

	// Инициатор отваливается после первого получателя; у запущенной рассылки
	// нет механизма отмены, остаток всё равно доставляется.
	ctx, cancel := context.WithCancel(context.Background())
	report, err := env.broadcasts.Send(ctx, recipients, "hello", func(models.BroadcastProgress) {
		cancel()
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if report.Succeeded != 15 || report.Failed != 0 {
		t.Errorf("report = %+v, want 15/15/0", report)
	}
	for _, id := range recipients {
		if got := env.transport.sentTo(id); len(got) != 1 {
			t.Errorf("recipient %d got %d messages, want 1", id, len(got))
		}
	}
}

func TestSendToAudience(t *testing.T) {
	env := newTestEnv(8, 2)
	ctx := context.Background()

	approved, err := env.submit(1, "Alpha")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := env.admissions.Moderate(ctx, approved.ID, DecisionApprove, testPrimaryAdmin); err != nil {
		t.Fatalf("Moderate: %v", err)
	}
	if _, err := env.submit(2, "Beta"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	report, err := env.broadcasts.SendToAudience(ctx, testPrimaryAdmin, models.AudienceApproved, "только одобренным", nil)
	if err != nil {
		t.Fatalf("SendToAudience: %v", err)
	}
	if report.Total != 1 {
		t.Errorf("approved audience total = %d, want 1", report.Total)
	}

	report, err = env.broadcasts.SendToAudience(ctx, testPrimaryAdmin, models.AudienceAll, "всем", nil)
	if err != nil {
		t.Fatalf("SendToAudience: %v", err)
	}
	if report.Total != 2 {
		t.Errorf("all audience total = %d, want 2", report.Total)
	}
}

func TestSendToAudienceRequiresAdmin(t *testing.T) {
	env := newTestEnv(8, 2)
	if _, err := env.broadcasts.SendToAudience(context.Background(), 555, models.AudienceAll, "hi", nil); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}
