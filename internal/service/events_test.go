package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
)

func validEventInput() domain.EventInput {
	return domain.EventInput{
		Title:     "Khóa tu mùa hè",
		StartDate: time.Now().Add(30 * 24 * time.Hour),
		StartTime: "08:00",
		Type:      "retreat",
		Capacity:  100,
	}
}

func newEventService() (*EventService, *mockEventRepo) {
	repo := &mockEventRepo{byID: map[int64]*domain.Event{}}
	return NewEventService(repo, nil), repo
}

func TestCreateEventGeneratesSlug(t *testing.T) {
	svc, _ := newEventService()

	ev, err := svc.Create(context.Background(), validEventInput(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Slug != "khoa-tu-mua-he" {
		t.Errorf("slug = %q, want khoa-tu-mua-he", ev.Slug)
	}
	if ev.CreatedBy != 1 {
		t.Errorf("createdBy = %d, want 1", ev.CreatedBy)
	}
}

func TestCreateEventDeduplicatesSlug(t *testing.T) {
	svc, repo := newEventService()
	repo.byID[7] = &domain.Event{ID: 7, Slug: "khoa-tu-mua-he"}

	ev, err := svc.Create(context.Background(), validEventInput(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Slug != "khoa-tu-mua-he-2" {
		t.Errorf("slug = %q, want khoa-tu-mua-he-2", ev.Slug)
	}
}

func TestCreateEventValidation(t *testing.T) {
	svc, _ := newEventService()

	cases := []struct {
		name   string
		mutate func(*domain.EventInput)
		want   error
	}{
		{"missing title", func(in *domain.EventInput) { in.Title = "" }, domain.ErrMissingFields},
		{"missing start date", func(in *domain.EventInput) { in.StartDate = time.Time{} }, domain.ErrMissingFields},
		{"bad type", func(in *domain.EventInput) { in.Type = "festival" }, domain.ErrInvalidInput},
		{"bad start time", func(in *domain.EventInput) { in.StartTime = "8am" }, domain.ErrInvalidInput},
		{"negative price", func(in *domain.EventInput) { in.Price = -1 }, domain.ErrInvalidInput},
		{"negative capacity", func(in *domain.EventInput) { in.Capacity = -5 }, domain.ErrInvalidInput},
		{"end before start", func(in *domain.EventInput) {
			end := in.StartDate.Add(-24 * time.Hour)
			in.EndDate = &end
		}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validEventInput()
			tc.mutate(&in)
			if _, err := svc.Create(context.Background(), in, 1); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUpdateEventKeepsSlugWhenTitleUnchanged(t *testing.T) {
	svc, repo := newEventService()
	ev, err := svc.Create(context.Background(), validEventInput(), 1)
	if err != nil {
		t.Fatal(err)
	}
	repo.byID[ev.ID] = ev

	price := int64(200000)
	updated, err := svc.Update(context.Background(), ev.ID, domain.EventPatch{Price: &price})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Slug != "khoa-tu-mua-he" {
		t.Errorf("slug changed to %q on a price-only update", updated.Slug)
	}
}

func TestUpdateEventRejectsBadPatch(t *testing.T) {
	svc, repo := newEventService()
	ev, err := svc.Create(context.Background(), validEventInput(), 1)
	if err != nil {
		t.Fatal(err)
	}
	repo.byID[ev.ID] = ev

	badType := "festival"
	if _, err := svc.Update(context.Background(), ev.ID, domain.EventPatch{Type: &badType}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("bad type: got %v", err)
	}

	badTime := "25:00"
	if _, err := svc.Update(context.Background(), ev.ID, domain.EventPatch{StartTime: &badTime}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("bad time: got %v", err)
	}
}

func TestUpdateEventValidatesDateRange(t *testing.T) {
	svc, repo := newEventService()
	in := validEventInput()
	end := in.StartDate.Add(48 * time.Hour)
	in.EndDate = &end
	ev, err := svc.Create(context.Background(), in, 1)
	if err != nil {
		t.Fatal(err)
	}
	repo.byID[ev.ID] = ev

	// endDate patched to before the stored startDate.
	badEnd := ev.StartDate.Add(-24 * time.Hour)
	if _, err := svc.Update(context.Background(), ev.ID, domain.EventPatch{EndDate: &badEnd}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("endDate before startDate: got %v", err)
	}

	// startDate patched past the stored endDate.
	badStart := end.Add(24 * time.Hour)
	if _, err := svc.Update(context.Background(), ev.ID, domain.EventPatch{StartDate: &badStart}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("startDate after endDate: got %v", err)
	}

	// Moving both together stays valid.
	newStart := end.Add(24 * time.Hour)
	newEnd := newStart.Add(48 * time.Hour)
	if _, err := svc.Update(context.Background(), ev.ID, domain.EventPatch{StartDate: &newStart, EndDate: &newEnd}); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}
}
