package service

import (
	"Pod_Pulse/internal/model"
	"context"
	"errors"
	"testing"
	"time"
)

type fakeOutboxStore struct {
	rows    []model.EngagementOutbox
	sent    []uint64
	retried []uint64
}

func (f *fakeOutboxStore) List(ctx context.Context, batchSize int) ([]model.EngagementOutbox, error) {
	return f.rows, nil
}

func (f *fakeOutboxStore) RetryUpdate(ctx context.Context, id uint64) error {
	f.retried = append(f.retried, id)
	return nil
}

func (f *fakeOutboxStore) SuccessUpdate(ctx context.Context, id uint64) error {
	f.sent = append(f.sent, id)
	return nil
}

func TestOutboxRelayerDrain(t *testing.T) {
	store := &fakeOutboxStore{rows: []model.EngagementOutbox{
		{ID: 1, EventType: "engagement_recorded", PostID: 100},
		{ID: 2, EventType: "run_finished", PostID: 100},
		{ID: 3, EventType: "engagement_recorded", PostID: 101},
	}}
	r := &OutboxRelayer{
		repo:      store,
		batchSize: 10,
		interval:  time.Second,
		sender: func(ctx context.Context, ob *model.EngagementOutbox) error {
			if ob.ID == 2 {
				return errors.New("broker down")
			}
			return nil
		},
	}

	r.drainOnce(context.Background())

	if len(store.sent) != 2 || store.sent[0] != 1 || store.sent[1] != 3 {
		t.Errorf("sent = %v, want [1 3]", store.sent)
	}
	if len(store.retried) != 1 || store.retried[0] != 2 {
		t.Errorf("retried = %v, want [2]", store.retried)
	}
}
