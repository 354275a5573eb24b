package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/team-kalender/internal/holidays"
	"github.com/klabast/wb-services/team-kalender/internal/planner"
	"github.com/klabast/wb-services/team-kalender/internal/storage"
)

// ReadState returns the stored state, or empty state when nothing is
// stored yet. Unreadable storage and corrupt payloads are errors.
func ReadState(ctx context.Context, backend storage.Backend, currentYear int) (*planner.Data, error) {
	raw, err := backend.Get(ctx, storage.StateKey)
	if errors.Is(err, storage.ErrNotFound) {
		return planner.NewData(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stored state: %w", err)
	}
	d, err := planner.ParsePayload(raw, currentYear)
	if err != nil {
		return nil, fmt.Errorf("parse stored state: %w", err)
	}
	return d, nil
}

// LoadState is ReadState for the server: failures are logged and the
// planner starts empty.
func LoadState(ctx context.Context, backend storage.Backend, currentYear int, log *zap.Logger) *planner.Data {
	if log == nil {
		log = zap.NewNop()
	}
	d, err := ReadState(ctx, backend, currentYear)
	if err != nil {
		log.Error("stored state unavailable, starting with empty state", zap.Error(err))
		return planner.NewData()
	}
	return d
}

// SaveState writes d in its persisted shape.
func SaveState(ctx context.Context, backend storage.Backend, d *planner.Data) error {
	raw, err := planner.Marshal(d)
	if err != nil {
		return err
	}
	return backend.Put(ctx, storage.StateKey, raw)
}

// LoadSchoolHolidayState returns the persisted state code, or fallback when
// none or an unknown code is stored.
func LoadSchoolHolidayState(ctx context.Context, backend storage.Backend, fallback string, log *zap.Logger) string {
	if log == nil {
		log = zap.NewNop()
	}
	raw, err := backend.Get(ctx, storage.SchoolHolidayStateKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn("reading school holiday state failed", zap.Error(err))
		}
		return fallback
	}
	if _, ok := holidays.LookupState(string(raw)); !ok {
		return fallback
	}
	return string(raw)
}
