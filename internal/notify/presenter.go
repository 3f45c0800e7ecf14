// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notify

import (
	"context"

	xglog "github.com/ManuGH/inqwatch/internal/log"
	"github.com/rs/zerolog"
)

// Presenter shows an alert to the operator.
type Presenter interface {
	Name() string
	Present(ctx context.Context, a Alert) error
}

// LogPresenter writes every alert as a structured log line.
type LogPresenter struct {
	logger zerolog.Logger
}

// NewLogPresenter returns a presenter logging through logger. A disabled
// logger falls back to the notify component logger.
func NewLogPresenter(logger zerolog.Logger) *LogPresenter {
	if logger.GetLevel() == zerolog.Disabled {
		logger = xglog.WithComponent("notify")
	}
	return &LogPresenter{logger: logger}
}

func (p *LogPresenter) Name() string { return "log" }

func (p *LogPresenter) Present(ctx context.Context, a Alert) error {
	l := xglog.WithContext(ctx, p.logger)
	l.Info().
		Str(xglog.FieldEvent, "notify.alert").
		Str(xglog.FieldAlertID, a.ID).
		Str(xglog.FieldEventID, a.EventID).
		Uint64(xglog.FieldEpoch, a.Epoch).
		Bool("persistent", a.Persistent).
		Str("description", a.Description).
		Msg(a.Title)
	return nil
}
