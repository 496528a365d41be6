package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/waxal-backend/internal/clients/twilio"
	"github.com/yungbote/waxal-backend/internal/data/records"
	"github.com/yungbote/waxal-backend/internal/modules/collection"
	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

type readinessProbe interface {
	AssertReady(ctx context.Context) error
}

// Check verifies a deployment before it takes traffic: every required
// variable resolves, every record table is readable and ffprobe runs.
func (a *App) Check(ctx context.Context) error {
	return checkDeployment(ctx, a.Vars, a.Records.Store, a.Clients.Audio)
}

func checkDeployment(ctx context.Context, v vars.Store, store records.Store, audio readinessProbe) error {
	var errs []error

	required := append([]string{twilio.SenderVar}, collection.RequiredVars...)
	if err := vars.RequireAll(v, required...); err != nil {
		errs = append(errs, err)
	}
	for _, table := range records.Tables {
		if _, err := store.GetRows(ctx, table); err != nil {
			errs = append(errs, fmt.Errorf("table %s: %w", table, err))
		}
	}
	if audio != nil {
		if err := audio.AssertReady(ctx); err != nil {
			errs = append(errs, fmt.Errorf("audio inspector: %w", err))
		}
	}
	return errors.Join(errs...)
}
