package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/state"
)

const DefaultIdentityRetry = time.Minute

// IdentitySettings is the part of the sync settings the resolver drives.
type IdentitySettings interface {
	OfflineModeCell() *state.Cell[bool]
	SetActiveUserID(ctx context.Context, userID string) error
}

// IdentityResolver publishes the online identity. It asks the catalog who
// we are whenever offline mode is off, retrying transient failures, and
// clears the identity when offline mode is switched on. A refused
// identity is not retried until offline mode toggles again.
type IdentityResolver struct {
	api      catalog.API
	settings IdentitySettings
	identity *state.Cell[*catalog.User]
	retry    time.Duration
	log      zerolog.Logger
}

func NewIdentityResolver(api catalog.API, settings IdentitySettings, identity *state.Cell[*catalog.User], retry time.Duration) *IdentityResolver {
	if retry <= 0 {
		retry = DefaultIdentityRetry
	}
	return &IdentityResolver{
		api:      api,
		settings: settings,
		identity: identity,
		retry:    retry,
		log:      logging.Component("identity"),
	}
}

// Serve blocks until ctx is done.
func (r *IdentityResolver) Serve(ctx context.Context) error {
	offline := r.settings.OfflineModeCell().Subscribe(ctx)
	var retry <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case off, ok := <-offline:
			if !ok {
				return ctx.Err()
			}
			if off {
				retry = nil
				if r.identity.Get() != nil {
					r.log.Info().Msg("Offline mode enabled, dropping online identity")
				}
				r.identity.Set(nil)
				continue
			}
			retry = r.resolve(ctx)
		case <-retry:
			retry = r.resolve(ctx)
		}
	}
}

// resolve returns the retry timer, or nil when no retry is due.
func (r *IdentityResolver) resolve(ctx context.Context) <-chan time.Time {
	user, err := r.api.GetMe(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil
	case !catalog.IsTransient(err):
		r.log.Error().Err(err).Str("server", r.api.BaseURL()).Msg("Catalog refused the identity request")
		return nil
	default:
		r.log.Warn().Err(err).Dur("retry_in", r.retry).Msg("Catalog unreachable, staying offline")
		return time.After(r.retry)
	}

	if err := r.settings.SetActiveUserID(ctx, user.ID); err != nil {
		r.log.Warn().Err(err).Msg("Failed to persist active user")
	}
	r.log.Info().Str("user_id", user.ID).Str("server", r.api.BaseURL()).Msg("Online identity resolved")
	r.identity.Set(user)
	return nil
}

func (r *IdentityResolver) String() string {
	return "identity-resolver"
}
