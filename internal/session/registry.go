package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/sync/singleflight"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/metrics"
)

// Cache is the optional resolution cache in front of the store. A hit may
// carry a nil session when "no active session" was cached.
type Cache interface {
	Get(ctx context.Context) (*domain.TrackingSession, bool)
	Set(ctx context.Context, session *domain.TrackingSession)
	Invalidate(ctx context.Context)
}

// Registry resolves the active tracking session for the persistence workers.
// It absorbs every failure mode into "no active session": the pipeline keeps
// streaming and alerting even when the store is down.
type Registry struct {
	store domain.SessionStore
	cache Cache
	group singleflight.Group
	cb    circuitbreaker.CircuitBreaker[any]
}

var _ domain.SessionRegistry = (*Registry)(nil)

// NewRegistry creates a registry over the store. cache may be nil, in which
// case every resolution goes to the store.
func NewRegistry(store domain.SessionStore, cache Cache) *Registry {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "session_registry",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
		}).
		Build()

	return &Registry{store: store, cache: cache, cb: cb}
}

// ActiveSession returns the currently active session, or nil when there is
// none or resolution failed. Concurrent resolutions collapse into one store
// query via singleflight.
func (r *Registry) ActiveSession(ctx context.Context) *domain.TrackingSession {
	if r.cache != nil {
		if session, hit := r.cache.Get(ctx); hit {
			metrics.RegistryCacheHitsTotal.Inc()
			return session
		}
	}

	v, err, _ := r.group.Do("active_session", func() (any, error) {
		return r.lookup(ctx)
	})
	if err != nil {
		metrics.RegistryLookupsTotal.WithLabelValues("error").Inc()
		slog.Warn("Active session lookup failed", "error", err)
		return nil
	}

	session, _ := v.(*domain.TrackingSession)
	if session == nil {
		metrics.RegistryLookupsTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.RegistryLookupsTotal.WithLabelValues("hit").Inc()
	}

	if r.cache != nil {
		r.cache.Set(ctx, session)
	}
	return session
}

// Invalidate drops the cached resolution. Called by the session API after a
// start or stop so the next gaze point sees the change immediately.
func (r *Registry) Invalidate(ctx context.Context) {
	if r.cache != nil {
		r.cache.Invalidate(ctx)
	}
}

func (r *Registry) lookup(ctx context.Context) (*domain.TrackingSession, error) {
	if !r.cb.TryAcquirePermit() {
		return nil, circuitbreaker.ErrOpen
	}

	session, err := r.store.ActiveSession(ctx)
	switch {
	case errors.Is(err, domain.ErrNoActiveSession):
		r.cb.RecordSuccess()
		return nil, nil
	case err != nil:
		r.cb.RecordError(err)
		return nil, err
	}

	r.cb.RecordSuccess()
	return session, nil
}
