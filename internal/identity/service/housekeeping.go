package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/store"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
)

// HousekeepingService periodically deletes expired grants, prunes retired
// signing keys past their grace period and, when configured, rotates the
// signing key.
type HousekeepingService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Logger     *slog.Logger
	Interval   time.Duration

	// RotateEvery rotates the signing key once the active key is older than
	// this. Zero disables rotation.
	RotateEvery time.Duration
	Now         func() time.Time

	lastRotation time.Time
	started      bool
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one hour.
func NewHousekeepingService(s store.Store, km *jwtx.KeyManager, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:      s,
		KeyManager: km,
		Logger:     logger,
		Interval:   interval,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

func (s *HousekeepingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Start runs the worker in the background until Stop.
func (s *HousekeepingService) Start() {
	s.lastRotation = s.now()
	s.started = true
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "rotate_every", s.RotateEvery)
}

// Stop shuts the worker down and waits for an in-flight run. It is a no-op
// when Start was never called.
func (s *HousekeepingService) Stop() {
	if !s.started {
		return
	}
	s.started = false
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one cleanup pass. Each step is independent.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	now := s.now()

	if n, err := s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired authorization codes", "error", err)
	} else if n > 0 {
		s.Logger.Debug("deleted expired authorization codes", "count", n)
	}

	if n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else if n > 0 {
		s.Logger.Debug("deleted expired refresh tokens", "count", n)
	}

	if s.KeyManager == nil {
		return
	}

	if s.RotateEvery > 0 && now.Sub(s.lastRotation) >= s.RotateEvery {
		if signer, err := s.KeyManager.Rotate(ctx); err != nil {
			s.Logger.Error("failed to rotate signing key", "error", err)
		} else {
			s.lastRotation = now
			s.Logger.Info("signing key rotated", "kid", signer.KID())
		}
	}

	if n, err := s.KeyManager.Prune(ctx); err != nil {
		s.Logger.Error("failed to prune retired signing keys", "error", err)
	} else if n > 0 {
		s.Logger.Info("pruned retired signing keys", "count", n)
	}
}
