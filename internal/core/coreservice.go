package core

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/jo-hoe/gopicker/internal/backend/clipboard"
	"github.com/jo-hoe/gopicker/internal/backend/database"
	"github.com/jo-hoe/gopicker/internal/backend/eyedropper"
	"github.com/jo-hoe/gopicker/internal/backend/imageloader"
	"github.com/jo-hoe/gopicker/internal/picker"
)

const sessionLockStripes = 64

var ErrNoImage = errors.New("no image loaded")

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	loader          *imageloader.Loader
	cache           *imageloader.ImageCache
	capability      picker.Capability
	eyeDropper      *eyedropper.EyeDropper
	clipboard       picker.Clipboard

	// read-modify-write of a session happens under its stripe
	locks [sessionLockStripes]sync.Mutex

	// sessions with a Pick call running in this process
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	stopJanitor chan struct{}
	janitorDone chan struct{}
	closeOnce   sync.Once
}

type Option func(*CoreService)

// WithClipboard replaces the configured clipboard with a server-side one
func WithClipboard(cb picker.Clipboard) Option {
	return func(s *CoreService) {
		s.clipboard = cb
	}
}

func NewCoreService(config *ServiceConfig, opts ...Option) *CoreService {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		slog.Error("failed to initialize database service", "error", err)
		panic(err)
	}
	cb, err := clipboard.NewClipboard(config.Clipboard.Type)
	if err != nil {
		slog.Error("failed to initialize clipboard", "error", err)
		panic(err)
	}

	service := &CoreService{
		config:          config,
		databaseService: databaseService,
		loader: imageloader.NewLoader(
			config.Image.MaxUploadBytes,
			config.Image.MaxPixels,
			config.Image.SVGFallbackWidth,
			config.Image.SVGFallbackHeight),
		cache:       imageloader.NewImageCache(),
		capability:  picker.Unsupported(),
		clipboard:   cb,
		inflight:    make(map[string]struct{}),
		stopJanitor: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(service)
	}

	// the sampling capability is resolved once for the process lifetime
	if config.Sampler.Enabled {
		service.eyeDropper = eyedropper.New(service)
		service.capability = picker.Supported(service.eyeDropper)
	}
	slog.Info("color sampling capability resolved", "supported", service.capability.Supported())

	go service.runJanitor()
	return service
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString, config.Database.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

// SamplingSupported reports whether the pick trigger can ever work
func (service *CoreService) SamplingSupported() bool {
	return service.capability.Supported()
}

// NewSession starts a page session
func (service *CoreService) NewSession(ctx context.Context) (*picker.Session, error) {
	id, err := database.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	session := picker.NewSession(id, service.capability)
	if err := service.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (service *CoreService) GetSession(ctx context.Context, id string) (*picker.Session, error) {
	return service.databaseService.GetSession(ctx, id)
}

// LoadImage replaces the image of a session. The sampled color is kept.
func (service *CoreService) LoadImage(ctx context.Context, id string, data []byte) (*picker.Session, error) {
	res, err := service.loader.Load(data)
	if err != nil {
		return nil, err
	}
	return service.update(ctx, id, func(s *picker.Session) error {
		s.LoadImage(res)
		service.cache.Evict(id)
		return nil
	})
}

// ClearImage removes image and sampled color of a session
func (service *CoreService) ClearImage(ctx context.Context, id string) (*picker.Session, error) {
	return service.update(ctx, id, func(s *picker.Session) error {
		s.ClearImage()
		service.cache.Evict(id)
		return nil
	})
}

// Pick runs one sampling round. It returns once the user picked a pixel,
// cancelled, or the sample failed; the outcome is recorded in the session.
// Without a sampling capability the call is a no-op.
func (service *CoreService) Pick(ctx context.Context, id string) (*picker.Session, error) {
	session, err := service.update(ctx, id, func(s *picker.Session) error {
		service.resetIfStale(s)
		if err := s.BeginSample(); err != nil {
			return err
		}
		service.setInflight(id, true)
		return nil
	})
	if errors.Is(err, picker.ErrCapabilityUnavailable) {
		return session, nil
	}
	if err != nil {
		return session, err
	}
	defer service.setInflight(id, false)

	outcome := service.capability.Sampler().Open(ctx, id)
	slog.Debug("pick finished", "session_id", id, "outcome", outcome.Kind.String())

	// the request may be gone by now, the outcome is still recorded
	return service.update(context.WithoutCancel(ctx), id, func(s *picker.Session) error {
		if err := s.Apply(outcome); err != nil && !errors.Is(err, picker.ErrSampleCancelled) {
			slog.Info("pick did not resolve", "session_id", id, "error", err)
		}
		return nil
	})
}

// DeliverClick forwards a click on the displayed image to a pending pick
func (service *CoreService) DeliverClick(id string, x, y int) error {
	if service.eyeDropper == nil {
		return picker.ErrCapabilityUnavailable
	}
	return service.eyeDropper.Deliver(id, x, y)
}

// AbortPick cancels a pending pick. A session left in Sampling without any
// pick waiting for it is put back to Idle instead.
func (service *CoreService) AbortPick(ctx context.Context, id string) error {
	if service.eyeDropper == nil {
		return picker.ErrCapabilityUnavailable
	}
	err := service.eyeDropper.Abort(id)
	if !errors.Is(err, eyedropper.ErrNoPendingPick) {
		return err
	}

	recovered := false
	if _, updateErr := service.update(ctx, id, func(s *picker.Session) error {
		recovered = service.resetIfStale(s)
		return nil
	}); updateErr != nil {
		return updateErr
	}
	if recovered {
		return nil
	}
	return err
}

// AbortPendingPicks cancels every waiting pick and refuses new ones. Called on
// shutdown so that waiting requests finish and record their session as Idle.
func (service *CoreService) AbortPendingPicks() int {
	if service.eyeDropper == nil {
		return 0
	}
	aborted := service.eyeDropper.Shutdown()
	slog.Info("aborted pending picks", "count", aborted)
	return aborted
}

// ClipboardInBrowser reports whether copied values are handed to the page
// instead of a server-side clipboard
func (service *CoreService) ClipboardInBrowser() bool {
	return service.clipboard == nil
}

// Copy returns the text of a displayed value and, with a server-side
// clipboard, writes it there. A failed write lands in the session error slot
// and is also returned.
func (service *CoreService) Copy(ctx context.Context, id string, field picker.Field) (*picker.Session, string, error) {
	var value string
	var copyErr error
	session, err := service.update(ctx, id, func(s *picker.Session) error {
		v, err := s.Value(field)
		if err != nil {
			return err
		}
		value = v
		if service.clipboard == nil {
			return nil
		}
		if err := service.clipboard.WriteText(ctx, value); err != nil {
			s.FailClipboard(err)
			copyErr = fmt.Errorf("%w: %w", picker.ErrClipboardWriteFailed, err)
		}
		return nil
	})
	if err != nil {
		return session, "", err
	}
	return session, value, copyErr
}

// ReportClipboardFailure records a clipboard write the page could not complete
func (service *CoreService) ReportClipboardFailure(ctx context.Context, id string, reason string) (*picker.Session, error) {
	if reason == "" {
		reason = "unknown error"
	}
	return service.update(ctx, id, func(s *picker.Session) error {
		s.FailClipboard(errors.New(reason))
		return nil
	})
}

// SessionImage implements eyedropper.ImageSource
func (service *CoreService) SessionImage(ctx context.Context, id string) (image.Image, error) {
	// held so a concurrent upload cannot be overwritten by a stale decode
	lock := service.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if img, ok := service.cache.Get(id); ok {
		return img, nil
	}
	session, err := service.databaseService.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Image == nil {
		return nil, ErrNoImage
	}
	img, err := imageloader.Decode(*session.Image)
	if err != nil {
		return nil, err
	}
	service.cache.Put(id, img)
	return img, nil
}

func (service *CoreService) Close() error {
	service.closeOnce.Do(func() {
		close(service.stopJanitor)
		<-service.janitorDone
	})
	return service.databaseService.Close()
}

// update loads a session, applies fn and saves the result under the session
// lock. When fn fails the session is returned unsaved.
func (service *CoreService) update(ctx context.Context, id string, fn func(*picker.Session) error) (*picker.Session, error) {
	lock := service.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := service.databaseService.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return session, err
	}
	if err := service.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (service *CoreService) save(ctx context.Context, session *picker.Session) error {
	session.UpdatedAt = time.Now().UTC()
	if err := service.databaseService.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// resetIfStale clears a Sampling status that no Pick of this process owns,
// as left behind by a restart. Callers hold the session lock.
func (service *CoreService) resetIfStale(s *picker.Session) bool {
	service.inflightMu.Lock()
	_, running := service.inflight[s.ID]
	service.inflightMu.Unlock()
	if running || !s.ResetStaleSample() {
		return false
	}
	slog.Warn("reset stale sampling state", "session_id", s.ID)
	return true
}

func (service *CoreService) setInflight(id string, running bool) {
	service.inflightMu.Lock()
	defer service.inflightMu.Unlock()
	if running {
		service.inflight[id] = struct{}{}
	} else {
		delete(service.inflight, id)
	}
}

func (service *CoreService) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &service.locks[h.Sum32()%sessionLockStripes]
}

// runJanitor drops sessions that were not touched for the configured TTL
func (service *CoreService) runJanitor() {
	defer close(service.janitorDone)
	ttl := service.config.Database.TTL
	if ttl <= 0 {
		<-service.stopJanitor
		return
	}

	ticker := time.NewTicker(max(ttl/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-service.stopJanitor:
			return
		case <-ticker.C:
			service.sweep(context.Background(), time.Now().Add(-ttl))
		}
	}
}

func (service *CoreService) sweep(ctx context.Context, cutoff time.Time) {
	if evicted := service.cache.EvictOlderThan(cutoff); evicted > 0 {
		slog.Debug("evicted cached images", "count", evicted)
	}
	deleted, err := service.databaseService.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		slog.Error("failed to delete expired sessions", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("deleted expired sessions", "count", deleted)
	}
}
