package dispatcher

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mainframe-ci/ispw-generate/internal/ispw"
	"github.com/mainframe-ci/ispw-generate/internal/metrics"
	"github.com/mainframe-ci/ispw-generate/internal/storage"
	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

type Config struct {
	MaxWorkers        int
	RequestTimeout    time.Duration
	RequestsPerSecond float64

	// Gateway-level CES defaults; runs may override CesURL, Srid and Token.
	CesURL string
	Srid   string
	Token  string
}

func DefaultConfig() Config {
	return Config{
		MaxWorkers:        4,
		RequestTimeout:    300 * time.Second,
		RequestsPerSecond: 2,
	}
}

// Dispatcher drains queued generate runs and drives each one through the
// full generate-await flow. A run issues exactly one CES request; there are
// no retries. Only one dispatch cycle is active at a time.
type Dispatcher struct {
	store        storage.Store
	client       *ispw.Client
	config       Config
	log          *zap.SugaredLogger
	mu           sync.Mutex
	active       bool
	rateLimiters map[string]*rate.Limiter
	wg           sync.WaitGroup
}

func New(store storage.Store, config Config, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		store:        store,
		client:       ispw.NewClient(config.RequestTimeout),
		config:       config,
		log:          log,
		rateLimiters: make(map[string]*rate.Limiter),
	}
}

// Go starts a dispatch cycle in the background.
func (d *Dispatcher) Go(dispatchID string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Dispatch(dispatchID)
	}()
}

// Wait blocks until all background dispatch cycles have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) Dispatch(dispatchID string) {
	ctx := context.Background()
	log := d.log.With("dispatch_id", dispatchID)

	d.mu.Lock()
	if d.active {
		d.mu.Unlock()
		log.Info("dispatch already in progress")
		return
	}
	d.active = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.active = false
		d.mu.Unlock()
	}()

	runs, err := d.store.GetQueuedRuns(ctx)
	if err != nil {
		log.Errorw("failed to get queued runs", "error", err)
		return
	}

	if len(runs) == 0 {
		log.Info("no queued runs")
		return
	}

	log.Infow("processing queued runs", "count", len(runs))

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, d.config.MaxWorkers)

	for _, run := range runs {
		run := run // Capture loop var
		g.Go(func() error {
			limiter := d.getRateLimiter(hostOf(d.resolveCesURL(run)))
			if err := limiter.Wait(ctx); err != nil {
				return err
			}

			sem <- struct{}{}        // Acquire semaphore
			defer func() { <-sem }() // Release semaphore

			d.processRun(ctx, run, log)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Errorw("dispatch completed with errors", "error", err)
	} else {
		log.Info("dispatch completed")
	}
}

func (d *Dispatcher) processRun(ctx context.Context, run *storage.RunRecord, log *zap.SugaredLogger) {
	cesURL := d.resolveCesURL(run)
	srid := run.Srid
	if srid == "" {
		srid = d.config.Srid
	}
	token := d.config.Token
	if run.Token != nil {
		token = *run.Token
	}

	if cesURL == "" || srid == "" {
		d.failRun(ctx, run.ID, "Missing required configuration: CES URL or SRID", types.StatusQueued, log)
		return
	}

	if err := d.store.UpdateRunStatus(ctx, run.ID, types.StatusProcessing, time.Now()); err != nil {
		log.Errorw("failed to update run status", "run_id", run.ID, "error", err)
		return
	}
	metrics.IncRunStatusChange(string(types.StatusQueued), string(types.StatusProcessing))

	spec := ispw.GenerateSpec{
		CesURL: cesURL,
		Srid:   srid,
		Token:  token,
		Params: &types.BuildParams{
			ContainerID: run.ContainerID,
			ReleaseID:   run.ReleaseID,
			TaskLevel:   run.TaskLevel,
			TaskIDs:     run.TaskIDs,
		},
		Body: &types.GenerateBody{
			RuntimeConfig: run.RuntimeConfig,
			ChangeType:    run.ChangeType,
			ExecStat:      run.ExecStat,
			AutoDeploy:    run.AutoDeploy,
		},
	}

	metrics.IncGenerateRequest(hostOf(cesURL))
	start := time.Now()
	_, raw, err := d.client.Generate(ctx, log.With("run_id", run.ID), spec)
	metrics.ObserveGenerateDuration(time.Since(start))

	if err != nil {
		metrics.IncError("dispatcher", string(ispw.KindOf(err)))
		// Keep whatever CES sent for post-mortems even when the run failed.
		// The payload write leaves the status alone so readers never see the
		// run pass through completed on its way to failed.
		if raw != nil {
			if updateErr := d.store.UpdateRunPayload(ctx, run.ID, raw); updateErr != nil {
				log.Errorw("failed to record failure response", "run_id", run.ID, "error", updateErr)
			}
		}
		d.failRun(ctx, run.ID, err.Error(), types.StatusProcessing, log)
		return
	}

	if err := d.store.UpdateRunResponse(ctx, run.ID, raw); err != nil {
		log.Errorw("failed to update run response", "run_id", run.ID, "error", err)
		return
	}
	metrics.IncRunStatusChange(string(types.StatusProcessing), string(types.StatusCompleted))

	log.Infow("run completed", "run_id", run.ID)
}

func (d *Dispatcher) failRun(ctx context.Context, id, errMsg string, from types.RunStatus, log *zap.SugaredLogger) {
	log.Errorw("run failed", "run_id", id, "error", errMsg)
	if err := d.store.UpdateRunError(ctx, id, errMsg); err != nil {
		log.Errorw("failed to update run error", "run_id", id, "error", err)
		return
	}
	metrics.IncRunStatusChange(string(from), string(types.StatusFailed))
}

func (d *Dispatcher) resolveCesURL(run *storage.RunRecord) string {
	if run.CesURL != "" {
		return run.CesURL
	}
	return d.config.CesURL
}

func (d *Dispatcher) getRateLimiter(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	if limiter, ok := d.rateLimiters[host]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(d.config.RequestsPerSecond), 1)
	d.rateLimiters[host] = limiter
	return limiter
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
