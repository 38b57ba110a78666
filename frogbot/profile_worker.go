package frogbot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// workerIdleCheckInterval is how often an idle worker checks whether it
// should exit.
var workerIdleCheckInterval = time.Minute

// workerSubmitWait bounds how long a command waits for its worker to be
// free before the member is told it's busy.
var workerSubmitWait = 250 * time.Millisecond

// profileJob is one slash command waiting for its profile worker.
type profileJob struct {
	handler InteractionHandler
	run     func(ctx context.Context, handler InteractionHandler) error
}

// workerLimiter tracks when a worker last ran a command.
type workerLimiter struct {
	// IdleTimeout is how long a worker may go without a command before it
	// exits
	IdleTimeout   time.Duration
	LastCommandAt time.Time

	mu sync.Mutex
}

func newWorkerLimiter(idleTimeout time.Duration) *workerLimiter {
	if idleTimeout <= 0 {
		idleTimeout = DefaultWorkerIdleTimeout
	}
	return &workerLimiter{IdleTimeout: idleTimeout}
}

// Expired reports when the worker expires, and whether that's already
// passed.
func (w *workerLimiter) Expired() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	expiresAt := w.LastCommandAt.Add(w.IdleTimeout)
	return expiresAt, time.Now().After(expiresAt)
}

func (w *workerLimiter) SetLastCommand(ts time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.LastCommandAt = ts
}

// profileWorker runs the slash commands of one member in one community,
// one at a time. The interactive views those commands open stay on the
// worker until they finish, so a member can't edit the same profile from
// two views at once.
type profileWorker struct {
	key     string
	jobs    chan profileJob
	limiter *workerLimiter

	signalStop chan struct{}
	stopped    chan struct{}

	bot *FrogBot
}

func newProfileWorker(b *FrogBot, key string) *profileWorker {
	return &profileWorker{
		key:        key,
		jobs:       make(chan profileJob),
		limiter:    newWorkerLimiter(b.config.WorkerIdleTimeout),
		signalStop: make(chan struct{}, 1),
		stopped:    make(chan struct{}),
		bot:        b,
	}
}

func profileWorkerKey(guildID string, userID string) string {
	return guildID + ":" + userID
}

// Run handles jobs until ctx is cancelled, a stop is signalled, or the
// worker has been idle for longer than its idle timeout.
func (w *profileWorker) Run(ctx context.Context, started chan<- struct{}) {
	log := contextLogger(ctx, w.bot.logger).With("worker", w.key)
	ctx = WithLogger(ctx, log)
	defer close(w.stopped)

	log.DebugContext(ctx, "starting profile worker")
	startedAt := time.Now()
	ticker := time.NewTicker(workerIdleCheckInterval)
	defer func() {
		ticker.Stop()
		log.DebugContext(ctx, "stopped profile worker", "runtime", time.Since(startedAt))
	}()

	w.limiter.SetLastCommand(time.Now())
	close(started)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signalStop:
			log.InfoContext(ctx, "got stop signal")
			return
		case <-ticker.C:
			if expiresAt, expired := w.limiter.Expired(); expired {
				log.DebugContext(ctx, "profile worker idle, stopping", "expired_at", expiresAt)
				return
			}
		case job := <-w.jobs:
			w.limiter.SetLastCommand(time.Now())
			w.runJob(ctx, log, job)
			w.limiter.SetLastCommand(time.Now())
		}
	}
}

// runJob runs one command, recovering from a panic when the runtime
// config asks for it.
func (w *profileWorker) runJob(ctx context.Context, log *slog.Logger, job profileJob) {
	ctx = WithLogger(ctx, job.handler.Logger())
	if w.bot.RuntimeConfig().RecoverPanic {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(
					ctx,
					"panic in profile command",
					tint.Err(fmt.Errorf("%v", r)),
					"stack", string(debug.Stack()),
				)
				w.bot.respondError(ctx, job.handler, fmt.Errorf("panic: %v", r))
			}
		}()
	}
	if err := job.run(ctx, job.handler); err != nil {
		if !w.bot.respondError(ctx, job.handler, err) {
			log.ErrorContext(ctx, "error running command", tint.Err(err))
		}
	}
}

// submit hands job to the worker. It returns false when the worker is
// still busy with an earlier command, or has stopped.
func (w *profileWorker) submit(job profileJob) bool {
	timer := time.NewTimer(workerSubmitWait)
	defer timer.Stop()
	select {
	case w.jobs <- job:
		return true
	case <-w.stopped:
		return false
	case <-timer.C:
		return false
	}
}

// profileWorkers tracks running workers by key.
type profileWorkers struct {
	mu      sync.Mutex
	workers map[string]*profileWorker
	wg      sync.WaitGroup
}

func newProfileWorkers() *profileWorkers {
	return &profileWorkers{workers: map[string]*profileWorker{}}
}

// get returns the running worker for key, starting one if needed.
func (p *profileWorkers) get(ctx context.Context, b *FrogBot, key string) *profileWorker {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.workers[key]; ok {
		select {
		case <-w.stopped:
		default:
			return w
		}
	}

	w := newProfileWorker(b, key)
	started := make(chan struct{})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		w.Run(ctx, started)

		p.mu.Lock()
		defer p.mu.Unlock()
		if cur, ok := p.workers[key]; ok && cur == w {
			delete(p.workers, key)
		}
	}()
	p.workers[key] = w
	<-started
	return w
}

// Len returns the number of running workers.
func (p *profileWorkers) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// stopAll signals every worker and waits for them to exit.
func (p *profileWorkers) stopAll() {
	p.mu.Lock()
	for _, w := range p.workers {
		select {
		case w.signalStop <- struct{}{}:
		default:
		}
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// dispatchProfileCommand queues a /profiles command on the member's
// worker. The member gets the busy message when an earlier command is
// still running.
func (b *FrogBot) dispatchProfileCommand(ctx context.Context, handler InteractionHandler) {
	i := handler.GetInteraction()
	u := interactionUser(i)
	if u == nil {
		return
	}
	key := profileWorkerKey(i.GuildID, u.ID)
	job := profileJob{handler: handler, run: b.handleProfilesCommand}

	w := b.workers.get(b.runCtx(), b, key)
	if w.submit(job) {
		return
	}
	select {
	case <-w.stopped:
		// stopped between get and submit
		if b.workers.get(b.runCtx(), b, key).submit(job) {
			return
		}
	default:
	}

	handler.Logger().InfoContext(ctx, "profile worker busy", "worker", key)
	_ = handler.Respond(
		ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: b.config.Discord.BusyMessage,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		},
	)
}
