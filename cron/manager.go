package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blackpanther093/manage/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// chainJob runs its tasks in order with a fresh SharedData per run
type chainJob struct {
	name    string
	spec    string
	tasks   []Task
	timeout time.Duration
	logger  logger.Logger

	// held for the whole run so manual and scheduled runs never overlap
	running sync.Mutex
}

// Run is the robfig/cron entry point
func (j *chainJob) Run() {
	if err := j.run(context.Background()); err == ErrChainRunning {
		j.logger.Warn("chain run skipped, previous run still active", zap.String("chain_name", j.name))
	}
}

func (j *chainJob) run(parent context.Context) error {
	if !j.running.TryLock() {
		return ErrChainRunning
	}
	defer j.running.Unlock()

	ctx := withSharedData(parent, &SharedData{})
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	j.logger.Info("chain job started", zap.String("chain_name", j.name))
	for _, task := range j.tasks {
		if err := task.Run(ctx); err != nil {
			j.logger.Error("chain job aborted due to task failure",
				zap.String("chain_name", j.name),
				zap.String("task_name", task.Name()),
				zap.Error(err),
			)
			return err
		}
	}
	j.logger.Info("chain job completed", zap.String("chain_name", j.name))
	return nil
}

type cronManager struct {
	cron        *cron.Cron
	loc         *time.Location
	timeout     time.Duration
	middlewares []Middleware
	logger      logger.Logger

	mu     sync.Mutex
	chains map[string]*chainJob
	ids    map[string]cron.EntryID
}

func newCronManager(log logger.Logger, loc *time.Location, timeout time.Duration, mws ...Middleware) *cronManager {
	cl := cronLogger{log: log}
	return &cronManager{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
		loc:         loc,
		timeout:     timeout,
		middlewares: mws,
		logger:      log,
		chains:      make(map[string]*chainJob),
		ids:         make(map[string]cron.EntryID),
	}
}

func (m *cronManager) Start() {
	m.cron.Start()
	m.logger.Info("cron started", zap.String("time_zone", m.loc.String()))
}

func (m *cronManager) Close() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("cron stopped")
}

func (m *cronManager) Location() *time.Location {
	return m.loc
}

func (m *cronManager) AddTasks(name, spec string, tasks ...Task) error {
	if len(tasks) == 0 {
		return ErrNoTasks
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chains[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChain, name)
	}

	wrapped := make([]Task, len(tasks))
	for i, task := range tasks {
		wrapped[i] = applyMiddlewares(&wrappedTask{
			name: name + ":" + task.Name(),
			exec: task.Run,
		}, m.middlewares...)
	}

	job := &chainJob{
		name:    name,
		spec:    spec,
		tasks:   wrapped,
		timeout: m.timeout,
		logger:  m.logger,
	}
	id, err := m.cron.AddJob(spec, job)
	if err != nil {
		return ErrInvalidSpec(name, spec, err)
	}
	m.chains[name] = job
	m.ids[name] = id

	m.logger.Info("chain added",
		zap.String("chain_name", name),
		zap.String("spec", spec),
		zap.Int("task_count", len(tasks)),
	)
	return nil
}

func (m *cronManager) AddChain(chain Chain) error {
	return m.AddTasks(chain.Name, chain.Spec, chain.Tasks...)
}

func (m *cronManager) RunNow(ctx context.Context, name string) error {
	m.mu.Lock()
	job, ok := m.chains[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, name)
	}
	return job.run(ctx)
}

func (m *cronManager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.chains))
	for name, job := range m.chains {
		e := m.cron.Entry(m.ids[name])
		out = append(out, Entry{Name: name, Spec: job.spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// cronLogger routes robfig/cron's own logging to zap
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), zap.Error(err))...)
}

func kvFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}
