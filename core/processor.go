package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Skryldev/image-toolkit/config"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/utils"
)

// Processor is the central orchestrator.  It runs steps strictly in order;
// concurrent calls to Process are safe because each call owns its ImageData.
type Processor struct {
	cfg      config.Config
	registry Registry
	hooks    []Hook
	logger   Logger
	metrics  MetricsCollector

	// Atomic counters for lightweight internal metrics.
	processedCount int64
	errorCount     int64
}

// New creates a Processor with the given config and codec registry.
func New(cfg config.Config, reg Registry) *Processor {
	return &Processor{
		cfg:      cfg,
		registry: reg,
		logger:   NopLogger{},
	}
}

// SetLogger attaches a structured logger.
func (p *Processor) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	p.logger = l
}

// Logger returns the attached logger (never nil).
func (p *Processor) Logger() Logger { return p.logger }

// SetMetrics attaches a metrics collector.  Step timings reach it through a
// hook (see hooks.MetricsHook); compression searches report to it directly.
func (p *Processor) SetMetrics(m MetricsCollector) { p.metrics = m }

// Metrics returns the attached collector, or nil.
func (p *Processor) Metrics() MetricsCollector { return p.metrics }

// AddHook registers a pipeline hook.
func (p *Processor) AddHook(h Hook) { p.hooks = append(p.hooks, h) }

// Hooks returns a copy of the registered hooks.
func (p *Processor) Hooks() []Hook {
	out := make([]Hook, len(p.hooks))
	copy(out, p.hooks)
	return out
}

// Registry returns the underlying registry so callers can register
// encoders/decoders after construction.
func (p *Processor) Registry() Registry { return p.registry }

// Config returns the processor configuration.
func (p *Processor) Config() config.Config { return p.cfg }

// Process reads src into memory, runs steps in order and returns the final
// ImageData.
func (p *Processor) Process(ctx context.Context, src Source, steps ...Step) (*ProcessingResult, error) {
	if len(steps) == 0 {
		return nil, apperrors.New(apperrors.CategoryPipeline, "process", apperrors.ErrEmptyInput)
	}
	if src.Reader == nil {
		return nil, apperrors.New(apperrors.CategoryDecode, "process", apperrors.ErrEmptyInput)
	}

	start := time.Now()
	runID := uuid.NewString()

	// --- 1. Drain source into memory (respecting max size limit) -------------
	raw, err := utils.ReadAll(ctx, src.Reader, p.cfg.MaxImageBytes, p.cfg.ChunkSize)
	if err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "process.drain", err)
	}

	// --- 2. Detect format ----------------------------------------------------
	format := Format(utils.DetectFormat(raw))
	if format == FormatUnknown && src.ContentType != "" {
		if f, perr := ParseFormat(src.ContentType); perr == nil {
			format = f
		}
	}

	img := &ImageData{
		Data:         raw,
		Format:       format,
		Quality:      p.cfg.DefaultQuality,
		OriginalSize: int64(len(raw)),
		Meta:         Metadata{Format: format, SizeBytes: int64(len(raw))},
	}

	p.logger.Debug("process.start", "run_id", runID, "name", src.Name, "format", format, "bytes", len(raw))

	// --- 3. Run steps --------------------------------------------------------
	timings := make(map[string]time.Duration, len(steps))
	current := img
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			atomic.AddInt64(&p.errorCount, 1)
			return nil, apperrors.Wrap(apperrors.CategoryPipeline, step.Name(), err)
		}
		p.notifyBefore(ctx, step.Name(), current)
		t := time.Now()
		next, stepErr := step.Execute(ctx, current)
		elapsed := time.Since(t)
		timings[step.Name()] += elapsed
		p.notifyAfter(ctx, step.Name(), next, elapsed, stepErr)
		if stepErr != nil {
			atomic.AddInt64(&p.errorCount, 1)
			p.logger.Error("process.step.failed", "run_id", runID, "step", step.Name(), "error", stepErr.Error())
			return nil, stepErr
		}
		current = next
	}

	atomic.AddInt64(&p.processedCount, 1)

	total := time.Since(start)
	p.logger.Info("process.done", "run_id", runID, "duration_ms", total.Milliseconds(),
		"format", current.Format, "bytes", len(current.Data))
	return &ProcessingResult{
		Primary:        current,
		RunID:          runID,
		ProcessingTime: total,
		StepTimings:    timings,
	}, nil
}

func (p *Processor) notifyBefore(ctx context.Context, name string, img *ImageData) {
	for _, h := range p.hooks {
		h.BeforeStep(ctx, name, img)
	}
}

func (p *Processor) notifyAfter(ctx context.Context, name string, img *ImageData, d time.Duration, err error) {
	for _, h := range p.hooks {
		h.AfterStep(ctx, name, img, d, err)
	}
}

// ProcessedCount returns the total number of successfully processed images.
func (p *Processor) ProcessedCount() int64 { return atomic.LoadInt64(&p.processedCount) }

// ErrorCount returns the total number of processing errors.
func (p *Processor) ErrorCount() int64 { return atomic.LoadInt64(&p.errorCount) }
