// Package orchestration runs skill evaluations. A Runner fans
// version × model work items out to a bounded worker pool, persists every
// outcome, then dispatches judge scoring over the successes.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/microsoft/skillcheck/internal/judge"
	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/models"
	"github.com/microsoft/skillcheck/internal/results"
	"github.com/microsoft/skillcheck/internal/skills"
)

// defaultWorkers balances API throughput against rate-limit pressure
// across providers.
const defaultWorkers = 8

// Runner coordinates evaluation runs over one skill repository and result
// store.
type Runner struct {
	repo    *skills.Repository
	store   results.Store
	invoker llm.Invoker
	catalog llm.Catalog

	judges            []string
	judgeSystemPrompt string
	versionFilter     []string
	businessContext   string
	workers           int

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithJudges sets the judge model keys; two or more form a panel.
func WithJudges(keys ...string) RunnerOption {
	return func(r *Runner) {
		for _, k := range keys {
			if k != "" {
				r.judges = append(r.judges, k)
			}
		}
	}
}

// WithJudgeSystemPrompt overrides the built-in judge system prompt.
func WithJudgeSystemPrompt(prompt string) RunnerOption {
	return func(r *Runner) {
		r.judgeSystemPrompt = prompt
	}
}

// WithVersionFilter restricts runs to versions matching the given glob
// patterns.
func WithVersionFilter(patterns ...string) RunnerOption {
	return func(r *Runner) {
		r.versionFilter = patterns
	}
}

// WithBusinessContext fills the {business_context} placeholder of the
// skill's user prompt template.
func WithBusinessContext(text string) RunnerOption {
	return func(r *Runner) {
		r.businessContext = text
	}
}

// WithWorkers overrides the worker pool width.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = n
	}
}

// WithProgressListener registers a progress listener at construction.
func WithProgressListener(listener ProgressListener) RunnerOption {
	return func(r *Runner) {
		r.listeners = append(r.listeners, listener)
	}
}

// NewRunner creates a Runner.
func NewRunner(repo *skills.Repository, store results.Store, invoker llm.Invoker, catalog llm.Catalog, opts ...RunnerOption) *Runner {
	r := &Runner{
		repo:    repo,
		store:   store,
		invoker: invoker,
		catalog: catalog,
		workers: defaultWorkers,
	}
	for _, o := range opts {
		o(r)
	}
	if r.workers <= 0 {
		r.workers = defaultWorkers
	}
	return r
}

// OnProgress registers a progress listener.
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Request selects what one run evaluates.
type Request struct {
	SkillID   string
	DocName   string
	ModelKeys []string
}

// Update is one completed work item, surfaced in completion order. A
// phase-1 update carries the raw result; a phase-2 update carries the
// same result with judge scores attached.
type Update struct {
	Version  string
	ModelKey string
	Result   *models.EvaluationResult
}

// workItem is one (version, model) evaluation. External versions carry
// the reserved external model key.
type workItem struct {
	version  string
	modelKey string
}

type runInput struct {
	meta    *skills.Meta
	docText string
	key     *models.AnswerKey
	work    []workItem
	judging bool
}

// Run evaluates the requested models against every matching version of a
// skill. The returned channel is buffered for the whole run and closed
// when the run finishes; every surfaced result has already been
// persisted. Items already dispatched run to completion even if ctx is
// cancelled mid-run.
func (r *Runner) Run(ctx context.Context, req Request) (<-chan Update, error) {
	meta, err := r.repo.Meta(req.SkillID)
	if err != nil {
		return nil, err
	}

	versions, err := r.repo.Versions(req.SkillID)
	if err != nil {
		return nil, err
	}
	if len(r.versionFilter) > 0 {
		versions, err = FilterVersions(versions, r.versionFilter)
		if err != nil {
			return nil, err
		}
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("skill %s has no versions to evaluate", req.SkillID)
	}

	docText, err := r.repo.DocText(req.SkillID, req.DocName)
	if err != nil {
		return nil, err
	}
	key, err := r.repo.AnswerKey(req.SkillID, req.DocName)
	if err != nil {
		return nil, err
	}

	var work []workItem
	for _, version := range versions {
		if meta.IsExternal(version) {
			work = append(work, workItem{version: version, modelKey: models.ModelKeyExternal})
			continue
		}
		for _, modelKey := range req.ModelKeys {
			cfg, ok := r.catalog[modelKey]
			if !ok {
				slog.Debug("skipping unknown model key", "model", modelKey)
				continue
			}
			if os.Getenv(cfg.EnvKey) == "" {
				slog.Debug("skipping model without credentials", "model", modelKey, "env", cfg.EnvKey)
				continue
			}
			work = append(work, workItem{version: version, modelKey: modelKey})
		}
	}
	if len(work) == 0 {
		return nil, fmt.Errorf("nothing to evaluate for skill %s: no external versions and no requested model has credentials", req.SkillID)
	}

	judging := len(r.judges) > 0 && key != nil
	buffer := len(work)
	if judging {
		// Phase 2 re-surfaces every successful item.
		buffer *= 2
	}
	updates := make(chan Update, buffer)

	go r.drive(ctx, req, runInput{
		meta:    meta,
		docText: docText,
		key:     key,
		work:    work,
		judging: judging,
	}, updates)
	return updates, nil
}

// drive executes both phases and closes the update channel when done.
func (r *Runner) drive(ctx context.Context, req Request, in runInput, updates chan<- Update) {
	defer close(updates)

	r.notifyProgress(ProgressEvent{
		EventType: EventRunStart,
		SkillID:   req.SkillID,
		DocName:   req.DocName,
		Total:     len(in.work),
	})

	sem := make(chan struct{}, r.workers)
	phase1 := make(chan *models.EvaluationResult, len(in.work))
	var wg sync.WaitGroup
	for _, item := range in.work {
		wg.Add(1)
		go func(item workItem) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			r.notifyProgress(ProgressEvent{
				EventType: EventEvalStart,
				SkillID:   req.SkillID,
				Version:   item.version,
				ModelKey:  item.modelKey,
				DocName:   req.DocName,
				Total:     len(in.work),
			})

			if item.modelKey == models.ModelKeyExternal {
				phase1 <- r.evalExternal(in.meta, item.version, req.DocName)
			} else {
				phase1 <- r.evalOne(ctx, in.meta, item.version, item.modelKey, req.DocName, in.docText)
			}
		}(item)
	}
	go func() {
		wg.Wait()
		close(phase1)
	}()

	completed := 0
	var judgeable []*models.EvaluationResult
	for result := range phase1 {
		completed++
		r.surfaceEval(result, completed, len(in.work))
		updates <- Update{Version: result.Version, ModelKey: result.ModelKey, Result: result}
		if !result.Failed() {
			judgeable = append(judgeable, result)
		}
	}

	if in.judging && len(judgeable) > 0 {
		r.judgePhase(ctx, req, in, judgeable, updates)
	}

	r.notifyProgress(ProgressEvent{
		EventType: EventRunComplete,
		SkillID:   req.SkillID,
		DocName:   req.DocName,
		Completed: completed,
		Total:     len(in.work),
	})
}

func (r *Runner) surfaceEval(result *models.EvaluationResult, completed, total int) {
	event := ProgressEvent{
		SkillID:   result.SkillID,
		Version:   result.Version,
		ModelKey:  result.ModelKey,
		DocName:   result.DocName,
		Completed: completed,
		Total:     total,
	}
	switch {
	case result.Failed():
		event.EventType = EventItemFailed
		event.Err = errors.New(result.Err)
	case result.ModelKey == models.ModelKeyExternal:
		event.EventType = EventExternalLoaded
	default:
		event.EventType = EventEvalComplete
	}
	r.notifyProgress(event)
}

// judgePhase scores every successful phase-1 result on the same pool.
// Results whose judging fails are surfaced unchanged.
func (r *Runner) judgePhase(ctx context.Context, req Request, in runInput, judgeable []*models.EvaluationResult, updates chan<- Update) {
	j := judge.New(r.invoker, r.catalog)

	sem := make(chan struct{}, r.workers)
	done := make(chan *models.EvaluationResult, len(judgeable))
	var wg sync.WaitGroup
	for _, result := range judgeable {
		wg.Add(1)
		go func(result *models.EvaluationResult) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			r.notifyProgress(ProgressEvent{
				EventType: EventJudgeStart,
				SkillID:   req.SkillID,
				Version:   result.Version,
				ModelKey:  result.ModelKey,
				DocName:   req.DocName,
				Total:     len(judgeable),
			})

			err := r.judgeOne(ctx, j, result, in.docText, in.key)
			if err != nil {
				r.notifyProgress(ProgressEvent{
					EventType: EventItemFailed,
					SkillID:   req.SkillID,
					Version:   result.Version,
					ModelKey:  result.ModelKey,
					DocName:   req.DocName,
					Total:     len(judgeable),
					Err:       err,
				})
			}
			done <- result
		}(result)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for result := range done {
		completed++
		if result.Judged() {
			r.notifyProgress(ProgressEvent{
				EventType: EventJudgeComplete,
				SkillID:   req.SkillID,
				Version:   result.Version,
				ModelKey:  result.ModelKey,
				DocName:   req.DocName,
				Completed: completed,
				Total:     len(judgeable),
			})
		}
		updates <- Update{Version: result.Version, ModelKey: result.ModelKey, Result: result}
	}
}

// evalOne invokes one model against one version and persists the outcome.
func (r *Runner) evalOne(ctx context.Context, meta *skills.Meta, version, modelKey, docName, docText string) *models.EvaluationResult {
	cfg := r.catalog[modelKey]

	versionText, err := r.repo.VersionText(meta.SkillID, version)
	if err != nil {
		return r.failed(meta.SkillID, version, modelKey, cfg.DisplayName, docName, err)
	}

	system, user := BuildPrompts(meta, versionText, docText, r.businessContext)
	resp, err := r.invoker.Invoke(ctx, cfg.Request(system, user))
	if err != nil {
		return r.failed(meta.SkillID, version, modelKey, cfg.DisplayName, docName, err)
	}

	result := &models.EvaluationResult{
		EvalID:         uuid.NewString(),
		SkillID:        meta.SkillID,
		Version:        version,
		DocName:        docName,
		ModelKey:       modelKey,
		ModelName:      cfg.DisplayName,
		Timestamp:      time.Now().UTC(),
		ResponseText:   resp.Text,
		InputTokens:    resp.InputTokens,
		OutputTokens:   resp.OutputTokens,
		ElapsedSeconds: resp.ElapsedSeconds,
	}
	r.persist(result)
	return result
}

// evalExternal loads a pre-recorded response for an external version and
// persists it with the reserved external model key.
func (r *Runner) evalExternal(meta *skills.Meta, version, docName string) *models.EvaluationResult {
	modelName := "External"
	if info, ok := meta.Versions[version]; ok && info.Source != "" {
		modelName = info.Source
	}

	text, err := r.repo.ExternalResponse(meta.SkillID, version, docName)
	if err != nil {
		return r.failed(meta.SkillID, version, models.ModelKeyExternal, modelName, docName, err)
	}

	result := &models.EvaluationResult{
		EvalID:       uuid.NewString(),
		SkillID:      meta.SkillID,
		Version:      version,
		DocName:      docName,
		ModelKey:     models.ModelKeyExternal,
		ModelName:    modelName,
		Timestamp:    time.Now().UTC(),
		ResponseText: text,
	}
	r.persist(result)
	return result
}

// judgeOne scores one result and persists the judged record. On error the
// result is left untouched; the stored record stays unjudged.
func (r *Runner) judgeOne(ctx context.Context, j *judge.Judge, result *models.EvaluationResult, docText string, key *models.AnswerKey) error {
	in := judge.Input{
		DocText:      docText,
		Key:          key,
		ResponseText: result.ResponseText,
		SystemPrompt: r.judgeSystemPrompt,
	}

	var score *models.JudgeScore
	var err error
	if len(r.judges) > 1 {
		score, err = j.EvaluatePanel(ctx, in, r.judges)
	} else {
		score, err = j.Evaluate(ctx, in, r.judges[0])
	}
	if err != nil {
		slog.Warn("judging failed",
			"skill", result.SkillID,
			"version", result.Version,
			"model", result.ModelKey,
			"error", err)
		return err
	}

	result.JudgeScores = score
	r.persist(result)
	return nil
}

// failed records a failed attempt as an error-tagged result so the outcome
// survives the run.
func (r *Runner) failed(skillID, version, modelKey, modelName, docName string, err error) *models.EvaluationResult {
	slog.Warn("evaluation failed",
		"skill", skillID,
		"version", version,
		"model", modelKey,
		"doc", docName,
		"error", err)

	result := &models.EvaluationResult{
		EvalID:    uuid.NewString(),
		SkillID:   skillID,
		Version:   version,
		DocName:   docName,
		ModelKey:  modelKey,
		ModelName: modelName,
		Timestamp: time.Now().UTC(),
		Err:       err.Error(),
	}
	r.persist(result)
	return result
}

func (r *Runner) persist(result *models.EvaluationResult) {
	if err := r.store.Put(result); err != nil {
		slog.Warn("saving result",
			"skill", result.SkillID,
			"version", result.Version,
			"model", result.ModelKey,
			"error", err)
	}
}
