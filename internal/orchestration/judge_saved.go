package orchestration

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/microsoft/skillcheck/internal/judge"
	"github.com/microsoft/skillcheck/internal/models"
)

// JudgeUpdate reports progress while judging saved results.
type JudgeUpdate struct {
	Completed int
	Total     int

	// Result is nil when judging this item failed.
	Result *models.EvaluationResult
}

type judgeItem struct {
	result  *models.EvaluationResult
	docText string
	key     *models.AnswerKey
}

// JudgeSaved scores every stored result that lacks judge scores and still
// has the doc text, answer key, and response text needed to judge it.
// Safe to re-run: already-judged results are left alone. The returned
// channel is closed when all items finish, immediately when there is
// nothing to judge.
func (r *Runner) JudgeSaved(ctx context.Context, skillID string) (<-chan JudgeUpdate, error) {
	if len(r.judges) == 0 {
		return nil, errors.New("no judge models configured")
	}

	all, err := r.store.List(skillID)
	if err != nil {
		return nil, err
	}

	items := r.collectJudgeable(skillID, all)
	updates := make(chan JudgeUpdate, len(items))

	go func() {
		defer close(updates)
		if len(items) == 0 {
			return
		}

		j := judge.New(r.invoker, r.catalog)
		sem := make(chan struct{}, r.workers)
		done := make(chan *models.EvaluationResult, len(items))
		var wg sync.WaitGroup
		for _, item := range items {
			wg.Add(1)
			go func(item judgeItem) {
				defer wg.Done()

				sem <- struct{}{}
				defer func() { <-sem }()

				if err := r.judgeOne(ctx, j, item.result, item.docText, item.key); err != nil {
					done <- nil
					return
				}
				done <- item.result
			}(item)
		}
		go func() {
			wg.Wait()
			close(done)
		}()

		completed := 0
		for result := range done {
			completed++
			updates <- JudgeUpdate{Completed: completed, Total: len(items), Result: result}
		}
	}()

	return updates, nil
}

// collectJudgeable filters stored results down to those that can be
// judged, loading each document's text and answer key once.
func (r *Runner) collectJudgeable(skillID string, all []*models.EvaluationResult) []judgeItem {
	docTexts := make(map[string]string)
	keys := make(map[string]*models.AnswerKey)

	var items []judgeItem
	for _, result := range all {
		if result.Judged() || result.ResponseText == "" {
			continue
		}

		docText, ok := docTexts[result.DocName]
		if !ok {
			text, err := r.repo.DocText(skillID, result.DocName)
			if err != nil {
				slog.Debug("result has no test doc", "skill", skillID, "doc", result.DocName)
				text = ""
			}
			docTexts[result.DocName] = text
			docText = text
		}

		key, ok := keys[result.DocName]
		if !ok {
			k, err := r.repo.AnswerKey(skillID, result.DocName)
			if err != nil {
				slog.Warn("skipping results with invalid answer key",
					"skill", skillID, "doc", result.DocName, "error", err)
				k = nil
			}
			keys[result.DocName] = k
			key = k
		}

		if docText == "" || key == nil {
			continue
		}
		items = append(items, judgeItem{result: result, docText: docText, key: key})
	}
	return items
}
