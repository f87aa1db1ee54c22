package cli

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinex/prompter/model"
)

// RunOnce answers a single prompt given on the command line. Each of
// searches is resolved as an explicit search and appended to the prompt.
// History is only replayed and saved in chat mode.
func (l *Loop) RunOnce(ctx context.Context, prompt string, searches []string) error {
	logger := l.logger.With(zap.String("turn_id", uuid.NewString()))

	l.state = Augmenting
	augmented, err := l.augmenter.Assemble(ctx, strings.TrimSpace(prompt))
	if err != nil {
		logger.Warn("context enrichment incomplete", zap.Error(err))
	}
	if len(searches) > 0 {
		augmented, err = l.augmenter.AppendSearches(ctx, augmented, searches)
		if err != nil {
			logger.Warn("search incomplete", zap.Error(err))
		}
	}

	var history model.History
	if l.cfg.Mode == model.ModeChat {
		history = l.history
	}

	l.state = Generating
	answer, err := l.generate(ctx, l.cfg.Mode, history, augmented)
	if err != nil {
		l.state = Done
		l.report(logger, err)
		return err
	}

	l.lastPrompt, l.lastAnswer = augmented, answer
	if l.cfg.Mode == model.ModeChat {
		l.commit(ctx, logger, model.Turn{Question: augmented, Answer: answer})
	}
	l.state = Done
	return nil
}
