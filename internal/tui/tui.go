// Package tui implements the interactive conflict resolver of the sync
// client on top of bubbletea.
package tui

import (
	"context"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/go-refsync/internal/engine"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/utils"
	"github.com/MKhiriev/go-refsync/models"
)

// Resolver prompts for conflict decisions in the terminal. Engines of
// several libraries may share one Resolver; their prompts are shown one
// after another.
type Resolver struct {
	mu     sync.Mutex
	logger *logger.Logger
	opts   []tea.ProgramOption
	copy   func(string) error
}

var _ engine.Resolver = (*Resolver)(nil)

// NewResolver creates a Resolver. Without opts the prompt uses the alternate
// screen of the controlling terminal.
func NewResolver(log *logger.Logger, opts ...tea.ProgramOption) *Resolver {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{logger: log, opts: opts, copy: clipboard.WriteAll}
}

// Resolve implements engine.Resolver. Esc or ctrl+c returns
// engine.ErrUserCancelled.
func (r *Resolver) Resolve(ctx context.Context, conflicts []models.Conflict) ([]models.Resolution, error) {
	if len(conflicts) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.logger.GetChildLogger()
	if libraryID, ok := utils.GetLibraryIDFromContext(ctx); ok {
		log = &logger.Logger{Logger: log.With().Int64("library_id", libraryID).Logger()}
	}

	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, r.opts...)
	final, err := tea.NewProgram(newConflictModel(conflicts, r.copy), opts...).Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("run conflict prompt: %w", err)
	}

	result, ok := final.(conflictModel)
	if !ok {
		return nil, tea.ErrProgramKilled
	}
	if result.cancelled {
		log.Info().
			Str("func", "Resolver.Resolve").
			Int("conflicts", len(conflicts)).
			Int("resolved", len(result.resolutions)).
			Msg("conflict prompt cancelled")
		return nil, engine.ErrUserCancelled
	}
	return result.resolutions, nil
}
