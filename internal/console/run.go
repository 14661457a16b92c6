package console

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/psds-microservice/repair-desk/internal/syncer"
	"github.com/rs/zerolog"
)

// Run starts the poller and the terminal UI and blocks until the user quits
// or ctx is cancelled.
func Run(ctx context.Context, src syncer.Source, interval time.Duration, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		prog *tea.Program
	)
	send := func(msg tea.Msg) {
		mu.Lock()
		p := prog
		mu.Unlock()
		if p != nil {
			p.Send(msg)
		}
	}

	s := syncer.New(src, syncer.Options{
		Interval: interval,
		OnUpdate: func(snap syncer.Snapshot) { send(SnapshotMsg{Snapshot: snap}) },
		OnError:  func(op string, err error) { send(ErrorMsg{Op: op, Err: err}) },
		Log:      log,
	})

	p := tea.NewProgram(New(s), tea.WithAltScreen(), tea.WithContext(ctx))
	mu.Lock()
	prog = p
	mu.Unlock()

	go func() {
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("syncer stopped")
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
