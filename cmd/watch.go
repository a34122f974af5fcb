package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	statusadapter "github.com/bnema/zonecharge/internal/adapters/render/status"
	"github.com/bnema/zonecharge/internal/application"
	"github.com/bnema/zonecharge/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var errSessionEnded = errors.New("session ended: run `zc login` again")

type watchOptions struct {
	plain    bool
	duration time.Duration
}

func newWatchCmd(app *app) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Track location and report it for zone charging",
		Long:  "Acquire the device location, then report it to the billing service on every poll interval until interrupted. Only user accounts are polled.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, app, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Print one line per change instead of the live dashboard")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")

	return cmd
}

func runWatch(cmd *cobra.Command, app *app, opts watchOptions) error {
	state, err := restoreSession(cmd, app)
	if err != nil {
		return err
	}
	if !state.PollingAllowed() {
		return fmt.Errorf("zone polling runs for user accounts only (logged in as %s)", state.Role)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if opts.duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, opts.duration)
		defer cancelTimeout()
	}

	source, err := app.newLocationSource()
	if err != nil {
		return fmt.Errorf("location source: %w", err)
	}
	defer closeSource(source, app.logger)

	publisher := app.newPublisher()
	defer func() {
		if err := publisher.Close(); err != nil {
			app.logger.Warn("events: close publisher failed", "error", err)
		}
	}()

	coordinator := application.NewCoordinator(
		app.cfg.CoordinatorConfig(),
		source,
		app.client,
		app.store,
		app.session,
		app.deviceRepo,
		app.clock,
		app.logger,
	)
	unbind := application.NewEventForwarder(publisher, app.logger).Bind(app.store, coordinator)
	defer unbind()
	recovery := application.NewPermissionRecovery(coordinator, source, app.logger)

	var ended atomic.Bool
	unwatchSession := app.session.OnChange(func(s domain.SessionState) {
		if !s.PollingAllowed() {
			ended.Store(true)
			cancel()
		}
	})
	defer unwatchSession()

	defer func() {
		coordinator.Detach()
		coordinator.Wait()
	}()

	if opts.plain {
		err = watchPlain(ctx, cmd.OutOrStdout(), app, coordinator)
	} else {
		err = watchLive(ctx, cmd, app, coordinator, recovery)
	}
	if err != nil {
		return err
	}
	if ended.Load() {
		return errSessionEnded
	}

	return nil
}

func dashboardFor(app *app, coordinator *application.Coordinator, recovery *application.PermissionRecovery) statusadapter.Dashboard {
	return statusadapter.Dashboard{
		Session:        app.session.State(),
		Balance:        app.store.Snapshot(),
		Coordinator:    coordinator.Status(),
		RetryAvailable: recovery.Available(),
	}
}

// watchLive runs the interactive dashboard. Subscriptions only mark the view
// dirty; a single goroutine sends the latest dashboard so updates never
// arrive out of order.
func watchLive(ctx context.Context, cmd *cobra.Command, app *app, coordinator *application.Coordinator, recovery *application.PermissionRecovery) error {
	model := statusadapter.NewLiveModel(dashboardFor(app, coordinator, recovery), statusadapter.LiveOptions{
		StaleAfter: dashboardStaleAfter,
		Retry:      recovery.Retry,
		Now:        app.now,
	})

	p := tea.NewProgram(
		model,
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithContext(ctx),
	)

	dirty := make(chan struct{}, 1)
	markDirty := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}

	pumpCtx, stopPump := context.WithCancel(ctx)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for {
			select {
			case <-pumpCtx.Done():
				return
			case <-dirty:
				p.Send(statusadapter.DashboardMsg(dashboardFor(app, coordinator, recovery)))
			}
		}
	}()

	unsubscribeStore := app.store.Subscribe(func(application.BalanceSnapshot) { markDirty() })
	defer unsubscribeStore()
	unsubscribeCoordinator := coordinator.OnStateChange(func(application.CoordinatorStatus) { markDirty() })
	defer unsubscribeCoordinator()

	coordinator.Attach()

	_, err := p.Run()
	stopPump()
	<-pumpDone
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}

	return err
}

// watchPlain prints one line per snapshot or coordinator change until ctx is
// done, then a summary line.
func watchPlain(ctx context.Context, w io.Writer, app *app, coordinator *application.Coordinator) error {
	lines := make(chan string, 64)
	send := func(line string) {
		select {
		case lines <- line:
		default:
			app.logger.Debug("watch: output backlog, line dropped")
		}
	}

	unsubscribeStore := app.store.Subscribe(func(snap application.BalanceSnapshot) { send(snapshotLine(snap)) })
	defer unsubscribeStore()
	unsubscribeCoordinator := coordinator.OnStateChange(func(status application.CoordinatorStatus) { send(statusLine(status)) })
	defer unsubscribeCoordinator()

	coordinator.Attach()

	for {
		select {
		case line := <-lines:
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		case <-ctx.Done():
			for {
				select {
				case line := <-lines:
					if _, err := fmt.Fprintln(w, line); err != nil {
						return err
					}
				default:
					st := coordinator.Status()
					_, err := fmt.Fprintf(w, "stopped: ticks %d evaluations %d skipped %d failures %d\n",
						st.Ticks, st.Evaluations, st.Skipped, st.Failures)
					return err
				}
			}
		}
	}
}

func snapshotLine(snap application.BalanceSnapshot) string {
	parts := []string{"balance: n/a"}
	if snap.BalanceKnown {
		parts[0] = "balance: " + snap.Balance.String()
		if snap.Optimistic {
			parts[0] += " (estimate)"
		}
	}

	if snap.Zone != nil {
		parts = append(parts, fmt.Sprintf("zone: %s (%s %s)", snap.Zone.Name, snap.Zone.Amount.StringFixed(2), snap.Zone.RateUnit.Label()))
	} else {
		parts = append(parts, "zone: none")
	}
	if snap.Advisory != "" {
		parts = append(parts, "advisory: "+snap.Advisory)
	}

	return strings.Join(parts, "  ")
}

func statusLine(status application.CoordinatorStatus) string {
	line := "state: " + string(status.State)
	if status.LastError != nil {
		line += "  error: " + status.LastError.Error()
	}
	return line
}
