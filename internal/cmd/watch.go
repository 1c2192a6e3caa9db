package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charlieadamsdev/tasktickr/internal/feed"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the board for live changes",
	Long: `Stream board and price changes as they happen, from this process or
any other tasktickr process sharing the same database. Press Ctrl-C to
stop.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	sub, err := s.store.Subscribe(feed.TableTasks, feed.TableLedger)
	if err != nil {
		return fmt.Errorf("subscribing to changes: %w", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(renderBoard(s.engine.BoardSnapshot(), terminalWidth()))
	fmt.Println(renderPrice(s.engine.PriceSnapshot()))
	fmt.Println("Watching for changes...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			fmt.Println(describeEvent(ev))
		case _, ok := <-sub.Resyncs():
			if !ok {
				return nil
			}
			fmt.Println("Connection recovered, reloading board")
			fmt.Println(renderBoard(s.engine.BoardSnapshot(), terminalWidth()))
			fmt.Println(renderPrice(s.engine.PriceSnapshot()))
		}
	}
}

func describeEvent(ev feed.Event) string {
	switch {
	case ev.Table == feed.TableLedger && ev.Entry != nil:
		return fmt.Sprintf("[%s] price %s -> $%s",
			ev.At.Format("15:04:05"), ev.Entry.Kind, ev.Entry.Price.StringFixed(2))
	case ev.Task != nil:
		switch ev.Type {
		case feed.EventInsert:
			return fmt.Sprintf("[%s] added %s  %s", ev.At.Format("15:04:05"), shortID(ev.Task.ID), ev.Task.Title)
		case feed.EventDelete:
			return fmt.Sprintf("[%s] deleted %s  %s", ev.At.Format("15:04:05"), shortID(ev.Task.ID), ev.Task.Title)
		default:
			return fmt.Sprintf("[%s] %s  %s is now in %s", ev.At.Format("15:04:05"), shortID(ev.Task.ID), ev.Task.Title, ev.Task.Column)
		}
	}
	return fmt.Sprintf("[%s] %s on %s", ev.At.Format("15:04:05"), ev.Type, ev.Table)
}
