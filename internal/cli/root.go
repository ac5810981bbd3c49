// Package cli implements textbookctl, the operator tool for registering
// books, running ingestion and asking questions without the HTTP server.
package cli

import (
	"context"
	"errors"
	"os"
	"time"

	"textbook-qa-be/internal/service"
	pktNats "textbook-qa-be/pkg/nats"
	"textbook-qa-be/pkg/storage"

	"github.com/spf13/cobra"
)

// EventSource streams published events; the NATS subscriber satisfies it.
type EventSource interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

// CachePruner drops persisted answers older than a cutoff.
type CachePruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Deps are the collaborators commands run against.
type Deps struct {
	Books   service.IBookService
	QA      service.IQAService
	Storage storage.Storage
	Events  EventSource
	Cache   CachePruner
	Close   func()
}

// BootstrapFunc builds Deps on first use, so --help works without a database.
type BootstrapFunc func(ctx context.Context) (*Deps, error)

var (
	bootstrap BootstrapFunc
	deps      *Deps
)

var errNotConfigured = errors.New("textbookctl is not configured")

var rootCmd = &cobra.Command{
	Use:           "textbookctl",
	Short:         "Manage textbooks and query the QA pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if deps != nil || bootstrap == nil {
			return nil
		}
		d, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		deps = d
		return nil
	},
}

// Execute runs the command tree with boot as the dependency builder.
func Execute(ctx context.Context, boot BootstrapFunc) error {
	bootstrap = boot
	rootCmd.SetOut(os.Stdout)
	defer func() {
		if deps != nil && deps.Close != nil {
			deps.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func requireDeps() (*Deps, error) {
	if deps == nil {
		return nil, errNotConfigured
	}
	return deps, nil
}
