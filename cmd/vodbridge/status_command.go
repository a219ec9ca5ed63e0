package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vodbridge/internal/archive"
	"vodbridge/internal/config"
	"vodbridge/internal/daemonrun"
	"vodbridge/internal/history"
	"vodbridge/internal/ledger"
	"vodbridge/internal/quota"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and upload state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sections, err := buildStatus(cmd.Context(), cfg, ctx.configPath, time.Now())
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			renderStatus(stdout, sections, shouldColorize(stdout))
			return nil
		},
	}
}

func buildStatus(ctx context.Context, cfg *config.Config, configPath string, now time.Time) ([]statusSection, error) {
	system := statusSection{Title: "System Status"}
	system.Lines = append(system.Lines, statusLine{Label: "Config", Kind: statusInfo, Detail: configPath})

	state, err := daemonrun.Inspect(cfg)
	switch {
	case err != nil:
		system.Lines = append(system.Lines, statusLine{Label: "Daemon", Kind: statusError, Detail: err.Error()})
	case state.Running && state.PID > 0:
		system.Lines = append(system.Lines, statusLine{Label: "Daemon", Kind: statusOK, Detail: fmt.Sprintf("Running (pid %d)", state.PID)})
	case state.Running:
		system.Lines = append(system.Lines, statusLine{Label: "Daemon", Kind: statusOK, Detail: "Running"})
	default:
		system.Lines = append(system.Lines, statusLine{Label: "Daemon", Kind: statusWarn, Detail: "Not running"})
	}
	if cfg.Workflow.DryRun {
		system.Lines = append(system.Lines, statusLine{Label: "Mode", Kind: statusWarn, Detail: "Dry run"})
	}

	deps := statusSection{Title: "Dependencies"}
	for _, dep := range daemonrun.CheckDependencies(cfg) {
		line := statusLine{Label: dep.Name, Detail: dep.Detail}
		switch {
		case dep.Available:
			line.Kind = statusOK
		case dep.Optional:
			line.Kind = statusWarn
		default:
			line.Kind = statusError
			if line.Detail != "" {
				line.Detail = "missing: " + line.Detail
			} else {
				line.Detail = "missing"
			}
		}
		deps.Lines = append(deps.Lines, line)
	}

	folders := statusSection{Title: "Folders"}
	folders.Lines = append(folders.Lines,
		directoryLine("Watch", cfg.Paths.WatchDir),
		directoryLine("Completed", cfg.Paths.CompletedDir),
		directoryLine("State", cfg.Paths.StateDir),
	)

	uploads := statusSection{Title: "Uploads"}
	entries, err := ledger.Open(cfg.LedgerPath(), nil).LoadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	inFlight := statusLine{Label: "In flight", Kind: statusInfo, Detail: fmt.Sprintf("%d", len(entries))}
	if len(entries) > 0 {
		inFlight.Kind = statusWarn
	}
	uploads.Lines = append(uploads.Lines, inFlight)

	completed, err := history.Open(cfg.HistoryPath()).Snapshot()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	uploads.Lines = append(uploads.Lines, statusLine{Label: "Completed", Kind: statusInfo, Detail: fmt.Sprintf("%d", len(completed))})
	uploads.Lines = append(uploads.Lines, archiveLine(ctx, cfg.ArchivePath()))

	loc, err := cfg.QuotaLocation()
	if err != nil {
		return nil, err
	}
	governor, err := quota.New(loc, cfg.Quota.ResetHour, cfg.Quota.ResetMinute)
	if err != nil {
		return nil, err
	}
	next := governor.NextReset(now)
	uploads.Lines = append(uploads.Lines, statusLine{
		Label:  "Quota reset",
		Kind:   statusInfo,
		Detail: fmt.Sprintf("%s (in %s)", next.In(governor.Location()).Format("2006-01-02 15:04 MST"), next.Sub(now).Round(time.Minute)),
	})

	return []statusSection{system, deps, folders, uploads}, nil
}

// archiveLine counts archived uploads without creating the database.
func archiveLine(ctx context.Context, path string) statusLine {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return statusLine{Label: "Archived", Kind: statusInfo, Detail: "0 (no archive yet)"}
	}
	store, err := archive.Open(ctx, path)
	if err != nil {
		return statusLine{Label: "Archived", Kind: statusError, Detail: err.Error()}
	}
	defer store.Close()
	n, err := store.Count(ctx)
	if err != nil {
		return statusLine{Label: "Archived", Kind: statusError, Detail: err.Error()}
	}
	return statusLine{Label: "Archived", Kind: statusInfo, Detail: fmt.Sprintf("%d", n)}
}

func directoryLine(label, dir string) statusLine {
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		return statusLine{Label: label, Kind: statusError, Detail: fmt.Sprintf("%s (%v)", dir, err)}
	case !info.IsDir():
		return statusLine{Label: label, Kind: statusError, Detail: dir + " (not a directory)"}
	default:
		return statusLine{Label: label, Kind: statusOK, Detail: dir}
	}
}
