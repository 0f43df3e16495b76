package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/repository"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Maintain the emission history",
}

var historyMergeCmd = &cobra.Command{
	Use:   "merge FILE...",
	Short: "Append rows from other history CSVs that are not yet recorded",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, err := repository.NewRepositories(cfg, calendar.Location())
		if err != nil {
			return err
		}

		existing, err := repos.History.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read emission history: %w", err)
		}

		var incoming []models.EmissionLogEntry
		for _, path := range args {
			entries, err := readHistoryFile(path)
			if err != nil {
				return err
			}
			incoming = append(incoming, entries...)
		}

		added := mergeHistory(existing, incoming, calendar.Location())
		if len(added) > 0 {
			if err := repos.History.Append(added); err != nil {
				return fmt.Errorf("failed to append history: %w", err)
			}
		}

		appLog.WithFields(logrus.Fields{
			"files":   len(args),
			"read":    len(incoming),
			"added":   len(added),
			"skipped": len(incoming) - len(added),
		}).Info("History merged")
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyMergeCmd)
}

func readHistoryFile(path string) ([]models.EmissionLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	entries, err := repository.ReadHistory(f, calendar.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return entries, nil
}

// mergeHistory returns the incoming entries whose strong key is not already
// present, in input order and without duplicates among themselves.
func mergeHistory(existing, incoming []models.EmissionLogEntry, loc *time.Location) []models.EmissionLogEntry {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, e := range existing {
		seen[repository.StrongKey(e, loc)] = struct{}{}
	}

	var added []models.EmissionLogEntry
	for _, e := range incoming {
		key := repository.StrongKey(e, loc)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		added = append(added, e)
	}
	return added
}
