package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yourusername/llm-relay-bot/config"
	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/infrastructure/storage"
)

var (
	journalDB    string
	journalLimit int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Print the newest entries of the SQLite exchange journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJournal(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	journalCmd.Flags().StringVar(&journalDB, "db", "", "Journal database path (default: $JOURNAL_DB_PATH)")
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "Number of entries to show (0 = all)")
	rootCmd.AddCommand(journalCmd)
}

func printJournal(ctx context.Context, w io.Writer) error {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := config.LoadEnv(envFiles...); err != nil {
		return err
	}

	path := journalDB
	if path == "" {
		path = os.Getenv("JOURNAL_DB_PATH")
	}
	if path == "" {
		return errors.New("no journal database: use --db or set JOURNAL_DB_PATH")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("journal database: %w", err)
	}

	journal, err := storage.NewSQLiteJournalRepository(path)
	if err != nil {
		return err
	}
	defer journal.Close()

	entries, err := journal.Recent(ctx, journalLimit)
	if err != nil {
		return err
	}
	return writeJournal(w, entries, time.Now())
}

func writeJournal(w io.Writer, entries []entity.Exchange, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tUSER\tOUTCOME\tATTEMPTS\tPROMPT\tREPLY\tLATENCY")
	for _, e := range entries {
		user := strconv.FormatInt(e.UserID, 10)
		if e.Username != "" {
			user = fmt.Sprintf("%s (@%s)", user, e.Username)
		}
		reply := strconv.Itoa(e.ReplyLength)
		if e.Truncated {
			reply += " cut"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			user,
			e.Kind,
			e.Attempts,
			e.PromptLength,
			reply,
			e.Latency.Round(time.Millisecond),
		)
	}
	return tw.Flush()
}
