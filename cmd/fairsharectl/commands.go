package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fairshare/pkg/mq"
	"fairshare/pkg/outbox"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo projects",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Short:   "List projects with progress and deadline status",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runProjects,
}

var reportCmd = &cobra.Command{
	Use:   "report <project-id>",
	Short: "Print the final report of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Manage integration events",
}

var (
	replayFailed bool
	replayLimit  int
)

var outboxReplayCmd = &cobra.Command{
	Use:   "replay [event-id]",
	Short: "Republish one event, or every failed event with --failed",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOutboxReplay,
}

func init() {
	outboxReplayCmd.Flags().BoolVar(&replayFailed, "failed", false, "replay every failed event")
	outboxReplayCmd.Flags().IntVar(&replayLimit, "limit", 100, "maximum number of failed events to replay")
	outboxCmd.AddCommand(outboxReplayCmd)
	rootCmd.AddCommand(migrateCmd, seedCmd, projectsCmd, reportCmd, outboxCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.store.Migrate(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("schema up to date"))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	ids, err := s.tracker.Seed(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("seeded %d projects", len(ids))))
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	projects, err := s.tracker.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderProjects(projects))
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid project id %q", args[0])
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.tracker.GetProjectReport(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
	return nil
}

func runOutboxReplay(cmd *cobra.Command, args []string) error {
	if replayFailed == (len(args) == 1) {
		return fmt.Errorf("pass either an event id or --failed")
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	publisher, err := mq.NewPublisher(s.cfg.MQ.URL, s.cfg.MQ.Exchange)
	if err != nil {
		return fmt.Errorf("connect publisher: %w", err)
	}
	defer publisher.Close()

	replay := outbox.NewReplayService(s.store.Outbox(), publisher, s.logger)
	out := cmd.OutOrStdout()

	if replayFailed {
		n, err := replay.ReplayFailedEvents(cmd.Context(), replayLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("replayed %d failed events", n)))
		return nil
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid event id %q", args[0])
	}
	if err := replay.ReplayEvent(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("replayed event %d", id)))
	return nil
}
