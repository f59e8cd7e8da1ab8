package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"QuestionScanner/internal/app"
	"QuestionScanner/internal/config"
	"QuestionScanner/internal/domain"
	"QuestionScanner/internal/infrastructure/storage"
	"QuestionScanner/internal/logging"
	"QuestionScanner/internal/usecase"
)

type cli struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "questionscanner",
		Short:         "Ingest tagged question listings into a relational store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to YAML configuration (default $QUESTION_SCANNER_CONFIG)")

	root.AddCommand(
		c.runCommand(),
		c.scheduleCommand(),
		c.tagsCommand(),
		c.questionsCommand(),
		c.renameTagCommand(),
		c.createTagCommand(),
		c.scrapeCommand(),
	)
	return root
}

func (c *cli) runCommand() *cobra.Command {
	var opts usecase.RunOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one ingestion pass over a listing page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			summary, err := application.RunOnce(cmd.Context(), opts)
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Topic, "topic", "", "topic to ingest instead of a random catalog pick")
	cmd.Flags().StringVar(&opts.URL, "url", "", "explicit listing URL to ingest")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of questions to take from the page")
	return cmd
}

func (c *cli) scheduleCommand() *cobra.Command {
	var opts usecase.RunOptions
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run ingestion on the configured cron expression until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer application.Close()
			return application.Schedule(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Topic, "topic", "", "always ingest this topic")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of questions per run")
	return cmd
}

func (c *cli) tagsCommand() *cobra.Command {
	var limit uint64
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List known tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.Open(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer repo.Close()

			tags, err := repo.ListTags(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderTags(cmd.OutOrStdout(), tags)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&limit, "limit", 50, "maximum number of tags (0 for all)")
	return cmd
}

func (c *cli) questionsCommand() *cobra.Command {
	var (
		limit uint64
		tagID int64
	)
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List stored questions, optionally only those linked to a tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.Open(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer repo.Close()

			if tagID > 0 {
				tagged, err := repo.QuestionsByTag(cmd.Context(), domain.TagID(tagID))
				if err != nil {
					return err
				}
				questions := make([]domain.Question, 0, len(tagged))
				for _, tq := range tagged {
					questions = append(questions, tq.Question)
				}
				renderQuestions(cmd.OutOrStdout(), questions)
				return nil
			}

			questions, err := repo.ListQuestions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderQuestions(cmd.OutOrStdout(), questions)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&limit, "limit", 50, "maximum number of questions (0 for all)")
	cmd.Flags().Int64Var(&tagID, "tag", 0, "only questions linked to this tag id")
	return cmd
}

func (c *cli) renameTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename-tag ID TITLE",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid tag id %q: %w", args[0], err)
			}

			repo, err := storage.Open(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.RenameTag(cmd.Context(), domain.TagID(id), domain.NormalizeTag(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tag %d renamed to %q\n", id, domain.NormalizeTag(args[1]))
			return nil
		},
	}
}

func (c *cli) createTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create-tag TITLE",
		Short: "Create a tag, or print the id of the existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := domain.NormalizeTag(args[0])
			if title == "" {
				return fmt.Errorf("tag title %q is empty", args[0])
			}

			repo, err := storage.Open(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer repo.Close()

			id, err := repo.GetOrCreateTag(cmd.Context(), title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tag %q has id %d\n", title, id)
			return nil
		},
	}
}

func (c *cli) scrapeCommand() *cobra.Command {
	var opts usecase.RunOptions
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch and extract a listing page without storing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, page, err := app.Preview(cmd.Context(), c.cfg, c.logger, opts)
			if err != nil {
				return err
			}
			renderCandidates(cmd.OutOrStdout(), target, page)
			for _, reason := range page.SkipReasons {
				fmt.Fprintln(cmd.ErrOrStderr(), "skipped:", reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Topic, "topic", "", "topic to scrape instead of a random catalog pick")
	cmd.Flags().StringVar(&opts.URL, "url", "", "explicit listing URL to scrape")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of questions to take from the page")
	return cmd
}
