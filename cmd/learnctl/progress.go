package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
)

func newProgressCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show and update learning progress",
	}
	cmd.AddCommand(
		newProgressShowCmd(c),
		newToggleTopicCmd(c),
		newToggleSectionCmd(c),
		newMarkCmd(c),
	)
	return cmd
}

func newProgressShowCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <category>",
		Short: "Show completion for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			store, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			sum, ok := progress.NewAggregator(cat, store).CategorySummary(args[0])
			if !ok {
				return fmt.Errorf("unknown category %q", args[0])
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}

			fmt.Fprintf(out, "%s: %d/%d topics (%d%%)\n", sum.Title, sum.Completed, sum.Total, sum.Percent)
			w := newTable(out)
			for _, t := range sum.Topics {
				mark := "[ ]"
				if t.Completed {
					mark = "[x]"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d sections\n", mark, t.Slug, t.Title, t.SectionsCompleted, t.SectionsTotal)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func newToggleTopicCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-topic <category> <topic>",
		Short: "Flip a topic between complete and incomplete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			category, topic := args[0], args[1]
			if !cat.HasTopic(category, topic) {
				return fmt.Errorf("unknown topic %s/%s", category, topic)
			}

			store, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			done := store.ToggleTopicComplete(category, topic)
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s %s (%d%% of %s)\n",
				category, topic, state(done),
				progress.NewAggregator(cat, store).CategoryPercent(category), category)
			return nil
		},
	}
}

func newToggleSectionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-section <category> <topic> <section>",
		Short: "Flip a section; completing every section completes the topic",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			category, topic, section := args[0], args[1], args[2]
			if !cat.HasSection(category, topic, section) {
				return fmt.Errorf("unknown section %s/%s/%s", category, topic, section)
			}

			store, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			done := store.ToggleSectionComplete(category, topic, section, cat.SectionCount(category, topic))
			agg := progress.NewAggregator(cat, store)
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s/%s %s (%d%% of %s)\n",
				category, topic, section, state(done), agg.TopicPercent(category, topic), topic)
			if store.CompletedTopics(category).Has(topic) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/%s complete\n", category, topic)
			}
			return nil
		},
	}
}

func newMarkCmd(c *cli) *cobra.Command {
	var incomplete bool
	cmd := &cobra.Command{
		Use:   "mark <category> <topic>",
		Short: "Mark a topic complete, or incomplete with --incomplete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, topic := args[0], args[1]
			store, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			if incomplete {
				store.MarkTopicIncomplete(category, topic)
			} else {
				store.MarkTopicComplete(category, topic)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s %s\n", category, topic, state(!incomplete))
			return nil
		},
	}
	cmd.Flags().BoolVar(&incomplete, "incomplete", false, "mark the topic incomplete and clear its sections")
	return cmd
}

func state(done bool) string {
	if done {
		return "complete"
	}
	return "incomplete"
}
