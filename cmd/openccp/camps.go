package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"openccp/internal/cmdlog"
	"openccp/internal/theme"
)

var campCmd = &cobra.Command{
	Use:   "camp",
	Short: "Manage camps",
}

var (
	flagDescription string
	flagColor       string
)

var campCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a camp",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("camp_create", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.svc.CreateCamp(cmd.Context(), args[0], flagDescription, flagColor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created camp %d (%s)\n", c.ID, c.Slug)
			return nil
		})
	},
}

var campListCmd = &cobra.Command{
	Use:   "list",
	Short: "List camps",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("camp_list", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			cs, err := a.svc.ListCamps(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tNAME\tCOLOR\tSCORED")
			for _, c := range cs {
				scored := "never"
				if c.ScoredAt != nil {
					scored = c.ScoredAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Slug, c.Name, theme.Swatch(out, c.Color), scored)
			}
			return tw.Flush()
		})
	},
}

var campDeleteCmd = &cobra.Command{
	Use:   "delete <camp>",
	Short: "Delete a camp with its keywords and scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("camp_delete", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.svc.GetCamp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.svc.DeleteCamp(cmd.Context(), c.ID)
		})
	},
}

var keywordCmd = &cobra.Command{
	Use:   "keyword",
	Short: "Manage camp keywords",
}

var (
	flagWeight    float64
	flagSentiment string
)

var keywordAddCmd = &cobra.Command{
	Use:   "add <camp> <term>",
	Short: "Add a keyword to a camp",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("keyword_add", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.svc.GetCamp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			k, err := a.svc.AddKeyword(cmd.Context(), c.ID, args[1], flagWeight, flagSentiment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added keyword %d %q weight=%.1f sentiment=%s; run `openccp recompute %s` to apply\n",
				k.ID, k.Term, k.Weight, k.Sentiment, c.Slug)
			return nil
		})
	},
}

var keywordListCmd = &cobra.Command{
	Use:   "list <camp>",
	Short: "List a camp's keywords",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("keyword_list", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.svc.GetCamp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			kws, err := a.svc.ListKeywords(cmd.Context(), c.ID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTERM\tWEIGHT\tSENTIMENT")
			for _, k := range kws {
				fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\n", k.ID, k.Term, k.Weight, k.Sentiment)
			}
			return tw.Flush()
		})
	},
}

var keywordDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("keyword_delete", func() error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.svc.DeleteKeyword(cmd.Context(), id)
		})
	},
}

func init() {
	campCreateCmd.Flags().StringVar(&flagDescription, "description", "", "camp description")
	campCreateCmd.Flags().StringVar(&flagColor, "color", "", "display color as #rrggbb (default #3b82f6)")
	campCmd.AddCommand(campCreateCmd, campListCmd, campDeleteCmd)

	keywordAddCmd.Flags().Float64Var(&flagWeight, "weight", 1.0, "keyword weight")
	keywordAddCmd.Flags().StringVar(&flagSentiment, "sentiment", "any", "expected sentiment: positive, negative or any")
	keywordCmd.AddCommand(keywordAddCmd, keywordListCmd, keywordDeleteCmd)
}
