package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	text       string
	spoiler    string
	media      []string
	followUps  []string
	visibility string
	replyTo    string
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "composer",
		Short: "Compose a post thread and publish it to X",
		Long: `composer builds a thread from a main post and follow-ups, reports the
character budget of every post, and publishes it as a reply chain.

Credentials come from the config file or COMPOSER_X_* environment variables.
With --dry-run (or COMPOSER_POST_DRY_RUN=1) nothing is sent.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), o, cmd.Flags().Changed("dry-run"))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", "", "YAML config file")
	f.StringVarP(&o.text, "text", "t", "", "main post text")
	f.StringVar(&o.spoiler, "cw", "", "content warning for the main post")
	f.StringArrayVarP(&o.media, "media", "m", nil, "image to attach to the main post (repeatable, max 4)")
	f.StringArrayVarP(&o.followUps, "follow-up", "f", nil, "follow-up post text (repeatable)")
	f.StringVar(&o.visibility, "visibility", "", "public, unlisted, private or direct")
	f.StringVar(&o.replyTo, "reply-to", "", "id of the post the thread replies to")
	f.BoolVar(&o.dryRun, "dry-run", false, "print the thread instead of posting it")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
