package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/agaaaptr/open-socmed/internal/feed"
	"github.com/agaaaptr/open-socmed/internal/post"
)

var markRead bool

var postCmd = &cobra.Command{
	Use:   "post [text]",
	Short: "Publish a post",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		rec, err := ownFeed(ctx, false)
		if err != nil {
			return err
		}
		defer rec.Close()

		op, err := rec.ApplyCreate(ctx, post.Normalize(strings.Join(args, " ")))
		if err != nil {
			return err
		}
		p, err := op.Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "posted %s\n", p.ID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [post-id] [text]",
	Short: "Replace the text of one of your posts",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		rec, err := ownFeed(ctx, true)
		if err != nil {
			return err
		}
		defer rec.Close()

		op, err := rec.ApplyEdit(ctx, args[0], post.Normalize(strings.Join(args[1:], " ")))
		if err != nil {
			return err
		}
		if _, err := op.Wait(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [post-id]",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		rec, err := ownFeed(ctx, true)
		if err != nil {
			return err
		}
		defer rec.Close()

		op, err := rec.ApplyDelete(ctx, args[0])
		if err != nil {
			return err
		}
		if _, err := op.Wait(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Print your timeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		list, err := api.List(ctx, feed.TimelineScope())
		if err != nil {
			return err
		}
		printPosts(cmd.OutOrStdout(), list, time.Now())
		return nil
	},
}

var followCmd = &cobra.Command{
	Use:   "follow [user-id]",
	Short: "Follow a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return api.Follow(ctx, args[0])
	},
}

var unfollowCmd = &cobra.Command{
	Use:   "unfollow [user-id]",
	Short: "Stop following a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return api.Unfollow(ctx, args[0])
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List your notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		list, err := api.Notifications(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "no notifications")
		}
		for _, n := range list {
			mark := " "
			if !n.IsRead {
				mark = "•"
			}
			fmt.Fprintf(out, "%s @%s started following you · %s\n", mark, n.SenderUsername, humanize.Time(n.CreatedAt))
		}
		if markRead && len(list) > 0 {
			return api.MarkNotificationsRead(ctx)
		}
		return nil
	},
}

func init() {
	notificationsCmd.Flags().BoolVar(&markRead, "read", false, "Mark them as read afterwards")
}

// ownFeed opens a reconciler on the signed-in user's posts. Edits and
// deletes need the post loaded before they can be applied.
func ownFeed(ctx context.Context, load bool) (*feed.Reconciler, error) {
	viewer, err := api.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	rec := feed.New(api, viewer,
		feed.WithScope(feed.UserScope(viewer.ID)),
		feed.WithLogger(logger),
		feed.WithRequestTimeout(cfg.Timeout),
	)
	if load {
		if err := rec.Refresh(ctx); err != nil {
			rec.Close()
			return nil, err
		}
	}
	return rec, nil
}

func printPosts(w io.Writer, list []post.Post, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, "nothing here yet")
		return
	}
	for _, p := range list {
		fmt.Fprintf(w, "%s @%s · %s  [%s]\n", p.User.FullName, p.User.Username, humanize.RelTime(p.CreatedAt, now, "ago", "from now"), p.ID)
		fmt.Fprintf(w, "  %s\n\n", strings.ReplaceAll(p.Content, "\n", "\n  "))
	}
}
