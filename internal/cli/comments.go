package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"act-academy/internal/app"
	"act-academy/internal/domain"
	"github.com/spf13/cobra"
)

type commentFlags struct {
	contextType string
	contextID   string
	sort        string
}

// NewCommentsCmd groups the comment thread operations for one lesson, course or quiz.
func NewCommentsCmd(configPath *string) *cobra.Command {
	flags := &commentFlags{}
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and write the comment thread of a lesson, course or quiz",
	}
	cmd.PersistentFlags().StringVar(&flags.contextType, "type", "lesson", "commented entity type")
	cmd.PersistentFlags().StringVar(&flags.contextID, "id", "", "commented entity id")
	cmd.PersistentFlags().StringVar(&flags.sort, "sort", string(domain.SortRecent), "order of top-level comments: recent or top")

	// withThread loads the thread before running fn so operations can find their target.
	withThread := func(fn func(c *cobra.Command, thread *app.Thread, args []string) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			if flags.contextID == "" {
				return fmt.Errorf("--id is required")
			}
			d, err := loadDeps(c.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.close()

			target := domain.CommentContext{Type: flags.contextType, ID: flags.contextID}
			thread := app.NewThread(target, d.client, d.user)
			defer thread.Close()
			if err := thread.Load(c.Context()); err != nil {
				return describeError(err)
			}
			return fn(c, thread, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the thread",
		RunE: withThread(func(c *cobra.Command, thread *app.Thread, _ []string) error {
			printThread(c.OutOrStdout(), thread.Comments(domain.SortMode(flags.sort)))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "post <text>",
		Short: "Add a top-level comment",
		Args:  cobra.MinimumNArgs(1),
		RunE: withThread(func(c *cobra.Command, thread *app.Thread, args []string) error {
			comment, err := thread.Post(c.Context(), strings.Join(args, " "))
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(c.OutOrStdout(), "Posted comment %s.\n", comment.ID)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reply <parent-id> <text>",
		Short: "Reply to a comment at any depth",
		Args:  cobra.MinimumNArgs(2),
		RunE: withThread(func(c *cobra.Command, thread *app.Thread, args []string) error {
			comment, ok, err := thread.Reply(c.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return describeError(err)
			}
			if !ok {
				return fmt.Errorf("comment %s not found", args[0])
			}
			fmt.Fprintf(c.OutOrStdout(), "Posted reply %s.\n", comment.ID)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Replace the text of your comment",
		Args:  cobra.MinimumNArgs(2),
		RunE: withThread(func(c *cobra.Command, thread *app.Thread, args []string) error {
			ok, err := thread.Edit(c.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return describeError(err)
			}
			if !ok {
				return fmt.Errorf("comment %s not found", args[0])
			}
			fmt.Fprintln(c.OutOrStdout(), "Comment updated.")
			return nil
		}),
	})

	var assumeYes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a comment and its replies",
		Args:  cobra.ExactArgs(1),
		RunE: withThread(func(c *cobra.Command, thread *app.Thread, args []string) error {
			if !assumeYes {
				replies := 0
				if target, ok := app.FindComment(thread.Tree(), args[0]); ok {
					replies = app.CountComments(target.Replies)
				}
				prompt := fmt.Sprintf("Delete comment %s and %d replies? (yes/no): ", args[0], replies)
				confirmed, err := promptYesNo(bufio.NewReader(c.InOrStdin()), c.OutOrStdout(), prompt)
				if err != nil || !confirmed {
					return err
				}
			}
			ok, err := thread.Delete(c.Context(), args[0])
			if err != nil {
				return describeError(err)
			}
			if !ok {
				return fmt.Errorf("comment %s not found", args[0])
			}
			fmt.Fprintln(c.OutOrStdout(), "Comment deleted.")
			return nil
		}),
	}
	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation")
	cmd.AddCommand(deleteCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "like <id>",
		Short: "Like or unlike a comment",
		Args:  cobra.ExactArgs(1),
		RunE: withThread(func(c *cobra.Command, thread *app.Thread, args []string) error {
			comment, ok, err := thread.ToggleLike(c.Context(), args[0])
			if err != nil {
				return describeError(err)
			}
			if !ok {
				return fmt.Errorf("comment %s not found", args[0])
			}
			state := "Unliked"
			if comment.IsLiked {
				state = "Liked"
			}
			fmt.Fprintf(c.OutOrStdout(), "%s; %d likes.\n", state, comment.Likes)
			return nil
		}),
	})

	cmd.AddCommand(newReportCmd(configPath, flags))
	return cmd
}

func newReportCmd(configPath *string, flags *commentFlags) *cobra.Command {
	var (
		reason  string
		message bool
	)
	cmd := &cobra.Command{
		Use:   "report <id>",
		Short: "Report a comment (or with --message, a direct message) to moderators",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			d, err := loadDeps(c.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.close()

			if message {
				err = d.client.ReportMessage(c.Context(), args[0], domain.ReportReason(reason))
			} else {
				target := domain.CommentContext{Type: flags.contextType, ID: flags.contextID}
				err = app.NewThread(target, d.client, d.user).Report(c.Context(), args[0], domain.ReportReason(reason))
			}
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintln(c.OutOrStdout(), "Report sent. Thank you.")
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", string(domain.ReasonOther), "spam, harassment, inappropriate, misinformation or other")
	cmd.Flags().BoolVar(&message, "message", false, "report a direct message instead of a comment")
	return cmd
}

func printThread(out io.Writer, comments []domain.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(out, "No comments yet.")
		return
	}
	fmt.Fprintf(out, "%d comments\n", app.CountComments(comments))
	printComments(out, comments, 0)
}

func printComments(out io.Writer, comments []domain.Comment, depth int) {
	indent := strings.Repeat("    ", depth)
	for _, c := range comments {
		liked := ""
		if c.IsLiked {
			liked = ", liked"
		}
		fmt.Fprintf(out, "%s[%s] %s - %s (%d likes%s)\n", indent, c.ID, c.Author, c.CreatedAt.Local().Format(time.RFC822), c.Likes, liked)
		for _, line := range strings.Split(c.Text, "\n") {
			fmt.Fprintf(out, "%s  %s\n", indent, line)
		}
		printComments(out, c.Replies, depth+1)
	}
}
