package cli

import (
	"fmt"
	"io"
	"time"

	"act-academy/internal/domain"
	"github.com/spf13/cobra"
)

// NewHistoryCmd lists earlier attempts of the configured user.
func NewHistoryCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [quiz-id]",
		Short: "List your earlier quiz attempts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.close()

			quizID := ""
			if len(args) == 1 {
				quizID = args[0]
			}
			attempts, err := d.service.History(cmd.Context(), d.user.ID, quizID, limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), attempts)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of attempts to show")
	return cmd
}

func printHistory(out io.Writer, attempts []domain.Attempt) {
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No attempts recorded.")
		return
	}
	for i, attempt := range attempts {
		verdict := "not passed"
		if attempt.Passed {
			verdict = "passed"
		}
		fmt.Fprintf(out, "%d. %s quiz=%s %d/%d (%d%%) %s\n",
			i+1,
			attempt.Timestamp.Local().Format(time.RFC3339),
			attempt.QuizID,
			attempt.CorrectCount,
			attempt.Total,
			attempt.Percent,
			verdict,
		)
	}
}
