package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"act-academy/internal/app"
	"act-academy/internal/domain"
	"github.com/spf13/cobra"
)

// NewTakeCmd runs one timed quiz attempt in the terminal.
func NewTakeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "take <quiz-id>",
		Short: "Take a timed quiz in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.close()
			return runTake(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), d.service, args[0], d.user)
		},
	}
}

func runTake(ctx context.Context, in io.Reader, out io.Writer, service *app.QuizService, quizID string, user domain.User) error {
	if service.OpenElsewhere(ctx, quizID, user) {
		fmt.Fprintln(out, "Note: this quiz is already open in another session; answers there are not shared with this one.")
	}
	session, _, err := service.Attach(ctx, quizID, user)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
			fmt.Fprintf(out, "Quiz %s is not available.\n", quizID)
			return nil
		}
		return describeError(err)
	}
	defer service.Release(quizID, user)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go session.Run(runCtx)

	updates, unsubscribe := session.Subscribe()
	defer unsubscribe()

	lines := make(chan string)
	go readLines(runCtx, bufio.NewReader(in), lines)

	quiz := session.Quiz()
	fmt.Fprintf(out, "%s\n%d questions, %d minutes, pass mark %d%%\n", quiz.Title, len(quiz.Questions), quiz.TimeLimitMinutes, quiz.PassingScorePercent)
	if answered := len(session.PendingAnswers()); answered > 0 {
		fmt.Fprintf(out, "Restored %d answers from your previous attempt.\n", answered)
	}
	printTakeHelp(out)
	printQuestion(out, session.Snapshot())

	t := &takeLoop{session: session, out: out, warnedAt: -1}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return t.finish()
			}
			t.warn(snap.Remaining)
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Input closed; the attempt was not submitted.")
				return nil
			}
			t.handle(ctx, line)
			if session.State().Terminal() {
				return t.finish()
			}
		}
	}
}

type takeLoop struct {
	session      *app.Session
	out          io.Writer
	confirmLeave bool
	warnedAt     int
}

func (t *takeLoop) handle(ctx context.Context, line string) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return
	}

	if t.confirmLeave {
		switch fields[0] {
		case "y", "yes":
			t.confirmLeave = false
			_ = t.session.ResolveLeave(false)
		case "n", "no":
			t.confirmLeave = false
			_ = t.session.ResolveLeave(true)
			printQuestion(t.out, t.session.Snapshot())
		default:
			fmt.Fprintln(t.out, "Please answer yes or no.")
		}
		return
	}

	switch fields[0] {
	case "h", "help":
		printTakeHelp(t.out)
	case "n", "next":
		t.session.Next()
		printQuestion(t.out, t.session.Snapshot())
	case "p", "prev":
		t.session.Prev()
		printQuestion(t.out, t.session.Snapshot())
	case "g", "goto":
		if len(fields) < 2 {
			fmt.Fprintln(t.out, "usage: goto <question number>")
			return
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintln(t.out, "usage: goto <question number>")
			return
		}
		if err := t.session.GoTo(n - 1); err != nil {
			fmt.Fprintf(t.out, "error: %v\n", err)
			return
		}
		printQuestion(t.out, t.session.Snapshot())
	case "t", "time":
		fmt.Fprintf(t.out, "%s left\n", formatClock(t.session.Snapshot().Remaining))
	case "s", "submit":
		fmt.Fprintln(t.out, "Submitting...")
		if _, err := t.session.Submit(ctx); err != nil {
			switch {
			case errors.Is(err, domain.ErrSubmitInFlight):
				fmt.Fprintln(t.out, "A submission is already in progress.")
			case errors.Is(err, domain.ErrAuthExpired), errors.Is(err, domain.ErrSessionClosed):
			default:
				fmt.Fprintf(t.out, "Submission failed: %v. Your answers are kept; try again.\n", describeError(err))
			}
		}
	case "l", "leave", "q", "quit":
		if t.session.RequestLeave() {
			t.confirmLeave = true
			fmt.Fprint(t.out, "Leave the quiz? Unsubmitted answers will be lost. (yes/no): ")
		}
	default:
		snap := t.session.Snapshot()
		if snap.Question == nil {
			return
		}
		index, ok := parseOption(fields[0], len(snap.Question.Options))
		if !ok {
			fmt.Fprintln(t.out, "unknown command. type 'help' for usage.")
			return
		}
		if err := t.session.Select(index); err != nil {
			fmt.Fprintf(t.out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(t.out, "Answer %c recorded.\n", rune('A'+index))
	}
}

// warn prints the remaining time once when a minute and ten seconds remain.
func (t *takeLoop) warn(remaining int) {
	for _, mark := range []int{60, 10} {
		if remaining <= mark && remaining > 0 && (t.warnedAt < 0 || t.warnedAt > mark) {
			t.warnedAt = mark
			fmt.Fprintf(t.out, "\n%s left\n", formatClock(remaining))
			return
		}
	}
}

func (t *takeLoop) finish() error {
	switch t.session.State() {
	case app.StateSubmitted:
		if result, ok := t.session.Result(); ok {
			printResult(t.out, result)
		}
	case app.StateAuthExpired:
		fmt.Fprintf(t.out, "Your session expired before the attempt was saved. %d answers were kept; sign in again and rerun this command to submit them.\n", len(t.session.PendingAnswers()))
	case app.StateAbandoned:
		fmt.Fprintln(t.out, "Quiz left without submitting.")
	}
	return nil
}

func readLines(ctx context.Context, reader *bufio.Reader, lines chan<- string) {
	defer close(lines)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func printTakeHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  A-Z or 1-N    answer the current question")
	fmt.Fprintln(out, "  next | prev   move between questions")
	fmt.Fprintln(out, "  goto <n>      jump to question n")
	fmt.Fprintln(out, "  time          show the remaining time")
	fmt.Fprintln(out, "  submit        submit your answers")
	fmt.Fprintln(out, "  leave         abandon the attempt")
}

func printQuestion(out io.Writer, snap app.Snapshot) {
	if snap.Question == nil {
		return
	}
	fmt.Fprintf(out, "\nQuestion %d/%d (answered %d, %s left)\n%s\n", snap.Current+1, snap.Total, len(snap.Answers), formatClock(snap.Remaining), snap.Question.Prompt)
	chosen, answered := snap.Answers[snap.Question.ID]
	for i, option := range snap.Question.Options {
		marker := " "
		if answered && chosen == i {
			marker = "x"
		}
		fmt.Fprintf(out, "  [%s] %c. %s\n", marker, rune('A'+i), option)
	}
}

func printResult(out io.Writer, result app.Result) {
	attempt := result.Attempt
	verdict := "not passed"
	if attempt.Passed {
		verdict = "passed"
	}
	fmt.Fprintf(out, "\nScore: %d/%d (%d%%) - %s\n", attempt.CorrectCount, attempt.Total, attempt.Percent, verdict)
	if result.Source == app.SourceClient {
		fmt.Fprintln(out, "(scored locally; the server did not return a score)")
	}
	for i, review := range result.Review {
		mark := "wrong"
		if review.Correct {
			mark = "right"
		}
		yours := "no answer"
		if review.Chosen >= 0 && review.Chosen < len(review.Options) {
			yours = fmt.Sprintf("%c. %s", rune('A'+review.Chosen), review.Options[review.Chosen])
		}
		fmt.Fprintf(out, "%d. [%s] %s\n   your answer: %s\n", i+1, mark, review.Prompt, yours)
		if !review.Correct && review.CorrectIndex >= 0 && review.CorrectIndex < len(review.Options) {
			fmt.Fprintf(out, "   correct: %c. %s\n", rune('A'+review.CorrectIndex), review.Options[review.CorrectIndex])
		}
		if review.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", review.Explanation)
		}
	}
}
