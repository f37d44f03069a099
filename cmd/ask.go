package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/tensorloom-cli/internal/logging"
	"github.com/KaramelBytes/tensorloom-cli/internal/query"
	"github.com/KaramelBytes/tensorloom-cli/internal/session"
	"github.com/KaramelBytes/tensorloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	askInput      inputFlags
	askJSON       bool
	askTranscript string
	askNarrator   string
	askResume     string
)

var askCmd = &cobra.Command{
	Use:   "ask <file> [question...]",
	Short: "Ask questions about a dataset (one-shot, or interactive when no question is given)",
	Long: `Ask routes a plain-language question to the matching analysis:
predict/forecast/trend, cluster/segment/group, anomaly/outlier/unusual,
correlation/relationship, summary/overview. Anything else gets a general
summary plus the strongest correlation. Without a question, questions are
read from stdin one per line until EOF or "exit".

With --resume, the dataset and earlier answers come from a saved transcript,
all arguments are questions, and the transcript is updated in place unless
--transcript names another path.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if askResume == "" && len(args) == 0 {
			return errors.New("requires a data file (or --resume <transcript>)")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Only an explicit --narrator overrides the configured provider.
		provided := map[string]bool{}
		cmd.Flags().Visit(func(fl *pflag.Flag) { provided[fl.Name] = true })
		provider := ""
		if provided["narrator"] {
			provider = askNarrator
		}
		narrator, err := newNarrator(provider)
		if err != nil {
			return err
		}

		var s *session.Session
		questions := args
		transcript := askTranscript
		if askResume != "" {
			s, err = session.Load(askResume)
			if err != nil {
				return err
			}
			s.Attach(newDispatcher(narrator))
			if transcript == "" {
				transcript = askResume
			}
			logger.Debug("session resumed", logging.Agent(logging.Query),
				zap.String("transcript", askResume), zap.Int("history", len(s.History)))
		} else {
			rec, err := loadRecord(args[0], &askInput)
			if err != nil {
				return err
			}
			for _, w := range rec.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
			}
			s = session.New(rec, newDispatcher(narrator))
			questions = args[1:]
		}
		out := cmd.OutOrStdout()

		if len(questions) > 0 {
			res, err := s.Ask(cmd.Context(), strings.Join(questions, " "))
			if err != nil {
				return err
			}
			if err := printResult(out, res); err != nil {
				return err
			}
		} else if err := askLoop(cmd, s); err != nil {
			return err
		}

		if transcript != "" {
			if err := s.Save(transcript); err != nil {
				return fmt.Errorf("save transcript: %w", err)
			}
			if !askJSON {
				fmt.Fprintf(out, "✓ Saved transcript to %s\n", transcript)
			}
		}
		return nil
	},
}

// askLoop answers one question per input line. A failed question is reported
// and the loop continues.
func askLoop(cmd *cobra.Command, s *session.Session) error {
	out := cmd.OutOrStdout()
	interactive := !askJSON
	if interactive {
		fmt.Fprintf(out, "Loaded %s: %d rows × %d numeric fields (%s). Type \"exit\" to quit.\n",
			s.Source, s.Record.Rows(), len(s.Record.Fields), strings.Join(s.Record.Fields, ", "))
	}
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		res, err := s.Ask(cmd.Context(), line)
		if err != nil {
			fmt.Fprintf(out, "✗ %v\n", err)
			continue
		}
		if err := printResult(out, res); err != nil {
			return err
		}
	}
	if interactive {
		fmt.Fprintln(out)
	}
	return sc.Err()
}

func printResult(w io.Writer, res *query.Result) error {
	if askJSON {
		b, err := utils.PrettyJSON(res)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	_, err := fmt.Fprintf(w, "[%s] %s\n", res.Intent, res.Text())
	return err
}

func init() {
	rootCmd.AddCommand(askCmd)
	askInput.register(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print each result as JSON, including chart data")
	askCmd.Flags().StringVar(&askTranscript, "transcript", "", "save the session (record and answers) as JSON to this path")
	askCmd.Flags().StringVar(&askResume, "resume", "", "continue a session saved with --transcript")
	askCmd.Flags().StringVar(&askNarrator, "narrator", "", "narrator provider: template|openrouter|ollama (default from config)")
}
