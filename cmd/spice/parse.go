package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/spice-gateway/internal/cli"
	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const defaultBatchWorkers = 4

type financeParser interface {
	ParseFinanceText(ctx context.Context, rawText, userID string) (model.ParseResult, error)
}

type batchResult struct {
	err    error
	line   string
	result model.ParseResult
}

type batchSummary struct {
	total        int
	ai           int
	fallback     int
	confirmation int
	rejected     int
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Extract financial transactions from a message",
		Long: `Extract income and expense records from a short message, for example:

  spice parse "spent 30 taka on burger and got 500 from tuition"

With --file every non-empty line of the file is parsed as its own message.
Lines starting with # are skipped.`,
		Args: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" && len(args) == 0 {
				return errors.New("provide text to parse or --file")
			}
			if file != "" && len(args) > 0 {
				return errors.New("use either text arguments or --file, not both")
			}
			return nil
		},
		RunE: runParse,
	}

	cmd.Flags().StringP("file", "f", "", "parse every line of this file (- for stdin)")
	cmd.Flags().String("user", "", "user id recorded in the audit log")
	cmd.Flags().Bool("json", false, "print results as JSON")
	cmd.Flags().Int("workers", defaultBatchWorkers, "concurrent requests in batch mode")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	userID, _ := cmd.Flags().GetString("user")
	asJSON, _ := cmd.Flags().GetBool("json")
	workers, _ := cmd.Flags().GetInt("workers")

	app, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	out := cmd.OutOrStdout()

	if file == "" {
		result, err := app.gateway.ParseFinanceText(cmd.Context(), strings.Join(args, " "), userID)
		if err != nil {
			return common.NewUserError("could not parse that message", err)
		}
		if asJSON {
			return writeJSON(out, result)
		}
		_, err = fmt.Fprintln(out, cli.RenderParseResult(result))
		return err
	}

	lines, err := readBatchFile(file, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		_, err = fmt.Fprintln(out, cli.FormatInfo("Nothing to parse."))
		return err
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	bar := cli.NewBatchProgress(cmd.ErrOrStderr(), len(lines))
	done := 0
	results, err := runBatch(ctx, app.gateway, lines, userID, workers, func() {
		done++
		handler.SetProgress(done, len(lines))
		_ = bar.Add(1)
	})
	if err != nil {
		if handler.WasInterrupted() {
			return nil
		}
		return err
	}

	if asJSON {
		return writeJSON(out, batchJSON(results))
	}

	for _, r := range results {
		if _, err := fmt.Fprintln(out, cli.SubtleStyle.Render("> "+r.line)); err != nil {
			return err
		}
		if r.err != nil {
			_, err = fmt.Fprintln(out, cli.FormatError(r.err.Error()))
		} else {
			_, err = fmt.Fprintln(out, cli.RenderParseResult(r.result))
		}
		if err != nil {
			return err
		}
	}

	s := summarize(results)
	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
		"Parsed %d lines: %d by AI, %d by fallback rules, %d need confirmation, %d rejected",
		s.total, s.ai, s.fallback, s.confirmation, s.rejected)))
	return err
}

// runBatch parses lines with at most workers requests in flight. Results keep
// the input order. progress is called once per finished line from a single goroutine.
func runBatch(ctx context.Context, parser financeParser, lines []string, userID string, workers int, progress func()) ([]batchResult, error) {
	if workers <= 0 {
		workers = defaultBatchWorkers
	}

	results := make([]batchResult, len(lines))
	finished := make(chan struct{}, len(lines))
	drained := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	go func() {
		defer close(drained)
		for range finished {
			if progress != nil {
				progress()
			}
		}
	}()

	for i, line := range lines {
		if gctx.Err() != nil {
			break
		}
		i, line := i, line
		g.Go(func() error {
			defer func() { finished <- struct{}{} }()

			result, err := parser.ParseFinanceText(gctx, line, userID)
			if err != nil && !errors.Is(err, common.ErrValidation) {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			results[i] = batchResult{line: line, result: result, err: err}
			return nil
		})
	}

	err := g.Wait()
	close(finished)
	<-drained
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func readBatchFile(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	slog.Debug("read batch file", "path", path, "lines", len(lines))
	return lines, nil
}

func summarize(results []batchResult) batchSummary {
	s := batchSummary{total: len(results)}
	for _, r := range results {
		switch {
		case r.err != nil:
			s.rejected++
			continue
		case r.result.FallbackUsed:
			s.fallback++
		default:
			s.ai++
		}
		if r.result.RequiresConfirmation {
			s.confirmation++
		}
	}
	return s
}

type batchLine struct {
	Result *model.ParseResult `json:"result,omitempty"`
	Text   string             `json:"text"`
	Error  string             `json:"error,omitempty"`
}

func batchJSON(results []batchResult) []batchLine {
	out := make([]batchLine, 0, len(results))
	for _, r := range results {
		line := batchLine{Text: r.line}
		if r.err != nil {
			line.Error = r.err.Error()
		} else {
			result := r.result
			line.Result = &result
		}
		out = append(out, line)
	}
	return out
}
