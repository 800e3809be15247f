package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/csvinsight-cli/internal/pipeline"
	"github.com/KaramelBytes/csvinsight-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	askProvider string
	askModel    string
	askImage    string
	askJSON     bool
	askShowCode bool
	askQuiet    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <file.csv> <question>",
	Short: "Ask one question about a CSV file",
	Example: `  csvinsight ask vendas.csv "qual a média e a mediana do preço?"
  csvinsight ask vendas.csv "faça um histograma das colunas numéricas" --image hist.png`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		question := strings.TrimSpace(strings.Join(args[1:], " "))
		if question == "" {
			return fmt.Errorf("question is empty")
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx, runtimeOptions{ProviderFlag: askProvider, ModelFlag: askModel}, slog.LevelWarn)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		s, err := a.sessions.Create(ctx, filepath.Base(path), raw)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !askJSON && !askQuiet {
			fmt.Fprintln(out, s.Table.Welcome())
			fmt.Fprintln(out)
		}
		res, err := a.ask(ctx, s.ID, question)
		if err != nil {
			return err
		}
		imagePath, err := saveChart(res, askImage)
		if err != nil {
			return err
		}
		if askJSON {
			return writeAnswerJSON(out, res, imagePath)
		}
		writeAnswerText(out, res, imagePath, askShowCode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askProvider, "provider", "", "completion provider: openai|openrouter|ollama (overrides config)")
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "model name (overrides config)")
	askCmd.Flags().StringVarP(&askImage, "image", "i", "chart.png", "where to save the chart when one is produced")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the result as JSON")
	askCmd.Flags().BoolVar(&askShowCode, "show-code", false, "print the executed program")
	askCmd.Flags().BoolVarP(&askQuiet, "quiet", "q", false, "print only the answer")
}

// saveChart writes the turn's chart to dest and returns the path written,
// or "" when the turn produced no chart.
func saveChart(res *pipeline.Result, dest string) (string, error) {
	if len(res.Image) == 0 || dest == "" {
		return "", nil
	}
	if err := utils.SafeWriteFile(dest, res.Image); err != nil {
		return "", fmt.Errorf("save chart: %w", err)
	}
	return dest, nil
}

type answerJSON struct {
	*pipeline.Result
	ImagePath string `json:"image_path,omitempty"`
}

func writeAnswerJSON(w io.Writer, res *pipeline.Result, imagePath string) error {
	b, err := utils.PrettyJSON(answerJSON{Result: res, ImagePath: imagePath})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeAnswerText(w io.Writer, res *pipeline.Result, imagePath string, showCode bool) {
	if showCode && res.Code != "" {
		fmt.Fprintf(w, "```python\n%s\n```\n\n", strings.TrimSpace(res.Code))
	}
	if res.ExecutionError {
		fmt.Fprintln(w, "⚠", res.FinalAnswer)
	} else {
		fmt.Fprintln(w, res.FinalAnswer)
	}
	if imagePath != "" {
		fmt.Fprintf(w, "✓ Chart saved to %s\n", imagePath)
	}
}
