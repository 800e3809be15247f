package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/csvinsight-cli/internal/templates"
	"github.com/spf13/cobra"
)

var (
	chatProvider string
	chatModel    string
	chatImageDir string
	chatShowCode bool
	chatPlain    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <file.csv>",
	Short: "Interactive question session over a CSV file",
	Long: `Loads a CSV file and answers questions one at a time, keeping a short rolling memory of
the conversation. Type /help for commands, /exit to quit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx, runtimeOptions{ProviderFlag: chatProvider, ModelFlag: chatModel}, slog.LevelWarn)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		s, err := a.sessions.Create(ctx, filepath.Base(path), raw)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		render := newRenderer(chatPlain)
		st := newStatusStyler(out)
		showCode := chatShowCode
		fmt.Fprintln(out, render(s.Table.Welcome()))
		fmt.Fprintln(out)

		sc := bufio.NewScanner(cmd.InOrStdin())
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		turn := 0
		for {
			fmt.Fprint(out, st.prompt("? "))
			if !sc.Scan() {
				break
			}
			line := strings.TrimSpace(sc.Text())
			switch {
			case line == "":
				continue
			case line == "/exit" || line == "/quit":
				return nil
			case line == "/help":
				fmt.Fprintln(out, "/code     toggle printing the executed program")
				fmt.Fprintln(out, "/schema   show column types")
				fmt.Fprintln(out, "/templates list the fallback analysis templates")
				fmt.Fprintln(out, "/exit     quit")
				continue
			case line == "/code":
				showCode = !showCode
				fmt.Fprintln(out, st.ok(fmt.Sprintf("show code: %v", showCode)))
				continue
			case line == "/schema":
				for _, c := range s.Table.Schema() {
					fmt.Fprintf(out, "- %s: %s\n", c.Name, c.Kind)
				}
				continue
			case line == "/templates":
				for _, t := range templates.All() {
					fmt.Fprintf(out, "- %s: %s\n", t.Name, t.Title)
				}
				continue
			case strings.HasPrefix(line, "/"):
				fmt.Fprintln(out, st.warn("unknown command "+line+" (try /help)"))
				continue
			}

			res, err := a.ask(ctx, s.ID, line)
			if err != nil {
				// a failed completion ends this turn, not the session
				fmt.Fprintln(out, st.warn(err.Error()))
				continue
			}
			turn++
			if showCode && res.Code != "" {
				fmt.Fprintln(out, render("```python\n"+strings.TrimSpace(res.Code)+"\n```"))
			}
			if res.ExecutionError {
				fmt.Fprintln(out, st.warn(res.FinalAnswer))
			} else {
				fmt.Fprintln(out, render(res.FinalAnswer))
			}
			if len(res.Image) > 0 && chatImageDir != "" {
				dest := filepath.Join(chatImageDir, fmt.Sprintf("chart-%02d.png", turn))
				saved, err := saveChart(res, dest)
				if err != nil {
					fmt.Fprintln(out, st.warn(err.Error()))
				} else {
					fmt.Fprintln(out, st.ok("chart saved to "+saved))
				}
			}
			fmt.Fprintln(out)
		}
		return sc.Err()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatProvider, "provider", "", "completion provider: openai|openrouter|ollama (overrides config)")
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model name (overrides config)")
	chatCmd.Flags().StringVar(&chatImageDir, "image-dir", "charts", "directory for charts produced during the session (empty disables saving)")
	chatCmd.Flags().BoolVar(&chatShowCode, "show-code", false, "print the executed program for each code answer")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "print answers without markdown rendering")
}
