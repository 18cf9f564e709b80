package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/harunnryd/tabi/internal/widget"
	"github.com/harunnryd/tabi/internal/widget/render"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running Tabi daemon",
	Long:  `Starts an interactive session against the daemon's /api/chat endpoint and renders widgets in the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		if server == "" {
			port := 0
			if cfg != nil {
				port = cfg.Server.Port
			}
			server = fmt.Sprintf("http://127.0.0.1:%d", port)
		}
		convID, _ := cmd.Flags().GetString("conversation")
		language, _ := cmd.Flags().GetString("language")
		output, _ := cmd.Flags().GetString("output")

		format, err := render.ParseOutputFormat(output)
		if err != nil {
			return err
		}
		renderer, err := render.New(format)
		if err != nil {
			return err
		}

		sig := NewSignalHandler(commandContext(cmd))
		sig.Start()
		defer sig.Stop()

		repl := &chatREPL{
			client:         newAPIClient(server, 2*time.Minute),
			renderer:       renderer,
			in:             bufio.NewReader(os.Stdin),
			out:            cmd.OutOrStdout(),
			conversationID: convID,
			language:       language,
		}
		return repl.Run(sig.Context())
	},
}

type chatREPL struct {
	client         *apiClient
	renderer       render.Renderer
	in             *bufio.Reader
	out            io.Writer
	conversationID string
	language       string
}

func newConversationID() string {
	return fmt.Sprintf("cli-%d", time.Now().Unix())
}

func (r *chatREPL) Run(ctx context.Context) error {
	if r.conversationID == "" {
		r.conversationID = newConversationID()
	}
	fmt.Fprintf(r.out, "Tabi chat session: %s\n", r.conversationID)
	fmt.Fprintln(r.out, "Type '/new' for a fresh conversation, '/exit' to quit.")

	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			text, err := r.in.ReadString('\n')
			if text != "" {
				select {
				case lines <- text:
				case <-stop:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case text := <-lines:
			if done := r.handle(ctx, strings.TrimSpace(text)); done {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the session should end.
func (r *chatREPL) handle(ctx context.Context, text string) bool {
	switch text {
	case "":
		return false
	case "/exit", "/quit":
		return true
	case "/new":
		r.conversationID = newConversationID()
		fmt.Fprintf(r.out, "Started conversation %s\n", r.conversationID)
		return false
	}

	reply, err := r.client.Chat(ctx, chatPayload{
		Message:        text,
		Language:       r.language,
		ConversationID: r.conversationID,
	})
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return false
	}

	rendered, err := r.renderer.Render(widget.Parse(reply))
	if err != nil {
		fmt.Fprintln(r.out, reply)
		return false
	}
	fmt.Fprintln(r.out, rendered)
	return false
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("server", "", "daemon base URL (default http://127.0.0.1:<server.port>)")
	chatCmd.Flags().StringP("conversation", "c", "", "conversation ID to continue")
	chatCmd.Flags().StringP("language", "l", "", "preferred reply language")
	chatCmd.Flags().StringP("output", "o", string(render.OutputFormatTerminal), "output format (plain, terminal, json, yaml)")
}
