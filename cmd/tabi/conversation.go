package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/harunnryd/tabi/internal/conversation"
	"github.com/harunnryd/tabi/internal/widget/render"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Manage conversations",
	Long:    `List, show and delete conversations in the local store. These commands fail while a daemon holds the store lock.`,
}

var conversationLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withStore(cmd, func(store *conversation.Store) error {
			metas, err := store.List(commandContext(cmd))
			if err != nil {
				return err
			}
			return printConversations(cmd.OutOrStdout(), metas, asJSON)
		})
	},
}

var conversationShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		if err := conversation.ValidateID(args[0]); err != nil {
			return err
		}
		return withStore(cmd, func(store *conversation.Store) error {
			transcript, err := store.Get(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return printTranscript(cmd.OutOrStdout(), transcript, asJSON)
		})
	},
}

var conversationRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := conversation.ValidateID(args[0]); err != nil {
			return err
		}
		return withStore(cmd, func(store *conversation.Store) error {
			if err := store.Delete(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Conversation '%s' deleted.\n", args[0])
			return nil
		})
	},
}

func printConversations(w io.Writer, metas []conversation.Meta, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(metas)
	}

	if len(metas) == 0 {
		fmt.Fprintln(w, "No conversations found.")
		fmt.Fprintln(w, "\nRun 'tabi chat' to start one.")
		return nil
	}

	purple := lipgloss.Color("99")
	headerStyle := lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("ID", "Title", "Messages", "Updated")

	for _, m := range metas {
		t.Row(m.ID, m.Title, strconv.Itoa(m.MessageCount), m.UpdatedAt.Local().Format(time.DateTime))
	}

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "\nTotal: %d conversation(s)\n", len(metas))
	return nil
}

func printTranscript(w io.Writer, transcript conversation.Transcript, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(transcript)
	}

	fmt.Fprintf(w, "%s (%s)\n", transcript.Meta.Title, transcript.Meta.ID)
	for _, m := range transcript.Messages {
		content := m.Content
		if m.Role == conversation.RoleAssistant {
			content = render.Terminal(m.Content)
		}
		fmt.Fprintf(w, "\n[%s] %s\n%s\n", m.Role, m.CreatedAt.Local().Format(time.DateTime), content)
	}
	return nil
}

func init() {
	conversationLsCmd.Flags().Bool("json", false, "print JSON")
	conversationShowCmd.Flags().Bool("json", false, "print JSON")
	conversationCmd.AddCommand(conversationLsCmd)
	conversationCmd.AddCommand(conversationShowCmd)
	conversationCmd.AddCommand(conversationRmCmd)
	rootCmd.AddCommand(conversationCmd)
}
