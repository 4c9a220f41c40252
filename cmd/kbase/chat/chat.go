// Package chatcmder provides the chat command for asking questions grounded
// on the knowledge base through a running kbase API server.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/kbase/api/client"
	"github.com/papercomputeco/kbase/cmd/kbase/services"
	"github.com/papercomputeco/kbase/pkg/cliui"
	"github.com/papercomputeco/kbase/pkg/config"
	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/rag"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	apiTarget string
	plain     bool

	in  io.Reader
	out io.Writer
}

const chatLongDesc string = `Ask a question answered from the knowledge base.

The question is sent to a running kbase API server, which retrieves the
most relevant document chunks and asks the configured chat model to answer
from them. The documents used are listed under the answer.

With a message argument a single question is answered. Without one an
interactive session starts; earlier turns are sent along as history.

Examples:
  kbase chat "How many vacation days do new hires get?"
  kbase chat
  kbase chat "Who approves travel?" --api-target http://kbase.internal:3000`

const chatShortDesc string = "Ask a question answered from the knowledge base"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := services.LoadConfig(cmd, config.FlagAPITarget)
			if err != nil {
				return err
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			kb, err := client.New(cmder.apiTarget)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				_, err := cmder.ask(cmd.Context(), kb, []llm.Message{
					llm.NewTextMessage(llm.RoleUser, args[0]),
				})
				return err
			}
			return cmder.interactive(cmd.Context(), kb)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print answers as plain text instead of rendered markdown")

	return cmd
}

// ask sends messages and prints the answer with its sources.
func (c *chatCommander) ask(ctx context.Context, kb *client.Client, messages []llm.Message) (*rag.ChatResult, error) {
	res, err := kb.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	c.printAnswer(res)
	return res, nil
}

func (c *chatCommander) printAnswer(res *rag.ChatResult) {
	answer := res.Message.Content
	if !c.plain {
		if rendered, err := cliui.RenderMarkdown(answer); err == nil {
			answer = rendered
		}
	}
	fmt.Fprintln(c.out, answer)

	if !res.Context.ContextUsed {
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("No matching documents were found."))
		return
	}

	fmt.Fprintf(c.out, "  %s\n", cliui.LabelStyle.Render("Sources"))
	for _, doc := range res.Context.DocumentsUsed {
		fmt.Fprintf(c.out, "  %s %s %s\n",
			cliui.FormatSimilarity(doc.Similarity),
			cliui.KeyStyle.Render(doc.Filename),
			cliui.DimStyle.Render(fmt.Sprintf("(chunk %d)", doc.ChunkIndex)),
		)
	}
	fmt.Fprintln(c.out)
}

func (c *chatCommander) interactive(ctx context.Context, kb *client.Client) error {
	fmt.Fprintf(c.out, "\n  %s %s\n",
		cliui.KeyStyle.Render("API:"),
		cliui.ValueStyle.Render(c.apiTarget),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	var history []llm.Message
	scanner := bufio.NewScanner(c.in)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		messages := append(slices.Clone(history), llm.NewTextMessage(llm.RoleUser, input))

		fmt.Fprintln(c.out, assistantPrompt)
		res, err := c.ask(ctx, kb, messages)
		if err != nil {
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		history = append(messages, res.Message)
	}

	fmt.Fprintln(c.out)
	return scanner.Err()
}
