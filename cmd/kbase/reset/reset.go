// Package resetcmder provides the reset command, which removes every
// document from the knowledge base.
package resetcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/kbase/cmd/kbase/services"
	"github.com/papercomputeco/kbase/pkg/cliui"
	"github.com/papercomputeco/kbase/pkg/config"
	"github.com/papercomputeco/kbase/pkg/credentials"
	"github.com/papercomputeco/kbase/pkg/rag"
)

// ErrAborted is returned when the confirmation prompt is declined.
var ErrAborted = errors.New("reset aborted")

type resetCommander struct {
	collection string
	yes        bool
	debug      bool

	in    io.Reader
	out   io.Writer
	creds *credentials.Manager
}

var resetFlags = append([]string{config.FlagCollection}, services.BackendFlags...)

const resetLongDesc string = `Remove every document from the knowledge base.

The collection is emptied in the configured vector store and recreated.
Archived originals are kept. Asks for confirmation unless --yes is given.

Examples:
  kbase reset
  kbase reset --yes --collection staging_knowledge`

const resetShortDesc string = "Remove every stored document"

func NewResetCmd() *cobra.Command {
	cmder := &resetCommander{}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: resetShortDesc,
		Long:  resetLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, err := services.LoadConfig(cmd, resetFlags...)
			if err != nil {
				return err
			}
			cmder.creds, err = services.Credentials(cmd)
			if err != nil {
				return err
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), cfg)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Skip the confirmation prompt")
	services.AddBackendFlags(cmd)

	return cmd
}

func (c *resetCommander) run(ctx context.Context, cfg *config.Config) error {
	l, closeLog, err := services.NewLogger(cfg, c.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	stack, err := services.Build(ctx, cfg, l, services.WithCredentials(c.creds))
	if err != nil {
		return err
	}
	defer stack.Close()

	return Reset(ctx, c.in, c.out, stack.Service, cfg.Chroma.Collection, c.yes)
}

// Reset empties the knowledge base behind svc, first asking on in for
// confirmation unless yes is set.
func Reset(ctx context.Context, in io.Reader, out io.Writer, svc *rag.Service, collection string, yes bool) error {
	count, err := svc.Count(ctx)
	if err != nil {
		return err
	}

	if !yes {
		fmt.Fprintf(out, "\n  Remove %d chunk(s) from %s? [y/N] ",
			count, cliui.KeyStyle.Render(collection))

		answer, _ := bufio.NewReader(in).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
		default:
			fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("Nothing removed."))
			return ErrAborted
		}
	}

	err = cliui.Step(out, fmt.Sprintf("Removing %d chunk(s)", count), func() error {
		return svc.Reset(ctx)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	return nil
}
