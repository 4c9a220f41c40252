// Package kbasecmder
package kbasecmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/kbase/cmd/kbase/auth"
	chatcmder "github.com/papercomputeco/kbase/cmd/kbase/chat"
	configcmder "github.com/papercomputeco/kbase/cmd/kbase/config"
	ingestcmder "github.com/papercomputeco/kbase/cmd/kbase/ingest"
	resetcmder "github.com/papercomputeco/kbase/cmd/kbase/reset"
	searchcmder "github.com/papercomputeco/kbase/cmd/kbase/search"
	servecmder "github.com/papercomputeco/kbase/cmd/kbase/serve"
	versioncmder "github.com/papercomputeco/kbase/cmd/version"
)

const kbaseLongDesc string = `kbase is a self-hosted company knowledge base.

Documents are chunked, embedded and stored in a vector database, then
searched or used to ground chat answers.

Run services using:
  kbase serve db       Run the vector database server
  kbase serve api      Run the knowledge base API server
  kbase serve          Run both servers together

Work with the knowledge base:
  kbase ingest <file>  Add documents, or --watch a directory
  kbase search <query> Search stored documents
  kbase chat <message> Ask a question grounded on stored documents
  kbase reset          Remove every stored document

Manage settings:
  kbase config          Read and write config.toml
  kbase auth <provider> Store a provider API key`

const kbaseShortDesc string = "kbase - Company Knowledge Base"

func NewKbaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "kbase",
		Short:        kbaseShortDesc,
		Long:         kbaseLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .kbase/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(resetcmder.NewResetCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
