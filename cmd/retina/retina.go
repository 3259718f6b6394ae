// Package retinacmder
package retinacmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/retina/cmd/retina/config"
	servecmder "github.com/papercomputeco/retina/cmd/retina/serve"
	watchcmder "github.com/papercomputeco/retina/cmd/retina/watch"
)

const retinaLongDesc string = `Retina is late-interaction document retrieval for visual corpora.

Run services using:
  retina serve         Run the API server
  retina watch         Index files dropped into a directory
  retina config        Manage persistent configuration`

const retinaShortDesc string = "Retina - Visual Document Retrieval"

func NewRetinaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retina",
		Short: retinaShortDesc,
		Long:  retinaLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Config directory (default: $RETINA_DIR or ~/.retina)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}
