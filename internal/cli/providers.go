package cli

import (
	"github.com/paid-tw/paid/internal/constants"

	"github.com/spf13/cobra"
)

type providerInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

func newProvidersCommand(app *App, opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "providers",
		Short:   "支付服務清單",
		Example: "  paid providers list",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "列出可用的支付服務",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := app.newPrinter(opts, constants.OutputFormatJSON)
			names := app.Container.Registry.Names()
			providers := make([]providerInfo, 0, len(names))
			for _, name := range names {
				providers = append(providers, providerInfo{Name: name, DisplayName: lookupLabel(providerDisplayNames, name)})
			}
			return p.success("providers list", "", providers, func() string {
				return renderProvidersPretty(providers)
			})
		},
	})
	return cmd
}
