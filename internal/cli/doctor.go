package cli

import (
	"github.com/paid-tw/paid/internal/constants"

	"github.com/spf13/cobra"
)

func newDoctorCommand(app *App, opts *globalOptions) *cobra.Command {
	var providerName string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "檢查設定與環境變數",
		Example: `  paid doctor --provider=payuni
  paid doctor --output=json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			const command = "doctor"
			p := app.newPrinter(opts, constants.OutputFormatPretty)

			report, err := app.Container.DoctorService.Run(providerName)
			if err != nil {
				return p.failure(command, "", err)
			}
			if err := p.success(command, "", report, func() string {
				return renderDoctorPretty(report)
			}); err != nil {
				return err
			}
			if !report.OK {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&providerName, "provider", "", "支付服務 (payuni/newebpay/ecpay)")
	return cmd
}
