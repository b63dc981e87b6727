// Command storectl is the operator CLI for the storefront: it reads the
// catalog and carts through the same backend client the API uses.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/backend"
	"github.com/ariefcatur/go-storefront.git/internal/config"
	"github.com/ariefcatur/go-storefront.git/internal/logx"
)

type app struct {
	cfg        config.Config
	backendURL string
	verbose    bool
	log        *zap.Logger
}

func (a *app) client() *backend.Client {
	return backend.New(a.backendURL,
		backend.WithLogger(a.log),
		backend.WithRetries(a.cfg.BackendRetries),
		backend.WithTimeout(a.cfg.BackendTimeout),
	)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "storectl",
		Short:         "Inspect the storefront catalog, carts and prices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.cfg = config.Load()
			if a.backendURL == "" {
				a.backendURL = a.cfg.BackendURL
			}
			level := "error"
			if a.verbose {
				level = "debug"
			}
			a.log = logx.New(level, "storectl")
		},
	}
	root.PersistentFlags().StringVar(&a.backendURL, "backend", "", "backend base URL (default $BACKEND_URL)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log backend calls")

	root.AddCommand(
		newProductsCmd(a),
		newProductCmd(a),
		newCartCmd(a),
		newPriceCmd(),
	)
	return root
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
