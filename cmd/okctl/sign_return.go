package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/config"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/signing"
)

func signReturnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign-return",
		Short: "Compute the signature of a return redirect",
		Long: `Prints the signature the processor would put on the return URL for the
given order id and status. With --return-url the complete redirect is printed,
which is handy for exercising GET /payments/return by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, _ := cmd.Flags().GetString("order-id")
			status, _ := cmd.Flags().GetString("status")
			returnURL, _ := cmd.Flags().GetString("return-url")

			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}
			key, err := cfg.Key()
			if err != nil {
				return err
			}
			line, err := signReturn(key, orderID, status, returnURL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
	cmd.Flags().String("order-id", "", "merchant order id")
	cmd.Flags().String("status", omnikassa.OrderStatusCompleted, "order status")
	cmd.Flags().String("return-url", "", "return URL to append the parameters to")
	_ = cmd.MarkFlagRequired("order-id")
	return cmd
}

func signReturn(key []byte, orderID, status, returnURL string) (string, error) {
	params := omnikassa.ReturnParameters{OrderID: orderID, Status: status}
	sig, err := signing.Sign(params, key)
	if err != nil {
		return "", err
	}
	if returnURL == "" {
		return sig, nil
	}
	params.Sig = sig

	u, err := url.Parse(returnURL)
	if err != nil {
		return "", fmt.Errorf("return url: %w", err)
	}
	q := u.Query()
	for k, v := range params.Query() {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
