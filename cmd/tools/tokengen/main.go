package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"era-inventory-panel/internal/auth"
	"era-inventory-panel/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	var (
		service  string
		roles    string
		expiry   time.Duration
		secret   string
		issuer   string
		audience string
	)

	cmd := &cobra.Command{
		Use:   "tokengen",
		Short: "Generate a service token for calling the inventory backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if secret != "" {
				cfg.JWTSecret = secret
			}
			if issuer != "" {
				cfg.JWTIssuer = issuer
			}
			if audience != "" {
				cfg.JWTAudience = audience
			}
			if expiry > 0 {
				cfg.JWTExpiry = expiry
			}

			var roleList []string
			for _, r := range strings.Split(roles, ",") {
				if r = strings.TrimSpace(r); r != "" {
					roleList = append(roleList, r)
				}
			}

			issuerSvc := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
			if err := issuerSvc.ValidateConfig(); err != nil {
				return err
			}
			token, expires, err := issuerSvc.GenerateToken(service, roleList)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service:  %s\n", service)
			fmt.Fprintf(out, "Roles:    %s\n", strings.Join(roleList, ", "))
			fmt.Fprintf(out, "Issuer:   %s\n", cfg.JWTIssuer)
			fmt.Fprintf(out, "Audience: %s\n", cfg.JWTAudience)
			fmt.Fprintf(out, "Expires:  %s\n", expires.Format(time.RFC3339))
			fmt.Fprintf(out, "\nToken:\n%s\n\n", token)
			fmt.Fprintf(out, "Usage example:\ncurl -H \"Authorization: Bearer %s\" %s/api/Item\n", token, cfg.BackendURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "era-inventory-panel", "service name placed in the token")
	cmd.Flags().StringVar(&roles, "roles", "panel", "comma-separated roles")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "token lifetime (overrides JWT_EXPIRY)")
	cmd.Flags().StringVar(&secret, "secret", "", "JWT secret (overrides JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "JWT issuer (overrides JWT_ISS)")
	cmd.Flags().StringVar(&audience, "audience", "", "JWT audience (overrides JWT_AUD)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
