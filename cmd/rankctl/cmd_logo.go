package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/models"
)

func newLogoCommand(opts *globalOptions) *cobra.Command {
	var domain, logo string
	cmd := &cobra.Command{
		Use:   "logo <brand name>",
		Short: "Resolve the logo URL and initials for a brand",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			canonical := p.canon.Canonicalize(strings.Join(args, " "))
			d := canonical.PreferredDomain
			if d == "" {
				d = domain
			}
			resp := models.LogoResponse{
				Name:     canonical.DisplayName,
				LogoURL:  p.logos.ResolveLogo(d, logo, canonical.DisplayName),
				Initials: brand.Initials(canonical.DisplayName),
			}
			p.save(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "Domain hint, e.g. https://www.acme.com")
	cmd.Flags().StringVar(&logo, "logo", "", "Explicit logo URL, used as given when absolute")
	return cmd
}
