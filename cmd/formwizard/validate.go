package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard"
	"github.com/goliatone/go-formwizard/pkg/definition"
)

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [files or directories...]",
		Short: "Check definitions against their schemas",
		Long: `Loads the definitions, resolves each form's schema and reports pages that
name unknown fields or require fields they do not own. Without arguments
the configured definitions are checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = c.cfg.Definitions
			}
			return c.validate(cmd, args)
		},
	}
}

func (c *cli) validate(cmd *cobra.Command, paths []string) error {
	ctx := cmd.Context()
	catalog, err := definition.LoadFiles(paths...)
	if err != nil {
		return err
	}

	resolver, _, err := formwizard.NewResolver(c.cfg, c.logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	problems := 0
	for _, key := range catalog.Keys() {
		form, _ := catalog.Lookup(key)
		s, err := resolver.Schema(ctx, form)
		if errors.Is(err, definition.ErrNoFetcher) {
			fmt.Fprintf(out, "skip %s: schema %q needs --api\n", key, form.Schema.Definition)
			continue
		}
		if err != nil {
			problems++
			fmt.Fprintf(out, "FAIL %s (%s): %v\n", key, form.Source, err)
			continue
		}
		issues := form.Check(s)
		if len(issues) == 0 {
			fmt.Fprintf(out, "ok   %s (%d pages, %d fields)\n", key, len(form.Pages), s.Len())
			continue
		}
		problems += len(issues)
		for _, issue := range issues {
			fmt.Fprintf(out, "FAIL %s (%s): %v\n", key, form.Source, issue)
		}
	}
	if problems > 0 {
		return fmt.Errorf("validate: %d problem(s) found", problems)
	}
	return nil
}
