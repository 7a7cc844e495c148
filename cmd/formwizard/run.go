package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

type runOptions struct {
	params map[string]string
	id     string
	submit bool
	format string
	output string
}

func newRunCmd(c *cli) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <form>",
		Short: "Walk a wizard in the terminal",
		Long: `Prompts for each page of the form and prints the accumulated record.
With --submit the record is sent to the record service instead.`,
		Example: `  formwizard run storage_reimbursement_calc --format pretty
  formwizard run orders_info --param service_member_id=sm-1 --id o-1 --submit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0], opts)
		},
	}
	flags := cmd.Flags()
	flags.StringToStringVar(&opts.params, "param", nil, "host parameter, e.g. service_member_id=sm-1")
	flags.StringVar(&opts.id, "id", "", "existing record to edit")
	flags.BoolVar(&opts.submit, "submit", false, "send the record to the record service")
	flags.StringVar(&opts.format, "format", string(tui.OutputFormatJSON), "output format: json, form, pretty")
	flags.StringVarP(&opts.output, "output", "o", "", "write the record to a file instead of stdout")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, key string, opts *runOptions) error {
	ctx := cmd.Context()
	app, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	controller, form, err := app.Start(ctx, key, opts.params, opts.id)
	if err != nil {
		return err
	}

	var submitter wizard.Submitter
	if opts.submit {
		submitter, err = app.Submitter(form, opts.params, opts.id)
		if err != nil {
			return err
		}
	}

	runnerOpts := []tui.Option{tui.WithLogger(c.logger)}
	if searcher := app.Searcher(); searcher != nil {
		runnerOpts = append(runnerOpts, tui.WithSearcher(searcher))
	}
	result, err := tui.New(runnerOpts...).Run(ctx, controller, submitter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case result.Exited:
		fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
		return nil
	case result.Submitted:
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s.\n", form.Title)
	}

	data, err := tui.Serialize(result.Record, tui.OutputFormat(opts.format))
	if err != nil {
		return err
	}
	if opts.output != "" {
		return os.WriteFile(opts.output, data, 0o644)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
