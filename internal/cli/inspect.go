package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pkgfoundry/wheelscan/pkg/digest"
	"github.com/pkgfoundry/wheelscan/pkg/inspect"
	"github.com/pkgfoundry/wheelscan/pkg/verify"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		output        string
		algorithms    []string
		caseSensitive bool
		interactive   bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <package>",
		Short: "Inspect a wheel package and report its contents",
		Long: `Inspect a wheel package and write a JSON report of its contents.

The package may be a .whl archive, an unpacked wheel directory, or a bare
.dist-info directory (metadata only). The report covers the package
identity, parsed dist-info metadata, and one finding per path checked
against the RECORD manifest.

Problems inside the package (digest mismatches, files missing from the
RECORD, malformed metadata) are part of the report, not errors: the
command fails only when no report can be produced at all.

Without --output the report is printed to stdout. With --output the
report is written to a file and a summary is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("algorithms") {
				algorithms = c.config().Verify.Algorithms
			}
			if !cmd.Flags().Changed("case-sensitive") {
				caseSensitive = c.config().Verify.CaseSensitive
			}
			opts, err := c.verifyOptions(algorithms, caseSensitive)
			if err != nil {
				return err
			}
			return c.runInspect(cmd, args[0], opts, output, interactive)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().StringSliceVar(&algorithms, "algorithms", nil, "digest algorithms accepted during verification (e.g. sha256,sha512)")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "treat dist-info name casing drift as a validation error")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the findings in a TUI after inspecting")

	return cmd
}

// verifyOptions builds inspector options from the resolved algorithm list
// and case sensitivity. An empty algorithm list keeps the full registry.
func (c *CLI) verifyOptions(algorithms []string, caseSensitive bool) (inspect.Options, error) {
	reg := digest.Default()
	if len(algorithms) > 0 {
		var err error
		reg, err = reg.Restrict(algorithms...)
		if err != nil {
			return inspect.Options{}, err
		}
	}
	return inspect.Options{
		Registry:      reg,
		CaseSensitive: caseSensitive,
		Logger:        c.Logger,
	}, nil
}

func (c *CLI) runInspect(cmd *cobra.Command, path string, opts inspect.Options, output string, interactive bool) error {
	prog := newProgress(c.Logger)
	rep, err := inspect.New(opts).Inspect(cmd.Context(), path)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Inspected %s", filepath.Base(path)))

	data, err := inspect.MarshalReport(rep)
	if err != nil {
		return err
	}

	if output != "" {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		printReportSummary(rep)
		printFile(output)
		if !interactive {
			printNewline()
			printNextStep("Browse the findings", fmt.Sprintf("%s browse %s", appName, output))
		}
	} else if !interactive {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}

	if interactive {
		return c.browseReport(rep, filepath.Base(path))
	}
	return nil
}

// printReportSummary prints the verdict, identity, and finding counts
// for a report.
func printReportSummary(rep *inspect.Report) {
	if rep.Valid {
		printSuccess("Package is valid")
	} else {
		printError("Package is invalid")
		if rep.ValidationError != nil {
			printDetail("%s", rep.ValidationError.Str)
		}
	}

	if rep.WheelIdentity != nil {
		printKeyValue("Project", rep.Project)
		printKeyValue("Version", rep.Version)
		printKeyValue("SHA256", rep.File.Digests.SHA256)
	}

	counts := make(map[verify.Status]int)
	for _, f := range rep.Findings {
		counts[f.Status]++
	}
	printStats(len(rep.Findings), counts)
}
