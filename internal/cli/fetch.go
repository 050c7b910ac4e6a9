package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkgfoundry/wheelscan/pkg/digest"
	"github.com/pkgfoundry/wheelscan/pkg/errors"
	"github.com/pkgfoundry/wheelscan/pkg/inspect"
	"github.com/pkgfoundry/wheelscan/pkg/integrations"
	"github.com/pkgfoundry/wheelscan/pkg/integrations/pypi"
)

// fetchCommand creates the fetch command.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		output    string
		indexURL  string
		refresh   bool
		noCache   bool
		noInspect bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <project> [version]",
		Short: "Download a wheel from the package index and inspect it",
		Long: `Download a wheel for a project release from the package index.

Without a version the latest release is used. The pure py3-none-any wheel
is preferred when the release has one; otherwise the first wheel the index
lists is taken. Downloads are checked against the digest the index
advertises and land under the cache directory unless --output names a
path. A wheel already present with a matching digest is not downloaded
again.

After the download the wheel is inspected and the report written next to
it; --no-inspect skips that step.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			if !cmd.Flags().Changed("index") {
				indexURL = c.config().Index.URL
			}
			return c.runFetch(cmd.Context(), fetchParams{
				project:   args[0],
				version:   version,
				output:    output,
				indexURL:  indexURL,
				refresh:   refresh,
				noCache:   noCache,
				noInspect: noInspect,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the wheel to this path")
	cmd.Flags().StringVar(&indexURL, "index", "", "package index API root (default "+pypi.DefaultBaseURL+")")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached index responses")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the index response cache")
	cmd.Flags().BoolVar(&noInspect, "no-inspect", false, "skip inspecting the downloaded wheel")

	return cmd
}

type fetchParams struct {
	project   string
	version   string
	output    string
	indexURL  string
	refresh   bool
	noCache   bool
	noInspect bool
}

func (c *CLI) runFetch(ctx context.Context, p fetchParams) error {
	cfg := c.config()
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return err
	}
	timeout, err := cfg.IndexTimeout()
	if err != nil {
		return err
	}

	backend := c.newCacheBackend(p.noCache)
	defer backend.Close()

	client := pypi.NewClientWithBase(backend, p.indexURL, ttl)
	client.SetTimeout(timeout)

	rel, err := c.resolveRelease(ctx, client, p)
	if err != nil {
		return err
	}

	file, ok := rel.PreferredWheel()
	if !ok {
		return errors.New(errors.ErrCodeUnsupported, "release %s %s has no wheel files", rel.Project, rel.Version)
	}
	if file.Yanked {
		printWarning("%s is yanked on the index", file.Filename)
	}

	dest := p.output
	if dest == "" {
		dir, err := c.wheelDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create wheel dir: %w", err)
		}
		dest = filepath.Join(dir, file.Filename)
	}

	reused, err := c.haveWheel(ctx, dest, file)
	if err != nil {
		return err
	}
	if !reused {
		if err := c.downloadWheel(ctx, client, file, dest); err != nil {
			return err
		}
	}

	printSuccess("Fetched %s %s", rel.Project, rel.Version)
	printKeyValue("Wheel", file.Filename)
	printKeyValue("Size", formatBytes(file.Size))
	if reused {
		printKeyValue("Source", "already cached")
	} else {
		printKeyValue("Source", "downloaded")
	}
	printFile(dest)

	if p.noInspect {
		return nil
	}
	printNewline()
	return c.inspectFetched(ctx, dest)
}

// resolveRelease looks up the release on the index, showing a spinner
// while the request is in flight.
func (c *CLI) resolveRelease(ctx context.Context, client *pypi.Client, p fetchParams) (*pypi.Release, error) {
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Resolving %s...", p.project))
	spinner.Start()

	rel, err := client.Release(ctx, p.project, p.version, p.refresh)
	if err != nil {
		spinner.StopWithError("Resolve failed")
		return nil, indexError(err)
	}
	spinner.StopWithSuccess(fmt.Sprintf("Resolved %s %s", rel.Project, rel.Version))
	return rel, nil
}

// haveWheel reports whether dest already holds the wheel the index
// describes. Without an advertised digest the file is always re-fetched.
func (c *CLI) haveWheel(ctx context.Context, dest string, file pypi.File) (bool, error) {
	if file.SHA256 == "" {
		return false, nil
	}
	f, err := os.Open(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	sums, _, err := digest.Default().Sum(ctx, f, "sha256")
	if err != nil {
		return false, nil
	}
	match := strings.EqualFold(fmt.Sprintf("%x", sums["sha256"]), file.SHA256)
	if match {
		c.Logger.Debug("wheel already present", "path", dest)
	}
	return match, nil
}

// downloadWheel streams the wheel into a temp file next to dest and moves
// it into place once the digest check inside Download has passed.
func (c *CLI) downloadWheel(ctx context.Context, client *pypi.Client, file pypi.File, dest string) error {
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Downloading %s...", file.Filename))
	spinner.Start()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".wheelscan-*")
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := client.Download(ctx, file, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		spinner.StopWithError("Download failed")
		return indexError(err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		spinner.Stop()
		return fmt.Errorf("move wheel into place: %w", err)
	}
	spinner.StopWithSuccess(fmt.Sprintf("Downloaded %s", formatBytes(n)))
	return nil
}

// inspectFetched inspects the downloaded wheel and writes the report next
// to it.
func (c *CLI) inspectFetched(ctx context.Context, wheelPath string) error {
	cfg := c.config()
	opts, err := c.verifyOptions(cfg.Verify.Algorithms, cfg.Verify.CaseSensitive)
	if err != nil {
		return err
	}

	rep, err := inspect.New(opts).Inspect(ctx, wheelPath)
	if err != nil {
		return err
	}
	data, err := inspect.MarshalReport(rep)
	if err != nil {
		return err
	}

	reportPath := strings.TrimSuffix(wheelPath, filepath.Ext(wheelPath)) + ".report.json"
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	printReportSummary(rep)
	printFile(reportPath)
	printNewline()
	printNextStep("Browse the findings", fmt.Sprintf("%s browse %s", appName, reportPath))
	return nil
}

// indexError maps index client failures onto coded errors so exit paths
// distinguish a missing release from a broken network.
func indexError(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, integrations.ErrNotFound):
		return errors.Wrap(errors.ErrCodeNotFound, err, "release not found on the index")
	case stderrors.Is(err, integrations.ErrTimeout):
		return errors.Wrap(errors.ErrCodeTimeout, err, "index request timed out")
	case stderrors.Is(err, integrations.ErrRateLimited):
		return errors.Wrap(errors.ErrCodeRateLimited, err, "index rate limited the request")
	case stderrors.Is(err, integrations.ErrNetwork):
		return errors.Wrap(errors.ErrCodeNetwork, err, "index request failed")
	default:
		return err
	}
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
