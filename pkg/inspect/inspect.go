// Package inspect turns a wheel archive, an unpacked wheel directory,
// or a bare *.dist-info directory into a structured report: the parsed
// dist-info files, one verification finding per path, and facts derived
// from both.
//
// Basic usage:
//
//	ins := inspect.New(inspect.Options{})
//	report, err := ins.Inspect(ctx, "demo-1.0-py3-none-any.whl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, err := inspect.MarshalReport(report)
//
// Problems inside a package (a malformed RECORD, a digest that does not
// match) live in the report, not in the error return. The error return
// is reserved for not getting a report at all: an unreadable path, an
// invalid wheel filename, a canceled context.
package inspect

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
	"github.com/pkgfoundry/wheelscan/pkg/filename"
	"github.com/pkgfoundry/wheelscan/pkg/metadata"
	"github.com/pkgfoundry/wheelscan/pkg/observability"
	"github.com/pkgfoundry/wheelscan/pkg/record"
	"github.com/pkgfoundry/wheelscan/pkg/verify"
	"github.com/pkgfoundry/wheelscan/pkg/wheel"
)

// Names of the files read out of the dist-info directory.
const (
	recordName      = "RECORD"
	metadataName    = "METADATA"
	wheelInfoName   = "WHEEL"
	entryPointsName = "entry_points.txt"
)

// Inspector runs the open, parse, validate pipeline over packages.
// Multiple goroutines can share one Inspector.
type Inspector struct {
	Logger *log.Logger
	opts   Options
}

// New returns an Inspector with defaults applied.
func New(opts Options) *Inspector {
	opts.setDefaults()
	return &Inspector{Logger: opts.Logger, opts: opts}
}

// Inspect examines the package at path, picking the backend from what
// it finds there: a file is opened as a wheel archive, a *.dist-info
// directory as metadata only, and any other directory as an unpacked
// wheel.
func (ins *Inspector) Inspect(ctx context.Context, path string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadablePackage, err, "cannot stat %s", path)
	}
	switch {
	case !info.IsDir():
		return ins.InspectArchive(ctx, path)
	case strings.HasSuffix(filepath.Base(path), wheel.DistInfoSuffix):
		return ins.InspectDistInfo(ctx, path)
	default:
		return ins.InspectDir(ctx, path)
	}
}

// InspectArchive examines the wheel archive at path. The basename must
// be a well-formed wheel filename; its parsed fields and the archive's
// size and digests appear in the report.
func (ins *Inspector) InspectArchive(ctx context.Context, path string) (rep *Report, err error) {
	start := time.Now()
	observability.Inspect().OnInspectStart(ctx, path)
	defer func() { observeInspect(ctx, path, start, rep, err) }()

	parsed, err := filename.Parse(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	identity, err := ins.archiveIdentity(ctx, path, parsed)
	if err != nil {
		return nil, err
	}
	t, err := wheel.OpenArchive(path)
	if err != nil {
		return nil, openFailure(path, err)
	}
	defer t.Close()
	return ins.run(ctx, t, "archive", identity, start)
}

// InspectDir examines an unpacked wheel rooted at path.
func (ins *Inspector) InspectDir(ctx context.Context, path string) (rep *Report, err error) {
	start := time.Now()
	observability.Inspect().OnInspectStart(ctx, path)
	defer func() { observeInspect(ctx, path, start, rep, err) }()

	t, err := wheel.OpenDir(path)
	if err != nil {
		return nil, openFailure(path, err)
	}
	defer t.Close()
	return ins.run(ctx, t, "dir", nil, start)
}

// InspectDistInfo examines a bare *.dist-info directory at path. Rows
// in its RECORD that point outside the directory cannot be checked and
// surface as unverifiable-entry findings.
func (ins *Inspector) InspectDistInfo(ctx context.Context, path string) (rep *Report, err error) {
	start := time.Now()
	observability.Inspect().OnInspectStart(ctx, path)
	defer func() { observeInspect(ctx, path, start, rep, err) }()

	t, err := wheel.OpenDistInfoDir(path)
	if err != nil {
		return nil, openFailure(path, err)
	}
	defer t.Close()
	return ins.run(ctx, t, "dist-info", nil, start)
}

// observeInspect emits the completion hook for an inspection of path.
func observeInspect(ctx context.Context, path string, start time.Time, rep *Report, err error) {
	valid, findings := false, 0
	if rep != nil {
		valid, findings = rep.Valid, len(rep.Findings)
	}
	observability.Inspect().OnInspectComplete(ctx, path, valid, findings, time.Since(start), err)
}

// run drives the three phases over an opened backend: locate the
// special directories, parse the dist-info files, then verify and
// derive. Structural problems land in the report; only failures to
// read at all come back as errors.
func (ins *Inspector) run(ctx context.Context, t wheel.Tree, backend string, identity *WheelIdentity, start time.Time) (*Report, error) {
	rep := newReport(identity)

	distInfo, err := wheel.FindDistInfoDir(t)
	if err != nil {
		rep.flag(err)
		ins.Logger.Info("opened package", "backend", backend, "duration", time.Since(start))
		ins.Logger.Warn("no usable dist-info directory", "err", err)
		return rep, nil
	}
	ins.checkSpecialDirName(rep, distInfo, wheel.DistInfoSuffix)
	if dataDir, found, err := wheel.FindDataDir(t); err != nil {
		rep.flag(err)
	} else if found {
		ins.checkSpecialDirName(rep, dataDir, wheel.DataSuffix)
	}
	ins.Logger.Info("opened package",
		"backend", backend,
		"dist_info", distInfo.Name,
		"duration", time.Since(start))

	parseStart := time.Now()
	rec, md, err := ins.parseDistInfo(rep, t, distInfo.Dir)
	if err != nil {
		return nil, err
	}
	ins.Logger.Info("parsed dist-info",
		"files", len(rep.DistInfo),
		"duration", time.Since(parseStart))

	validateStart := time.Now()
	if rec != nil {
		findings, err := verify.Tree(ctx, t, rec, verify.Options{Registry: ins.opts.Registry})
		if err != nil {
			return nil, err
		}
		rep.Findings = append(rep.Findings, findings...)
		verify.SortFindings(rep.Findings)
	}
	for _, f := range rep.Findings {
		if f.Status != verify.StatusVerified && f.Status != verify.StatusCaseMismatch {
			rep.Valid = false
			break
		}
	}
	rep.Derived = deriveFacts(md, rec)
	ins.Logger.Info("validated package",
		"valid", rep.Valid,
		"findings", len(rep.Findings),
		"duration", time.Since(validateStart))

	return rep, nil
}

// parseDistInfo reads the dist-info files into the report. A missing
// RECORD is a structural problem; the other files are optional. Parse
// failures are flagged on the report, and parsing moves on to the next
// file.
func (ins *Inspector) parseDistInfo(rep *Report, t wheel.Tree, dir wheel.Location) (*record.Record, *metadata.Metadata, error) {
	var (
		rec *record.Record
		md  *metadata.Metadata
	)

	rc, found, err := openDistInfoFile(t, dir, recordName)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		rep.flag(errors.New(errors.ErrCodeMissingRecord, "dist-info directory contains no RECORD file"))
	} else {
		parsed, perr := record.ParseWithOptions(rc, record.Options{Registry: ins.opts.Registry})
		rc.Close()
		if perr != nil {
			rep.flag(perr)
		} else {
			rec = parsed
			rep.DistInfo["record"] = parsed.Rows()
		}
	}

	files := []struct {
		name  string
		key   string
		parse func(io.Reader) (any, error)
	}{
		{metadataName, "metadata", func(r io.Reader) (any, error) {
			parsed, err := metadata.Parse(r)
			if err != nil {
				return nil, err
			}
			md = parsed
			return parsed.AsReport(), nil
		}},
		{wheelInfoName, "wheel", func(r io.Reader) (any, error) {
			info, err := metadata.ParseWheel(r)
			if err != nil {
				return nil, err
			}
			return info.AsReport(), nil
		}},
		{entryPointsName, "entry_points", func(r io.Reader) (any, error) {
			groups, err := metadata.ParseEntryPoints(r)
			if err != nil {
				return nil, err
			}
			return metadata.EntryPointsReport(groups), nil
		}},
		{"dependency_links.txt", "dependency_links", readLineList},
		{"namespace_packages.txt", "namespace_packages", readLineList},
		{"top_level.txt", "top_level", readLineList},
	}
	for _, f := range files {
		rc, found, err := openDistInfoFile(t, dir, f.name)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			continue
		}
		value, perr := f.parse(rc)
		rc.Close()
		if perr != nil {
			rep.flag(perr)
			continue
		}
		rep.DistInfo[f.key] = value
	}

	if found, err := t.Exists(dir.Join("zip-safe")); err != nil {
		return nil, nil, err
	} else if found {
		rep.DistInfo["zip_safe"] = true
	} else if found, err := t.Exists(dir.Join("not-zip-safe")); err != nil {
		return nil, nil, err
	} else if found {
		rep.DistInfo["zip_safe"] = false
	}

	return rec, md, nil
}

func readLineList(r io.Reader) (any, error) {
	return metadata.ReadLines(r)
}

// openDistInfoFile opens one file from the dist-info directory. A
// missing file reports found=false rather than an error.
func openDistInfoFile(t wheel.Tree, dir wheel.Location, name string) (io.ReadCloser, bool, error) {
	rc, err := t.Open(dir.Join(name))
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rc, true, nil
}

// checkSpecialDirName compares a discovered special directory against
// the name the wheel filename implies. Disagreement under canonical
// comparison is a structural problem. A bare spelling difference is a
// case-mismatch finding, or a structural problem when the inspector is
// case sensitive.
func (ins *Inspector) checkSpecialDirName(rep *Report, sd wheel.SpecialDir, suffix string) {
	if rep.WheelIdentity == nil {
		return
	}
	if filename.CanonicalName(sd.Project) != filename.CanonicalName(rep.Project) ||
		filename.CanonicalVersion(sd.Version) != filename.CanonicalVersion(rep.Version) {
		rep.flag(errors.New(errors.ErrCodeDistInfoMismatch,
			"directory %s does not belong to wheel %s", sd.Name, rep.Filename))
		return
	}
	implied := rep.Project + "-" + rep.Version + suffix
	if sd.Name == implied {
		return
	}
	if ins.opts.CaseSensitive {
		rep.flag(errors.New(errors.ErrCodeDistInfoMismatch,
			"directory %s is spelled %s in the wheel filename", sd.Name, implied))
		return
	}
	rep.Findings = append(rep.Findings, verify.Finding{
		Path:   sd.Dir.String(),
		Status: verify.StatusCaseMismatch,
		Detail: fmt.Sprintf("wheel filename implies %s", implied),
	})
}

// archiveIdentity fingerprints the archive and merges in the facts
// parsed from its filename.
func (ins *Inspector) archiveIdentity(ctx context.Context, path string, parsed filename.Parsed) (*WheelIdentity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadablePackage, err, "cannot open package at %s", path)
	}
	defer f.Close()
	sums, size, err := ins.opts.Registry.Sum(ctx, f, "md5", "sha256")
	if err != nil {
		return nil, err
	}
	return &WheelIdentity{
		Filename: filepath.Base(path),
		Project:  parsed.Project,
		Version:  parsed.Version,
		BuildVer: parsed.Build,
		PyVer:    parsed.Python,
		ABI:      parsed.ABI,
		Arch:     parsed.Platform,
		File: FileInfo{
			Size: size,
			Digests: FileDigests{
				MD5:    hex.EncodeToString(sums["md5"]),
				SHA256: hex.EncodeToString(sums["sha256"]),
			},
		},
	}, nil
}

// openFailure normalizes backend open errors to UNREADABLE_PACKAGE.
func openFailure(path string, err error) error {
	if errors.Is(err, errors.ErrCodeUnreadablePackage) {
		return err
	}
	return errors.Wrap(errors.ErrCodeUnreadablePackage, err, "cannot open package at %s", path)
}
