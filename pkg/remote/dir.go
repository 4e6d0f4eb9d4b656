package remote

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// DirSource reads reports from a directory, typically one a scanner or an rsync
// job drops files into.
type DirSource struct {
	fs  afero.Fs
	dir string
}

func NewDirSource(fs afero.Fs, dir string) *DirSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dir == "" {
		dir = "."
	}
	return &DirSource{fs: fs, dir: dir}
}

func (d *DirSource) entries(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(d.fs, d.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", d.dir)
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		names = append(names, fi.Name())
	}
	return names, nil
}

func (d *DirSource) Probe(ctx context.Context) (Probe, error) {
	start := time.Now()
	all, err := d.entries(ctx)
	if err != nil {
		return Probe{}, err
	}
	csvs := csvOnly(all)
	return Probe{
		Message:     fmt.Sprintf("Connected successfully! Found %d CSV files in %s", len(csvs), d.dir),
		DurationMS:  time.Since(start).Milliseconds(),
		TotalFiles:  len(all),
		CSVFiles:    len(csvs),
		RemotePath:  d.dir,
		SampleFiles: sample(csvs, 3),
	}, nil
}

func (d *DirSource) List(ctx context.Context) ([]string, error) {
	all, err := d.entries(ctx)
	if err != nil {
		return nil, err
	}
	return csvOnly(all), nil
}

func (d *DirSource) Fetch(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(d.fs, filepath.Join(d.dir, name))
	if err != nil {
		return "", errors.Wrapf(err, "read %s", name)
	}
	return string(data), nil
}
