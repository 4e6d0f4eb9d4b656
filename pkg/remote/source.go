// Package remote fetches raw CSV reports from where scanners leave them: an SFTP
// host, a local directory, or a simulated host for demos.
package remote

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	KindMock = "mock"
	KindSFTP = "sftp"
	KindDir  = "dir"
)

var (
	ErrInvalidKey      = errors.New("invalid private key")
	ErrHostNotFound    = errors.New("host not found")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrUnknownSource   = errors.New("unknown source kind")
)

// Probe summarizes a successful connection test.
type Probe struct {
	Message     string   `json:"-"`
	DurationMS  int64    `json:"duration"`
	TotalFiles  int      `json:"totalFiles"`
	CSVFiles    int      `json:"csvFiles"`
	RemotePath  string   `json:"remotePath"`
	SampleFiles []string `json:"sampleFiles"`
}

// Source lists and downloads CSV reports.
type Source interface {
	// Probe connects and inspects the remote directory.
	Probe(ctx context.Context) (Probe, error)
	// List returns the CSV file names in the remote directory, sorted.
	List(ctx context.Context) ([]string, error)
	// Fetch downloads one file completely and returns its content.
	Fetch(ctx context.Context, name string) (string, error)
}

// New builds the source of the given kind. fs backs the dir kind.
func New(kind string, cfg Config, fs afero.Fs) (Source, error) {
	switch kind {
	case KindMock, "":
		return NewMockSource(cfg), nil
	case KindSFTP:
		return NewSFTPSource(cfg)
	case KindDir:
		return NewDirSource(fs, cfg.RemotePath), nil
	default:
		return nil, errors.Wrapf(ErrUnknownSource, "%q", kind)
	}
}

// Describe turns a source error into the message shown to users.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrInvalidKey):
		return "Invalid private key format - must be in OpenSSH or PEM format"
	case errors.Is(err, ErrHostNotFound):
		return "Host not found - check the hostname/IP address"
	case errors.Is(err, ErrAuthFailed):
		return "Authentication failed - check username and private key"
	case errors.Is(err, ErrInvalidFilename):
		return "Invalid filename"
	default:
		return "Connection test failed"
	}
}

// FetchAll downloads several files with at most limit transfers in flight. The
// first failure cancels the remaining downloads. Contents are returned in the
// order of names.
func FetchAll(ctx context.Context, src Source, names []string, limit int) ([]string, error) {
	contents := make([]string, len(names))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			content, err := src.Fetch(ctx, name)
			if err != nil {
				return errors.Wrapf(err, "fetch %s", name)
			}
			contents[i] = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

// checkName rejects names that would leave the remote directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || path.Clean(name) != name {
		return errors.Wrapf(ErrInvalidFilename, "%q", name)
	}
	return nil
}

func csvOnly(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasSuffix(n, ".csv") {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func sample(names []string, n int) []string {
	if len(names) < n {
		n = len(names)
	}
	out := make([]string, n)
	copy(out, names[:n])
	return out
}
