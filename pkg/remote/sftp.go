package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPSource reads reports from a directory on an SSH host. Every call opens
// its own connection and closes it before returning.
type SFTPSource struct {
	cfg Config
}

func NewSFTPSource(cfg Config) (*SFTPSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "ssh configuration")
	}
	return &SFTPSource{cfg: cfg}, nil
}

type session struct {
	ssh  *ssh.Client
	sftp *sftp.Client
	stop func() bool
}

func (s *session) Close() {
	s.stop()
	s.sftp.Close()
	s.ssh.Close()
}

func (s *SFTPSource) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.cfg.KnownHostsFile == "" {
		log.Warn().Str("host", s.cfg.Host).Msg("no known_hosts file configured, host key is not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(s.cfg.KnownHostsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load known hosts %s", s.cfg.KnownHostsFile)
	}
	return cb, nil
}

func (s *SFTPSource) connect(ctx context.Context) (*session, error) {
	signer, err := ssh.ParsePrivateKey([]byte(s.cfg.PrivateKey))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse private key"), ErrInvalidKey)
	}
	hostKeys, err := s.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	addr := s.cfg.Addr()
	dialer := net.Dialer{Timeout: s.cfg.timeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return nil, errors.Mark(errors.Wrapf(err, "dial %s", addr), ErrHostNotFound)
		}
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	// closing the socket unblocks the handshake and any transfer when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	fail := func(err error, msg string) (*session, error) {
		stop()
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, msg)
		}
		return nil, errors.Wrap(err, msg)
	}

	// the deadline covers the handshake and the sftp subsystem start
	deadline := time.Now().Add(s.cfg.timeout())
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            s.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         s.cfg.timeout(),
	})
	if err != nil {
		if ctx.Err() == nil && strings.Contains(err.Error(), "unable to authenticate") {
			stop()
			conn.Close()
			return nil, errors.Mark(errors.Wrap(err, "ssh handshake"), ErrAuthFailed)
		}
		return fail(err, "ssh handshake")
	}

	client := ssh.NewClient(c, chans, reqs)
	sc, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return fail(err, "start sftp subsystem")
	}
	_ = conn.SetDeadline(time.Time{})

	log.Debug().Str("addr", addr).Str("user", s.cfg.Username).Msg("sftp connected")
	return &session{ssh: client, sftp: sc, stop: stop}, nil
}

func (s *SFTPSource) readDir(ctx context.Context) ([]os.FileInfo, error) {
	sess, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	infos, err := sess.sftp.ReadDir(s.cfg.RemotePath)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", s.cfg.RemotePath)
	}
	return infos, nil
}

func (s *SFTPSource) Probe(ctx context.Context) (Probe, error) {
	start := time.Now()
	infos, err := s.readDir(ctx)
	if err != nil {
		return Probe{}, err
	}

	csvs := regularCSV(infos)
	return Probe{
		Message:     fmt.Sprintf("Connected successfully! Found %d CSV files in %s", len(csvs), s.cfg.RemotePath),
		DurationMS:  time.Since(start).Milliseconds(),
		TotalFiles:  len(infos),
		CSVFiles:    len(csvs),
		RemotePath:  s.cfg.RemotePath,
		SampleFiles: sample(csvs, 3),
	}, nil
}

func (s *SFTPSource) List(ctx context.Context) ([]string, error) {
	infos, err := s.readDir(ctx)
	if err != nil {
		return nil, err
	}
	return regularCSV(infos), nil
}

func regularCSV(infos []os.FileInfo) []string {
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.Mode().IsRegular() {
			names = append(names, fi.Name())
		}
	}
	return csvOnly(names)
}

func (s *SFTPSource) Fetch(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	sess, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	p := path.Join(s.cfg.RemotePath, name)
	f, err := sess.sftp.Open(p)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", p)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", errors.Wrapf(err, "download %s", p)
	}
	log.Debug().Str("file", p).Int("bytes", len(data)).Msg("sftp download")
	return string(data), nil
}
