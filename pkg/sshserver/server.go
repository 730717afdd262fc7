package sshserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/crypto/ssh"
)

// SessionHandler handles an accepted SSH "session" channel.
type SessionHandler func(conn *ssh.ServerConn, channel ssh.Channel, requests <-chan *ssh.Request)

// Server wraps the SSH listener lifecycle.
type Server struct {
	Addr   string
	Config *ssh.ServerConfig

	logger      log.Logger
	connections sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server) error

// WithAuthorizedKeys restricts logins to the public keys listed in an
// OpenSSH authorized_keys file. Without it any client is accepted.
func WithAuthorizedKeys(path string) Option {
	return func(s *Server) error {
		keys, err := loadAuthorizedKeys(path)
		if err != nil {
			return err
		}
		s.Config.NoClientAuth = false
		s.Config.PublicKeyCallback = func(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			wire := key.Marshal()
			for _, k := range keys {
				if bytes.Equal(k, wire) {
					return &ssh.Permissions{Extensions: map[string]string{"pubkey-fp": ssh.FingerprintSHA256(key)}}, nil
				}
			}
			return nil, fmt.Errorf("sshserver: unknown public key for %q", meta.User())
		}
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Server) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// New creates a Server with the provided host signer.
func New(addr string, signer ssh.Signer, opts ...Option) (*Server, error) {
	cfg := &ssh.ServerConfig{
		NoClientAuth:  true,
		ServerVersion: "SSH-2.0-syncstrd",
	}
	cfg.AddHostKey(signer)

	s := &Server{
		Addr:   addr,
		Config: cfg,
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func loadAuthorizedKeys(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sshserver: read authorized keys %q: %w", path, err)
	}

	var keys [][]byte
	for len(bytes.TrimSpace(data)) > 0 {
		key, _, _, rest, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			return nil, fmt.Errorf("sshserver: parse authorized keys %q: %w", path, err)
		}
		keys = append(keys, key.Marshal())
		data = rest
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("sshserver: no keys in %q", path)
	}
	return keys, nil
}

// ListenAndServe listens on s.Addr and serves until the context is cancelled or an error occurs.
func (s *Server) ListenAndServe(ctx context.Context, handler SessionHandler) error {
	if handler == nil {
		return errors.New("sshserver: session handler required")
	}

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("sshserver: listen %q: %w", s.Addr, err)
	}
	return s.Serve(ctx, listener, handler)
}

// Serve accepts connections on listener until the context is cancelled. It
// closes the listener and waits for open connections before returning.
func (s *Server) Serve(ctx context.Context, listener net.Listener, handler SessionHandler) error {
	if handler == nil {
		return errors.New("sshserver: session handler required")
	}
	defer s.connections.Wait()
	defer listener.Close()

	shutdown := make(chan struct{})
	defer close(shutdown)

	go func() {
		select {
		case <-ctx.Done():
			if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				level.Warn(s.logger).Log("msg", "listener close failed", "err", err)
			}
		case <-shutdown:
		}
	}()

	level.Info(s.logger).Log("msg", "listening", "addr", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			level.Warn(s.logger).Log("msg", "accept failed", "err", err)
			continue
		}

		s.connections.Add(1)
		go func() {
			defer s.connections.Done()
			s.handleConn(ctx, conn, handler)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, tcpConn net.Conn, handler SessionHandler) {
	// Sessions are awaited after the connection is closed, which unblocks them.
	var sessions sync.WaitGroup
	defer sessions.Wait()
	defer tcpConn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(tcpConn, s.Config)
	if err != nil {
		level.Warn(s.logger).Log("msg", "handshake failed", "remote", tcpConn.RemoteAddr(), "err", err)
		return
	}
	defer sshConn.Close()

	level.Info(s.logger).Log("msg", "new connection", "remote", sshConn.RemoteAddr(), "user", sshConn.User(), "client", string(sshConn.ClientVersion()))

	go ssh.DiscardRequests(reqs)

	for {
		select {
		case <-ctx.Done():
			return
		case newChannel, ok := <-chans:
			if !ok {
				return
			}
			if newChannel.ChannelType() != "session" {
				newChannel.Reject(ssh.UnknownChannelType, "only session channels are supported")
				continue
			}

			channel, requests, err := newChannel.Accept()
			if err != nil {
				level.Warn(s.logger).Log("msg", "channel accept failed", "err", err)
				continue
			}

			sessions.Add(1)
			go func() {
				defer sessions.Done()
				handler(sshConn, channel, requests)
			}()
		}
	}
}
