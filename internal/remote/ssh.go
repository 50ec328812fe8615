package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHOptions describes how to reach a device over SSH.
type SSHOptions struct {
	Host         string
	Port         int
	User         string
	Password     string
	IdentityFile string
	// KnownHosts enables host key verification when set. Without it any host
	// key is accepted.
	KnownHosts string
	Timeout    time.Duration
}

// SSHChannel keeps one client connection open and opens a session per command.
type SSHChannel struct {
	opts   SSHOptions
	config *ssh.ClientConfig
	agent  net.Conn // nil when no ssh-agent is used

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSH builds a channel from opts. No connection is made until the first
// command or Establish.
func NewSSH(opts SSHOptions) (*SSHChannel, error) {
	if opts.Port == 0 {
		opts.Port = 22
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	auth, agentConn := authMethods(opts)
	if len(auth) == 0 {
		return nil, errors.New("no authentication methods available (no valid key, agent or password)")
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if opts.KnownHosts != "" {
		cb, err := knownhosts.New(opts.KnownHosts)
		if err != nil {
			if agentConn != nil {
				agentConn.Close()
			}
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKey = cb
	}

	return &SSHChannel{
		opts:  opts,
		agent: agentConn,
		config: &ssh.ClientConfig{
			User:            opts.User,
			Auth:            auth,
			HostKeyCallback: hostKey,
			Timeout:         opts.Timeout,
		},
	}, nil
}

// authMethods collects the usable auth methods. The returned agent
// connection, if any, must stay open while the methods are in use.
func authMethods(opts SSHOptions) ([]ssh.AuthMethod, net.Conn) {
	var methods []ssh.AuthMethod
	var agentConn net.Conn

	if opts.IdentityFile != "" {
		if keyData, err := os.ReadFile(opts.IdentityFile); err == nil {
			if signer, err := ssh.ParsePrivateKey(keyData); err == nil {
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			agentConn = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if opts.Password != "" {
		methods = append(methods, ssh.Password(opts.Password))
	}
	return methods, agentConn
}

func (c *SSHChannel) addr() string {
	return net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))
}

// connect returns the open client, dialing if there is none.
func (c *SSHChannel) connect() (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := ssh.Dial("tcp", c.addr(), c.config)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.addr(), err)
	}
	c.client = client
	return client, nil
}

// drop discards client so the next command redials.
func (c *SSHChannel) drop(client *ssh.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == client {
		c.client.Close()
		c.client = nil
	}
}

// Execute runs args in a new session. The session is closed when ctx ends,
// which unblocks a stalled command.
func (c *SSHChannel) Execute(ctx context.Context, args []string) (Result, error) {
	client, err := c.connect()
	if err != nil {
		return Result{}, err
	}
	session, err := client.NewSession()
	if err != nil {
		c.drop(client)
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(ShellJoin(args)) }()

	select {
	case <-ctx.Done():
		session.Close()
		return Result{}, ctx.Err()
	case err = <-done:
	}

	var exitErr *ssh.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
	default:
		var missing *ssh.ExitMissingError
		if !errors.As(err, &missing) {
			c.drop(client)
		}
		return Result{}, fmt.Errorf("run %s: %w", strings.Join(args, " "), err)
	}
	return Result{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}, nil
}

// Establish dials the device and runs a trivial command.
func (c *SSHChannel) Establish(ctx context.Context) error {
	if _, err := c.connect(); err != nil {
		return err
	}
	_, err := Run(ctx, c, "true")
	return err
}

// Close closes the underlying connection and the ssh-agent connection.
func (c *SSHChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.client != nil {
		errs = append(errs, c.client.Close())
		c.client = nil
	}
	if c.agent != nil {
		errs = append(errs, c.agent.Close())
		c.agent = nil
	}
	return errors.Join(errs...)
}

// ShellJoin quotes args for a POSIX shell. Arguments made only of safe
// characters are left bare.
func ShellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=,:%@+", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
