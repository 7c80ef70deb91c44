package printer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
)

const (
	// ModeCommand submits through a spooler command such as CUPS lp
	ModeCommand = "command"
	// ModeRaw streams the file to a network printer port
	ModeRaw = "raw"

	defaultCommand = "lp"
	defaultTCPPort = 9100
	defaultTimeout = 30 * time.Second
)

// Submitter sends one file to a printer
type Submitter interface {
	Submit(ctx context.Context, path string) error
}

// Config holds printer configuration
type Config struct {
	Logger  *slog.Logger
	Mode    string
	Command string
	Args    []string
	Address string
	Timeout time.Duration
}

// New builds the printer for the configured mode
func New(cfg *Config) (Submitter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	switch cfg.Mode {
	case "", ModeCommand:
		command := cfg.Command
		if command == "" {
			command = defaultCommand
		}
		return &CommandPrinter{logger: logger, command: command, args: cfg.Args, timeout: timeout}, nil

	case ModeRaw:
		if cfg.Address == "" {
			return nil, fmt.Errorf("printer address is required in %s mode", ModeRaw)
		}
		address := cfg.Address
		if _, _, err := net.SplitHostPort(address); err != nil {
			address = net.JoinHostPort(address, fmt.Sprint(defaultTCPPort))
		}
		return &RawPrinter{logger: logger, address: address, timeout: timeout}, nil

	default:
		return nil, fmt.Errorf("unknown printer mode %q", cfg.Mode)
	}
}

// CommandPrinter hands files to the OS spooler
type CommandPrinter struct {
	logger  *slog.Logger
	command string
	args    []string
	timeout time.Duration
}

// Submit runs `<command> <args...> <path>`; a non-zero exit is an ErrPrinter
func (p *CommandPrinter) Submit(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string{}, p.args...), path)
	out, err := exec.CommandContext(ctx, p.command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v: %s", domain.ErrPrinter, p.command, path, err, strings.TrimSpace(string(out)))
	}

	p.logger.Debug("Print command finished",
		slog.String("path", path),
		slog.String("output", strings.TrimSpace(string(out))),
	)
	return nil
}

// RawPrinter streams files to a JetDirect style socket
type RawPrinter struct {
	logger  *slog.Logger
	address string
	timeout time.Duration
}

// Submit writes the file bytes to the printer connection
func (p *RawPrinter) Submit(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", domain.ErrPrinter, path, err)
	}
	defer f.Close()

	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", domain.ErrPrinter, p.address, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(p.timeout)); err != nil {
		return fmt.Errorf("%w: set deadline: %v", domain.ErrPrinter, err)
	}

	written, err := io.Copy(conn, f)
	if err != nil {
		return fmt.Errorf("%w: write to %s: %v", domain.ErrPrinter, p.address, err)
	}

	p.logger.Debug("Sent file to printer",
		slog.String("address", p.address),
		slog.String("path", path),
		slog.Int64("bytes", written),
	)
	return nil
}
