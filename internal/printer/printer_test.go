package printer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "628111_doc.pdf")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    any
		wantErr bool
	}{
		{name: "default is command", cfg: Config{}, want: &CommandPrinter{}},
		{name: "raw", cfg: Config{Mode: ModeRaw, Address: "10.0.0.5"}, want: &RawPrinter{}},
		{name: "raw without address", cfg: Config{Mode: ModeRaw}, wantErr: true},
		{name: "unknown mode", cfg: Config{Mode: "fax"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestNew_RawDefaultsPort(t *testing.T) {
	p, err := New(&Config{Mode: ModeRaw, Address: "10.0.0.5"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:9100", p.(*RawPrinter).address)
}

func TestCommandPrinter(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	path := writeFile(t, []byte("%PDF"))

	t.Run("success", func(t *testing.T) {
		p, err := New(&Config{Logger: discardLogger(), Command: "true"})
		require.NoError(t, err)
		assert.NoError(t, p.Submit(context.Background(), path))
	})

	t.Run("non-zero exit", func(t *testing.T) {
		p, err := New(&Config{Logger: discardLogger(), Command: "false"})
		require.NoError(t, err)
		assert.ErrorIs(t, p.Submit(context.Background(), path), domain.ErrPrinter)
	})

	t.Run("missing command", func(t *testing.T) {
		p, err := New(&Config{Logger: discardLogger(), Command: "printdesk-no-such-binary"})
		require.NoError(t, err)
		assert.ErrorIs(t, p.Submit(context.Background(), path), domain.ErrPrinter)
	})
}

func TestRawPrinter_WritesFileBytes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, conn)
		received <- buf.Bytes()
	}()

	content := []byte("%PDF-1.4 raw job payload")
	path := writeFile(t, content)

	p, err := New(&Config{Logger: discardLogger(), Mode: ModeRaw, Address: ln.Addr().String(), Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, p.Submit(context.Background(), path))

	select {
	case got := <-received:
		assert.Equal(t, content, got)
	case <-time.After(2 * time.Second):
		t.Fatal("printer never received data")
	}
}

func TestRawPrinter_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	path := writeFile(t, []byte("%PDF"))
	p, err := New(&Config{Logger: discardLogger(), Mode: ModeRaw, Address: addr, Timeout: time.Second})
	require.NoError(t, err)

	assert.ErrorIs(t, p.Submit(context.Background(), path), domain.ErrPrinter)
}

func TestRawPrinter_MissingFile(t *testing.T) {
	p, err := New(&Config{Logger: discardLogger(), Mode: ModeRaw, Address: "127.0.0.1:1"})
	require.NoError(t, err)

	assert.ErrorIs(t, p.Submit(context.Background(), "/nonexistent/doc.pdf"), domain.ErrPrinter)
}
