package peer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bittrickle/internal/wire"
)

// serveTransfers accepts inbound transfer connections until the
// listener closes. Connections share no state, so each one is handled
// in its own goroutine.
func (s *Session) serveTransfers(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Transfer: accept: %v", err)
			continue
		}
		go s.handleTransfer(conn)
	}
}

// handleTransfer reads one "GET <filename>" request and streams the
// file back. An unknown file gets no bytes; closing the connection is
// the only signal on this channel.
func (s *Session) handleTransfer(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		log.Printf("Transfer: read request: %v", err)
		return
	}
	filename, err := wire.ParseTransferRequest(line)
	if err != nil {
		log.Printf("Transfer: %v", err)
		return
	}

	// Serve only names inside the share directory.
	file, err := os.Open(filepath.Join(s.shareDir, filepath.Base(filename)))
	if err != nil {
		log.Printf("Transfer: %q requested but not available: %v", filename, err)
		return
	}
	defer file.Close()

	n, err := io.Copy(conn, file)
	if err != nil {
		log.Printf("Transfer: sending %q: %v", filename, err)
		return
	}
	log.Printf("Transfer: served %q (%d bytes) to %s", filename, n, conn.RemoteAddr())
}

// Download opens a transfer connection to a resolved peer, sends the
// GET request and materializes the byte stream as a local file. The
// destination is created exclusively so an existing file is never
// clobbered.
func Download(address string, port int, filename, destDir string) error {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.Dial("tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("connect to peer: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(wire.TransferRequest(filename)); err != nil {
		return fmt.Errorf("send transfer request: %w", err)
	}

	dest := filepath.Join(destDir, filepath.Base(filename))
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	n, err := io.Copy(out, conn)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("receive %q: %w", filename, err)
	}
	if n == 0 {
		// The peer closed without sending anything, its only way of
		// saying it does not hold the file.
		os.Remove(dest)
		return fmt.Errorf("peer had no content for %q", filename)
	}
	return nil
}
