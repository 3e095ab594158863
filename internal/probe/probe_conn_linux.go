//go:build linux

package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"
)

// rawConn wraps a raw ICMP socket plus an eventfd used to interrupt poll(2)
// when the probe's context is cancelled.
type rawConn struct {
	fd   int
	wake int
}

func openRawConn(id uint16) (Conn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.IPPROTO_ICMP)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("opening raw socket: %w", err)
	}

	wake, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("creating eventfd: %w", err)
	}

	if err := attachEchoReplyFilter(fd, id); err != nil {
		// The filter only saves wake-ups; replies are matched in userspace regardless.
		slog.Debug("Could not attach socket filter", "error", err)
	}

	return &rawConn{fd: fd, wake: wake}, nil
}

func (c *rawConn) WriteTo(b []byte, dst netip.Addr) error {
	if !dst.Is4() {
		return fmt.Errorf("sending to %v: not an IPv4 address", dst)
	}
	if err := unix.Sendto(c.fd, b, 0, &unix.SockaddrInet4{Port: 1, Addr: dst.As4()}); err != nil {
		return fmt.Errorf("sending to %v: %w", dst, err)
	}
	return nil
}

func (c *rawConn) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		c.interrupt()
	})
	// The eventfd must not be written once Wait returned and the conn may be closed.
	defer func() {
		if !stop() {
			<-interrupted
		}
	}()

	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{
		{Fd: int32(c.fd), Events: unix.POLLIN},
		{Fd: int32(c.wake), Events: unix.POLLIN},
	}
	for {
		_, err := unix.Poll(fds, pollTimeout(time.Until(deadline)))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("waiting for reply: %w", err)
		}
		break
	}

	if fds[1].Revents&unix.POLLIN != 0 {
		return false, ctx.Err()
	}
	return fds[0].Revents&(unix.POLLIN|unix.POLLERR) != 0, nil
}

// pollTimeout converts d to poll(2) milliseconds, rounding up so a
// sub-millisecond budget still waits instead of spinning.
func pollTimeout(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

func (c *rawConn) ReadFrom(b []byte) (int, error) {
	n, _, err := unix.Recvfrom(c.fd, b, unix.MSG_DONTWAIT)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading reply: %w", err)
	}
	return n, nil
}

func (c *rawConn) Close() error {
	return errors.Join(unix.Close(c.fd), unix.Close(c.wake))
}

func (c *rawConn) interrupt() {
	var one [8]byte
	one[0] = 1
	if _, err := unix.Write(c.wake, one[:]); err != nil {
		slog.Debug("Could not signal eventfd", "error", err)
	}
}
