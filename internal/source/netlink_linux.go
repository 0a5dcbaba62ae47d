// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

//go:build linux

package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"unicode/utf8"

	"golang.org/x/sys/unix"

	"github.com/tomtom215/auditstream/internal/logging"
	"github.com/tomtom215/auditstream/internal/metrics"
)

// auditMulticastGroup is AUDIT_NLGRP_READLOG, the read-only log group.
const auditMulticastGroup = 1

// Netlink reads audit records from the kernel over NETLINK_AUDIT.
// Subscribing to the multicast group requires CAP_AUDIT_READ.
type Netlink struct {
	*queue
	cfg NetlinkConfig
	fd  int

	closeOnce sync.Once
}

// NewNetlink opens and binds the audit socket. Open and bind failures are
// returned here so they are fatal before Start.
func NewNetlink(cfg NetlinkConfig) (*Netlink, error) {
	def := DefaultNetlinkConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}

	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_AUDIT)
	if err != nil {
		return nil, fmt.Errorf("open netlink audit socket: %w", err)
	}
	sa := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Pid:    uint32(os.Getpid()), //nolint:gosec // pids fit in uint32
		Groups: auditMulticastGroup,
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind netlink audit socket: %w", err)
	}
	if cfg.SocketBuffer > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.SocketBuffer); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("set netlink receive buffer: %w", err)
		}
	}
	tv := unix.NsecToTimeval(cfg.ReadTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set netlink receive timeout: %w", err)
	}

	return &Netlink{
		queue: newQueue("netlink", cfg.QueueSize),
		cfg:   cfg,
		fd:    fd,
	}, nil
}

// Start launches the receive loop. The socket is closed when the loop
// ends.
func (n *Netlink) Start(ctx context.Context) error {
	return n.start(ctx, n.receive)
}

// Stop ends the receive loop and closes the socket, also when the source
// was never started.
func (n *Netlink) Stop() {
	n.queue.Stop()
	n.closeSocket()
}

func (n *Netlink) closeSocket() {
	n.closeOnce.Do(func() {
		_ = unix.Close(n.fd)
	})
}

func (n *Netlink) receive(ctx context.Context) error {
	defer n.closeSocket()

	log := logging.Component("source").With().Str("source", n.name).Logger()
	log.Info().Int("pid", os.Getpid()).Msg("receiving kernel audit records")

	buf := make([]byte, n.cfg.BufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		nr, from, err := unix.Recvfrom(n.fd, buf, 0)
		if err != nil {
			switch {
			case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
				continue
			case errors.Is(err, unix.ENOBUFS):
				metrics.RecordSourceError(n.name, "overflow")
				log.Warn().Msg("kernel audit queue overflowed, records were lost")
				continue
			default:
				metrics.RecordSourceError(n.name, "receive")
				log.Error().Err(err).Msg("netlink receive failed, ending stream")
				return fmt.Errorf("netlink receive: %w", err)
			}
		}
		if sa, ok := from.(*unix.SockaddrNetlink); ok && sa.Pid != 0 {
			// Only the kernel (pid 0) sends audit records.
			continue
		}

		frames, err := splitFrames(buf[:nr])
		if err != nil {
			metrics.RecordSourceError(n.name, "malformed")
			log.Warn().Err(err).Int("frames", len(frames)).Msg("malformed netlink datagram")
		}
		for _, f := range frames {
			if f.Type < nlmsgMinType {
				continue
			}
			if !utf8.Valid(f.Payload) {
				metrics.RecordSourceError(n.name, "non_utf8")
				logging.Payload(log.Warn(), f.Payload).Uint16("type", f.Type).Msg("non-UTF-8 audit payload")
			}
			line := formatLine(f.Type, f.Payload)
			if !n.emit(ctx, line) {
				return ctx.Err()
			}
			metrics.RecordSourceLine(n.name, len(line))
		}
	}
}
