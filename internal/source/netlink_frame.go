// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/auditstream/internal/audit"
)

// NetlinkConfig configures the kernel audit socket.
type NetlinkConfig struct {
	// BufferSize is the receive buffer for one datagram.
	BufferSize int

	// SocketBuffer sets SO_RCVBUF when positive. A larger kernel buffer
	// absorbs bursts before the kernel reports ENOBUFS.
	SocketBuffer int

	// ReadTimeout bounds each receive so cancellation is observed.
	ReadTimeout time.Duration

	QueueSize int
}

// DefaultNetlinkConfig returns a 16 KiB datagram buffer and a 250ms poll.
func DefaultNetlinkConfig() NetlinkConfig {
	return NetlinkConfig{
		BufferSize:  16 * 1024,
		ReadTimeout: 250 * time.Millisecond,
		QueueSize:   DefaultQueueSize,
	}
}

const (
	nlmsgHdrLen  = 16
	nlmsgAlignTo = 4

	// Types below this are netlink control messages (NOOP, ERROR, DONE,
	// OVERRUN), not audit records.
	nlmsgMinType = 0x10
)

var errMalformedFrame = errors.New("malformed netlink frame")

// frame is one netlink message with its header decoded.
type frame struct {
	Type    uint16
	Flags   uint16
	Seq     uint32
	Pid     uint32
	Payload []byte
}

func nlmsgAlign(n int) int {
	return (n + nlmsgAlignTo - 1) &^ (nlmsgAlignTo - 1)
}

// splitFrames decodes the netlink messages in one datagram. Frames decoded
// before a malformed header are returned along with the error.
func splitFrames(buf []byte) ([]frame, error) {
	var frames []frame
	for off := 0; off < len(buf); {
		if len(buf)-off < nlmsgHdrLen {
			return frames, fmt.Errorf("%w: %d trailing bytes at offset %d", errMalformedFrame, len(buf)-off, off)
		}
		h := buf[off:]
		length := int(binary.NativeEndian.Uint32(h[0:4]))
		if length < nlmsgHdrLen || length > len(h) {
			return frames, fmt.Errorf("%w: length %d at offset %d", errMalformedFrame, length, off)
		}
		frames = append(frames, frame{
			Type:    binary.NativeEndian.Uint16(h[4:6]),
			Flags:   binary.NativeEndian.Uint16(h[6:8]),
			Seq:     binary.NativeEndian.Uint32(h[8:12]),
			Pid:     binary.NativeEndian.Uint32(h[12:16]),
			Payload: h[nlmsgHdrLen:length],
		})
		off += nlmsgAlign(length)
	}
	return frames, nil
}

// formatLine renders a netlink audit message as a log-format line:
// "type=<NAME> msg=<payload>". The payload is copied unchanged apart from
// trailing NUL and newline padding.
func formatLine(typ uint16, payload []byte) []byte {
	payload = bytes.TrimRight(payload, "\x00\n")
	name := audit.TypeForCode(typ).String()

	line := make([]byte, 0, len("type=")+len(name)+len(" msg=")+len(payload))
	line = append(line, "type="...)
	line = append(line, name...)
	line = append(line, " msg="...)
	line = append(line, payload...)
	return line
}
