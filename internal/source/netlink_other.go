// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

//go:build !linux

package source

import "context"

// Netlink is unavailable outside Linux.
type Netlink struct {
	*queue
}

// NewNetlink always fails with ErrUnsupportedPlatform.
func NewNetlink(_ NetlinkConfig) (*Netlink, error) {
	return nil, ErrUnsupportedPlatform
}

// Start always fails with ErrUnsupportedPlatform.
func (n *Netlink) Start(_ context.Context) error {
	return ErrUnsupportedPlatform
}
