// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

// API version constants. The server rejects versions it does not know.
const (
	// LatestVersion is the current API version.
	LatestVersion = Version20261018

	// Version20261018 is the initial API version.
	Version20261018 = "2026-10-18"
)

// VersionHeader is the HTTP header used to specify the API version.
const VersionHeader = "Devdock-Version"
