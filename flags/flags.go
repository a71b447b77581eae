// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flags defines command-line flags to make them consistent
// between the zerofs binaries. They are registered on the standard
// flag package; Parse must be called before the values are read.
package flags // import "zerofs.io/flags"

import (
	"flag"
	"os"
	"path/filepath"
)

var (
	// Config ("config") is the path of the service configuration file.
	Config string

	// KeyDir ("keydir") is the directory holding the service's
	// signing key.
	KeyDir string

	// StoreDir ("storedir") overrides the block store directory from
	// the configuration file when non-empty.
	StoreDir string

	// Log ("log") sets the level of logging: debug, info, error or
	// disabled.
	Log string

	// HTTPAddr ("addr") overrides the user listen address from the
	// configuration file when non-empty.
	HTTPAddr string
)

// Parse registers the zerofs flags and parses the command line.
func Parse() {
	home, _ := os.UserHomeDir()
	flag.StringVar(&Config, "config", filepath.Join(home, "zerofs", "config.yaml"), "service configuration `file`")
	flag.StringVar(&KeyDir, "keydir", filepath.Join(home, "zerofs"), "`directory` holding the signing key")
	flag.StringVar(&StoreDir, "storedir", "", "block store `directory` (overrides config)")
	flag.StringVar(&Log, "log", "info", "level of logging: debug, info, error, disabled")
	flag.StringVar(&HTTPAddr, "addr", "", "user listen `address` (overrides config)")
	flag.Parse()
}
