// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package zerofs contains the global types and service contracts shared by
the components of the system.

Zerofs is a capability-secured, content-addressable file system. Every
file, directory and symbolic link is an immutable node serialized into a
block store and identified by the CID of its canonical byte form. A
directory is the interior node of a Merkle DAG whose edges are CID
references; mutating any node therefore produces a new CID for that node
and for every ancestor up to the root. Access carries no ambient
authority: operations are authorized by delegated UCAN tokens, verified
by an oracle this package only declares.

The fundamental contract declared here is the BlockStore, an
asynchronous content-addressed block service. Implementations live under
store/...; the node model and the open/trace/flush machinery that use it
live in package fs.
*/
package zerofs
