// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package fs implements the zerofs node model and the operations over it.

A tree is a Merkle DAG of immutable entities — files, directories and
symbolic links — whose edges are lazily resolved CID links. Mutation is
clone-on-write: changing a node yields a new node, and republishing the
change rewrites every ancestor up to the root, yielding a new root CID.
Unchanged subtrees keep their CIDs.

Work happens through handles. RootDir.MakeHandle forks the current root
under an overlay store; OpenAt walks a path from a directory handle,
enforcing descriptor rights, open-flag semantics and the
anti-escalation rule, creating intermediate directories and empty files
on demand when asked to; the resulting handle carries the ancestor
chain its edits will need. File content moves through chunked streams.
Flush folds the ancestor chain bottom-up, promotes the overlay's blocks
into the durable store and atomically installs the new root, so a
published root never references a block that is not durable.
*/
package fs // import "zerofs.io/fs"
