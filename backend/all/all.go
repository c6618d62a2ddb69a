// Package all imports every back end so registering one import wires the
// full resolver/pathspec/format registries, the same role rclone's own
// backend/all plays for its fs.Register side-effect imports.
package all

import (
	// Root back ends: no parent, bottom of every chain.
	_ "github.com/log2timeline/godfvfs/backend/fake"
	_ "github.com/log2timeline/godfvfs/backend/mount"
	_ "github.com/log2timeline/godfvfs/backend/osfs"

	// Full-fidelity representative drivers.
	_ "github.com/log2timeline/godfvfs/backend/archive"
	_ "github.com/log2timeline/godfvfs/backend/bde"
	_ "github.com/log2timeline/godfvfs/backend/compressed"
	_ "github.com/log2timeline/godfvfs/backend/datarange"
	_ "github.com/log2timeline/godfvfs/backend/encoded"
	_ "github.com/log2timeline/godfvfs/backend/encryptedstream"
	_ "github.com/log2timeline/godfvfs/backend/lvm"
	_ "github.com/log2timeline/godfvfs/backend/partition"
	_ "github.com/log2timeline/godfvfs/backend/raw"
	_ "github.com/log2timeline/godfvfs/backend/sqliteblob"

	// Registered end-to-end but not implemented: NotSupported drivers.
	_ "github.com/log2timeline/godfvfs/backend/stub"
)
