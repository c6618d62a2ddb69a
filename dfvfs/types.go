// Package dfvfs holds the definitions shared by every other package in this
// module: the closed set of type indicators that name back ends, the
// credential names recognized by the key chain, and the error taxonomy
// every component raises through.
//
// It plays the role rclone's own "fs" package plays for its backends: a
// small, dependency-light package that everything else imports for its
// core vocabulary, never the other way round.
package dfvfs

// TypeIndicator names a back end. The set is closed: resolver helpers,
// path specification constructors and format specifications are all keyed
// by one of these values, and the set does not grow at runtime.
type TypeIndicator string

// The closed set of type indicators.
const (
	TypeOS                TypeIndicator = "OS"
	TypeRaw               TypeIndicator = "RAW"
	TypeTSK               TypeIndicator = "TSK"
	TypeEXT               TypeIndicator = "EXT"
	TypeNTFS              TypeIndicator = "NTFS"
	TypeHFS               TypeIndicator = "HFS"
	TypeAPFS              TypeIndicator = "APFS"
	TypeFAT               TypeIndicator = "FAT"
	TypeXFS               TypeIndicator = "XFS"
	TypeTSKPartition      TypeIndicator = "TSK_PARTITION"
	TypeGPT               TypeIndicator = "GPT"
	TypeAPM               TypeIndicator = "APM"
	TypeLVM               TypeIndicator = "LVM"
	TypeAPFSContainer     TypeIndicator = "APFS_CONTAINER"
	TypeCS                TypeIndicator = "CS"
	TypeBDE               TypeIndicator = "BDE"
	TypeFVDE              TypeIndicator = "FVDE"
	TypeLUKSDE            TypeIndicator = "LUKSDE"
	TypeVShadow           TypeIndicator = "VSHADOW"
	TypeQCOW              TypeIndicator = "QCOW"
	TypeVHDI              TypeIndicator = "VHDI"
	TypeVMDK              TypeIndicator = "VMDK"
	TypeMODI              TypeIndicator = "MODI"
	TypePHDI              TypeIndicator = "PHDI"
	TypeEWF               TypeIndicator = "EWF"
	TypeCPIO              TypeIndicator = "CPIO"
	TypeTAR               TypeIndicator = "TAR"
	TypeZIP               TypeIndicator = "ZIP"
	TypeGZIP              TypeIndicator = "GZIP"
	TypeBZIP2             TypeIndicator = "BZIP2"
	TypeXZ                TypeIndicator = "XZ"
	TypeCompressedStream  TypeIndicator = "COMPRESSED_STREAM"
	TypeEncryptedStream   TypeIndicator = "ENCRYPTED_STREAM"
	TypeEncodedStream     TypeIndicator = "ENCODED_STREAM"
	TypeDataRange         TypeIndicator = "DATA_RANGE"
	TypeSQLiteBlob        TypeIndicator = "SQLITE_BLOB"
	TypeFake              TypeIndicator = "FAKE"
	TypeMount             TypeIndicator = "MOUNT"
	TypeOverlay           TypeIndicator = "OVERLAY"
)

// rootTypes have no parent and terminate the outside-in walk the resolver
// performs: recursion always bottoms out at OS, FAKE or MOUNT.
var rootTypes = map[TypeIndicator]bool{
	TypeOS:    true,
	TypeFake:  true,
	TypeMount: true,
}

// IsRootType reports whether t never takes a parent path specification.
func IsRootType(t TypeIndicator) bool {
	return rootTypes[t]
}

// CredentialName names a value held in the key chain.
type CredentialName string

// Recognized credential names per back end.
const (
	CredentialPassword          CredentialName = "password"
	CredentialRecoveryPassword  CredentialName = "recovery_password"
	CredentialStartupKey        CredentialName = "startup_key"
	CredentialEncryptedRootPlist CredentialName = "encrypted_root_plist"
)

// FormatCategory coarsely classifies a type indicator for scanner/analyzer
// purposes.
type FormatCategory string

// Format categories. A type indicator belongs to exactly one.
const (
	CategoryFileSystem        FormatCategory = "file_system"
	CategoryVolumeSystem      FormatCategory = "volume_system"
	CategoryStorageMediaImage FormatCategory = "storage_media_image"
	CategoryArchive           FormatCategory = "archive"
	CategoryCompressedStream  FormatCategory = "compressed_stream"
	CategoryEncryptedStream   FormatCategory = "encrypted_stream"
)
