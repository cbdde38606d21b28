package deb

// ControlField is the name of a field of the binary control file.
type ControlField string

const (
	FieldPackage       ControlField = "Package"
	FieldSource        ControlField = "Source"
	FieldVersion       ControlField = "Version"
	FieldArchitecture  ControlField = "Architecture"
	FieldInstalledSize ControlField = "Installed-Size"
	FieldDescription   ControlField = "Description"
)

// ControlFile is a member of the control archive.
type ControlFile string

const (
	FileControl ControlFile = "control"
	FileMd5sums ControlFile = "md5sums"
)

// PackageFile is a member of the outer ar archive.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgControlTarGz PackageFile = "control.tar.gz"
	PkgDataTarGz    PackageFile = "data.tar.gz"
)

const (
	// DocDir is where packages install their documentation.
	DocDir = "/usr/share/doc"
	// ChangelogDebian is the changelog file name of non-native packages.
	ChangelogDebian = "changelog.Debian.gz"
	// ChangelogNative is the changelog file name of native packages.
	ChangelogNative = "changelog.gz"
)

// formatVersion is the only deb format version this package writes and accepts (major).
const formatVersion = "2.0\n"
