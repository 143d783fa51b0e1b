package entities

// FileMetadataFacts are facts introspected from a binary package.
// Optional string fields are empty when the introspection tool did not report them.
type FileMetadataFacts struct {
	Identifier            string
	SizeBytes             int64
	VersionName           string
	VersionCode           string
	MinPlatformVersion    string
	TargetPlatformVersion string
	Architectures         []string
	SignatureDigests      []string
	IconEntries           []IconEntry
}

// IconEntry is a launcher icon inside the archive. Density is the dpi the
// resource is declared for, or 0 when unknown.
type IconEntry struct {
	Path    string
	Density int
}
