package metadata

import (
	_ "embed"

	"manimeditor/internal"
)

// Regenerate against the installed engine with `go generate`.
//go:generate python3 ../../tools/dumpmanifest/dump_manifest.py --out builtin_manifest.json

//go:embed builtin_manifest.json
var builtinManifest []byte

// Returns a reader over the manifest shipped with the binary.
func BuiltinReader() ManifestReader {
	reader, err := ParseManifest(builtinManifest)
	internal.PanicOnError(err) // The embedded manifest is part of the build
	return reader
}

// Loads the catalog from the manifest under given path, or from the
// builtin manifest when path is empty.
func LoadCatalog(manifestPath string, cfg CatalogConfig) (*Catalog, error) {
	if manifestPath == "" {
		reader := BuiltinReader()
		return NewCatalog(&reader, cfg), nil
	}

	reader, err := NewReader(manifestPath)
	if err != nil {
		return nil, err
	}

	return NewCatalog(&reader, cfg), nil
}
