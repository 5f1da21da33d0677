package generation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"

	"manimeditor/internal/metadata"
)

const metadataPackage = "manimeditor/internal/metadata"

// RegistryGenerator writes a catalog as Go source so that the classes can
// be compiled in instead of read from a manifest at startup.
type RegistryGenerator struct {
	Classes       []metadata.ClassDescriptor
	EngineVersion string
	PackageName   string
	OutputPath    string
}

func NewRegistryGenerator(packageName string, outputPath string) RegistryGenerator {
	return RegistryGenerator{
		make([]metadata.ClassDescriptor, 0),
		"",
		packageName,
		outputPath,
	}
}

func (generator *RegistryGenerator) RegisterCatalog(catalog *metadata.Catalog) {
	generator.EngineVersion = catalog.EngineVersion()
	for _, class := range catalog.Descriptors() {
		generator.RegisterClass(class)
	}
}

func (generator *RegistryGenerator) RegisterClass(class metadata.ClassDescriptor) {
	generator.Classes = append(generator.Classes, class)
}

// Generate saves the registry file under the output directory.
func (generator *RegistryGenerator) Generate() error {
	err := os.MkdirAll(generator.OutputPath, os.ModePerm)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}

	path := filepath.Join(generator.OutputPath, "registry.go")
	if err := generator.File().Save(path); err != nil {
		return fmt.Errorf("save registry %s: %w", path, err)
	}
	return nil
}

func (generator *RegistryGenerator) File() *jen.File {
	file := jen.NewFile(generator.PackageName)
	file.HeaderComment("Code generated by manimeditor registry. DO NOT EDIT.")

	file.Const().Id("EngineVersion").Op("=").Lit(generator.EngineVersion)

	file.Var().Id("Classes").Op("=").Index().Qual(metadataPackage, "ClassDescriptor").ValuesFunc(func(g *jen.Group) {
		for _, class := range generator.Classes {
			generator.writeClass(class, g)
		}
	})

	file.Comment("Catalog builds the registered classes into a catalog.")
	file.Func().Id("Catalog").Params().Op("*").Qual(metadataPackage, "Catalog").Block(
		jen.Return(jen.Qual(metadataPackage, "NewCatalogFromDescriptors").Call(jen.Id("EngineVersion"), jen.Id("Classes"))),
	)

	return file
}

func (generator *RegistryGenerator) writeClass(class metadata.ClassDescriptor, group *jen.Group) {
	group.Values(jen.Dict{
		jen.Id("Name"):      jen.Lit(class.Name),
		jen.Id("Id"):        jen.Lit(class.Id),
		jen.Id("Module"):    jen.Lit(class.Module),
		jen.Id("Doc"):       jen.Lit(class.Doc),
		jen.Id("IsElement"): jen.Lit(class.IsElement),
		jen.Id("IsEffect"):  jen.Lit(class.IsEffect),
		jen.Id("Params"): jen.Index().Qual(metadataPackage, "ParameterSpec").ValuesFunc(func(g *jen.Group) {
			for _, param := range class.Params {
				generator.writeParam(param, g)
			}
		}),
	})
}

func (generator *RegistryGenerator) writeParam(param metadata.ParameterSpec, group *jen.Group) {
	group.Values(jen.Dict{
		jen.Id("Name"):         jen.Lit(param.Name),
		jen.Id("TypeName"):     jen.Lit(param.TypeName),
		jen.Id("Kind"):         jen.Qual(metadataPackage, kindConstant(param.Kind)),
		jen.Id("HasDefault"):   jen.Lit(param.HasDefault),
		jen.Id("DefaultValue"): jen.Lit(param.DefaultValue),
	})
}

func kindConstant(kind metadata.TypeKind) string {
	switch kind {
	case metadata.KindNumeric:
		return "KindNumeric"
	case metadata.KindString:
		return "KindString"
	case metadata.KindColor:
		return "KindColor"
	}
	return "KindOther"
}
