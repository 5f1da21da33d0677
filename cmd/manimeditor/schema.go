package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"

	"github.com/invopop/jsonschema"

	"manimeditor/internal"
	"manimeditor/internal/metadata"
)

// Shape of props.json: display name to keyword arguments.
type propsFile map[string]map[string]any

func runSchema(a *app, args []string) error {
	flags := flag.NewFlagSet("schema", flag.ContinueOnError)
	kind := flags.String("kind", "manifest", "Document to describe: manifest or props.")
	outPath := flags.String("out", "", "Path to write the JSON schema.")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		return errors.New("-out is required")
	}

	schema, err := buildSchema(*kind)
	if err != nil {
		return err
	}
	if err := writeSchema(*outPath, schema); err != nil {
		return err
	}
	a.logger.Printf("schema: %s schema written to %s", *kind, *outPath)
	return nil
}

func buildSchema(kind string) (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	switch kind {
	case "manifest":
		schema := reflector.Reflect(new(metadata.Manifest))
		schema.Title = "Engine class manifest"
		schema.Description = "Public classes, modules and constructor signatures of the animation engine"
		return schema, nil
	case "props":
		schema := reflector.Reflect(new(propsFile))
		schema.Title = "Scene properties"
		schema.Description = "Keyword arguments of every scene element, keyed by display name"
		return schema, nil
	}
	return nil, fmt.Errorf("unknown schema kind %q", kind)
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := internal.WriteFileAtomic(outPath, append(data, '\n')); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}
