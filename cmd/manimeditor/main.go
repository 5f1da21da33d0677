package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"manimeditor/internal/assist"
	"manimeditor/internal/bridge"
	"manimeditor/internal/editor"
	"manimeditor/internal/generation"
	"manimeditor/internal/metadata"
	"manimeditor/internal/render"
)

const apiKeyVariable = "MANIMEDITOR_AI_KEY"

type options struct {
	propsPath    string
	templatePath string
	scriptPath   string
	manifestPath string
	require      string
	sceneName    string
	engine       string
	soundPath    string
	resolution   string
	aiEndpoint   string
	aiModel      string
}

type command struct {
	usage string
	run   func(a *app, args []string) error
}

var commands = map[string]command{
	"catalog":        {"[query]  list classes, or the first class matching query", runCatalog},
	"params":         {"<class>  show the constructor parameters of a class", runParams},
	"add":            {"<class>  append an element", runAdd},
	"dup":            {"<element>  duplicate an element", runDuplicate},
	"rm":             {"<element>  delete an element", runDelete},
	"set":            {"<element> <key> <input>  set one property ($expr$ for raw code)", runSet},
	"code":           {"  print the generated scene and write the script file", runCode},
	"preview":        {"  open the scene in the engine's interactive window", runPreview},
	"render":         {"[WxH]  render the scene to a video", runRender},
	"import":         {"<file|->  replace the tree with the classes called in a scene file", runImport},
	"detach":         {"  drop the imported template and keep its elements", runDetach},
	"ai":             {"<prompt...>  ask the assistant for a scene and import it", runAssist},
	"export":         {"<file>  write every stored property mapping", runExport},
	"load":           {"<file>  replace the stored mappings and rebuild the tree", runLoad},
	"sound":          {"<file>  check a sound file and show its format", runSound},
	"serve":          {"[-addr :8080]  serve the editor API and the log stream", runServe},
	"schema":         {"-kind manifest|props -out <file>  write a JSON schema", runSchema},
	"registry":       {"[-package name] [-out dir]  write the catalog as Go source", runRegistry},
	"fetch-manifest": {"-base <url> [-constraint c] [-out file]  download a catalog manifest", runFetchManifest},
}

func main() {
	var opts options
	flag.StringVar(&opts.propsPath, "props", "props.json", "Property file of the edited scene.")
	flag.StringVar(&opts.templatePath, "template", "template.json", "Imported scene kept between runs.")
	flag.StringVar(&opts.scriptPath, "script", "script.py", "Where the generated scene is written.")
	flag.StringVar(&opts.manifestPath, "manifest", "", "Catalog manifest. The builtin manifest is used when empty.")
	flag.StringVar(&opts.require, "require", "", "Engine version constraint the catalog must satisfy, e.g. \">= 0.18\".")
	flag.StringVar(&opts.sceneName, "scene", "Output", "Scene class name of generated code.")
	flag.StringVar(&opts.engine, "engine", render.DefaultConfig().Engine, "Engine executable.")
	flag.StringVar(&opts.soundPath, "sound", "", "Sound file played with the scene.")
	flag.StringVar(&opts.resolution, "res", render.DefaultResolution.String(), "Render resolution, WxH.")
	flag.StringVar(&opts.aiEndpoint, "ai-endpoint", assist.DefaultConfig().Endpoint, "Base URL of the OpenAI compatible assistant API.")
	flag.StringVar(&opts.aiModel, "ai-model", assist.DefaultConfig().Model, "Assistant model.")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	application, err := newApp(opts, logger)
	if err != nil {
		log.Fatal(err)
	}

	if err := cmd.run(application, flag.Args()[1:]); err != nil {
		log.Fatalf("%s: %v", name, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Scene editor for the manim animation engine.")
	fmt.Fprintln(os.Stderr, "\nUsage: manimeditor [flags] <command> [arguments]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	for _, name := range commandNames() {
		fmt.Fprintf(os.Stderr, "  %s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
}

func commandNames() []string {
	return []string{
		"catalog", "params", "add", "dup", "rm", "set", "code", "preview", "render",
		"import", "detach", "ai", "export", "load", "sound", "serve", "schema", "registry", "fetch-manifest",
	}
}

type app struct {
	opts    options
	logger  *log.Logger
	out     io.Writer
	catalog *metadata.Catalog
	session *editor.Session
}

// The session is built on first use so that commands not touching the
// scene never read or write the property file.
func newApp(opts options, logger *log.Logger) (*app, error) {
	catalog, err := metadata.LoadCatalog(opts.manifestPath, metadata.CatalogConfig{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if opts.require != "" {
		if err := catalog.CheckEngine(opts.require); err != nil {
			return nil, err
		}
	}
	return &app{opts: opts, logger: logger, out: os.Stdout, catalog: catalog}, nil
}

func (a *app) editor(sink render.LogSink) (*editor.Session, error) {
	if a.session != nil {
		return a.session, nil
	}

	if sink == nil {
		sink = func(line string) { fmt.Fprintln(a.out, line) }
	}
	runner := render.NewRunner(render.Config{
		Engine: a.opts.engine,
		Logger: a.logger,
		Sink:   sink,
	})

	var assistant editor.Assistant
	if key := os.Getenv(apiKeyVariable); key != "" {
		cfg := assist.DefaultConfig()
		cfg.Endpoint = a.opts.aiEndpoint
		cfg.Model = a.opts.aiModel
		cfg.APIKey = key
		cfg.Logger = a.logger
		assistant = assist.NewClient(cfg)
	}

	cfg := editor.DefaultConfig()
	cfg.PropsPath = a.opts.propsPath
	cfg.TemplatePath = a.opts.templatePath
	cfg.ScriptPath = a.opts.scriptPath
	cfg.SceneName = a.opts.sceneName
	cfg.Resolution = render.ParseResolution(a.opts.resolution)
	cfg.Logger = a.logger
	session := editor.NewSession(a.catalog, runner, assistant, cfg)

	if a.opts.soundPath != "" {
		if _, err := session.SetSound(a.opts.soundPath); err != nil {
			return nil, err
		}
	}

	a.session = session
	return session, nil
}

func requireArgs(args []string, count int, usage string) error {
	if len(args) < count {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func runCatalog(a *app, args []string) error {
	if len(args) > 0 {
		index, label, found := a.catalog.Search(strings.Join(args, " "))
		if !found {
			return fmt.Errorf("no class matches %q", strings.Join(args, " "))
		}
		fmt.Fprintf(a.out, "%d\t%s\n", index, label)
		return nil
	}

	fmt.Fprintf(a.out, "# engine %s, %d classes\n", a.catalog.EngineVersion(), a.catalog.Len())
	for _, label := range a.catalog.Labels() {
		fmt.Fprintln(a.out, label)
	}
	return nil
}

func runParams(a *app, args []string) error {
	if err := requireArgs(args, 1, "params <class>"); err != nil {
		return err
	}
	class, ok := a.catalog.Lookup(metadata.StripLabel(args[0]))
	if !ok {
		return fmt.Errorf("%w: %s", editor.ErrUnknownClass, args[0])
	}

	fmt.Fprintf(a.out, "%s (%s)\n", a.catalog.Label(class.Name), class.Module)
	fmt.Fprintf(a.out, "  element: %t, effect: %t\n", a.catalog.IsElement(class.Name), a.catalog.IsEffect(class.Name))
	for _, param := range class.Params {
		defaultValue := "-"
		if param.HasDefault {
			defaultValue = param.DefaultValue
		}
		fmt.Fprintf(a.out, "  %s\t%s\t%s\t%s\n", param.Name, param.TypeName, param.Kind, defaultValue)
	}
	if class.Doc != "" {
		fmt.Fprintf(a.out, "\n%s\n", class.Doc)
	}
	return nil
}

func runAdd(a *app, args []string) error {
	if err := requireArgs(args, 1, "add <class>"); err != nil {
		return err
	}
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	view, err := session.Add(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, view.Name)
	return nil
}

func runDuplicate(a *app, args []string) error {
	if err := requireArgs(args, 1, "dup <element>"); err != nil {
		return err
	}
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	view, err := session.Duplicate(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, view.Name)
	return nil
}

func runDelete(a *app, args []string) error {
	if err := requireArgs(args, 1, "rm <element>"); err != nil {
		return err
	}
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	return session.Delete(args[0])
}

func runSet(a *app, args []string) error {
	if err := requireArgs(args, 3, "set <element> <key> <input>"); err != nil {
		return err
	}
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	return session.SetInput(args[0], args[1], strings.Join(args[2:], " "))
}

func runCode(a *app, args []string) error {
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	code, err := session.Code()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, code)
	return nil
}

func runPreview(a *app, args []string) error {
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return session.Preview(ctx)
}

func runRender(a *app, args []string) error {
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	resolution := ""
	if len(args) > 0 {
		resolution = args[0]
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return session.Render(ctx, resolution)
}

func runImport(a *app, args []string) error {
	if err := requireArgs(args, 1, "import <file|->"); err != nil {
		return err
	}

	var source []byte
	var err error
	if args[0] == "-" {
		source, err = io.ReadAll(os.Stdin)
	} else {
		source, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	count, err := session.Import(context.Background(), string(source))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d element(s) imported\n", count)
	return nil
}

func runDetach(a *app, args []string) error {
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	return session.ClearTemplate()
}

func runAssist(a *app, args []string) error {
	if err := requireArgs(args, 1, "ai <prompt...>"); err != nil {
		return err
	}
	session, err := a.editor(nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	count, err := session.Generate(ctx, strings.Join(args, " "))
	if errors.Is(err, editor.ErrNoAssistant) {
		return fmt.Errorf("%w: set %s", err, apiKeyVariable)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d element(s) generated\n", count)
	return nil
}

func runExport(a *app, args []string) error {
	if err := requireArgs(args, 1, "export <file>"); err != nil {
		return err
	}
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	return session.Export(args[0])
}

func runLoad(a *app, args []string) error {
	if err := requireArgs(args, 1, "load <file>"); err != nil {
		return err
	}
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	return session.Load(args[0])
}

func runSound(a *app, args []string) error {
	if err := requireArgs(args, 1, "sound <file>"); err != nil {
		return err
	}
	session, err := a.editor(nil)
	if err != nil {
		return err
	}
	info, err := session.SetSound(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, info)
	return nil
}

func runServe(a *app, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := flags.String("addr", ":8080", "Listen address.")
	backlog := flags.Int("backlog", 200, "Log lines replayed to a new client.")
	if err := flags.Parse(args); err != nil {
		return err
	}

	hub := bridge.NewLogHub(bridge.LogHubConfig{Backlog: *backlog, Logger: a.logger})
	// Log lines reach the terminal and the connected clients alike.
	a.logger.SetOutput(io.MultiWriter(os.Stderr, hub))
	session, err := a.editor(hub.Publish)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              *addr,
		Handler:           bridge.NewHandler(session, hub, bridge.HandlerConfig{Logger: a.logger, JobContext: ctx}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		a.logger.Printf("serve: listening on %s", *addr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdown); err != nil {
		return err
	}
	return session.Save()
}

func runRegistry(a *app, args []string) error {
	flags := flag.NewFlagSet("registry", flag.ContinueOnError)
	packageName := flags.String("package", "registry", "Package name of the generated file.")
	outputPath := flags.String("out", "./registry/", "Directory the registry is written to.")
	if err := flags.Parse(args); err != nil {
		return err
	}

	generator := generation.NewRegistryGenerator(*packageName, *outputPath)
	generator.RegisterCatalog(a.catalog)
	if err := generator.Generate(); err != nil {
		return err
	}
	a.logger.Printf("registry: %d classes written to %s", len(generator.Classes), *outputPath)
	return nil
}

func runFetchManifest(a *app, args []string) error {
	flags := flag.NewFlagSet("fetch-manifest", flag.ContinueOnError)
	base := flags.String("base", "", "Address the manifests are published under.")
	constraint := flags.String("constraint", "", "Engine version constraint, e.g. \">= 0.18, < 0.19\".")
	outputPath := flags.String("out", "manifest.json", "Where the manifest is stored.")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *base == "" {
		return errors.New("-base is required")
	}

	client := &http.Client{Timeout: time.Minute}
	selected, err := metadata.DownloadManifest(client, *base, *constraint, *outputPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "manifest %s stored in %s\n", selected, *outputPath)
	return nil
}
