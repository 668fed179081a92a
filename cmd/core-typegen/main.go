package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/griffnb/core-typegen/internal/console"
	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/gen"
)

const (
	inputFlag                 = "input"
	outputFlag                = "output"
	outputTypesFlag           = "outputTypes"
	modeFlag                  = "mode"
	implementModelFlag        = "implementModel"
	validationConstraintsFlag = "validationConstraints"
	modelPackageFlag          = "modelPackage"
	servicePackageFlag        = "servicePackage"
	overridesFileFlag         = "overridesFile"
	moduleFlag                = "module"
	concurrencyFlag           = "concurrency"
	dumpGraphFlag             = "dumpGraph"
	includeDeclarationsFlag   = "includeDeclarations"
	quietFlag                 = "quiet"
	debugFlag                 = "debug"
)

func env(name string) []string {
	return []string{"TYPEGEN_" + strings.ToUpper(name)}
}

var generateFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:    quietFlag,
		Aliases: []string{"q"},
		Usage:   "Make the logger quiet.",
		EnvVars: env(quietFlag),
	},
	&cli.StringSliceFlag{
		Name:     inputFlag,
		Aliases:  []string{"i"},
		Usage:    "API documents to generate from, repeat or comma separate for several",
		EnvVars:  env(inputFlag),
		Required: true,
	},
	&cli.StringFlag{
		Name:    outputFlag,
		Aliases: []string{"o"},
		Value:   "./gen",
		Usage:   "Output directory for all the generated files",
		EnvVars: env(outputFlag),
	},
	&cli.StringFlag{
		Name:    outputTypesFlag,
		Aliases: []string{"ot"},
		Value:   "go,json",
		Usage:   "Output types of generated files like go,json,yaml",
		EnvVars: env(outputTypesFlag),
	},
	&cli.StringFlag{
		Name:    modeFlag,
		Aliases: []string{"m"},
		Value:   string(domain.ModeClient),
		Usage:   "Generation mode, " + string(domain.ModeClient) + " or " + string(domain.ModeServer),
		EnvVars: env(modeFlag),
	},
	&cli.BoolFlag{
		Name:    implementModelFlag,
		Usage:   "Generate classes instead of interfaces for objects, disabled by default",
		EnvVars: env(implementModelFlag),
	},
	&cli.BoolFlag{
		Name:    validationConstraintsFlag,
		Usage:   "Carry validation constraints onto generated properties, disabled by default",
		EnvVars: env(validationConstraintsFlag),
	},
	&cli.StringFlag{
		Name:    modelPackageFlag,
		Usage:   "Package of generated types, api/<mode>/model by default",
		EnvVars: env(modelPackageFlag),
	},
	&cli.StringFlag{
		Name:    servicePackageFlag,
		Usage:   "Package of generated services, api/<mode>/service by default",
		EnvVars: env(servicePackageFlag),
	},
	&cli.StringFlag{
		Name:    overridesFileFlag,
		Value:   gen.DefaultOverridesFile,
		Usage:   "File to read global type overrides from.",
		EnvVars: env(overridesFileFlag),
	},
	&cli.StringFlag{
		Name:    moduleFlag,
		Usage:   "Import path prefix of the generated Go packages",
		EnvVars: env(moduleFlag),
	},
	&cli.IntFlag{
		Name:    concurrencyFlag,
		Usage:   "How many documents are read at once, the number of CPUs by default",
		EnvVars: env(concurrencyFlag),
	},
	&cli.BoolFlag{
		Name:    includeDeclarationsFlag,
		Usage:   "Generate every declared type, not only those the operations reach",
		EnvVars: env(includeDeclarationsFlag),
	},
	&cli.BoolFlag{
		Name:    dumpGraphFlag,
		Usage:   "Log the resolved definitions, disabled by default",
		EnvVars: env(dumpGraphFlag),
	},
	&cli.BoolFlag{
		Name:    debugFlag,
		Usage:   "Enable debug mode, disabled by default",
		EnvVars: env(debugFlag),
	},
}

func generateAction(ctx *cli.Context) error {
	mode := domain.GenerationMode(ctx.String(modeFlag))
	if !mode.Valid() {
		return fmt.Errorf("not supported %s mode", mode)
	}

	if ctx.Bool(debugFlag) {
		console.Logger.DebugLevel = 1
	}
	console.Logger.SetQuiet(ctx.Bool(quietFlag))

	outputTypes := strings.Split(ctx.String(outputTypesFlag), ",")
	if len(outputTypes) == 0 {
		return fmt.Errorf("no output types specified")
	}

	var inputs []string
	for _, input := range ctx.StringSlice(inputFlag) {
		for _, path := range strings.Split(input, ",") {
			if path = strings.TrimSpace(path); path != "" {
				inputs = append(inputs, path)
			}
		}
	}

	return gen.New().Build(ctx.Context, &gen.Config{
		Inputs:                inputs,
		OutputDir:             ctx.String(outputFlag),
		OutputTypes:           outputTypes,
		Mode:                  mode,
		ImplementModel:        ctx.Bool(implementModelFlag),
		ValidationConstraints: ctx.Bool(validationConstraintsFlag),
		ModelPackage:          ctx.String(modelPackageFlag),
		ServicePackage:        ctx.String(servicePackageFlag),
		OverridesFile:         ctx.String(overridesFileFlag),
		Module:                ctx.String(moduleFlag),
		Concurrency:           ctx.Int(concurrencyFlag),
		DumpGraph:             ctx.Bool(dumpGraphFlag),
		IncludeDeclarations:   ctx.Bool(includeDeclarationsFlag),
		Debugger:              console.Logger,
	})
}

func main() {
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Version = gen.Version
	app.Usage = "Generate typed models and service interfaces from OpenAPI 2.0 documents."
	app.Commands = []*cli.Command{
		{
			Name:    "generate",
			Aliases: []string{"g"},
			Usage:   "Generate types and services",
			Action:  generateAction,
			Flags:   generateFlags,
		},
	}

	if err := app.Run(os.Args); err != nil {
		console.Logger.Error("%v", err)
		os.Exit(1)
	}
}
