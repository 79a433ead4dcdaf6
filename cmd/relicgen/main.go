// relicgen emits relic.Model implementations from a YAML schema file.
//
// Usage:
//
//	relicgen -schema schema.yaml -out ./models -package models [-watch]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/syssam/relic/gen"
)

func main() {
	var (
		schemaPath = flag.String("schema", "schema.yaml", "path to the YAML schema file")
		outDir     = flag.String("out", ".", "output directory for generated files")
		pkg        = flag.String("package", "models", "package name of generated files")
		workers    = flag.Int("workers", 0, "parallel emitters (0 = GOMAXPROCS)")
		force      = flag.Bool("force", false, "regenerate even if schemas are unchanged")
		watch      = flag.Bool("watch", false, "regenerate on schema file changes")
	)
	flag.Parse()

	cfg := gen.Config{
		Package: *pkg,
		OutDir:  *outDir,
		Workers: *workers,
		Force:   *force,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *watch {
		if err := gen.Watch(ctx, cfg, *schemaPath); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "relicgen: %v\n", err)
			os.Exit(1)
		}
		return
	}

	schemas, err := gen.LoadSchemas(*schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relicgen: %v\n", err)
		os.Exit(1)
	}
	if err := gen.Generate(ctx, cfg, schemas); err != nil {
		fmt.Fprintf(os.Stderr, "relicgen: %v\n", err)
		os.Exit(1)
	}
}
