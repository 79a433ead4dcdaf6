package gen

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

const (
	relicPkg   = "github.com/syssam/relic"
	dialectPkg = "github.com/syssam/relic/dialect"

	// snapshotFile records per-schema content hashes so unchanged
	// schemas are not regenerated.
	snapshotFile = ".relicgen"

	header = "Code generated by relicgen. DO NOT EDIT."
)

// Config configures a generation run.
type Config struct {
	// Package is the package name of the emitted files.
	Package string
	// OutDir is the output directory. Created if missing.
	OutDir string
	// Workers bounds the parallel emitters. Defaults to GOMAXPROCS.
	Workers int
	// Force regenerates every file regardless of the snapshot.
	Force bool
}

// Generate emits one file per schema into cfg.OutDir, formatting each
// through the imports processor. Files whose schema hash matches the
// snapshot are skipped.
func Generate(ctx context.Context, cfg Config, schemas []*Schema) error {
	if cfg.Package == "" {
		return fmt.Errorf("gen: package name is required")
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("gen: create output directory: %w", err)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	snap, err := loadSnapshot(filepath.Join(cfg.OutDir, snapshotFile))
	if err != nil {
		return err
	}
	var (
		mu   sync.Mutex
		next = make(map[string]string, len(schemas))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, s := range schemas {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hash, err := schemaHash(s)
			if err != nil {
				return err
			}
			mu.Lock()
			next[s.Name] = hash
			mu.Unlock()
			if !cfg.Force && snap[s.Name] == hash {
				return nil
			}
			src, err := emit(cfg.Package, s)
			if err != nil {
				return err
			}
			name := filepath.Join(cfg.OutDir, inflect.Underscore(s.Name)+".go")
			formatted, err := imports.Process(name, src, nil)
			if err != nil {
				return fmt.Errorf("gen: format %s: %w", name, err)
			}
			if err := os.WriteFile(name, formatted, 0o644); err != nil {
				return fmt.Errorf("gen: write %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return saveSnapshot(filepath.Join(cfg.OutDir, snapshotFile), next)
}

func schemaHash(s *Schema) (string, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("gen: hash schema %s: %w", s.Name, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func loadSnapshot(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gen: read snapshot: %w", err)
	}
	var snap map[string]string
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		// A corrupt snapshot only costs a full regeneration.
		return map[string]string{}, nil
	}
	return snap, nil
}

func saveSnapshot(path string, snap map[string]string) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("gen: encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("gen: write snapshot: %w", err)
	}
	return nil
}

// emit renders the schema's model file.
func emit(pkg string, s *Schema) ([]byte, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment(header)

	genStruct(f, s)
	genTableName(f, s)
	genColumns(f, s)
	genPrimaryKey(f, s)
	genEncode(f, s)
	genDecode(f, s)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("gen: render %s: %w", s.Name, err)
	}
	return buf.Bytes(), nil
}

func genStruct(f *jen.File, s *Schema) {
	f.Commentf("%s is the model entity for the %s table.", s.Name, s.TableName())
	f.Type().Id(s.Name).StructFunc(func(g *jen.Group) {
		for _, c := range s.Columns {
			g.Id(exported(c.Name)).Add(goType(c))
		}
	})
}

func goType(c *ColumnDef) jen.Code {
	var base *jen.Statement
	switch c.kind() {
	case kindInteger:
		base = jen.Int64()
	case kindReal:
		base = jen.Float64()
	case kindBool:
		base = jen.Bool()
	case kindBlob:
		return jen.Index().Byte()
	default:
		base = jen.String()
	}
	if c.nullable() {
		return jen.Op("*").Add(base)
	}
	return base
}

func genTableName(f *jen.File, s *Schema) {
	f.Comment("TableName implements relic.Model.")
	f.Func().Params(jen.Op("*").Id(s.Name)).Id("TableName").Params().String().Block(
		jen.Return(jen.Lit(s.TableName())),
	)
}

func genColumns(f *jen.File, s *Schema) {
	f.Comment("Columns implements relic.Model.")
	f.Func().Params(jen.Op("*").Id(s.Name)).Id("Columns").Params().Index().Qual(relicPkg, "Column").Block(
		jen.Return(jen.Index().Qual(relicPkg, "Column").ValuesFunc(func(g *jen.Group) {
			for _, c := range s.Columns {
				g.Values(jen.DictFunc(func(d jen.Dict) {
					d[jen.Id("Name")] = jen.Lit(c.Name)
					d[jen.Id("Type")] = jen.Lit(c.sqlType())
					if c.PrimaryKey {
						d[jen.Id("PrimaryKey")] = jen.True()
					}
					if c.Optional {
						d[jen.Id("Optional")] = jen.True()
					}
				}))
			}
		})),
	)
}

func genPrimaryKey(f *jen.File, s *Schema) {
	var pk *ColumnDef
	for _, c := range s.Columns {
		if c.PrimaryKey {
			pk = c
			break
		}
	}
	f.Comment("PrimaryKey implements relic.Model.")
	fn := f.Func().Params(jen.Id("m").Op("*").Id(s.Name)).Id("PrimaryKey").Params().
		Params(jen.Qual(dialectPkg, "Value"), jen.Bool())
	if pk == nil {
		fn.Block(jen.Return(jen.Qual(dialectPkg, "Null").Call(), jen.False()))
		return
	}
	field := jen.Id("m").Dot(exported(pk.Name))
	fn.Block(
		jen.If(field.Clone().Op("==").Nil()).Block(
			jen.Return(jen.Qual(dialectPkg, "Null").Call(), jen.False()),
		),
		jen.Return(jen.Qual(dialectPkg, valueCtor(pk)).Call(jen.Op("*").Add(field.Clone())), jen.True()),
	)
}

// valueCtor returns the dialect constructor for a dereferenced pointer
// field of the column's kind.
func valueCtor(c *ColumnDef) string {
	switch c.kind() {
	case kindInteger:
		return "Integer"
	case kindReal:
		return "Real"
	case kindBool:
		return "Bool"
	default:
		return "Text"
	}
}

func genEncode(f *jen.File, s *Schema) {
	f.Comment("Encode implements relic.Model.")
	f.Func().Params(jen.Id("m").Op("*").Id(s.Name)).Id("Encode").Params().Index().Qual(relicPkg, "ColumnValue").Block(
		jen.Return(jen.Index().Qual(relicPkg, "ColumnValue").ValuesFunc(func(g *jen.Group) {
			for _, c := range s.Columns {
				g.Values(jen.Dict{
					jen.Id("Column"): jen.Lit(c.Name),
					jen.Id("Value"):  encodeExpr(c),
				})
			}
		})),
	)
}

func encodeExpr(c *ColumnDef) jen.Code {
	field := jen.Id("m").Dot(exported(c.Name))
	if c.kind() == kindBlob {
		return jen.Qual(dialectPkg, "Blob").Call(field)
	}
	if c.nullable() {
		return jen.Qual(dialectPkg, "Nullable"+valueCtor(c)).Call(field)
	}
	return jen.Qual(dialectPkg, valueCtor(c)).Call(field)
}

func genDecode(f *jen.File, s *Schema) {
	f.Comment("Decode implements relic.Model.")
	f.Func().Params(jen.Id("m").Op("*").Id(s.Name)).Id("Decode").
		Params(jen.Id("row").Qual(dialectPkg, "Row")).Error().
		BlockFunc(func(g *jen.Group) {
			g.Var().Err().Error()
			for i, c := range s.Columns {
				g.If(
					jen.List(jen.Id("m").Dot(exported(c.Name)), jen.Err()).
						Op("=").
						Qual(relicPkg, scanFunc(c)).Call(jen.Id("row"), jen.Lit(i)),
					jen.Err().Op("!=").Nil(),
				).Block(jen.Return(jen.Err()))
			}
			g.Return(jen.Nil())
		})
}

func scanFunc(c *ColumnDef) string {
	switch c.kind() {
	case kindInteger:
		if c.nullable() {
			return "ScanNullInt64"
		}
		return "ScanInt64"
	case kindReal:
		if c.nullable() {
			return "ScanNullFloat64"
		}
		return "ScanFloat64"
	case kindBool:
		if c.nullable() {
			return "ScanNullBool"
		}
		return "ScanBool"
	case kindBlob:
		return "ScanBlob"
	default:
		if c.nullable() {
			return "ScanNullText"
		}
		return "ScanText"
	}
}
