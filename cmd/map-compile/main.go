// Command map-compile turns one authored Tiled map into the engine's
// binary .map format, plus an optional sibling .svg collision dump.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aliensun/mapcompile/compiler"
	"github.com/aliensun/mapcompile/internal/headerindex"
	"github.com/aliensun/mapcompile/internal/svgdebug"
	"github.com/aliensun/mapcompile/internal/tiledloader"
)

type options struct {
	assetList  string
	actorTypes string
	scriptOps  string
	outDir     string
	verbose    bool
	svgDump    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "map-compile <map_file>",
		Short: "Compile a Tiled map into the engine's binary map format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
		SilenceUsage: true,
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.assetList, "assets", "a", "", "path to the asset path list (required)")
	flags.StringVarP(&opts.actorTypes, "actor-types", "t", "", "path to the actor_type_t C header (required)")
	flags.StringVarP(&opts.scriptOps, "script-ops", "s", "", "path to the script_op_t C header (required)")
	flags.StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable informational logging")
	flags.BoolVarP(&opts.svgDump, "svg", "S", false, "write a sibling .svg collision debug dump")
	for _, name := range []string{"assets", "actor-types", "script-ops"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func run(mapPath string, opts options) error {
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.InfoLevel
	}
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Str("run", uuid.NewString()).Logger()

	logger.Info().Str("map", mapPath).Msg("load")
	loader := tiledloader.Loader{}
	tmap, err := loader.LoadMap(mapPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", mapPath, err)
	}

	assetDir := filepath.Dir(opts.assetList)
	assets, err := headerindex.LoadAssetIndex(opts.assetList, assetDir)
	if err != nil {
		return fmt.Errorf("load asset list: %w", err)
	}
	enums, err := headerindex.LoadEnumTable(opts.actorTypes, opts.scriptOps)
	if err != nil {
		return fmt.Errorf("load enum headers: %w", err)
	}

	logger.Info().Msg("compile")
	out, err := compiler.Compile(tmap, assets, enums)
	if err != nil {
		return fmt.Errorf("compile %s: %w", mapPath, err)
	}

	stem := strings.TrimSuffix(filepath.Base(mapPath), filepath.Ext(mapPath))
	outPath := filepath.Join(opts.outDir, stem+".map")
	logger.Info().Str("out", outPath).Int("bytes", len(out)).Msg("serialize")
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	if opts.svgDump {
		svgPath := filepath.Join(opts.outDir, stem+".svg")
		logger.Info().Str("out", svgPath).Msg("svg dump")
		if err := writeSVGDump(svgPath, tmap); err != nil {
			return fmt.Errorf("write %s: %w", svgPath, err)
		}
	}
	return nil
}

// writeSVGDump recompiles just far enough to get a populated collision
// builder; the compositor doesn't expose one from Compile's single
// return value, so the debug path runs the same pipeline stages a
// second time. This only happens when -S is given.
func writeSVGDump(svgPath string, tmap *compiler.TiledMap) error {
	builder, box, err := compiler.BuildCollisionOnly(tmap)
	if err != nil {
		return err
	}
	f, err := os.Create(svgPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return svgdebug.Write(f, builder, box)
}
