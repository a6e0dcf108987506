// Command mystia is the Mystia command-line driver: it reads a source
// file, runs it through the compiler pipeline, and writes the textual
// WAT output next to the source (and, unless --wat-only is set, a binary
// .wasm module assembled from it). A gen-stub subcommand emits host-side
// JS import bindings for a source file's "load" declarations.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KajizukaTaichi/mystia/assemble"
	"github.com/KajizukaTaichi/mystia/compiler"
	"github.com/KajizukaTaichi/mystia/stubgen"
)

var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mystia <input.mys>",
		Short:         "Compile a Mystia source file to WebAssembly",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCompile,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable operational tracing")
	root.Flags().StringP("output", "o", "", "output .wasm path (default: <input>.wasm)")
	root.Flags().Bool("wat-only", false, "stop after emitting the .wat file, skip assembly")

	root.AddCommand(newGenStubCmd())
	return root
}

func setupLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func runCompile(cmd *cobra.Command, args []string) error {
	setupLogging()
	inputPath := args[0]
	watOnly, _ := cmd.Flags().GetBool("wat-only")
	outputPath, _ := cmd.Flags().GetString("output")

	log.Debug().Str("input", inputPath).Msg("reading source file")
	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read source file")
		return err
	}

	log.Debug().Int("bytes", len(source)).Msg("compiling")
	module, programReturn, err := compiler.Build(string(source))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to compile Mystia code")
		return err
	}
	log.Info().Str("return_type", programReturn.Format()).Msg("compiled")

	watPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".wat"
	log.Debug().Str("path", watPath).Msg("writing wat output")
	if err := os.WriteFile(watPath, []byte(module), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create/write output file")
		return err
	}

	if watOnly {
		return nil
	}

	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".wasm"
	}
	log.Debug().Str("path", outputPath).Msg("assembling wasm output")
	if err := assemble.WatFileToWasmFile(watPath, outputPath); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create/write output file")
		return err
	}
	log.Info().Str("path", outputPath).Msg("wrote wasm module")
	return nil
}

func newGenStubCmd() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "gen-stub <input.mys>",
		Short: "Generate host-side JS import bindings for a source file's load declarations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			source, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, "Failed to read source file")
				return err
			}

			sigs := stubgen.ExtractSignatures(string(source))
			log.Debug().Int("count", len(sigs)).Msg("extracted host import signatures")
			output := stubgen.GenerateStub(sigs)

			if outputPath == "" {
				fmt.Print(output)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(output), 0o644); err != nil {
				fmt.Fprintln(os.Stderr, "Failed to create/write output file")
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output JS path (default: stdout)")
	return cmd
}
