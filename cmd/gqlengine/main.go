// Command gqlengine serves a GraphQL schema over HTTP and checks schemas and
// queries from the command line.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	config "github.com/hanpama/gqlengine/internal/config"
	language "github.com/hanpama/gqlengine/internal/language"
	normalizer "github.com/hanpama/gqlengine/internal/normalizer"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gqlengine",
		Short:         "Schema-driven GraphQL engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd(), printSchemaCmd(), checkCmd(), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gqlengine %s\n", version)
		},
	}
}

func printSchemaCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "print-schema <file.graphql>...",
		Short: "Merge, validate and print SDL files as a single schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := loadSchema(args)
			if err != nil {
				return err
			}
			sdl := schema.Render(sch)
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), sdl)
				return err
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the schema to a file instead of stdout")
	return cmd
}

func checkCmd() *cobra.Command {
	var (
		schemaPaths   []string
		operationName string
		introspection bool
	)
	cmd := &cobra.Command{
		Use:   "check <query.graphql>",
		Short: "Validate a query document against a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := loadSchema(schemaPaths)
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := language.ParseQuery(string(src))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			op, err := normalizer.Normalize(sch, doc, operationName, normalizer.WithIntrospection(introspection))
			if err != nil {
				return fmt.Errorf("%s%s", locationPrefix(args[0], err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ok\n", args[0], op.Type)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&schemaPaths, "schema", "s", nil, "SDL files making up the schema (required)")
	cmd.Flags().StringVar(&operationName, "operation", "", "Operation to check when the document has several")
	cmd.Flags().BoolVar(&introspection, "introspection", config.Default().Engine.Introspection, "Allow introspection fields")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func locationPrefix(file string, err error) string {
	var ne *normalizer.Error
	if !errors.As(err, &ne) || len(ne.Locations) == 0 {
		return file + ": "
	}
	return fmt.Sprintf("%s:%d:%d: ", file, ne.Locations[0].Line, ne.Locations[0].Column)
}
