package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"manifold/internal/manifold"
)

var (
	specProject  string
	specName     string
	specBoundary string
	specActor    string
	specStrict   bool
	specFilterStage string
	specFilterQuery string
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Create, read, and update specs",
}

var specCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new spec at the requirements stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := eng.Create(specProject, specName, manifold.Boundary(specBoundary))
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var specGetCmd = &cobra.Command{
	Use:   "get <spec_id>",
	Short: "Print a spec as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := eng.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(spec)
	},
}

var specListCmd = &cobra.Command{
	Use:   "list",
	Short: "List spec summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := manifold.Filter{
			Boundary: manifold.Boundary(specBoundary),
			Stage:    manifold.Stage(specFilterStage),
			Query:    specFilterQuery,
		}
		summaries, err := eng.List(filter)
		if err != nil {
			return err
		}
		return printJSON(summaries)
	},
}

var specPutCmd = &cobra.Command{
	Use:   "put <spec_id>",
	Short: "Replace a spec's contents from a JSON file (or stdin with -)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		data, err := readInput(path)
		if err != nil {
			return err
		}
		var spec manifold.Spec
		if err := json.Unmarshal(data, &spec); err != nil {
			return fmt.Errorf("decode spec: %w", err)
		}
		spec.SpecID = args[0]
		if err := eng.Put(&spec, specActor); err != nil {
			return err
		}
		return printJSON(&spec)
	},
}

var specValidateCmd = &cobra.Command{
	Use:   "validate <spec_id>",
	Short: "Validate a stored spec against the schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := eng.Get(args[0])
		if err != nil {
			return err
		}
		if err := eng.Validate(spec, specStrict); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	specCreateCmd.Flags().StringVar(&specProject, "project", "", "project name")
	specCreateCmd.Flags().StringVar(&specName, "name", "", "spec name")
	specCreateCmd.Flags().StringVar(&specBoundary, "boundary", string(manifold.BoundaryPersonal), "personal|work|company")

	specListCmd.Flags().StringVar(&specBoundary, "boundary", "", "filter by boundary")
	specListCmd.Flags().StringVar(&specFilterStage, "stage", "", "filter by stage")
	specListCmd.Flags().StringVar(&specFilterQuery, "query", "", "full-text query")

	specPutCmd.Flags().String("file", "", "path to a JSON spec file, or - for stdin")
	specPutCmd.Flags().StringVar(&specActor, "actor", "cli", "actor recorded on the resulting patch")

	specValidateCmd.Flags().BoolVar(&specStrict, "strict", false, "also require a shall on every requirement from the design stage on, and requirement_ids on every task from the tasks stage on")

	specCmd.AddCommand(specCreateCmd, specGetCmd, specListCmd, specPutCmd, specValidateCmd)
}
