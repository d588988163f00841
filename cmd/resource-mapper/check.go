package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"resource-mapper/internal/catalog"
	"resource-mapper/internal/common"
	"resource-mapper/internal/diagnostic"
	"resource-mapper/internal/schema"
	"resource-mapper/internal/transform"
)

const (
	codeUnknownKind    = "unknown_kind"
	codeUnknownSubKind = "unknown_sub_kind"
)

func newCheckCmd() *cobra.Command {
	var (
		catalogPath string
		dump        bool
	)

	cmd := &cobra.Command{
		Use:   "check <schema.yaml>",
		Short: "Compile a schema and report its diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), args[0], catalogPath, dump)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "kind catalog to check the schema against (default: the schema file)")
	cmd.Flags().BoolVar(&dump, "dump", false, "print the compiled schema")

	return cmd
}

func runCheck(out io.Writer, schemaPath, catalogPath string, dump bool) error {
	if catalogPath == "" {
		catalogPath = schemaPath
	}

	f, err := schema.LoadFile(schemaPath)
	if err != nil {
		return err
	}

	sch, err := schema.Compile(f, transform.Default())

	var cfgErr *schema.ConfigError
	if errors.As(err, &cfgErr) {
		report(out, cfgErr.Diagnostics)
		return fmt.Errorf("%s: %d error(s)", schemaPath, len(cfgErr.Diagnostics.Errors))
	}

	if err != nil {
		return err
	}

	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return err
	}

	diags := sch.Warnings
	diags.Merge(crossCheck(sch, cat))
	report(out, diags)

	if diags.HasErrors() {
		return fmt.Errorf("%s: %d error(s)", schemaPath, len(diags.Errors))
	}

	if dump {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
		cfg.Fdump(out, sch)
	}

	fmt.Fprintf(out, "%s: ok (%d scope(s))\n", schemaPath, len(sch.ScopeNames()))

	return nil
}

// crossCheck verifies that every endpoint names a catalog kind and that its
// sub-kind restriction and extensions name sub-kinds of that kind.
func crossCheck(sch *schema.Schema, cat *catalog.Catalog) diagnostic.Diagnostics {
	var diags diagnostic.Diagnostics

	for _, scopeName := range sch.ScopeNames() {
		sc, _ := sch.Scope(scopeName)

		for _, mount := range sc.Mounts() {
			ep, _ := sc.Endpoint(mount)
			label := scopeName + "/" + mount

			kind, ok := cat.Kind(ep.Kind)
			if !ok {
				diags.AddError(codeUnknownKind, fmt.Sprintf("kind %q is not in the catalog", ep.Kind), label, "")
				continue
			}

			subs := append(append([]string{}, ep.SubKinds...), ep.ExtendedSubKinds()...)
			for _, sub := range common.Dedup(subs) {
				if _, ok := kind.SubKind(sub); !ok {
					diags.AddError(codeUnknownSubKind,
						fmt.Sprintf("%q is not a sub-kind of %s (have %v)", sub, ep.Kind, kind.SubKinds()), label, sub)
				}
			}
		}
	}

	return diags
}

func report(out io.Writer, diags diagnostic.Diagnostics) {
	for _, d := range diags.Errors {
		fmt.Fprintf(out, "error: %s\n", d.String())
	}

	for _, d := range diags.Warnings {
		fmt.Fprintf(out, "warning: %s\n", d.String())
	}
}
