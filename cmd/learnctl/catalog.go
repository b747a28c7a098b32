package main

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/search"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func searchCatalog(c *catalog.Catalog, query string, limit int) []search.Entry {
	return search.NewIndex(c, search.Options{MaxResults: limit}).Search(query)
}

func newCatalogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate the tutorial catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories with topic and section counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "SLUG\tTITLE\tTOPICS\tSECTIONS")
			for _, category := range cat.Categories() {
				sections := 0
				for _, t := range category.Topics {
					sections += len(t.Sections)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", category.Slug, category.Title, len(category.Topics), sections)
			}
			fmt.Fprintf(w, "\nversion %s\n", cat.Version())
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <dir>",
		Short: "Validate every category YAML file under dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateDir(cmd.OutOrStdout(), args[0])
		},
	})

	return cmd
}

// validateDir checks each YAML file under dir and reports every failure.
func validateDir(out io.Writer, dir string) error {
	var checked, failed int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}
		checked++
		if err := catalog.ValidateFile(path); err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "ok   %s\n", path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}
	if checked == 0 {
		return fmt.Errorf("no catalog files found in %s", dir)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d catalog files invalid", failed, checked)
	}
	return nil
}
