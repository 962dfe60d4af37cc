package main

import (
	"fmt"
	"io"
	"os"

	"github.com/portfolio/internal/content"
	"github.com/portfolio/internal/db"
	"github.com/portfolio/internal/docstore"
	"github.com/portfolio/internal/service"
	"github.com/spf13/cobra"
)

var (
	contentFile string
	seedForce   bool
)

// contentCmd 导入导出站点内容
var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Export or import site content as YAML",
}

var contentExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every saved section to YAML",
	RunE:  runContentExport,
}

var contentImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Save the sections found in a YAML file",
	Long: `Import reads a YAML document keyed by section name and saves every
section it contains. Sections not present in the file are left untouched.`,
	RunE: runContentImport,
}

var contentSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Save the built-in default content",
	Long: `Seed writes the built-in placeholder content for every section. It does
nothing when content already exists unless --force is given.`,
	RunE: runContentSeed,
}

func init() {
	contentSeedCmd.Flags().BoolVar(&seedForce, "force", false, "overwrite existing sections")
	contentExportCmd.Flags().StringVarP(&contentFile, "file", "f", "-", "output file (- for stdout)")
	contentImportCmd.Flags().StringVarP(&contentFile, "file", "f", "-", "input file (- for stdin)")
}

func withRepository(fn func(repo *service.SectionRepository) error) error {
	_, logger, gdb, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer db.Close(gdb)

	store := docstore.NewGormStore(gdb, logger)
	defer store.Close()

	return fn(service.NewSectionRepository(store, logger))
}

func runContentExport(cmd *cobra.Command, args []string) error {
	return withRepository(func(repo *service.SectionRepository) error {
		var w io.Writer = cmd.OutOrStdout()
		if contentFile != "-" {
			f, err := os.Create(contentFile)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		n, err := service.ExportContent(cmd.Context(), repo, w)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d sections\n", n)
		return nil
	})
}

func runContentImport(cmd *cobra.Command, args []string) error {
	return withRepository(func(repo *service.SectionRepository) error {
		var r io.Reader = cmd.InOrStdin()
		if contentFile != "-" {
			f, err := os.Open(contentFile)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		n, err := service.ImportContent(cmd.Context(), repo, r)
		if err != nil {
			return fmt.Errorf("import content (%d sections decoded): %w", n, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "imported %d sections\n", n)
		return nil
	})
}

func runContentSeed(cmd *cobra.Command, args []string) error {
	return withRepository(func(repo *service.SectionRepository) error {
		exists, err := repo.ContentExists(cmd.Context())
		if err != nil {
			return err
		}
		if exists && !seedForce {
			fmt.Fprintln(cmd.ErrOrStderr(), "content already exists, use --force to overwrite")
			return nil
		}

		defaults := content.Defaults()
		if err := repo.SaveAllSections(cmd.Context(), defaults); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "seeded %d sections\n", defaults.Len())
		return nil
	})
}
