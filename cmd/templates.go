/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/whisperbox/webapp/config"
	"github.com/whisperbox/webapp/internal/storage"
	"github.com/whisperbox/webapp/internal/view"
	"github.com/whisperbox/webapp/web"
)

// templatesCmd represents the templates command.
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage page templates",
}

var templatesPushBackend string

var templatesPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the embedded templates to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		objects, err := storage.New(cmd.Context(), templatesPushBackend, cfg)
		if err != nil {
			return err
		}

		count, err := view.Publish(cmd.Context(), objects, web.Templates(), cfg.Templates.Prefix)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d templates to %s/%s\n", count, objects.Bucket(), cfg.Templates.Prefix)
		return nil
	},
}

func init() {
	templatesPushCmd.Flags().StringVar(&templatesPushBackend, "backend", config.TemplatesMinio, "object storage backend (minio or gcs)")
	templatesCmd.AddCommand(templatesPushCmd)
	rootCmd.AddCommand(templatesCmd)
}
