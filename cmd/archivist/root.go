package main

import (
	"archivist/internal/di"
	"archivist/internal/models"
	"archivist/internal/structures"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config/config.yaml"

// NewRootCommand creates the archivist command and its sub-commands.
func NewRootCommand() *cobra.Command {
	flags := &structures.CliFlags{}

	cmd := &cobra.Command{
		Use:           "archivist",
		Short:         "Records every version of tracked documents in a git history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", defaultConfigPath, "path to the YAML configuration file")
	cmd.PersistentFlags().BoolVar(&flags.DebugMode, "debug", false, "also log to the console")

	cmd.AddCommand(newServeCommand(flags))
	cmd.AddCommand(newTrackCommand(flags))
	cmd.AddCommand(newRefilterCommand(flags))
	cmd.AddCommand(newExportCommand(flags))
	cmd.AddCommand(newCountCommand(flags))
	cmd.AddCommand(newResetCommand(flags))

	return cmd
}

func newServeCommand(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API and track documents periodically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := di.InitApp(flags)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}

func newTrackCommand(flags *structures.CliFlags) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Record a new version of the configured documents once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := di.InitTasks(flags)
			if err != nil {
				return err
			}
			defer tasks.Close()
			return tasks.Track(cmd.Context(), service)
		},
	}
	cmd.Flags().StringVarP(&service, "service", "s", "", "only track the documents of this service")
	return cmd
}

func newRefilterCommand(flags *structures.CliFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "refilter <version id>",
		Short: "Record content regenerated from an existing version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd, file)
			if err != nil {
				return err
			}

			tasks, err := di.InitTasks(flags)
			if err != nil {
				return err
			}
			defer tasks.Close()

			result, err := tasks.Refilter(cmd.Context(), args[0], content)
			if err != nil {
				return err
			}
			if result.Status == models.StatusNoChange {
				fmt.Fprintln(cmd.OutOrStdout(), "no change")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Record.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "file holding the regenerated content, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readContent(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(file)
}

func newExportCommand(flags *structures.CliFlags) *cobra.Command {
	var (
		output string
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every version to a compressed JSON lines archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := di.InitTasks(flags)
			if err != nil {
				return err
			}
			defer tasks.Close()

			count, err := tasks.Export(cmd.Context(), output, verify)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d versions exported\n", count)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path (defaults to export.filePath)")
	cmd.Flags().BoolVar(&verify, "verify", false, "read the archive back and compare it with the history")
	return cmd
}

func newCountCommand(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of recorded versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := di.InitTasks(flags)
			if err != nil {
				return err
			}
			defer tasks.Close()

			count, err := tasks.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		},
	}
}

func newResetCommand(flags *structures.CliFlags) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Irreversibly erase the whole version history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return fmt.Errorf("refusing to erase the history without --yes")
			}
			tasks, err := di.InitTasks(flags)
			if err != nil {
				return err
			}
			defer tasks.Close()
			return tasks.Reset(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the erasure")
	return cmd
}
