package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-pagekit"
)

func newRenderCommand(opts *globalOptions) *cobra.Command {
	var (
		mode   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "render <project> <page>",
		Short: "Render a page through the project layout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderMode, err := pagekit.ParseRenderMode(mode)
			if err != nil {
				return err
			}
			module, err := opts.module()
			if err != nil {
				return err
			}
			defer module.Close()

			html, err := module.RenderPage(cmd.Context(), args[0], args[1], renderMode)
			if err != nil {
				return fmt.Errorf("render %s/%s: %w", args[0], args[1], err)
			}
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), html)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			if err := atomic.WriteFile(output, strings.NewReader(html)); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(pagekit.RenderModePublish), "Render mode: preview or publish")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file instead of stdout")
	return cmd
}
