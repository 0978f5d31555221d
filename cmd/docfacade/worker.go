package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/mazzegi/docfacade/services"
	"github.com/spf13/cobra"
)

func (a *app) uploadCmd() *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "upload <path> <file>",
		Short: "Upload a file and print its download url",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %q: %w", args[1], err)
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(args[1]))
			}
			return a.withDB(cmd.Context(), func(s *services.Services) error {
				u, err := s.FileUpload(cmd.Context(), args[0], data, contentType)
				if err != nil {
					return err
				}
				printLine(a.out, u)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type, derived from the file extension if empty")
	return cmd
}

func (a *app) downloadURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download-url <path>",
		Short: "Print the download url of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(s *services.Services) error {
				u, err := s.GetDownloadURL(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printLine(a.out, u)
				return nil
			})
		},
	}
}

func (a *app) deleteFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-file <path>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(s *services.Services) error {
				return s.DeleteFile(cmd.Context(), args[0])
			})
		},
	}
}

func (a *app) callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <function> [json|@file]",
		Short: "Call a server function and print its result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fnArgs any
			if len(args) == 2 {
				bs, err := readArg(args[1])
				if err != nil {
					return err
				}
				fnArgs = parseValue(string(bs))
			}
			return a.withDB(cmd.Context(), func(s *services.Services) error {
				var res json.RawMessage
				if err := s.CloudFunction(cmd.Context(), args[0], fnArgs, &res); err != nil {
					return err
				}
				var v any
				if err := json.Unmarshal(res, &v); err != nil {
					return fmt.Errorf("json.unmarshal result: %w", err)
				}
				return printYAML(a.out, v)
			})
		},
	}
}

func (a *app) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign-out",
		Short: "End the session with the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(s *services.Services) error {
				return s.SignOut(cmd.Context())
			})
		},
	}
}
