package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"goldcheck/internal/kff"
)

func newKFFCommand(ctx *commandContext) *cobra.Command {
	kffCmd := &cobra.Command{
		Use:   "kff",
		Short: "Maintain the known-file database",
	}
	kffCmd.AddCommand(newKFFAddCommand(ctx))
	kffCmd.AddCommand(newKFFListCommand(ctx))
	kffCmd.AddCommand(newKFFRemoveCommand(ctx))
	return kffCmd
}

func newKFFAddCommand(ctx *commandContext) *cobra.Command {
	var entry kff.Entry
	cmd := &cobra.Command{
		Use:   "add <file|digest>",
		Short: "Record a file (or a sha256/md5 digest) as known content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, err := resolveDigest(args[0])
			if err != nil {
				return err
			}
			entry.Digest = digest
			return ctx.withKFF(func(store *kff.Store) error {
				if store == nil {
					return errors.New("no known-file database configured (paths.kff_db)")
				}
				if err := store.Add(cmd.Context(), entry); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", digest)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&entry.Form, "form", "", "Form that replaces the current form on a match")
	flags.StringVar(&entry.FileType, "file-type", "", "File type set on a match (default "+kff.KnownFileType+")")
	flags.BoolVar(&entry.Truncate, "truncate", false, "Empty the payload data on a match")
	flags.StringVar(&entry.Note, "note", "", "Free-form note")
	return cmd
}

func newKFFListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withKFF(func(store *kff.Store) error {
				out := cmd.OutOrStdout()
				if store == nil {
					fmt.Fprintln(out, "No known-file database configured")
					return nil
				}
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "No known files")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.Digest,
						e.Algorithm,
						e.Form,
						e.FileType,
						yesNo(e.Truncate),
						e.Note,
						e.AddedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Digest", "Alg", "Form", "File Type", "Truncate", "Note", "Added"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
}

func newKFFRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <digest>",
		Short: "Forget a known digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withKFF(func(store *kff.Store) error {
				if store == nil {
					return errors.New("no known-file database configured (paths.kff_db)")
				}
				removed, err := store.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("digest %s is not known", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", strings.ToLower(strings.TrimSpace(args[0])))
				return nil
			})
		},
	}
}

// resolveDigest hashes arg when it names a file and otherwise accepts it as
// a hex sha256 or md5 digest.
func resolveDigest(arg string) (string, error) {
	data, err := os.ReadFile(arg)
	if err == nil {
		return kff.DigestBytes(kff.SHA256, data), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	digest := strings.ToLower(strings.TrimSpace(arg))
	if _, herr := hex.DecodeString(digest); herr != nil || (len(digest) != 64 && len(digest) != 32) {
		return "", fmt.Errorf("%s is neither a file nor a sha256/md5 digest", arg)
	}
	return digest, nil
}
