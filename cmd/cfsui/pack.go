package main

import (
	"crypto/rand"
	"encoding/hex"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vango-dev/cfsui/internal/cabinet"
	"github.com/vango-dev/cfsui/internal/errors"
)

func packCmd() *cobra.Command {
	var (
		store    string
		initDir  bool
		compress bool
		encrypt  bool
	)

	cmd := &cobra.Command{
		Use:   "pack <tag> <dir>",
		Short: "Pack a directory into the cabinet as a tag",
		Long: `Store every file under a directory as blobs, write its manifest and
publish it as a tag. The previous tag version stays reachable under
versions/.

Examples:
  cfsui pack --init docs ./site
  cfsui pack --compress --encrypt app ./build`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Backend != "fs" && store == "" {
				return errors.New("E401").WithDetail("pack writes to the fs backend only; pass --store")
			}
			if store != "" {
				cfg.Store.Dir = store
			}

			fsStore := cabinet.NewFileStore(storeDir(cfg))
			if initDir {
				if err := fsStore.Init(); err != nil {
					return errors.New("E302").Wrap(err)
				}
			} else if _, err := os.Stat(fsStore.Root()); err != nil {
				return errors.New("E302").Wrap(err).WithSuggestion("Pass --init to create the cabinet.")
			}

			opts := cabinet.PackOptions{}
			if compress {
				opts.Attr |= cabinet.Compressed
			}
			if encrypt {
				opts.Attr |= cabinet.Crypted
				if opts.Key, err = randomKey(); err != nil {
					return err
				}
				if opts.IV, err = randomKey(); err != nil {
					return err
				}
			}

			tag, err := fsStore.PackDir(args[0], args[1], opts)
			if err != nil {
				return err
			}
			cab := cabinet.New(fsStore)
			bucket, err := cab.Bucket(cmd.Context(), tag)
			if err != nil {
				return err
			}

			success("Packed %s: %d files, %s", tag.Name, len(bucket.Paths()), humanize.Bytes(uint64(bucket.TotalSize())))
			info("manifest %s", tag.Hash)
			if encrypt {
				info("encrypted with a generated key")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&store, "store", "s", "", "Cabinet directory (default from store.dir)")
	cmd.Flags().BoolVar(&initDir, "init", false, "Create the cabinet layout if missing")
	cmd.Flags().BoolVar(&compress, "compress", false, "Deflate file contents")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "Encrypt file contents with a random AES-128 key")
	return cmd
}

// randomKey returns 16 hex characters, usable as an AES-128 key or IV.
func randomKey() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
