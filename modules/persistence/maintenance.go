package persistence

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lkarlslund/pathcost/modules/cli"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/spf13/cobra"
	"github.com/ugorji/go/codec"
	"go.etcd.io/bbolt"
)

var (
	persistenceCmd = &cobra.Command{
		Use:   "persistence",
		Short: "Maintenance tools for the persistence database",
	}
	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dumps the persistence database in JSON",
	}
	output     = dumpCmd.Flags().String("output", "persistence-dump.json", "Output file for dump")
	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Restores the persistence database from JSON",
	}
	input = restoreCmd.Flags().String("input", "persistence-dump.json", "Input file to restore")
)

func init() {
	cli.Root.AddCommand(persistenceCmd)
	persistenceCmd.AddCommand(dumpCmd)
	dumpCmd.RunE = func(cmd *cobra.Command, args []string) error {
		db, err := getDB()
		if err != nil {
			return fmt.Errorf("could not open database: %w", err)
		}
		jsonfile, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("could not open output file: %w", err)
		}
		defer jsonfile.Close()
		if err = Dump(db, jsonfile); err != nil {
			return err
		}
		ui.Info().Msgf("Database dumped to %v", *output)
		return nil
	}
	persistenceCmd.AddCommand(restoreCmd)
	restoreCmd.RunE = func(cmd *cobra.Command, args []string) error {
		db, err := getDB()
		if err != nil {
			return fmt.Errorf("could not open database: %w", err)
		}
		jsonfile, err := os.Open(*input)
		if err != nil {
			return fmt.Errorf("could not open input file: %w", err)
		}
		defer jsonfile.Close()
		records, err := Restore(db, jsonfile)
		if err != nil {
			return err
		}
		ui.Info().Msgf("Restored %v records from %v", records, *input)
		return nil
	}
}

type dumpFile map[string]map[string]any

// Dump writes every bucket as a JSON object keyed by bucket name, then by key
func Dump(db *bbolt.DB, w io.Writer) error {
	contents := dumpFile{}
	err := db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			bucket := map[string]any{}
			err := b.ForEach(func(k, v []byte) error {
				var value any
				if err := codec.NewDecoderBytes(v, &mh).Decode(&value); err != nil {
					return fmt.Errorf("bucket %v key %v: %w", string(name), string(k), err)
				}
				bucket[string(k)] = value
				return nil
			})
			contents[string(name)] = bucket
			return err
		})
	})
	if err != nil {
		return err
	}
	var dh codec.JsonHandle
	dh.Indent = 2
	dh.Canonical = true
	return codec.NewEncoder(w, &dh).Encode(contents)
}

// Restore loads a dump made by Dump, overwriting keys that already exist.
// It returns the number of records written.
func Restore(db *bbolt.DB, r io.Reader) (int, error) {
	var contents dumpFile
	if err := codec.NewDecoder(r, &mh).Decode(&contents); err != nil {
		return 0, fmt.Errorf("decoding dump: %w", err)
	}
	buckets := make([]string, 0, len(contents))
	for name := range contents {
		buckets = append(buckets, name)
	}
	sort.Strings(buckets)

	var records int
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			b, err := tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return err
			}
			for key, value := range contents[name] {
				var encoded []byte
				if err = codec.NewEncoderBytes(&encoded, &mh).Encode(value); err != nil {
					return err
				}
				if err = b.Put([]byte(key), encoded); err != nil {
					return err
				}
				records++
			}
		}
		return nil
	})
	return records, err
}
