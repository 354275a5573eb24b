package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/klabast/wb-services/team-kalender/internal/app"
	"github.com/klabast/wb-services/team-kalender/internal/planner"
)

// Export handles the export subcommand: it writes the stored state as
// pretty printed JSON, or as a share link fragment with --share.
func Export(args []string, getenv func(string) string, out io.Writer) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	app.BindFlags(fs)
	outPath := fs.StringP("out", "o", "", "Output file (default: stdout); a directory receives "+app.ExportFileName(time.Now()))
	share := fs.Bool("share", false, "Print a share link fragment instead of JSON")
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: team-kalender export [OPTIONS]\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend, log, err := openStore(fs, getenv)
	if err != nil {
		return err
	}
	defer closeStore(backend, log)

	d := app.LoadState(context.Background(), backend, time.Now().Year(), log)

	var payload []byte
	if *share {
		token, err := app.EncodeShareToken(d)
		if err != nil {
			return err
		}
		payload = []byte(app.SharePrefix + token + "\n")
	} else {
		payload, err = planner.MarshalIndent(d)
		if err != nil {
			return err
		}
		payload = append(payload, '\n')
	}

	if *outPath == "" {
		_, err := out.Write(payload)
		return err
	}
	path := *outPath
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, app.ExportFileName(time.Now()))
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(out, "Exported %d members to %s\n", len(d.Members), path)
	return nil
}
