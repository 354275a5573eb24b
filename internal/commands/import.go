package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/team-kalender/internal/app"
	"github.com/klabast/wb-services/team-kalender/internal/planner"
)

// Import handles the import subcommand: it combines an exported JSON file
// with the stored state.
func Import(args []string, getenv func(string) string, in io.Reader, out io.Writer) error {
	fs := pflag.NewFlagSet("import", pflag.ContinueOnError)
	app.BindFlags(fs)
	mode := fs.String("mode", "", "overwrite or merge (required unless the roster is empty)")
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: team-kalender import [OPTIONS] FILE|-\n\n")
		fmt.Fprintf(out, "Imports an exported planner file into the configured storage.\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one input file")
	}
	requested, err := planner.ParseImportMode(*mode)
	if err != nil {
		return err
	}
	raw, err := readInput(fs.Arg(0), in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	backend, log, err := openStore(fs, getenv)
	if err != nil {
		return err
	}
	defer closeStore(backend, log)

	ctx := context.Background()
	year := time.Now().Year()
	current, err := app.ReadState(ctx, backend, year)
	if err != nil {
		return fmt.Errorf("refusing to import over unreadable state: %w", err)
	}
	editor := planner.NewEditor(planner.NewStore(current))
	effective, err := editor.Import(raw, requested, year)
	if err != nil {
		return err
	}
	if err := app.SaveState(ctx, backend, editor.Store.Data()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	log.Info("imported data", zap.String("mode", string(effective)), zap.Int("members", editor.Store.MemberCount()))
	fmt.Fprintf(out, "Imported %s (%s), roster now has %d members\n", fs.Arg(0), effective, editor.Store.MemberCount())
	return nil
}
