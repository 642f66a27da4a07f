// Command pokerctl inspects and edits the room snapshots a poker server
// persists. Changes made here are picked up by the server's reconciler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lazharichir/pokerroom/config"
	"github.com/lazharichir/pokerroom/room"
	"github.com/lazharichir/pokerroom/store"
	"github.com/pterm/pterm"
	"github.com/sanity-io/litter"
)

const usage = `usage: pokerctl [flags] <command> [args]

commands:
  list              list stored rooms
  show [-raw] <id>  show one room
  delete <id>       delete a room's snapshot

flags:
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			pterm.Error.Println(err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("pokerctl", flag.ContinueOnError)
	fs.SetOutput(out)
	backend := fs.String("backend", cfg.SnapshotBackend, "snapshot backend: file or sqlite")
	dir := fs.String("dir", cfg.DataDir, "snapshot directory for the file backend")
	db := fs.String("db", cfg.SQLitePath, "database path for the sqlite backend")
	fs.Usage = func() {
		fmt.Fprint(out, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	st, err := openStore(*backend, *dir, *db)
	if err != nil {
		return err
	}
	defer st.Close()

	rest := fs.Args()[1:]
	switch fs.Arg(0) {
	case "list":
		return list(ctx, st, out)
	case "show":
		return show(ctx, st, rest, out)
	case "delete":
		return remove(ctx, st, rest, out)
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", fs.Arg(0))
}

func openStore(backend, dir, db string) (store.Store, error) {
	switch backend {
	case "file":
		return store.NewFileStore(dir)
	case "sqlite":
		return store.OpenSQLite(db)
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

func list(ctx context.Context, st store.Store, out io.Writer) error {
	entries, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, pterm.Info.Sprint("no rooms stored"))
		return nil
	}

	data := pterm.TableData{{"ID", "NAME", "VARIANT", "BLINDS", "PLAYERS", "HAND", "PHASE", "MODIFIED"}}
	for _, e := range entries {
		modified := e.ModTime.Local().Format("2006-01-02 15:04:05")
		snap, err := load(ctx, st, e.ID)
		if err != nil {
			data = append(data, []string{e.ID, pterm.LightRed("corrupt"), "", "", "", "", "", modified})
			continue
		}
		data = append(data, []string{
			e.ID,
			snap.Name,
			string(snap.Variant),
			fmt.Sprintf("%d/%d", snap.SmallBlind, snap.BigBlind),
			fmt.Sprintf("%d/%d", len(snap.GameState.Table.Players()), snap.MaxPlayers),
			strconv.Itoa(snap.GameState.HandNumber),
			string(snap.GameState.Phase),
			modified,
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, table)
	return nil
}

func load(ctx context.Context, st store.Store, id string) (room.Snapshot, error) {
	rec, err := st.Get(ctx, id)
	if err != nil {
		return room.Snapshot{}, err
	}
	return room.DecodeSnapshot(rec.Data)
}

func show(ctx context.Context, st store.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(out)
	raw := fs.Bool("raw", false, "dump the decoded snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("show needs exactly one room id")
	}
	snap, err := load(ctx, st, fs.Arg(0))
	if err != nil {
		return err
	}
	if *raw {
		fmt.Fprintln(out, litter.Sdump(snap))
		return nil
	}

	gs := snap.GameState
	board := make([]string, len(gs.CommunityCards))
	for i, c := range gs.CommunityCards {
		board[i] = c.String()
	}
	summary := pterm.Sprintfln("%s (%s)", pterm.LightCyan(snap.Name), snap.ID) +
		pterm.Sprintfln("variant %s, blinds %d/%d, ante %d", snap.Variant, snap.SmallBlind, snap.BigBlind, snap.Ante) +
		pterm.Sprintfln("hand #%d, phase %s, pot %d", gs.HandNumber, gs.Phase, gs.Pots.Total()) +
		pterm.Sprintf("board %s", strings.Join(board, " "))
	fmt.Fprintln(out, pterm.DefaultBox.WithTitle("ROOM").WithTitleTopCenter().Sprint(summary))

	data := pterm.TableData{{"SEAT", "PLAYER", "CHIPS", "BET", "STATUS", "FLAGS"}}
	for _, seat := range gs.Table.Seats {
		p := seat.Player
		if p == nil {
			data = append(data, []string{strconv.Itoa(seat.Number), "", "", "", "empty", ""})
			continue
		}
		data = append(data, []string{
			strconv.Itoa(seat.Number),
			p.Player.Name + " <" + p.ID() + ">",
			strconv.FormatInt(p.Chips, 10),
			strconv.FormatInt(p.CurrentBet, 10),
			string(p.Status),
			flags(snap, seat.Number, p.Disconnected, p.SittingOut),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, table)
	return nil
}

func flags(snap room.Snapshot, seat int, disconnected, sittingOut bool) string {
	var out []string
	if snap.GameState.DealerSeat == seat {
		out = append(out, "button")
	}
	if disconnected {
		out = append(out, "away")
	}
	if sittingOut {
		out = append(out, "sitting out")
	}
	return strings.Join(out, ", ")
}

func remove(ctx context.Context, st store.Store, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("delete needs exactly one room id")
	}
	if err := st.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(out, pterm.Success.Sprintf("deleted %s", args[0]))
	return nil
}
