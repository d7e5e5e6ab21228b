package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/metcalfc/florida/internal/config"
	"github.com/metcalfc/florida/internal/cue"
	"github.com/metcalfc/florida/internal/format"
	"github.com/metcalfc/florida/internal/library"
	"github.com/metcalfc/florida/internal/reader"
	"github.com/metcalfc/florida/internal/store"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds what every subcommand needs once preferences are loaded.
type app struct {
	cfg        config.Config
	configPath string
	log        *slog.Logger
	logOut     *switchWriter
	store      *store.Store
	lib        *library.Library
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func newApp() *app {
	return &app{logOut: &switchWriter{w: os.Stderr}}
}

// rootCmd builds the command tree around a.
func (a *app) rootCmd() *cobra.Command {

	root := &cobra.Command{
		Use:   "florida",
		Short: "Speed read documents one word at a time",
		Long: `florida is an RSVP speed reader. Import plain text, Markdown, EPUB,
PDF or DOCX documents into a local library and read them one word at a
time, with the focus letter of every word held in place.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}
	config.RegisterFlags(root.PersistentFlags(), config.DefaultConfig())

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newReadCmd(a),
		newRenameCmd(a),
		newFavCmd(a),
		newRmCmd(a),
		newPrefsCmd(a),
		newCueCmd(a),
	)
	return root
}

// setup loads preferences, configures logging and opens the library.
func (a *app) setup(cmd *cobra.Command) error {
	a.configPath, _ = cmd.Flags().GetString("config")
	if a.configPath == "" {
		a.configPath = config.DefaultPath()
	}
	cfg, err := config.Load(config.LoadOptions{
		Flags:      cmd.Flags(),
		ConfigFile: a.configPath,
		EnvFile:    ".env",
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = setupLogger(cfg.LogLevel, a.logOut)
	if err != nil {
		return err
	}
	slog.SetDefault(a.log)

	if !needsLibrary(cmd) {
		return nil
	}
	a.store, err = store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	a.lib = library.New(a.store, a.log)
	return nil
}

func needsLibrary(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "prefs", "cue":
			return false
		}
	}
	return true
}

// setupLogger returns a text logger at the named level writing to w.
func setupLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func newAddCmd(a *app) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add FILE... | -",
		Short: "Import documents into the library",
		Long: "Import documents into the library. Use - to read plain text from stdin.\n\nSupported formats: " +
			strings.Join(format.SupportedFormats(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, arg := range args {
				doc, existing, err := a.importArg(cmd.Context(), cmd.InOrStdin(), arg, title)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", arg, err)
					failed++
					continue
				}
				verb := "added"
				if existing {
					verb = "already in library"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%s)\n", shortID(doc.ID), doc.Title, verb)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d imports failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title for text read from stdin")
	return cmd
}

func (a *app) importArg(ctx context.Context, stdin io.Reader, arg, title string) (store.Document, bool, error) {
	if arg == "-" {
		return a.lib.ImportReader(ctx, stdin, title)
	}
	return a.lib.Import(ctx, arg)
}

func newListCmd(a *app) *cobra.Command {
	var favorites bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List documents, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.lib.List(cmd.Context(), favorites)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents. Add one with: florida add FILE")
				return nil
			}
			return writeEntries(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only show favorites")
	return cmd
}

var (
	listHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Bold(true).
			Padding(0, 1)

	listCellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	listBorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

func writeEntries(w io.Writer, entries []library.Entry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		title := e.Title
		if e.Favorite {
			title = "★ " + title
		}
		rows = append(rows, []string{
			shortID(e.ID),
			title,
			e.Type,
			strconv.Itoa(e.Words),
			fmt.Sprintf("%.0f%%", e.Progress),
			e.CreatedAt.Local().Format("2006-01-02"),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(listBorderStyle).
		Headers("ID", "TITLE", "TYPE", "WORDS", "READ", "ADDED").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeaderStyle
			}
			return listCellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newReadCmd(a *app) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "read [ID|FILE]",
		Short: "Read a document",
		Long: `Read a document by id (or unique id prefix) or by file path, importing
the file first if needed. With no argument, text piped on stdin is imported
and read; otherwise the newest document is opened.

Controls:
  SPACE      Play/pause
  ←/→        Previous/next sentence
  h/l  [/]   Back/forward 10 words
  ↑/↓  +/-   Speed up/slow down by 50 WPM
  r          Restart
  p          Toggle pause on punctuation
  m          Toggle audio cue
  q          Quit (saves position)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.resolveReadTarget(ctx, cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			// Audio can be switched on mid-session, so a player is always
			// ready; the engine only calls it while audio is enabled.
			player, closeCues := cue.New(true, a.cfg.Audio.Volume, os.Stdout, a.log)
			defer closeCues()

			opts := a.sessionOptions(cmd, fresh)
			opts.Cues = player
			eng, doc, err := a.lib.Open(ctx, id, opts)
			if err != nil {
				return err
			}
			defer eng.Close()

			return runReader(a, eng, doc)
		},
	}
	cmd.Flags().Int("wpm", reader.DefaultWPM, "Reading speed in words per minute")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Ignore the saved reading position")
	return cmd
}

// sessionOptions builds the reading session settings. An explicit --wpm
// wins over the rate saved with the document.
func (a *app) sessionOptions(cmd *cobra.Command, fresh bool) library.SessionOptions {
	opts := library.SessionOptions{
		Settings: a.cfg.Settings(),
		Fresh:    fresh,
	}
	if cmd.Flags().Changed("wpm") {
		opts.WPM = a.cfg.Reading.WPM
	}
	return opts
}

// resolveReadTarget returns the id of the document to read.
func (a *app) resolveReadTarget(ctx context.Context, stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		arg := args[0]
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			doc, _, err := a.lib.Import(ctx, arg)
			if err != nil {
				return "", err
			}
			return doc.ID, nil
		}
		doc, err := a.lib.Get(ctx, arg)
		if err != nil {
			return "", err
		}
		return doc.ID, nil
	}

	if f, ok := stdin.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
			doc, _, err := a.lib.ImportReader(ctx, f, "")
			if err != nil {
				return "", err
			}
			return doc.ID, nil
		}
	}

	entries, err := a.lib.List(ctx, false)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("library is empty; add a document with: florida add FILE")
	}
	return entries[0].ID, nil
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID TITLE",
		Short: "Rename a document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.lib.Rename(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}
}

func newFavCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fav ID",
		Short: "Toggle a document's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fav, err := a.lib.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if fav {
				fmt.Fprintln(cmd.OutOrStdout(), "Added to favorites")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Removed from favorites")
			}
			return nil
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a document and its reading position",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.lib.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", doc.Title)
			return nil
		},
	}
}

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", a.configPath)
			for _, k := range config.Keys() {
				v, err := a.cfg.Get(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, v)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a preference",
		Long:  "Change a preference. Keys: " + strings.Join(config.Keys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadFile(a.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(a.configPath, cfg); err != nil {
				return err
			}
			saved, _ := cfg.Clamped().Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], saved)
			return nil
		},
	})
	return cmd
}

func newCueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "cue NAME",
		Short:     "Play an audio cue once",
		Long:      "Play an audio cue once. Cues: " + strings.Join(cue.Names(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: cue.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cue.Valid(args[0]) {
				return fmt.Errorf("unknown cue %q (choose from %s)", args[0], strings.Join(cue.Names(), ", "))
			}
			player, err := cue.NewSystem(a.cfg.Audio.Volume, a.log)
			if err != nil {
				return err
			}
			player.Play(args[0])
			return player.Close()
		},
	}
}

// switchWriter lets the log destination change after loggers that write
// to it have been handed out.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Swap replaces the destination and returns the previous one.
func (s *switchWriter) Swap(w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.w
	s.w = w
	return prev
}

// logFile opens the log file used while a full-screen reader owns the
// terminal.
func logFile(dataDir string) (*os.File, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dataDir, "florida.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
