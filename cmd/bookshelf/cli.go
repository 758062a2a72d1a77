package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"git.sr.ht/~jackmordaunt/bookshelf"
	"git.sr.ht/~jackmordaunt/bookshelf/app"
	"git.sr.ht/~jackmordaunt/bookshelf/internal/config"
	"git.sr.ht/~jackmordaunt/bookshelf/internal/form"
	"git.sr.ht/~jackmordaunt/bookshelf/internal/logger"
	"git.sr.ht/~jackmordaunt/bookshelf/persist"
	"git.sr.ht/~jackmordaunt/bookshelf/render"
	"git.sr.ht/~jackmordaunt/bookshelf/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options holds the global flags.
type options struct {
	ConfigPath string
	Driver     string
	Path       string
	Key        string
	LogLevel   string
	LogFormat  string
	NoColor    bool
	MemStorage bool
}

func (o *options) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "config file (default "+config.DefaultPath()+")")
	fs.StringVar(&o.Driver, "driver", "", "storage driver: mem, file, bolt, storm or sqlite")
	fs.StringVar(&o.Path, "path", "", "storage location")
	fs.StringVar(&o.Key, "key", "", "storage key holding the bookshelf")
	fs.StringVar(&o.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&o.LogFormat, "log-format", "", "log format: console or json")
	fs.BoolVar(&o.NoColor, "no-color", false, "disable styled output")
	fs.BoolVar(&o.MemStorage, "mem-storage", false, "keep books in memory only")
}

// config resolves the effective configuration: defaults, then file, then flags.
func (o *options) config() (config.Config, error) {
	path, optional := o.ConfigPath, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return cfg, err
	}
	if o.Driver != "" {
		cfg.Storage.Driver = o.Driver
	}
	if o.MemStorage {
		cfg.Storage.Driver = config.DriverMem
	}
	if o.Path != "" {
		cfg.Storage.Path = o.Path
	}
	if o.Key != "" {
		cfg.Storage.Key = o.Key
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.NoColor {
		cfg.Render.Color = false
	}
	return cfg, cfg.Validate()
}

// session is everything a command needs, opened from config.
type session struct {
	App      *app.App
	Renderer *render.Renderer
	Slot     storage.Slot
	Config   config.Config
	Log      zerolog.Logger
	out      io.Writer
}

func (o *options) open(stdout, stderr io.Writer) (*session, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: logger.ParseLogFormat(cfg.Log.Format),
		Output: stderr,
	})
	slot, err := openSlot(cfg)
	if err != nil {
		// Carry on in memory; the app alerts once the first save fails.
		log.Warn().Err(err).Str("driver", cfg.Storage.Driver).Msg("opening storage")
		slot = nil
	}
	var (
		bus   = &bookshelf.Bus{}
		shelf = bookshelf.New(bus)
		store = persist.New(slot, cfg.Storage.Key, logger.Component(log, "persist"))
	)
	a := app.New(shelf, store, bus,
		app.WithLogger(logger.Component(log, "app")),
		app.WithNotifier(app.NotifierFunc(func(msg string) {
			fmt.Fprintf(stderr, "bookshelf: %s\n", msg)
		})),
	)
	return &session{
		App:      a,
		Renderer: render.New(stdout, cfg.Render.Color),
		Slot:     slot,
		Config:   cfg,
		Log:      log,
		out:      stdout,
	}, nil
}

// render subscribes the renderer so that every later mutation redraws.
func (s *session) render() {
	s.App.Bus.Subscribe(bookshelf.StateMutated, s.Renderer.Handle)
}

func (s *session) Close() error {
	s.App.Close()
	if s.Slot == nil {
		return nil
	}
	return closeSlot(s.Slot)
}

// NewRootCmd builds the command tree writing to the given streams.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "bookshelf",
		Short: "Track the books you have read and the ones you want to read",
		Long: `bookshelf keeps two lists of books, unread and read, and saves them
after every change.

Run without arguments to list the shelf.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	o.bind(root.PersistentFlags())

	// with opens a session around fn.
	with := func(fn func(s *session, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if err := s.Close(); err != nil {
					s.Log.Warn().Err(err).Msg("closing storage")
				}
			}()
			return fn(s, args)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show every book",
		Args:  cobra.NoArgs,
		RunE: with(func(s *session, _ []string) error {
			s.render()
			s.App.Start()
			return s.Renderer.Err
		}),
	}
	root.RunE = list.RunE
	root.AddCommand(
		list,
		addCmd(with),
		editCmd(with),
		idCmd(with, "delete", "Remove a book", (*app.App).Delete),
		idCmd(with, "toggle", "Move a book between read and unread", (*app.App).Toggle),
		searchCmd(with),
		clearCmd(with),
		watchCmd(with),
	)
	return root
}

type wrapper func(func(s *session, args []string) error) func(*cobra.Command, []string) error

// bookFlags are the form fields shared by add and edit.
type bookFlags struct {
	Title, Author, Year string
	Read, Unread        bool
}

func (f *bookFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.Title, "title", "t", "", "book title")
	fs.StringVarP(&f.Author, "author", "a", "", "book author")
	fs.StringVarP(&f.Year, "year", "y", "", "publication year")
	fs.BoolVar(&f.Read, "read", false, "mark the book as read")
	fs.BoolVar(&f.Unread, "unread", false, "mark the book as unread")
}

func addCmd(with wrapper) *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Example: `  bookshelf add --title Dune --author "Frank Herbert" --year 1965
  bookshelf add -t Emma -a "Jane Austen" -y 1815 --read`,
		Args: cobra.NoArgs,
		RunE: with(func(s *session, _ []string) error {
			d, err := form.Parse(f.Title, f.Author, f.Year, f.Read)
			if err != nil {
				return err
			}
			s.App.Start()
			s.render()
			s.App.Submit(d)
			return s.Renderer.Err
		}),
	}
	f.bind(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("read", "unread")
	return cmd
}

func editCmd(with wrapper) *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:     "edit ID",
		Short:   "Change the details of a book",
		Example: `  bookshelf edit 1700000000000 --title "Dune Messiah" --year 1969 --read`,
		Args:    cobra.ExactArgs(1),
		RunE: with(func(s *session, args []string) error {
			id, err := bookshelf.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			s.App.Start()
			b, ok := s.App.BeginEdit(id)
			if !ok {
				fmt.Fprintf(s.out, "no book with id %v\n", id)
				return nil
			}
			var complete *bool
			if f.Read || f.Unread {
				complete = &f.Read
			}
			d, err := form.Merge(b, f.Title, f.Author, f.Year, complete)
			if err != nil {
				s.App.CancelEdit()
				return err
			}
			s.render()
			s.App.Submit(d)
			return s.Renderer.Err
		}),
	}
	f.bind(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("read", "unread")
	return cmd
}

func idCmd(with wrapper, use, short string, op func(*app.App, bookshelf.ID) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: with(func(s *session, args []string) error {
			id, err := bookshelf.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			s.App.Start()
			s.render()
			if !op(s.App, id) {
				fmt.Fprintf(s.out, "no book with id %v\n", id)
			}
			return s.Renderer.Err
		}),
	}
}

func searchCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "search [TERM...]",
		Short: "Show books whose title or author contains TERM",
		RunE: with(func(s *session, args []string) error {
			s.App.Start()
			return s.Renderer.Render(s.App.Search(strings.Join(args, " ")))
		}),
	}
}

var errNotConfirmed = errors.New("clearing removes every book: pass --yes to confirm")

func clearCmd(with wrapper) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every book and the saved shelf",
		Args:  cobra.NoArgs,
		RunE: with(func(s *session, _ []string) error {
			if !yes {
				return errNotConfirmed
			}
			s.App.Start()
			s.render()
			s.App.Clear()
			return s.Renderer.Err
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm removing every book")
	return cmd
}

func watchCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Redraw the shelf whenever its file changes",
		Long: `watch lists the shelf and redraws it every time the storage file is
replaced, for example by another bookshelf command. Only the file driver
can be watched. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(func(s *session, _ []string) error {
				return watch(cmd, s)
			})(cmd, args)
		},
	}
}

var errNotWatchable = errors.New("only the file driver can be watched")

// watch reloads on every change notification. Notifications arrive from the
// watcher goroutine and are handled here, so state stays single-threaded.
func watch(cmd *cobra.Command, s *session) error {
	f, cache, ok := fileSlot(s.Slot)
	if !ok {
		return errNotWatchable
	}
	ctx := cmd.Context()
	changed := make(chan struct{}, 1)
	done, err := f.Watch(ctx, s.Config.Storage.Key, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, func(err error) {
		s.Log.Warn().Err(err).Msg("watching storage")
	})
	if err != nil {
		return err
	}
	s.render()
	s.App.Start()
	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case <-changed:
			if cache != nil {
				cache.Refresh(s.Config.Storage.Key)
			}
			s.Log.Debug().Msg("storage changed, reloading")
			s.App.Reload()
		}
	}
}
