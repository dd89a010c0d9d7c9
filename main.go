package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmllt/listboard/internal/board"
	"github.com/gmllt/listboard/internal/export"
	"github.com/gmllt/listboard/internal/session"
)

type app struct {
	configPath string
	cfg        *Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "listboard",
		Short:        "In-memory kanban lists with spreadsheet export",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the server (same as "listboard serve")
  listboard --config config.yml

  # Export one list of a saved board snapshot
  listboard export --board board.json --list Todo --out todo.xlsx
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "config.yml", "path to the YAML config file")

	cmd.AddCommand(newServeCmd(a), newExportCmd(a))
	return cmd
}

// loadConfig falls back to defaults when the default config file is absent.
// A missing file named with --config is an error.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		log.Printf("No %s found, using defaults", a.configPath)
		a.cfg = defaultConfig()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the board API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// sinks builds the archive sinks named in the config. It returns nil when
// exports are not archived.
func (a *app) sinks(ctx context.Context) (export.Sink, error) {
	var sinks export.Sinks
	if a.cfg.Export.Dir != "" {
		sinks = append(sinks, export.DirSink{Dir: a.cfg.Export.Dir})
	}
	if a.cfg.S3.Enabled {
		client, err := NewS3Client(ctx, a.cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to init S3: %w", err)
		}
		if err := EnsureBucketExists(ctx, client, a.cfg.S3.Bucket); err != nil {
			return nil, err
		}
		sinks = append(sinks, &s3Sink{client: client, bucket: a.cfg.S3.Bucket, prefix: a.cfg.S3.Prefix})
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return sinks, nil
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := a.sinks(ctx)
	if err != nil {
		return err
	}
	sessions := session.New(a.cfg.SessionTTL)
	go sessions.Run(ctx, a.cfg.SweepInterval)

	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           newRouter(&server{cfg: a.cfg, sessions: sessions, sink: sink}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("Listboard server starting on %s", a.cfg.Listen)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type exportOptions struct {
	boardPath string
	listRef   string
	out       string
	archive   bool
}

func newExportCmd(a *app) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one list of a board snapshot as a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.export(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.boardPath, "board", "-", "board JSON as returned by the API (- for stdin)")
	cmd.Flags().StringVar(&opts.listRef, "list", "", "list id or title")
	cmd.Flags().StringVar(&opts.out, "out", "", "output path (default: export.filename from config)")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "also store the export in the configured sinks")
	cmd.MarkFlagRequired("list")
	return cmd
}

func readBoard(path string) (*board.Board, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading board: %w", err)
	}
	var b board.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("error decoding board json: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board: %w", err)
	}
	return &b, nil
}

func (a *app) export(ctx context.Context, opts *exportOptions) error {
	b, err := readBoard(opts.boardPath)
	if err != nil {
		return err
	}
	l := b.FindList(opts.listRef)
	if l == nil {
		return fmt.Errorf("list %q not found", opts.listRef)
	}
	data, err := export.Bytes(a.cfg.Export.Sheet, l.Cards)
	if err != nil {
		return err
	}
	name := export.FileName(a.cfg.Export.Filename, l)
	out := opts.out
	if out == "" {
		out = name
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", out, err)
	}
	log.Printf("Exported list %s (%d cards) to %s", l.ID, len(l.Cards), out)

	if !opts.archive {
		return nil
	}
	sink, err := a.sinks(ctx)
	if err != nil {
		return err
	}
	if sink == nil {
		return errors.New("--archive given but no export.dir or s3 configured")
	}
	return sink.Put(ctx, name, data)
}
