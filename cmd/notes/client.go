package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/muir/napi/nclient"
	"github.com/muir/napi/notes"
	"github.com/muir/napi/nshape"
	"github.com/muir/napi/nvelope"
	"github.com/muir/napi/nwire"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// clientEnv is what every client subcommand needs.
type clientEnv struct {
	client *notes.Client
	zlog   *zap.Logger
	out    io.Writer
	format nwire.Format
}

var outputTypes = map[string]string{
	"json": "application/json",
	"yaml": "application/yaml",
	"cbor": "application/cbor",
}

type clientFlags struct {
	baseURL     string
	contentType string
	output      string
}

func clientCmd(st *state) *cobra.Command {
	flags := &clientFlags{}

	c := &cobra.Command{
		Use:   "client",
		Short: "Call a running notes server",
	}
	c.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "server URL (overrides client.base_url)")
	c.PersistentFlags().StringVar(&flags.contentType, "content-type", "", "request encoding (overrides client.content_type)")
	c.PersistentFlags().StringVarP(&flags.output, "output", "o", "yaml", "output encoding: json, yaml, or cbor")

	run := func(fn func(ctx context.Context, env *clientEnv, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(st, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = env.zlog.Sync() }()
			return fn(cmd.Context(), env, args)
		}
	}

	c.AddCommand(
		&cobra.Command{
			Use:   "create CONTENT",
			Short: "Create a note and print all notes",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, env *clientEnv, args []string) error {
				all, err := env.client.CreateNote(ctx, args[0])
				return env.print(all, err)
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List notes",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, env *clientEnv, _ []string) error {
				all, err := env.client.GetNotes(ctx)
				return env.print(all, err)
			}),
		},
		&cobra.Command{
			Use:   "get ID",
			Short: "Fetch one note",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, env *clientEnv, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				n, err := env.client.GetNote(ctx, id)
				return env.print(n, err)
			}),
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete one note",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, env *clientEnv, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				msg, err := env.client.DeleteNote(ctx, id)
				return env.print(msg, err)
			}),
		},
		&cobra.Command{
			Use:   "delete-all",
			Short: "Delete every note",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, env *clientEnv, _ []string) error {
				msg, err := env.client.DeleteNotes(ctx)
				return env.print(msg, err)
			}),
		},
		&cobra.Command{
			Use:   "demo",
			Short: "Create two notes and list them",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, env *clientEnv, _ []string) error {
				return demo(ctx, env)
			}),
		},
	)
	return c
}

func newClientEnv(st *state, flags *clientFlags, out, stderr io.Writer) (*clientEnv, error) {
	cfg := nclient.DefaultConfig()
	cfg.BaseURL = st.cfg.Client.BaseURL
	cfg.ContentType = st.cfg.Client.ContentType
	if st.cfg.Client.Timeout > 0 {
		cfg.Timeout = st.cfg.Client.Timeout
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.contentType != "" {
		cfg.ContentType = flags.contentType
	}

	formats := nwire.NewRegistry()
	contentType := flags.output
	if full, ok := outputTypes[contentType]; ok {
		contentType = full
	}
	format, err := formats.Lookup(contentType)
	if err != nil {
		return nil, errors.Wrapf(err, "output %s", flags.output)
	}

	zlog := openLogger(st.cfg.Log, stderr)
	client, err := notes.NewClient(cfg,
		nclient.WithFormats(formats),
		nclient.WithLogger(nvelope.LoggerFromZap(zlog)))
	if err != nil {
		_ = zlog.Sync()
		return nil, err
	}
	return &clientEnv{client: client, zlog: zlog, out: out, format: format}, nil
}

// print writes a result, or explains a failure.
func (env *clientEnv) print(v interface{}, err error) error {
	if err != nil {
		return describeFailure(err)
	}
	// json field names for every output format
	domain, err := nshape.FromGo(v)
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	data, err := env.format.Marshal(domain)
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	_, err = env.out.Write(data)
	if err == nil && (len(data) == 0 || data[len(data)-1] != '\n') {
		_, err = io.WriteString(env.out, "\n")
	}
	return err
}

func describeFailure(err error) error {
	if payload, declared, ok := notes.APIErrorOf(err); ok {
		return errors.Errorf("%s failed with %s (%d): %s: %s",
			declared.Operation, declared.Tag, declared.Status, payload.Message, payload.Details)
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("note id %q is not a number", s)
	}
	return id, nil
}

func demo(ctx context.Context, env *clientEnv) error {
	for _, content := range []string{"Hey LambdaConf!!!", "Look at that!!!"} {
		if _, err := env.client.CreateNote(ctx, content); err != nil {
			return describeFailure(err)
		}
	}
	all, err := env.client.GetNotes(ctx)
	if err != nil {
		return describeFailure(err)
	}
	env.zlog.Debug(fmt.Sprintf("found %d notes", len(all)))
	return env.print(all, nil)
}
