package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/agentuity/go-objectcache/cache"
	"github.com/agentuity/go-objectcache/server"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				val, found, err := cache.Get[any](ctx, s.rt.Manager, args[0])
				if err != nil {
					return err
				}
				if !found {
					return errors.Newf("%q not found", args[0])
				}
				out, err := json.MarshalToString(val)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newPutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <key> <json>",
		Short: "Store a JSON value under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl := cache.NoExpiry
			if v, _ := cmd.Flags().GetString("ttl"); v != "" {
				d, err := str2duration.ParseDuration(v)
				if err != nil {
					return errors.Wrapf(err, "invalid ttl %q", v)
				}
				ttl = d
			}
			var val any
			if err := json.UnmarshalFromString(args[1], &val); err != nil {
				return errors.Wrap(err, "value must be a JSON document")
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				return s.rt.Manager.Put(ctx, args[0], val, ttl)
			})
		},
	}
	cmd.Flags().String("ttl", "", "time to live such as 90s, 1h or 1d; empty never expires")
	return cmd
}

func newUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Overwrite key with a null value that never expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				return s.rt.Manager.Unset(ctx, args[0])
			})
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove key from every tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				found, err := s.rt.Manager.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return errors.Newf("%q not found", args[0])
				}
				return nil
			})
		},
	}
}

func newExistsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <key>",
		Short: "Print whether the persistent tier holds key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				fmt.Fprintln(cmd.OutOrStdout(), s.rt.Manager.Exists(ctx, args[0]))
				return nil
			})
		},
	}
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry from every tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				return s.rt.Manager.Clear(ctx)
			})
		},
	}
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cache over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				addr, _ := cmd.Flags().GetString("addr")
				if addr == "" {
					addr = s.cfg.Server.Addr
				}
				started := time.Now()
				err := server.Run(ctx, addr, server.New(s.rt.Manager, s.rt.Registry, s.log), s.log)
				s.log.Info("server stopped after %s", time.Since(started).Round(time.Second))
				return err
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from config server.addr)")
	return cmd
}
