package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"streamkv/pkg/conn"
	"streamkv/pkg/operator"
)

// awaitUp gives the background dial a bounded window to finish before a
// one-shot command runs its record. Commands still work with the store
// down, they just emit nothing.
func awaitUp(m *conn.Manager, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if m.State() == conn.Up {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return m.State() == conn.Up
}

func putCmd() *cobra.Command {
	var ttl uint32

	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Put one key-value record with a TTL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			awaitUp(rt.manager, rt.cfg.Store.DialTimeout())

			in := operator.Tuple{
				rt.cfg.Operator.KeyAttribute:   args[0],
				rt.cfg.Operator.ValueAttribute: args[1],
				rt.cfg.Operator.TTLAttribute:   strconv.FormatUint(uint64(ttl), 10),
			}
			out, emitted := rt.put.Process(context.Background(), in)
			if !emitted {
				fmt.Println("(no output)")
				return nil
			}
			fmt.Println(out[rt.cfg.Operator.KeyAttribute])
			return nil
		},
	}

	cmd.Flags().Uint32Var(&ttl, "ttl", 0, "Time to live in seconds (0 = no expiry)")

	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get the value stored for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			awaitUp(rt.manager, rt.cfg.Store.DialTimeout())

			in := operator.Tuple{rt.cfg.Operator.KeyAttribute: args[0]}
			out, emitted := rt.get.Process(context.Background(), in)
			if !emitted {
				fmt.Println("(no output)")
				return nil
			}
			fmt.Println(out[rt.cfg.Operator.ValueAttribute])
			return nil
		},
	}
}
