package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"streamkv/pkg/health"
	"streamkv/pkg/operator"
)

func pipelineCmd() *cobra.Command {
	var (
		count int
		ttl   uint32
	)

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Drive a put-then-get record flow through the operators",
		Long:  "Puts N records with keys 0..N-1 and values val0..valN-1, chaining each put output into a get. With the store down the flow emits nothing and stays healthy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			awaitUp(rt.manager, rt.cfg.Store.DialTimeout())

			keyAttr := rt.cfg.Operator.KeyAttribute
			valueAttr := rt.cfg.Operator.ValueAttribute
			ttlAttr := rt.cfg.Operator.TTLAttribute

			ctx := context.Background()
			emitted := 0
			for i := 0; i < count; i++ {
				in := operator.Tuple{
					keyAttr:   strconv.Itoa(i),
					valueAttr: "val" + strconv.Itoa(i),
					ttlAttr:   strconv.FormatUint(uint64(ttl), 10),
				}
				putOut, ok := rt.put.Process(ctx, in)
				if !ok {
					continue
				}
				getOut, ok := rt.get.Process(ctx, putOut)
				if !ok {
					continue
				}
				emitted++
				fmt.Printf("%s=%s\n", getOut[keyAttr], getOut[valueAttr])
			}

			fmt.Printf("emitted %d/%d records, healthy=%v\n", emitted, count, health.IsHealthy())
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "Number of records to put and get")
	cmd.Flags().Uint32Var(&ttl, "ttl", 300, "Time to live in seconds for each record")

	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Print the process health flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			if health.IsHealthy() {
				fmt.Println("healthy")
				return nil
			}
			fmt.Printf("unhealthy: %s\n", health.Default.Reason())
			return nil
		},
	}
}
