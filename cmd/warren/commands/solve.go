package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/problem"
	"github.com/dyluth/warren/internal/solver"
	"github.com/dyluth/warren/internal/transport"
)

var (
	solveTimeout   time.Duration
	solveTrace     bool
	solveVerify    bool
	solveTransport string
	solveRedisURL  string
)

var solveCmd = &cobra.Command{
	Use:   "solve <problem.yml>",
	Short: "Solve a DCOP problem file",
	Long: `Solve a DCOP problem file with BnB-ADOPT and print the optimal
assignment and its total cost.

Examples:
  # Solve with in-process agents
  warren solve problems/graph-coloring.yml

  # Show each variable's convergence history
  warren solve problems/meeting.yml --trace

  # Cross-check the result against the brute-force reference
  warren solve problems/meeting.yml --verify

  # Run agents over a shared Redis server
  warren solve problems/meeting.yml --transport redis --redis-url redis://localhost:6379`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().DurationVar(&solveTimeout, "timeout", 30*time.Second, "Wall-clock limit; on expiry agents are killed and no assignment is produced")
	solveCmd.Flags().BoolVar(&solveTrace, "trace", false, "Print each variable's assignment history")
	solveCmd.Flags().BoolVar(&solveVerify, "verify", false, "Cross-check the cost against the brute-force reference solver")
	solveCmd.Flags().StringVar(&solveTransport, "transport", "channel", "Message transport: channel or redis")
	solveCmd.Flags().StringVar(&solveRedisURL, "redis-url", "redis://localhost:6379", "Redis URL (transport=redis only)")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	p, err := problem.Load(args[0])
	if err != nil {
		return printer.Error(
			"Invalid problem file",
			err.Error(),
			[]string{
				"Check the file against the format in docs/problem-format.md",
				"Costs must be non-negative and the problem must be a minimization",
			},
		)
	}

	opts := solver.Options{Trace: solveTrace}
	switch solveTransport {
	case "channel":
		// Default in-process transport; nothing to configure.
	case "redis":
		redisOpts, err := redis.ParseURL(solveRedisURL)
		if err != nil {
			return printer.Error(
				"Invalid Redis URL",
				fmt.Sprintf("Could not parse %q: %v", solveRedisURL, err),
				[]string{"Use the form redis://host:port"},
			)
		}
		tr, err := transport.NewRedis(redisOpts, uuid.NewString())
		if err != nil {
			return printer.Error(
				"Redis unreachable",
				err.Error(),
				[]string{"Start a Redis server or use --transport channel"},
			)
		}
		defer tr.Close()
		opts.Transport = tr
	default:
		return printer.Error(
			"Unknown transport",
			fmt.Sprintf("%q is not a supported transport.", solveTransport),
			[]string{"Use --transport channel or --transport redis"},
		)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), solveTimeout)
	defer cancel()

	result, err := solver.Solve(ctx, p, opts)
	if err != nil {
		return printer.Error(
			"Solve failed",
			err.Error(),
			[]string{"Increase --timeout for large problems"},
		)
	}

	printer.Info("Optimal assignment:\n")
	names := make([]string, 0, len(result.Assignment))
	for name := range result.Assignment {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printer.Assignment(name, result.Assignment[name])
	}
	printer.Success("Total minimal cost: %s (%s)\n", result.Cost, result.Elapsed.Round(time.Millisecond))

	if solveTrace {
		printer.Info("\nConvergence:\n")
		for _, name := range names {
			history := result.Traces[name]
			printer.Info("  %s:", name)
			for _, entry := range history {
				printer.Info(" %v@%s", entry.Value, entry.Elapsed.Round(time.Microsecond))
			}
			printer.Info("\n")
		}
	}

	if solveVerify {
		_, want, err := solver.BruteForce(p)
		if err != nil {
			return printer.Error("Verification failed", err.Error(), nil)
		}
		if want != result.Cost {
			return printer.Error(
				"Verification mismatch",
				fmt.Sprintf("BnB-ADOPT found cost %s but the brute-force reference found %s.", result.Cost, want),
				[]string{"Please report this problem file as a bug"},
			)
		}
		printer.Success("Verified against brute-force reference\n")
	}

	return nil
}
