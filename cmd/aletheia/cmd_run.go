package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aletheia/internal/agent"
)

var (
	cycleCount  int
	runAdaptive bool
	runDelay    time.Duration
)

// runCmd executes learning cycles for one agent.
var runCmd = &cobra.Command{
	Use:   "run [agent-id]",
	Short: "Run learning cycles for an agent",
	Long: `Runs the self-correcting learning loop for the given agent:
  1. Select a scenario (random, or adaptive with --adaptive)
  2. The agent decides an action under its current constitution
  3. The wisdom oracle critiques the action across ethical frameworks
  4. A panel-of-experts synthesis condenses the critique
  5. The agent reflects; the evolution engine proposes a mutation
  6. The evaluator gates the proposal; accepted changes bump the version

The agent is created with a default constitution on first run.`,
	Args: cobra.ExactArgs(1),
	RunE: runAgent,
}

func init() {
	runCmd.Flags().IntVar(&cycleCount, "cycles", 1, "Number of learning cycles to run")
	runCmd.Flags().BoolVar(&runAdaptive, "adaptive", false, "Select scenarios adaptively from performance history")
	runCmd.Flags().DurationVar(&runDelay, "delay", 15*time.Second, "Pause between consecutive cycles")
}

func runAgent(cmd *cobra.Command, args []string) error {
	agentID := args[0]

	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	// First run creates the agent with the default constitution.
	if _, err := agent.LoadOrCreate(a.db, a.llm, agentID, nil); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := a.orchestrator(runAdaptive, runDelay)
	for i := 0; i < cycleCount; i++ {
		logger.Info("executing learning cycle",
			zap.Int("cycle", i+1), zap.Int("total", cycleCount), zap.String("agent", agentID))

		rec, err := orch.RunCycle(ctx, agentID)
		if err != nil {
			return err
		}
		printCycle(rec.Decision, rec.Reflection, rec.VersionBefore, rec.VersionAfter, rec.Committed)

		if i < cycleCount-1 && runDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(runDelay):
			}
		}
	}
	return nil
}

func printCycle(decisionJSON, reflectionJSON string, before, after int, committed bool) {
	var decision struct {
		Action        string `json:"action"`
		Justification string `json:"justification"`
	}
	var reflection struct {
		Analysis  string `json:"analysis_of_critique"`
		Reasoning string `json:"reasoning_for_change"`
	}
	_ = json.Unmarshal([]byte(decisionJSON), &decision)
	_ = json.Unmarshal([]byte(reflectionJSON), &reflection)

	fmt.Printf("\nAGENT'S ACTION: %s\n", decision.Action)
	fmt.Printf("AGENT'S JUSTIFICATION: %s\n\n", decision.Justification)
	fmt.Printf("REFLECTION: %s\n", reflection.Analysis)
	fmt.Printf("REASONING FOR CHANGE: %s\n", reflection.Reasoning)
	if committed {
		fmt.Printf("CONSTITUTION: v%d -> v%d (committed)\n", before, after)
	} else {
		fmt.Printf("CONSTITUTION: v%d (unchanged)\n", before)
	}
}
