package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aletheia/internal/store"
)

// statsCmd reports store contents and recent agent performance.
var statsCmd = &cobra.Command{
	Use:   "stats [agent-id]",
	Short: "Show store contents and agent learning statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showStats,
}

var constitutionCmd = &cobra.Command{
	Use:   "constitution [agent-id]",
	Short: "Print an agent's current constitution and version",
	Args:  cobra.ExactArgs(1),
	RunE:  showConstitution,
}

func showStats(cmd *cobra.Command, args []string) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	scenarios, _ := a.db.ScenarioCount()
	passages, _ := a.db.PassageCount()
	cacheSize, _ := a.db.CacheSize()

	fmt.Printf("Store: %s\n", a.db.Path())
	fmt.Printf("  Scenarios:         %d\n", scenarios)
	fmt.Printf("  Wisdom passages:   %d\n", passages)
	fmt.Printf("  Cached embeddings: %d\n", cacheSize)

	if len(args) == 0 {
		return nil
	}
	agentID := args[0]

	rec, err := a.db.GetAgent(agentID)
	if err != nil {
		return fmt.Errorf("agent %s: %w", agentID, err)
	}
	interactions, _ := a.db.InteractionCount(agentID)
	perf := a.sim.AnalyzePerformance(agentID)

	fmt.Printf("\nAgent %s\n", agentID)
	fmt.Printf("  Version:       %d\n", rec.Version)
	fmt.Printf("  Principles:    %d\n", len(rec.Constitution))
	fmt.Printf("  Interactions:  %d\n", interactions)
	fmt.Printf("  Average score: %.2f\n", perf.AverageScore)
	fmt.Printf("  Consistency:   %.2f\n", perf.Consistency)
	fmt.Printf("  Learning rate: %.2f\n", perf.LearningRate)
	return nil
}

func showConstitution(cmd *cobra.Command, args []string) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.db.GetAgent(args[0])
	if err != nil {
		if err == store.ErrNotFound {
			return fmt.Errorf("agent %s does not exist", args[0])
		}
		return err
	}

	fmt.Printf("Constitution of %s (version %d):\n", rec.AgentID, rec.Version)
	for i, p := range rec.Constitution {
		fmt.Printf("  %d. %s\n", i+1, p)
	}
	return nil
}
