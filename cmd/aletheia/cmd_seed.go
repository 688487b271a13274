package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"aletheia/internal/store"
)

// seedCmd loads scenarios and wisdom passages into the store.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the store with scenarios or wisdom passages",
}

var seedScenariosCmd = &cobra.Command{
	Use:   "scenarios [file.yaml]",
	Short: "Load ethical scenarios from a YAML file",
	Long: `Loads scenarios from a YAML list. Each entry:

  - title: Trolley Dilemma
    description: A runaway trolley approaches five workers...
    actions:
      - pull the lever
      - do nothing`,
	Args: cobra.ExactArgs(1),
	RunE: seedScenarios,
}

var seedPassagesCmd = &cobra.Command{
	Use:   "passages [file.yaml]",
	Short: "Load wisdom passages from a YAML file and embed them",
	Long: `Loads philosophical passages from a YAML list and computes an
embedding for each. Each entry:

  - text: The unexamined life is not worth living.
    author: Socrates
    source: Apology
    framework: virtue_ethics
    era: ancient`,
	Args: cobra.ExactArgs(1),
	RunE: seedPassages,
}

func init() {
	seedCmd.AddCommand(seedScenariosCmd)
	seedCmd.AddCommand(seedPassagesCmd)
}

type scenarioSeed struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Actions     []string `yaml:"actions"`
}

type passageSeed struct {
	Text      string `yaml:"text"`
	Author    string `yaml:"author"`
	Source    string `yaml:"source"`
	Framework string `yaml:"framework"`
	Era       string `yaml:"era"`
}

func seedScenarios(cmd *cobra.Command, args []string) error {
	var seeds []scenarioSeed
	if err := readYAML(args[0], &seeds); err != nil {
		return err
	}

	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, s := range seeds {
		if s.Title == "" || len(s.Actions) == 0 {
			logger.Warn("skipping scenario without title or actions", zap.String("title", s.Title))
			continue
		}
		if _, err := a.db.InsertScenario(&store.ScenarioRecord{
			Title:       s.Title,
			Description: s.Description,
			Actions:     s.Actions,
		}); err != nil {
			return fmt.Errorf("insert scenario %q: %w", s.Title, err)
		}
	}

	count, _ := a.db.ScenarioCount()
	fmt.Printf("Seeded %d scenarios (%d total in store)\n", len(seeds), count)
	return nil
}

func seedPassages(cmd *cobra.Command, args []string) error {
	var seeds []passageSeed
	if err := readYAML(args[0], &seeds); err != nil {
		return err
	}

	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	inserted := 0
	for _, p := range seeds {
		if p.Text == "" {
			continue
		}
		vector := a.embd.GetOrCompute(ctx, p.Text)
		if len(vector) == 0 {
			logger.Warn("embedding failed, storing passage without vector",
				zap.String("author", p.Author), zap.String("source", p.Source))
		}
		if _, err := a.db.InsertPassage(&store.PassageRecord{
			Text:      p.Text,
			Author:    p.Author,
			Source:    p.Source,
			Framework: p.Framework,
			Era:       p.Era,
		}, vector); err != nil {
			return fmt.Errorf("insert passage by %s: %w", p.Author, err)
		}
		inserted++
	}

	count, _ := a.db.PassageCount()
	fmt.Printf("Seeded %d passages (%d total in store)\n", inserted, count)
	return nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return nil
}
