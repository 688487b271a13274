package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"aletheia/internal/cache"
	"aletheia/internal/config"
	"aletheia/internal/constitution"
	"aletheia/internal/cycle"
	"aletheia/internal/embedding"
	"aletheia/internal/llm"
	"aletheia/internal/logging"
	"aletheia/internal/oracle"
	"aletheia/internal/simulation"
	"aletheia/internal/store"
)

var (
	// Global flags
	verbose   bool
	workspace string
	apiKey    string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "aletheia",
	Short: "Aletheia - self-correcting ethical learning loop",
	Long: `Aletheia runs a self-correcting evaluation loop for an AI agent whose
behavior is governed by a mutable constitution of natural-language principles.

Each cycle: the agent decides an action for an ethical scenario, a wisdom
oracle critiques that action against multiple philosophical frameworks, and
an evolution engine decides whether and how to mutate the agent's principles
in response.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("categorized file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// app bundles the wired collaborators behind the CLI commands.
type app struct {
	cfg  *config.Config
	db   *store.LocalStore
	embd *cache.EmbeddingCache
	llm  llm.Client
	orc  *oracle.Oracle
	sim  *simulation.Simulation
}

// buildApp loads config and wires the storage and embedding stack. The
// embedding capability must be reachable at startup; generative text is
// only wired when needLLM is set.
func buildApp(needLLM bool) (*app, error) {
	cfg, err := config.Load(config.DefaultPath(workspace))
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := store.NewLocalStore(cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("embedding capability unavailable: %w", err)
	}

	a := &app{
		cfg:  cfg,
		db:   db,
		embd: cache.New(db, engine, cfg.GetCacheTTL()),
		sim:  simulation.New(db, nil),
	}
	a.orc = oracle.NewOracle(a.embd, db, cfg.Oracle)

	if needLLM {
		client, err := llm.NewGenAIClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.GetLLMTimeout())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("generative capability unavailable: %w", err)
		}
		a.llm = client
	}
	return a, nil
}

// orchestrator wires the learning-cycle orchestrator on top of the app.
func (a *app) orchestrator(adaptive bool, delay time.Duration) *cycle.Orchestrator {
	engine := constitution.NewEngine(a.cfg.Evolution, rand.New(rand.NewSource(time.Now().UnixNano())))
	return cycle.New(a.db, a.sim, a.orc, a.llm, engine, cycle.Options{
		Adaptive:   adaptive,
		CycleDelay: delay,
	})
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(constitutionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
