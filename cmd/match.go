package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hireloop/talent-matcher/internal/ai"
	"github.com/hireloop/talent-matcher/internal/ai/gemini"
	"github.com/hireloop/talent-matcher/internal/logger"
	"github.com/hireloop/talent-matcher/internal/matching"
	"github.com/hireloop/talent-matcher/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptShowDetails = "Show match details"
	PromptDumpToFile  = "Dump results to file"
	PromptExit        = "Exit"
	PromptBack        = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowDetails, PromptDumpToFile, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run a matching query and print a ranked report",
}

var matchJobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Rank the candidate pool against one job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, args[0], true)
	},
}

var matchCandidateCmd = &cobra.Command{
	Use:   "candidate <candidate-id>",
	Short: "Rank the job pool against one candidate",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.AddCommand(matchJobCmd)
	matchCmd.AddCommand(matchCandidateCmd)

	matchCmd.PersistentFlags().IntP("top-k", "k", 0, "how many profiles survive the vector pre-filter")
	matchCmd.PersistentFlags().IntP("limit", "l", 0, "cap the ranked report at this many results")
	matchCmd.PersistentFlags().BoolP("auto-approve", "y", false, "print the report and exit without prompting")

	viper.BindPFlag("match.top-k", matchCmd.PersistentFlags().Lookup("top-k"))
	viper.BindPFlag("match.result-limit", matchCmd.PersistentFlags().Lookup("limit"))
}

// runMatch is the main command for the cli.
func runMatch(cmd *cobra.Command, id string, candidatesToJob bool) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the talent-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	stack, err := buildStack(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching stack", zap.Error(err))
	}
	defer stack.close()

	if err := stack.indexProfiles(ctx); err != nil {
		logger.Fatal("indexing profiles", zap.Error(err))
	}

	opts := matchOptions(config)

	var outcome *matching.Outcome
	if candidatesToJob {
		job, err := stack.store.Job(ctx, id)
		if err != nil {
			logger.Fatal("fetching job", zap.String("job_id", id), zap.Error(err))
		}
		outcome, err = stack.orchestrator.MatchCandidatesToJob(ctx, job, opts)
		if err != nil {
			logger.Fatal("matching candidates to job", zap.Error(err))
		}
	} else {
		candidate, err := stack.store.Candidate(ctx, id)
		if err != nil {
			logger.Fatal("fetching candidate", zap.String("candidate_id", id), zap.Error(err))
		}
		outcome, err = stack.orchestrator.MatchJobsToCandidate(ctx, candidate, opts)
		if err != nil {
			logger.Fatal("matching jobs to candidate", zap.Error(err))
		}
	}

	reportOutcome(logger, outcome)

	if len(outcome.Results) == 0 {
		logger.Info("exiting", zap.String("reason", "no results to report"))
		return
	}

	if config.AI != nil && config.AI.Enabled {
		narrateResults(ctx, config.AI, stack, outcome, logger)
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, outcome, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func matchOptions(config *Config) matching.Options {
	opts := matching.Options{
		TopK:        viper.GetInt("match.top-k"),
		ResultLimit: viper.GetInt("match.result-limit"),
	}

	if config.Match != nil {
		opts.ConcurrencyLimit = config.Match.Concurrency
		opts.Weights = config.Match.Weights
	}

	return opts
}

func reportOutcome(logger *zap.Logger, outcome *matching.Outcome) {
	logger.Info("matching run finished",
		zap.String("run_id", outcome.RunID),
		zap.Int("results", len(outcome.Results)),
		zap.Strings("skipped", outcome.Skipped),
	)

	for _, result := range outcome.Results {
		logger.Info("ranked result",
			zap.Int("rank", result.Rank),
			zap.String("candidate_id", result.CandidateID),
			zap.String("job_id", result.JobID),
			zap.Float64("score", result.Score),
			zap.String("rationale", result.Rationale),
		)
	}
}

func handleAction(action string, outcome *matching.Outcome, logger *zap.Logger) error {
	switch action {
	case PromptShowDetails:
		return showDetails(outcome, logger)
	case PromptDumpToFile:
		filename, err := dumpResults(outcome)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping results to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func showDetails(outcome *matching.Outcome, logger *zap.Logger) error {
	items := make([]string, 0, len(outcome.Results)+1)
	for _, result := range outcome.Results {
		items = append(items, fmt.Sprintf("#%d %s / %s / %.2f",
			result.Rank, result.CandidateID, result.JobID, result.Score,
		))
	}

	detailsPrompt := promptui.Select{
		Label: "Choose a result and press ENTER",
		Items: append(items, PromptBack),
	}

	for {
		idx, selected, err := detailsPrompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		result := outcome.Results[idx]
		scores := result.SubScores()

		fields := []zap.Field{
			zap.Int("rank", result.Rank),
			zap.String("candidate_id", result.CandidateID),
			zap.String("job_id", result.JobID),
			zap.Float64("score", result.Score),
			zap.Float64("skill_overlap", scores.SkillOverlap),
			zap.Float64("responsibility", scores.Responsibility),
			zap.Float64("experience", scores.Experience),
			zap.String("experience_fit", string(result.ExperienceFit)),
			zap.String("rationale", result.Rationale),
		}

		if result.AI != nil {
			fields = append(fields,
				zap.String("ai_summary", result.AI.Summary),
				zap.String("ai_recommendation", result.AI.Recommendation),
			)
		}

		logger.Info("match details", fields...)
	}
}

func dumpResults(outcome *matching.Outcome) (string, error) {
	file, err := os.CreateTemp("", app+"-results-*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(outcome); err != nil {
		return "", err
	}

	return file.Name(), nil
}

func narrateResults(ctx context.Context, cfg *AIConfig, stack *matchingStack, outcome *matching.Outcome, logger *zap.Logger) {
	narrator, err := newNarrator(ctx, cfg, logger)
	if err != nil {
		logger.Warn("skipping ai narratives", zap.Error(err))
		return
	}

	top := 3
	if cfg.Gemini != nil && cfg.Gemini.NarrateTop > 0 {
		top = cfg.Gemini.NarrateTop
	}
	if top > len(outcome.Results) {
		top = len(outcome.Results)
	}

	for _, result := range outcome.Results[:top] {
		candidate, err := stack.store.Candidate(ctx, result.CandidateID)
		if err != nil {
			logger.Warn("skipping narrative", zap.String("candidate_id", result.CandidateID), zap.Error(err))
			continue
		}
		job, err := stack.store.Job(ctx, result.JobID)
		if err != nil {
			logger.Warn("skipping narrative", zap.String("job_id", result.JobID), zap.Error(err))
			continue
		}

		narrative, err := narrator.Narrate(ctx, candidate, job, result)
		if err != nil {
			// A failed narrative never invalidates the score.
			logger.Warn("generating narrative",
				zap.String("candidate_id", result.CandidateID),
				zap.String("job_id", result.JobID),
				zap.Error(err),
			)
			continue
		}

		result.AI = narrative

		logger.Info("ai narrative",
			zap.Int("rank", result.Rank),
			zap.String("candidate_id", result.CandidateID),
			zap.String("job_id", result.JobID),
			zap.String("summary", narrative.Summary),
			zap.String("recommendation", narrative.Recommendation),
		)
	}
}

func newNarrator(ctx context.Context, cfg *AIConfig, base *zap.Logger) (ai.Narrator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai narratives are enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}

	narratorLogger := logger.WithProvider(base, "gemini", generator.Model())

	return gemini.NewNarrator(generator, narratorLogger, cfg.Gemini.MaxRetries, cfg.Gemini.MaxLogLength), nil
}
