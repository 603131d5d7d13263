package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dytto/internal/analysis"
	"dytto/internal/config"
	"dytto/internal/leveling"
	"dytto/internal/models"
	"dytto/internal/quests"
	"dytto/internal/services"
	"dytto/internal/store"
	"dytto/internal/utils"

	"github.com/spf13/cobra"
)

var (
	analyzeLevel   int
	lexiconPath    string
	questType      string
	questName      string
	questLevel     int
	questCategory  []string
	expireDeadline time.Duration
)

// levelsCmd prints the level table
var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Print the level table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := leveling.Table()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rows)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-6s %-22s %-9s %-10s %s\n", "LEVEL", "TITLE", "REQUIRED", "CUMULATIVE", "MILESTONE")
		for _, row := range rows {
			milestone := ""
			if row.Milestone {
				milestone = "yes"
			}
			fmt.Fprintf(out, "%-6d %-22s %-9d %-10d %s\n", row.Level, row.Title, row.XPRequired, row.Cumulative, milestone)
		}
		return nil
	},
}

// analyzeCmd runs the heuristic analyzer without touching any store
var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Analyze text and preview the XP it would earn",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.TrimSpace(strings.Join(args, " "))
		if content == "" {
			return fmt.Errorf("text is required")
		}

		lexicons := analysis.NewLexiconStore(nil)
		if lexiconPath != "" {
			if err := lexicons.Reload(lexiconPath); err != nil {
				return err
			}
		}

		analyzer := analysis.NewHeuristic(lexicons, utils.NewRandomSource(seed))
		result, err := analyzer.Analyze(cmd.Context(), content)
		if err != nil {
			return err
		}
		xp := analysis.CalculateXPGain(content, result.Sentiment, analyzeLevel)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"analysis":  result,
				"xp_gained": xp,
				"level":     analyzeLevel,
			})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Sentiment:   %s (confidence %.2f)\n", result.Sentiment, result.Confidence)
		fmt.Fprintf(out, "Tone:        %s\n", strings.Join(result.EmotionalTone, ", "))
		fmt.Fprintf(out, "Topics:      %s\n", strings.Join(result.Topics, ", "))
		for _, s := range result.Suggestions {
			fmt.Fprintf(out, "Suggestion:  %s\n", s)
		}
		fmt.Fprintf(out, "XP at level %d: +%d\n", analyzeLevel, xp)
		return nil
	},
}

// questCmd previews a generated quest for a synthetic relationship
var questCmd = &cobra.Command{
	Use:   "quest",
	Short: "Preview a generated quest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if questLevel < 1 || questLevel > leveling.MaxLevel {
			return fmt.Errorf("level must be between 1 and %d", leveling.MaxLevel)
		}

		now := time.Now().UTC()
		rel := &models.Relationship{
			ID:         "preview",
			Name:       questName,
			Categories: questCategory,
			Level:      questLevel,
			XP:         leveling.CumulativeXPForLevel(questLevel),
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		quest, err := quests.NewGenerator(utils.NewRandomSource(seed)).Generate(rel, nil, models.QuestType(questType), now)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), quest)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", quest.Title)
		fmt.Fprintf(out, "  %s\n", quest.Description)
		fmt.Fprintf(out, "  type=%s difficulty=%s reward=%d XP\n", quest.Type, quest.Difficulty, quest.XPReward)
		if quest.Deadline != nil {
			fmt.Fprintf(out, "  due %s\n", quest.Deadline.Format(time.RFC3339))
		}
		return nil
	},
}

// expireQuestsCmd runs quest expiry once against the configured store
var expireQuestsCmd = &cobra.Command{
	Use:   "expire-quests",
	Short: "Expire overdue pending quests in the configured store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		ctx, cancel := context.WithTimeout(cmd.Context(), expireDeadline)
		defer cancel()

		st, err := store.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
		}
		defer st.Close(context.Background())

		expired, err := services.NewQuestService(st).ExpireOverdue(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]int{"expired": expired})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Expired %d quest(s)\n", expired)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeLevel, "level", 1, "relationship level used for the XP preview")
	analyzeCmd.Flags().StringVar(&lexiconPath, "lexicon", "", "YAML lexicon file (defaults to the built-in lexicon)")

	questCmd.Flags().StringVar(&questType, "type", string(models.QuestDaily), "quest type: daily, weekly, milestone or custom")
	questCmd.Flags().StringVar(&questName, "name", "Alex", "relationship name")
	questCmd.Flags().IntVar(&questLevel, "level", 1, "relationship level")
	questCmd.Flags().StringSliceVar(&questCategory, "categories", []string{models.CategoryFriend}, "relationship categories")

	expireQuestsCmd.Flags().DurationVar(&expireDeadline, "timeout", 30*time.Second, "overall timeout")
}
