package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/volition-run/volition/internal/agent"
	"github.com/volition-run/volition/internal/sessions"
	"github.com/volition-run/volition/pkg/models"
)

func buildRunCmd() *cobra.Command {
	var (
		strategyName string
		resumeID     string
	)

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run the agent against a task, or resume a prior session",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")
			if task == "" && resumeID == "" {
				return fail("run: provide a task, or --resume <session-id>")
			}

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			logger := slog.Default()

			ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
			defer cancel()

			rt, err := loadRuntime(ctx, wd, logger)
			if err != nil {
				return err
			}

			state, err := resolveRunState(ctx, rt, task, resumeID)
			if err != nil {
				return err
			}

			strategy, err := buildCLIStrategy(strategyName, rt, task, state)
			if err != nil {
				return err
			}

			orch := rt.newOrchestrator(logger)
			outcome := orch.Run(ctx, strategy, state)
			if outcome.Err != nil {
				return outcome.Err
			}

			if err := rt.store.Save(ctx, state); err != nil {
				logger.Warn("failed to persist session", "session", state.ID, "error", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), outcome.FinalResult)
			fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", state.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", "complete_task", "strategy to run: complete_task, plan_execute, conversation")
	cmd.Flags().StringVar(&resumeID, "resume", "", "resume a previously saved session id instead of starting a new one")
	return cmd
}

func resolveRunState(ctx context.Context, rt *runtime, task, resumeID string) (*models.SessionState, error) {
	if resumeID == "" {
		return &models.SessionState{ID: sessions.NewID(), Task: task}, nil
	}

	state, err := rt.store.Load(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", resumeID, err)
	}
	if task != "" {
		state.Messages = append(state.Messages, models.ChatMessage{Role: models.RoleUser, Content: task})
	}
	return state, nil
}

func buildCLIStrategy(name string, rt *runtime, task string, state *models.SessionState) (agent.Strategy, error) {
	systemPrompt := rt.record.SystemPrompt
	switch name {
	case "complete_task":
		return agent.NewCompleteTask(systemPrompt, task, ""), nil
	case "plan_execute":
		pe := rt.record.Strategies.PlanExecute
		if pe.PlanningProvider == "" || pe.ExecutionProvider == "" {
			return nil, fail("plan_execute strategy requires strategies.plan_execute.planning_provider and .execution_provider in %s", "Volition.toml")
		}
		return agent.NewPlanExecute(task, pe.PlanningProvider, pe.ExecutionProvider, systemPrompt), nil
	case "conversation":
		return agent.NewConversation(agent.NewCompleteTask(systemPrompt, task, "")), nil
	default:
		return nil, fail("unknown strategy %q", name)
	}
}
