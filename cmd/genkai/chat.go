package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/genkai/chat"
	"github.com/harunnryd/genkai/function"
	"github.com/harunnryd/genkai/gemini"
	"github.com/harunnryd/genkai/internal/config"
	"github.com/harunnryd/genkai/retry"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Send a prompt to the model",
	Long:  `Send a one-shot prompt. Functions enabled with --function are executed locally when the model calls them.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.APIKey == "" {
			return fmt.Errorf("no API key; set GEMINI_API_KEY or api_key in the config file")
		}

		model, err := buildModel(cfg)
		if err != nil {
			return err
		}

		prompt := strings.Join(args, " ")
		messages := []chat.Message{}
		if system, _ := cmd.Flags().GetString("system"); system != "" {
			messages = append(messages, chat.SystemMessage(system))
		}
		messages = append(messages, chat.UserMessage(prompt))

		opts := &chat.Options{}
		if functions, _ := cmd.Flags().GetStringSlice("function"); len(functions) > 0 {
			opts.Functions = functions
		}

		if stream, _ := cmd.Flags().GetBool("stream"); stream {
			chunks, errs := model.Stream(cmd.Context(), messages, opts)
			for chunk := range chunks {
				fmt.Print(chunk.Text())
			}
			fmt.Println()
			if err, ok := <-errs; ok && err != nil {
				return err
			}
			return nil
		}

		resp, err := model.Call(cmd.Context(), messages, opts)
		if err != nil {
			return err
		}
		fmt.Println(resp.Text())
		return nil
	},
}

func buildModel(cfg *config.Config) (*chat.Model, error) {
	registry := function.NewRegistry()
	if err := registerBuiltins(registry); err != nil {
		return nil, err
	}

	var clientOpts []gemini.Option
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, gemini.WithBaseURL(cfg.BaseURL))
	}
	client := gemini.NewClient(cfg.APIKey, clientOpts...)

	backoff, err := config.DurationOrDefault(cfg.Retry.Backoff, config.DefaultRetryBackoff)
	if err != nil {
		return nil, err
	}

	defaults := chat.DefaultOptions()
	defaults.Model = cfg.Chat.Model
	defaults.Temperature = chat.Ptr(float32(cfg.Chat.Temperature))

	return chat.New(client, registry,
		chat.WithDefaults(defaults),
		chat.WithRetryPolicy(retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Backoff: backoff}),
		chat.WithMaxFunctionCalls(cfg.Chat.MaxFunctionCalls),
	), nil
}

type timeArgs struct {
	Timezone string `json:"timezone,omitempty" description:"IANA timezone name, defaults to the local zone"`
}

func registerBuiltins(registry *function.Registry) error {
	currentTime, err := function.New("current_time", "Returns the current date and time.", func(_ context.Context, args timeArgs) (any, error) {
		loc := time.Local
		if args.Timezone != "" {
			var err error
			if loc, err = time.LoadLocation(args.Timezone); err != nil {
				return nil, fmt.Errorf("unknown timezone %q: %w", args.Timezone, err)
			}
		}
		return map[string]string{"now": time.Now().In(loc).Format(time.RFC3339)}, nil
	})
	if err != nil {
		return err
	}
	return registry.Register(currentTime)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("stream", false, "stream the response as it is generated")
	chatCmd.Flags().String("system", "", "system instruction for this prompt")
	chatCmd.Flags().StringSlice("function", nil, "registered function to advertise to the model (repeatable)")
}
