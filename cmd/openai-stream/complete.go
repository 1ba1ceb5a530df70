package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/LevitatingBusinessMan/openai-go"
)

func completeCommand(global *globalOptions) *cobra.Command {
	var (
		model     string
		maxTokens int
		noStream  bool
	)
	cmd := &cobra.Command{
		Use:   "complete [prompt]",
		Short: "Stream a legacy text completion",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			client, err := newClient(cmd, global)
			if err != nil {
				return err
			}

			completionArgs := openai.NewCompletionArguments(model, prompt)
			if maxTokens > 0 {
				completionArgs.MaxTokens = &maxTokens
			}
			return runComplete(cmd.Context(), client, completionArgs, newRenderer(cmd.OutOrStdout(), false), noStream)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "gpt-3.5-turbo-instruct", "Model to use")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Maximum tokens to generate (0 for the model default)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Wait for the whole response instead of streaming")
	return cmd
}

func runComplete(ctx context.Context, client *openai.Client, args openai.CompletionArguments, r *renderer, noStream bool) error {
	start := time.Now()

	if noStream {
		resp, err := client.CreateCompletion(ctx, args)
		if err != nil {
			return err
		}
		if err := r.write(resp.String()); err != nil {
			return err
		}
		if err := r.flush(); err != nil {
			return err
		}
		s := summary{Tokens: resp.Usage.TotalTokens, Elapsed: time.Since(start)}
		if len(resp.Choices) > 0 {
			s.FinishReason = resp.Choices[0].FinishReason
		}
		return r.footer(s)
	}

	s, err := client.CreateCompletionStream(ctx, args)
	if err != nil {
		return err
	}
	defer s.Close()

	var sum summary
	for {
		chunk, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		sum.Chunks++
		for _, choice := range chunk.Choices {
			if choice.FinishReason != nil {
				sum.FinishReason = *choice.FinishReason
			}
		}
		if err := r.write(chunk.String()); err != nil {
			return err
		}
	}
	if err := r.flush(); err != nil {
		return err
	}

	sum.Elapsed = time.Since(start)
	return r.footer(sum)
}
